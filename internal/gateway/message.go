package gateway

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

// maxMessageLen is the chat service's per-message limit.
const maxMessageLen = 2000

// splitMessage cuts text into chunks of at most limit bytes, preferring
// line breaks and never splitting a rune.
func splitMessage(text string, limit int) []string {
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// hasAdminRole reports whether any of memberRoles is configured as admin.
func hasAdminRole(memberRoles, adminRoles []string) bool {
	return lo.SomeBy(memberRoles, func(r string) bool { return slices.Contains(adminRoles, r) })
}
