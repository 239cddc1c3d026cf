package gateway

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/HendryAvila/projektbot/internal/logging"
)

// Enroller records guild members. *directory.Service satisfies it.
type Enroller interface {
	Enroll(ctx context.Context, userID, displayName string) (bool, error)
}

const memberPageSize = 1000

// memberPager fetches one page of guild members after the given user id.
type memberPager func(after string, limit int) ([]*discordgo.Member, error)

// syncMembers enrolls every non-bot member and returns how many new users
// were created.
func syncMembers(ctx context.Context, fetch memberPager, enroll Enroller, log *logging.Logger) (int, error) {
	created, after := 0, ""
	for {
		page, err := fetch(after, memberPageSize)
		if err != nil {
			return created, err
		}
		for _, m := range page {
			if m.User == nil || m.User.Bot {
				continue
			}
			isNew, err := enroll.Enroll(ctx, m.User.ID, displayName(m))
			if err != nil {
				return created, err
			}
			if isNew {
				created++
			}
		}
		if len(page) < memberPageSize {
			break
		}
		after = page[len(page)-1].User.ID
	}
	log.Info(ctx, "guild members synced", zap.Int("new_users", created))
	return created, nil
}

// displayName prefers the guild nickname, then the global name.
func displayName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}
