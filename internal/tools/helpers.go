// Package tools implements the MCP tool handlers for the projektbot admin
// surface.
//
// Each tool receives its dependencies via its struct and exposes a
// Definition and a Handle method compatible with mcp-go's AddTool. Tools
// depend on the Directory and Membership interfaces, not on concrete
// services.
package tools

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/lo"

	"github.com/HendryAvila/projektbot/internal/directory"
	"github.com/HendryAvila/projektbot/internal/membership"
	"github.com/HendryAvila/projektbot/internal/roles"
	"github.com/HendryAvila/projektbot/internal/store"
)

// Directory is the subset of directory.Service the tools use.
type Directory interface {
	Create(ctx context.Context, name, description string) (*store.Project, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) iter.Seq2[store.Project, error]
	Describe(ctx context.Context, name string) (*directory.Details, error)
	AddLink(ctx context.Context, project, label, url string) error
	RemoveLink(ctx context.Context, project, label string) error
	UpdateLink(ctx context.Context, project, label, url string) error
	SetLeader(ctx context.Context, project, userID string) ([]*roles.EffectError, error)
	Enroll(ctx context.Context, userID, displayName string) (bool, error)
}

// Membership runs join and leave batches.
type Membership interface {
	Join(ctx context.Context, project string, userIDs []string) (*membership.Result, error)
	Leave(ctx context.Context, userIDs []string) (*membership.Result, error)
}

// requireArgs returns an error result naming the first empty argument.
func requireArgs(req mcp.CallToolRequest, keys ...string) (map[string]string, *mcp.CallToolResult) {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v := strings.TrimSpace(req.GetString(k, ""))
		if v == "" {
			return nil, mcp.NewToolResultError(fmt.Sprintf("'%s' is required", k))
		}
		out[k] = v
	}
	return out, nil
}

// userIDs splits a comma or whitespace separated id list and drops
// duplicates, keeping first occurrence order.
func userIDs(raw string) []string {
	ids := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	return lo.Uniq(ids)
}

// errorResult reports domain errors as tool errors and returns anything
// else unchanged.
func errorResult(err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, directory.ErrProjectNotEmpty),
		errors.Is(err, directory.ErrNotMember),
		errors.Is(err, directory.ErrInvalidURL),
		errors.Is(err, store.ErrAlreadyExists),
		errors.Is(err, store.ErrDuplicateLabel):
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

func formatBatch(res *membership.Result) string {
	lines := lo.Map(res.Outcomes, func(o membership.Outcome, _ int) string {
		return "- " + o.String()
	})
	return strings.Join(lines, "\n") + formatWarnings(res.Warnings)
}

func formatWarnings(warnings []*roles.EffectError) string {
	if len(warnings) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n**Warnings** (committed, but the role change failed):\n")
	for _, w := range warnings {
		fmt.Fprintf(&b, "- could not %s: %v\n", w.Effect, w.Err)
	}
	return strings.TrimRight(b.String(), "\n")
}
