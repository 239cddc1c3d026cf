// Package roles describes the external role tags that mirror project
// membership, and applies grant/revoke effects against a Tagger.
package roles

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
)

// ErrUnknownTag is returned by a Tagger when the tag id no longer exists.
var ErrUnknownTag = errors.New("unknown tag")

// Tagger is the external role service. Revoke must succeed when the user
// does not hold the tag.
type Tagger interface {
	CreateTag(ctx context.Context, name string, color int) (string, error)
	DeleteTag(ctx context.Context, tagID string) error
	Grant(ctx context.Context, userID, tagID string) error
	Revoke(ctx context.Context, userID, tagID string) error
}

// Action is the kind of an Effect.
type Action int

const (
	Grant Action = iota
	Revoke
)

func (a Action) String() string {
	if a == Grant {
		return "grant"
	}
	return "revoke"
}

// Effect is one role change to issue after the store commit.
type Effect struct {
	Action  Action
	UserID  string
	TagID   string
	Project string
	Leader  bool
}

func (e Effect) String() string {
	kind := "member"
	if e.Leader {
		kind = "leader"
	}
	return fmt.Sprintf("%s %s role of %s to %s", e.Action, kind, e.Project, e.UserID)
}

// GrantMember, RevokeMember, GrantLeader and RevokeLeader build effects.
func GrantMember(userID, project, tagID string) Effect {
	return Effect{Action: Grant, UserID: userID, TagID: tagID, Project: project}
}

func RevokeMember(userID, project, tagID string) Effect {
	return Effect{Action: Revoke, UserID: userID, TagID: tagID, Project: project}
}

func GrantLeader(userID, project, tagID string) Effect {
	return Effect{Action: Grant, UserID: userID, TagID: tagID, Project: project, Leader: true}
}

func RevokeLeader(userID, project, tagID string) Effect {
	return Effect{Action: Revoke, UserID: userID, TagID: tagID, Project: project, Leader: true}
}

// EffectError reports an effect the Tagger failed to apply. The store
// mutation it belongs to stays committed.
type EffectError struct {
	Effect Effect
	Err    error
}

func (e *EffectError) Error() string {
	return fmt.Sprintf("%s: %v", e.Effect, e.Err)
}

func (e *EffectError) Unwrap() error { return e.Err }

// ─── Naming ──────────────────────────────────────────────────────────────────

// MemberTagName and LeaderTagName name the two tags of a project.
func MemberTagName(project string) string { return project }

func LeaderTagName(project string) string { return project + " Lead" }

var palette = []int{
	0x1ABC9C, 0x2ECC71, 0x3498DB, 0x9B59B6, 0xE91E63,
	0xF1C40F, 0xE67E22, 0xE74C3C, 0x11806A, 0x206694,
}

// Color picks a stable palette color for a project name.
func Color(project string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(project))
	return palette[h.Sum32()%uint32(len(palette))]
}
