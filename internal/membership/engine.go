// Package membership moves users between projects. Each transition returns
// the role effects that must follow it; callers issue them only after the
// store transaction has committed.
package membership

import (
	"errors"
	"fmt"

	"github.com/HendryAvila/projektbot/internal/roles"
	"github.com/HendryAvila/projektbot/internal/store"
)

// ErrProjectNotFound is returned when a named project does not exist.
var ErrProjectNotFound = fmt.Errorf("project %w", store.ErrNotFound)

// TransitionKind classifies what an assignment change did.
type TransitionKind int

const (
	Added TransitionKind = iota
	Moved
	Unchanged
	Removed
	NotAssigned
)

// Transition describes one user's assignment change.
type Transition struct {
	Kind   TransitionKind
	UserID string
	From   string
	To     string
}

func (t Transition) String() string {
	switch t.Kind {
	case Added:
		return "added to " + t.To
	case Moved:
		return fmt.Sprintf("moved from %s to %s", t.From, t.To)
	case Unchanged:
		return "already in " + t.To
	case Removed:
		return "removed from " + t.From
	default:
		return "not in a project"
	}
}

// Assign makes p the user's only project.
func Assign(tx *store.Tx, u *store.User, p *store.Project) (Transition, []roles.Effect, error) {
	t := Transition{UserID: u.ID, To: p.Name}

	if u.AssignedTo(p.ID) {
		t.Kind = Unchanged
		t.From = p.Name
		return t, []roles.Effect{roles.GrantMember(u.ID, p.Name, p.MemberRoleID)}, nil
	}

	var effects []roles.Effect
	old, err := currentProject(tx, u)
	if err != nil {
		return t, nil, err
	}
	if old != nil {
		effects, err = leave(tx, u, old)
		if err != nil {
			return t, nil, err
		}
		t.Kind = Moved
		t.From = old.Name
	} else {
		t.Kind = Added
	}

	u.ProjectID = &p.ID
	if err := tx.UpdateUser(u); err != nil {
		return t, nil, fmt.Errorf("assigning %s to %s: %w", u.ID, p.Name, err)
	}
	effects = append(effects, roles.GrantMember(u.ID, p.Name, p.MemberRoleID))
	return t, effects, nil
}

// Unassign clears the user's project. A user without one is left alone and
// produces no effects.
func Unassign(tx *store.Tx, u *store.User) (Transition, []roles.Effect, error) {
	t := Transition{Kind: NotAssigned, UserID: u.ID}

	old, err := currentProject(tx, u)
	if err != nil || old == nil {
		return t, nil, err
	}
	effects, err := leave(tx, u, old)
	if err != nil {
		return t, nil, err
	}
	u.ProjectID = nil
	if err := tx.UpdateUser(u); err != nil {
		return t, nil, fmt.Errorf("unassigning %s: %w", u.ID, err)
	}
	t.Kind = Removed
	t.From = old.Name
	return t, effects, nil
}

// currentProject loads the user's assigned project, or nil.
func currentProject(tx *store.Tx, u *store.User) (*store.Project, error) {
	if u.ProjectID == nil {
		return nil, nil
	}
	p, err := tx.ProjectByID(*u.ProjectID)
	if errors.Is(err, store.ErrNotFound) {
		u.ProjectID = nil
		return nil, nil
	}
	return p, err
}

// leave drops the leader reference on old when u held it, and returns the
// revokes for both of old's tags. Revokes are unconditional.
func leave(tx *store.Tx, u *store.User, old *store.Project) ([]roles.Effect, error) {
	if old.LedBy(u.ID) {
		old.LeaderID = nil
		if err := tx.UpdateProject(old); err != nil {
			return nil, fmt.Errorf("dropping leader of %s: %w", old.Name, err)
		}
	}
	return []roles.Effect{
		roles.RevokeMember(u.ID, old.Name, old.MemberRoleID),
		roles.RevokeLeader(u.ID, old.Name, old.LeaderRoleID),
	}, nil
}
