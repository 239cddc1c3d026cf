// Package directory creates, deletes, lists and describes projects and
// keeps their repository links, leader and external role tags in step
// with the record store.
package directory

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/HendryAvila/projektbot/internal/logging"
	"github.com/HendryAvila/projektbot/internal/membership"
	"github.com/HendryAvila/projektbot/internal/roles"
	"github.com/HendryAvila/projektbot/internal/store"
)

// DeletePolicy decides what happens to members of a deleted project.
type DeletePolicy string

const (
	// PolicyClear unassigns every member in the delete transaction.
	PolicyClear DeletePolicy = "clear"
	// PolicyReject refuses to delete a project that still has members.
	PolicyReject DeletePolicy = "reject"
)

// ParsePolicy validates a configured policy name. Empty means PolicyClear.
func ParsePolicy(s string) (DeletePolicy, error) {
	switch DeletePolicy(s) {
	case "", PolicyClear:
		return PolicyClear, nil
	case PolicyReject:
		return PolicyReject, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

// Store is the subset of *store.Store the directory needs.
type Store interface {
	membership.Transactor
	Projects(ctx context.Context) iter.Seq2[store.Project, error]
}

// Service implements the project directory operations.
type Service struct {
	db      Store
	applier *roles.Applier
	policy  DeletePolicy
	log     *logging.Logger
}

// New creates a directory Service.
func New(db Store, applier *roles.Applier, policy DeletePolicy, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	if policy == "" {
		policy = PolicyClear
	}
	return &Service{db: db, applier: applier, policy: policy, log: log}
}

// Policy returns the configured delete policy.
func (s *Service) Policy() DeletePolicy { return s.policy }

// Details is the read model returned by Describe.
type Details struct {
	Project    store.Project
	Links      []store.RepoLink
	Members    []store.User
	LeaderName string
}

// ─── Create / Delete ─────────────────────────────────────────────────────────

// Create allocates the member and leader tags and records the project.
// Tags created before a later failure are deleted again.
func (s *Service) Create(ctx context.Context, name, description string) (*store.Project, error) {
	// A taken name must not allocate tags.
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		_, err := tx.Project(name)
		if err == nil {
			return fmt.Errorf("project %q: %w", name, store.ErrAlreadyExists)
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	tagger := s.applier.Tagger()
	color := roles.Color(name)
	var created []string
	rollback := func() {
		for _, id := range created {
			if err := tagger.DeleteTag(context.WithoutCancel(ctx), id); err != nil {
				s.log.Warn(ctx, "leaked role tag", zap.String("tag", id), zap.Error(err))
			}
		}
	}

	memberID, err := tagger.CreateTag(ctx, roles.MemberTagName(name), color)
	if err != nil {
		return nil, fmt.Errorf("creating member tag: %w", err)
	}
	created = append(created, memberID)

	leaderID, err := tagger.CreateTag(ctx, roles.LeaderTagName(name), color)
	if err != nil {
		rollback()
		return nil, fmt.Errorf("creating leader tag: %w", err)
	}
	created = append(created, leaderID)

	p := &store.Project{
		Name:         name,
		Description:  description,
		MemberRoleID: memberID,
		LeaderRoleID: leaderID,
		Color:        color,
	}
	if err := s.db.WithTx(ctx, func(tx *store.Tx) error { return tx.InsertProject(p) }); err != nil {
		rollback()
		return nil, err
	}

	s.log.Info(ctx, "project created", zap.String("project", name), zap.Int64("id", p.ID))
	return p, nil
}

// Delete removes the project's links, member assignments and record and
// retires its tags, all under one write transaction. Joins that race the
// delete either commit first and are seen by the policy check, or find no
// project.
//
// A failure retiring the member tag rolls everything back. Once the member
// tag is gone the record is deleted regardless; a leader tag that cannot
// be retired is logged as leaked.
func (s *Service) Delete(ctx context.Context, name string) error {
	var links, cleared int64
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		p, err := s.project(tx, name)
		if err != nil {
			return err
		}
		if s.policy == PolicyReject {
			members, err := tx.Members(p.ID)
			if err != nil {
				return err
			}
			if len(members) > 0 {
				return fmt.Errorf("%w: %s has %d", ErrProjectNotEmpty, name, len(members))
			}
		}
		if links, err = tx.DeleteLinks(p.ID); err != nil {
			return err
		}
		if cleared, err = tx.ClearAssignments(p.ID); err != nil {
			return err
		}
		if err := s.retireTag(ctx, p.MemberRoleID); err != nil {
			return err
		}
		if err := s.retireTag(ctx, p.LeaderRoleID); err != nil {
			s.log.Warn(ctx, "leaked role tag", zap.String("project", name),
				zap.String("tag", p.LeaderRoleID), zap.Error(err))
		}
		return tx.DeleteProject(p.ID)
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "project deleted", zap.String("project", name),
		zap.Int64("links", links), zap.Int64("members_cleared", cleared))
	return nil
}

// retireTag deletes one tag. A tag the service no longer knows counts as
// retired.
func (s *Service) retireTag(ctx context.Context, id string) error {
	err := s.applier.Tagger().DeleteTag(ctx, id)
	if errors.Is(err, roles.ErrUnknownTag) {
		s.log.Info(ctx, "role tag already retired", zap.String("tag", id))
		return nil
	}
	if err != nil {
		return fmt.Errorf("retiring tag %s: %w", id, err)
	}
	return nil
}

// ─── Read ────────────────────────────────────────────────────────────────────

// List returns every project in name order. Each range re-reads the store.
func (s *Service) List(ctx context.Context) iter.Seq2[store.Project, error] {
	return s.db.Projects(ctx)
}

// Describe returns the project with its links, members and leader name. A
// leader reference that no longer resolves leaves LeaderName empty.
func (s *Service) Describe(ctx context.Context, name string) (*Details, error) {
	var d Details
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		p, err := s.project(tx, name)
		if err != nil {
			return err
		}
		d.Project = *p
		if d.Links, err = tx.Links(p.ID); err != nil {
			return err
		}
		if d.Members, err = tx.Members(p.ID); err != nil {
			return err
		}
		if p.LeaderID != nil {
			leader, err := tx.User(*p.LeaderID)
			switch {
			case err == nil:
				d.LeaderName = leader.DisplayName
			case errors.Is(err, store.ErrNotFound):
				s.log.Debug(ctx, "stale leader reference", zap.String("project", name), zap.String("leader", *p.LeaderID))
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ─── Links ───────────────────────────────────────────────────────────────────

// AddLink attaches a labelled URL to the project.
func (s *Service) AddLink(ctx context.Context, project, label, url string) error {
	if err := ValidateURL(url); err != nil {
		return err
	}
	return s.db.WithTx(ctx, func(tx *store.Tx) error {
		p, err := s.project(tx, project)
		if err != nil {
			return err
		}
		return tx.InsertLink(&store.RepoLink{ProjectID: p.ID, Label: label, URL: url})
	})
}

// RemoveLink deletes the labelled link.
func (s *Service) RemoveLink(ctx context.Context, project, label string) error {
	return s.db.WithTx(ctx, func(tx *store.Tx) error {
		p, err := s.project(tx, project)
		if err != nil {
			return err
		}
		return linkErr(tx.DeleteLink(p.ID, label), project, label)
	})
}

// UpdateLink points the labelled link at a new URL.
func (s *Service) UpdateLink(ctx context.Context, project, label, url string) error {
	if err := ValidateURL(url); err != nil {
		return err
	}
	return s.db.WithTx(ctx, func(tx *store.Tx) error {
		p, err := s.project(tx, project)
		if err != nil {
			return err
		}
		return linkErr(tx.UpdateLinkURL(p.ID, label, url), project, label)
	})
}

func linkErr(err error, project, label string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s/%s", ErrLinkNotFound, project, label)
	}
	return err
}

// ─── Leader & users ──────────────────────────────────────────────────────────

// SetLeader makes userID the project's leader. The user must already be a
// member. Tag changes follow the commit; failures come back as warnings.
func (s *Service) SetLeader(ctx context.Context, project, userID string) ([]*roles.EffectError, error) {
	var effects []roles.Effect
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		effects = nil
		p, err := s.project(tx, project)
		if err != nil {
			return err
		}
		u, err := s.user(tx, userID)
		if err != nil {
			return err
		}
		if !u.AssignedTo(p.ID) {
			return fmt.Errorf("%w: %s in %s", ErrNotMember, userID, project)
		}
		if p.LeaderID != nil {
			if *p.LeaderID == userID {
				effects = append(effects, roles.GrantLeader(userID, p.Name, p.LeaderRoleID))
				return nil
			}
			effects = append(effects, roles.RevokeLeader(*p.LeaderID, p.Name, p.LeaderRoleID))
		}
		p.LeaderID = &u.ID
		effects = append(effects, roles.GrantLeader(userID, p.Name, p.LeaderRoleID))
		return tx.UpdateProject(p)
	})
	if err != nil {
		return nil, err
	}
	return s.applier.Apply(ctx, effects), nil
}

// Enroll records a community member, or refreshes their display name. It
// reports whether the user is new.
func (s *Service) Enroll(ctx context.Context, userID, displayName string) (bool, error) {
	var created bool
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		created, err = tx.UpsertUser(userID, displayName)
		return err
	})
	if err == nil && created {
		s.log.Debug(ctx, "user enrolled", zap.String("user", userID))
	}
	return created, err
}

// User returns the user record.
func (s *Service) User(ctx context.Context, userID string) (*store.User, *store.Project, error) {
	var (
		u *store.User
		p *store.Project
	)
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if u, err = s.user(tx, userID); err != nil {
			return err
		}
		if u.ProjectID != nil {
			p, err = tx.ProjectByID(*u.ProjectID)
			if errors.Is(err, store.ErrNotFound) {
				p, err = nil, nil
			}
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return u, p, nil
}

// Profile holds optional demographic fields. Nil fields are left unchanged.
type Profile struct {
	BirthYear  *int
	ClassLabel *string
}

// SetProfile updates the user's demographic fields.
func (s *Service) SetProfile(ctx context.Context, userID string, prof Profile) error {
	return s.db.WithTx(ctx, func(tx *store.Tx) error {
		u, err := s.user(tx, userID)
		if err != nil {
			return err
		}
		if prof.BirthYear != nil {
			u.BirthYear = prof.BirthYear
		}
		if prof.ClassLabel != nil {
			u.ClassLabel = prof.ClassLabel
		}
		return tx.UpdateUser(u)
	})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (s *Service) project(tx *store.Tx, name string) (*store.Project, error) {
	p, err := tx.Project(name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	return p, err
}

func (s *Service) user(tx *store.Tx, id string) (*store.User, error) {
	u, err := tx.User(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return u, err
}
