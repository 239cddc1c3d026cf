package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/HendryAvila/projektbot/internal/logging"
	"github.com/HendryAvila/projektbot/internal/roles"
	"github.com/HendryAvila/projektbot/internal/store"
)

// Transactor opens one store transaction. *store.Store satisfies it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *store.Tx) error) error
}

// Outcome is the result for one requested user.
type Outcome struct {
	UserID     string
	NotFound   bool
	Transition Transition
}

func (o Outcome) String() string {
	if o.NotFound {
		return o.UserID + ": not found"
	}
	return o.UserID + ": " + o.Transition.String()
}

// Result is the outcome of a batch plus any effects that failed after commit.
type Result struct {
	Outcomes []Outcome
	Warnings []*roles.EffectError
}

// Service runs assignment batches: one transaction per batch, effects
// after commit.
type Service struct {
	db      Transactor
	applier *roles.Applier
	log     *logging.Logger
}

// NewService creates a membership Service.
func NewService(db Transactor, applier *roles.Applier, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	return &Service{db: db, applier: applier, log: log}
}

// Join assigns every listed user to the named project. Unknown users are
// reported, never created.
func (s *Service) Join(ctx context.Context, project string, userIDs []string) (*Result, error) {
	return s.batch(ctx, "join", userIDs, func(tx *store.Tx) (stepFunc, error) {
		p, err := tx.Project(project)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, project)
		}
		if err != nil {
			return nil, err
		}
		return func(u *store.User) (Transition, []roles.Effect, error) {
			return Assign(tx, u, p)
		}, nil
	})
}

// Leave removes every listed user from their project.
func (s *Service) Leave(ctx context.Context, userIDs []string) (*Result, error) {
	return s.batch(ctx, "leave", userIDs, func(tx *store.Tx) (stepFunc, error) {
		return func(u *store.User) (Transition, []roles.Effect, error) {
			return Unassign(tx, u)
		}, nil
	})
}

// stepFunc applies one transition to a loaded user.
type stepFunc func(*store.User) (Transition, []roles.Effect, error)

func (s *Service) batch(ctx context.Context, op string, userIDs []string, prepare func(*store.Tx) (stepFunc, error)) (*Result, error) {
	userIDs = lo.Uniq(userIDs)
	var (
		outcomes []Outcome
		effects  []roles.Effect
	)
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		// Reset so a retried callback never double counts.
		outcomes, effects = nil, nil
		step, err := prepare(tx)
		if err != nil {
			return err
		}
		for _, id := range userIDs {
			u, err := tx.User(id)
			if errors.Is(err, store.ErrNotFound) {
				outcomes = append(outcomes, Outcome{UserID: id, NotFound: true})
				continue
			}
			if err != nil {
				return err
			}
			t, eff, err := step(u)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, Outcome{UserID: id, Transition: t})
			effects = append(effects, eff...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Debug(ctx, "membership batch committed",
		zap.String("op", op), zap.Int("users", len(outcomes)), zap.Int("effects", len(effects)))
	return &Result{Outcomes: outcomes, Warnings: s.applier.Apply(ctx, effects)}, nil
}
