package roles

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/HendryAvila/projektbot/internal/logging"
)

// FailureRecorder counts effects that could not be applied.
type FailureRecorder interface {
	RecordEffectFailure(action string)
}

// Applier issues effects best-effort, in order.
type Applier struct {
	tagger   Tagger
	log      *logging.Logger
	recorder FailureRecorder
}

// NewApplier creates an Applier. recorder may be nil.
func NewApplier(tagger Tagger, log *logging.Logger, recorder FailureRecorder) *Applier {
	if log == nil {
		log = logging.Nop()
	}
	return &Applier{tagger: tagger, log: log, recorder: recorder}
}

// Tagger returns the underlying tag service.
func (a *Applier) Tagger() Tagger { return a.tagger }

// Apply runs every effect even when earlier ones fail, and returns the
// failures. Revoking a tag that no longer exists counts as success.
func (a *Applier) Apply(ctx context.Context, effects []Effect) []*EffectError {
	var failed []*EffectError
	for _, e := range effects {
		var err error
		switch e.Action {
		case Grant:
			err = a.tagger.Grant(ctx, e.UserID, e.TagID)
		case Revoke:
			err = a.tagger.Revoke(ctx, e.UserID, e.TagID)
			if errors.Is(err, ErrUnknownTag) {
				a.log.Debug(ctx, "revoke of retired tag ignored", zap.String("tag", e.TagID))
				err = nil
			}
		}
		if err == nil {
			continue
		}
		a.log.Warn(ctx, "role effect failed", zap.Stringer("effect", e), zap.Error(err))
		if a.recorder != nil {
			a.recorder.RecordEffectFailure(e.Action.String())
		}
		failed = append(failed, &EffectError{Effect: e, Err: err})
	}
	return failed
}
