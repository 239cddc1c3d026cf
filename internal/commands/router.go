package commands

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HendryAvila/projektbot/internal/directory"
	"github.com/HendryAvila/projektbot/internal/logging"
	"github.com/HendryAvila/projektbot/internal/membership"
	"github.com/HendryAvila/projektbot/internal/roles"
	"github.com/HendryAvila/projektbot/internal/store"
	"github.com/HendryAvila/projektbot/internal/telemetry"
)

// ─── Dependencies ────────────────────────────────────────────────────────────

// Directory is the project directory used by the handlers.
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
	User(ctx context.Context, userID string) (*store.User, *store.Project, error)
	SetProfile(ctx context.Context, userID string, p directory.Profile) error
}

// Membership runs join and leave batches.
type Membership interface {
	Join(ctx context.Context, project string, userIDs []string) (*membership.Result, error)
	Leave(ctx context.Context, userIDs []string) (*membership.Result, error)
}

// LatencyStats reports gateway latency for ping.
type LatencyStats interface {
	Stats() (telemetry.Stats, bool)
}

// CommandTracker records command metrics.
type CommandTracker interface {
	TrackCommand(command string) func()
}

// Deps groups the router's collaborators. Latency and Tracker may be nil.
type Deps struct {
	Directory  Directory
	Membership Membership
	Latency    LatencyStats
	Tracker    CommandTracker
	Logger     *logging.Logger
	Prefix     string
	Timeout    time.Duration
}

// ─── Router ──────────────────────────────────────────────────────────────────

type handlerFunc func(ctx context.Context, inv *Invocation) (string, error)

type command struct {
	path    string
	usage   string
	help    string
	admin   bool
	minArgs int
	run     handlerFunc
}

// Router matches prefixed messages to commands.
type Router struct {
	deps     Deps
	log      *logging.Logger
	commands []command
}

// NewRouter creates a Router with the full command table.
func NewRouter(deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if deps.Prefix == "" {
		deps.Prefix = "!"
	}
	r := &Router{deps: deps, log: deps.Logger}
	r.commands = r.table()
	return r
}

// Handle runs the command in msg. handled is false when msg does not start
// with the prefix. Every error is turned into the reply text.
func (r *Router) Handle(ctx context.Context, msg Message) (reply string, handled bool) {
	text, ok := strings.CutPrefix(strings.TrimSpace(msg.Content), r.deps.Prefix)
	if !ok || text == "" {
		return "", false
	}

	tokens, err := tokenize(text)
	if err != nil {
		return r.errorReply(ctx, nil, err), true
	}
	cmd, rest := r.match(tokens)
	if cmd == nil {
		return fmt.Sprintf("Unknown command. Try `%shelp`.", r.deps.Prefix), true
	}

	inv := newInvocation(msg, cmd.path, rest)
	ctx = WithInvocation(ctx, inv)
	ctx = logging.WithRequestID(ctx, inv.RequestID)
	ctx = logging.WithCommand(ctx, cmd.path)
	ctx = logging.WithGuild(ctx, inv.GuildID)
	if r.deps.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.deps.Timeout)
		defer cancel()
	}
	if r.deps.Tracker != nil {
		defer r.deps.Tracker.TrackCommand(cmd.path)()
	}

	out, err := r.run(ctx, cmd, inv)
	if err != nil {
		return r.errorReply(ctx, cmd, err), true
	}
	return out, true
}

func (r *Router) run(ctx context.Context, cmd *command, inv *Invocation) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in %s: %v", cmd.path, p)
		}
	}()

	if cmd.admin && !inv.Admin {
		return "", ErrPermissionDenied
	}
	if len(inv.Args) < cmd.minArgs {
		return "", fmt.Errorf("%w: usage: %s%s", ErrInvalidArgument, r.deps.Prefix, cmd.usage)
	}
	if inv.Issuer.ID != "" {
		if _, err := r.deps.Directory.Enroll(ctx, inv.Issuer.ID, inv.Issuer.Name); err != nil {
			return "", fmt.Errorf("enrolling issuer: %w", err)
		}
	}
	r.log.Debug(ctx, "command dispatched", zap.Strings("args", inv.Args), zap.Int("targets", len(inv.Targets)))
	return cmd.run(ctx, inv)
}

// match finds the longest command path that prefixes tokens.
func (r *Router) match(tokens []string) (*command, []string) {
	var (
		best  *command
		words int
	)
	for i := range r.commands {
		c := &r.commands[i]
		path := strings.Fields(c.path)
		if len(path) <= words || len(path) > len(tokens) {
			continue
		}
		ok := true
		for j, w := range path {
			if !strings.EqualFold(tokens[j], w) {
				ok = false
				break
			}
		}
		if ok {
			best, words = c, len(path)
		}
	}
	if best == nil {
		return nil, nil
	}
	return best, tokens[words:]
}

// ─── Errors ──────────────────────────────────────────────────────────────────

// errorReply maps err to a user-facing line. Unknown errors are logged
// with the request id and never shown raw.
func (r *Router) errorReply(ctx context.Context, cmd *command, err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "You need an admin role to do that."
	case errors.Is(err, ErrInvalidArgument):
		return capitalize(err.Error())
	case errors.Is(err, directory.ErrProjectNotFound),
		errors.Is(err, directory.ErrLinkNotFound),
		errors.Is(err, directory.ErrUserNotFound):
		return capitalize(notFoundDetail(err)) + "."
	case errors.Is(err, store.ErrAlreadyExists):
		return "A project with that name already exists."
	case errors.Is(err, store.ErrDuplicateLabel):
		return "That project already has a link with this label."
	case errors.Is(err, directory.ErrProjectNotEmpty):
		return "That project still has members. Move them out first."
	case errors.Is(err, directory.ErrNotMember):
		return "Only members of the project can lead it."
	case errors.Is(err, directory.ErrInvalidURL):
		return err.Error() + "."
	case errors.Is(err, context.DeadlineExceeded):
		return "That took too long. Please try again."
	}

	fields := []zap.Field{zap.Error(err)}
	if cmd != nil {
		fields = append(fields, zap.String("command", cmd.path))
	}
	r.log.Error(ctx, "command failed", fields...)
	reply := "Something went wrong."
	if id := logging.RequestIDFromContext(ctx); id != "" {
		reply += " (request " + id + ")"
	}
	return reply
}

// notFoundDetail keeps the "<kind> not found: <name>" part of a wrapped
// error chain.
func notFoundDetail(err error) string {
	msg := err.Error()
	for _, kind := range []string{"project not found", "link not found", "user not found"} {
		if i := strings.Index(msg, kind); i >= 0 {
			return msg[i:]
		}
	}
	return msg
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
