// Package commands turns chat messages into directory and membership
// operations and renders their results as chat replies.
package commands

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/shlex"
	"github.com/google/uuid"
)

var (
	// ErrInvalidArgument marks malformed command input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPermissionDenied marks a command the issuer may not run.
	ErrPermissionDenied = errors.New("permission denied")
)

// User identifies a chat account.
type User struct {
	ID   string
	Name string
}

// Message is an incoming chat message, as seen by the gateway.
type Message struct {
	GuildID   string
	ChannelID string
	Content   string
	Author    User
	// Admin is true when the author holds an admin role or permission.
	Admin bool
}

// Invocation is everything a handler needs about one command call. It is
// built once at dispatch time.
type Invocation struct {
	RequestID string
	GuildID   string
	ChannelID string
	Issuer    User
	Admin     bool
	// Command is the matched command path, e.g. "project repo add".
	Command string
	// Args are the remaining tokens that are not user mentions.
	Args []string
	// Targets are the user ids mentioned after the command path, in order.
	Targets []string
}

var mentionRE = regexp.MustCompile(`^<@!?(\d+)>$`)

// Mention formats a user id as a chat mention.
func Mention(userID string) string {
	return "<@" + userID + ">"
}

// tokenize splits the text after the prefix, honouring quotes.
func tokenize(text string) ([]string, error) {
	tokens, err := shlex.Split(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return tokens, nil
}

// newInvocation splits rest into plain args and mentioned user ids.
func newInvocation(msg Message, command string, rest []string) *Invocation {
	inv := &Invocation{
		RequestID: uuid.NewString(),
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		Issuer:    msg.Author,
		Admin:     msg.Admin,
		Command:   command,
	}
	for _, tok := range rest {
		if m := mentionRE.FindStringSubmatch(tok); m != nil {
			inv.Targets = append(inv.Targets, m[1])
			continue
		}
		inv.Args = append(inv.Args, tok)
	}
	return inv
}

// targetsOrIssuer returns the mentioned users, or the issuer when none
// were named.
func (inv *Invocation) targetsOrIssuer() []string {
	if len(inv.Targets) == 0 {
		return []string{inv.Issuer.ID}
	}
	return inv.Targets
}

func (inv *Invocation) arg(i int) string {
	if i < len(inv.Args) {
		return inv.Args[i]
	}
	return ""
}

func (inv *Invocation) rest(i int) string {
	if i >= len(inv.Args) {
		return ""
	}
	return strings.Join(inv.Args[i:], " ")
}

type invocationCtxKey struct{}

// WithInvocation stores inv on ctx.
func WithInvocation(ctx context.Context, inv *Invocation) context.Context {
	return context.WithValue(ctx, invocationCtxKey{}, inv)
}

// InvocationFromContext returns the invocation stored on ctx, if any.
func InvocationFromContext(ctx context.Context) *Invocation {
	inv, _ := ctx.Value(invocationCtxKey{}).(*Invocation)
	return inv
}
