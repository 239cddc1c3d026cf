package logging

import (
	"context"

	"go.uber.org/zap"
)

type requestCtxKey struct{}
type commandCtxKey struct{}
type guildCtxKey struct{}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if cmd, ok := ctx.Value(commandCtxKey{}).(string); ok && cmd != "" {
		fields = append(fields, zap.String("command", cmd))
	}
	if guild, ok := ctx.Value(guildCtxKey{}).(string); ok && guild != "" {
		fields = append(fields, zap.String("guild.id", guild))
	}
	return fields
}

// WithRequestID adds a request ID to ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext extracts the request ID from ctx.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithCommand adds the command name being executed to ctx.
func WithCommand(ctx context.Context, command string) context.Context {
	return context.WithValue(ctx, commandCtxKey{}, command)
}

// WithGuild adds the chat guild id to ctx.
func WithGuild(ctx context.Context, guildID string) context.Context {
	return context.WithValue(ctx, guildCtxKey{}, guildID)
}
