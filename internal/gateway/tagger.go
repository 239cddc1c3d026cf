package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/HendryAvila/projektbot/internal/roles"
)

// roleAPI is the part of *discordgo.Session the tagger calls.
type roleAPI interface {
	GuildRoleCreate(guildID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error)
	GuildRoleDelete(guildID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

// RoleTagger implements roles.Tagger with guild roles. Calls are throttled
// so a large batch does not trip the API rate limit.
type RoleTagger struct {
	api     roleAPI
	guildID string
	limiter *rate.Limiter
}

// NewRoleTagger creates a RoleTagger for one guild.
func NewRoleTagger(api roleAPI, guildID string, perSecond float64, burst int) *RoleTagger {
	return &RoleTagger{api: api, guildID: guildID, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (t *RoleTagger) CreateTag(ctx context.Context, name string, color int) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}
	mentionable := true
	role, err := t.api.GuildRoleCreate(t.guildID, &discordgo.RoleParams{
		Name:        name,
		Color:       &color,
		Mentionable: &mentionable,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("creating role %q: %w", name, classify(err))
	}
	return role.ID, nil
}

func (t *RoleTagger) DeleteTag(ctx context.Context, tagID string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := t.api.GuildRoleDelete(t.guildID, tagID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("deleting role %s: %w", tagID, classify(err))
	}
	return nil
}

func (t *RoleTagger) Grant(ctx context.Context, userID, tagID string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := t.api.GuildMemberRoleAdd(t.guildID, userID, tagID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("granting role %s to %s: %w", tagID, userID, classify(err))
	}
	return nil
}

// Revoke treats a member who left the guild as already revoked.
func (t *RoleTagger) Revoke(ctx context.Context, userID, tagID string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	err := t.api.GuildMemberRoleRemove(t.guildID, userID, tagID, discordgo.WithContext(ctx))
	if err == nil || restCode(err) == discordgo.ErrCodeUnknownMember {
		return nil
	}
	return fmt.Errorf("revoking role %s from %s: %w", tagID, userID, classify(err))
}

// classify maps an unknown-role API error onto roles.ErrUnknownTag.
func classify(err error) error {
	if restCode(err) == discordgo.ErrCodeUnknownRole {
		return fmt.Errorf("%w: %v", roles.ErrUnknownTag, err)
	}
	return err
}

func restCode(err error) int {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		return rest.Message.Code
	}
	return 0
}
