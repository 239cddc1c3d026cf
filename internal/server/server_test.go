package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/HendryAvila/projektbot/internal/config"
	"github.com/HendryAvila/projektbot/internal/directory"
	"github.com/HendryAvila/projektbot/internal/gateway"
	"github.com/HendryAvila/projektbot/internal/logging"
	"github.com/HendryAvila/projektbot/internal/roles"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Store.DataDir = t.TempDir()
	cfg.Store.BusyTimeoutMS = 1000
	cfg.Projects.DeletePolicy = string(directory.PolicyClear)
	cfg.Roles.RatePerSecond = 5
	cfg.Roles.Burst = 5
	return cfg
}

func TestNewTagger_OfflineWithoutToken(t *testing.T) {
	log := logging.NewTestLogger()
	tagger, err := NewTagger(testConfig(t), log.Logger)
	require.NoError(t, err)
	assert.IsType(t, &roles.MemoryTagger{}, tagger)
	log.AssertLogged(t, zapcore.WarnLevel, "no discord token")
}

func TestNewTagger_TokenNeedsGuild(t *testing.T) {
	cfg := testConfig(t)
	cfg.Discord.Token = "secret"
	_, err := NewTagger(cfg, logging.Nop())
	assert.ErrorIs(t, err, ErrNoGuild)
}

func TestNewTagger_RESTWithToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.Discord.Token = "secret"
	cfg.Discord.GuildID = "g1"
	tagger, err := NewTagger(cfg, logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, &gateway.RoleTagger{}, tagger)
}

func TestNewCore_RESTTaggerIsOnline(t *testing.T) {
	cfg := testConfig(t)
	cfg.Discord.Token = "secret"
	cfg.Discord.GuildID = "g1"
	tagger, err := NewTagger(cfg, logging.Nop())
	require.NoError(t, err)

	core, cleanup, err := NewCore(cfg, tagger, nil, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(cleanup)
	assert.False(t, core.Offline)
}

func TestNewCore_InvalidPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Projects.DeletePolicy = "shred"
	_, cleanup, err := NewCore(cfg, roles.NewMemoryTagger(), nil, logging.Nop())
	require.Error(t, err)
	assert.NotNil(t, cleanup)
	cleanup()
}

func TestNewCore_WiresServices(t *testing.T) {
	tagger := roles.NewMemoryTagger()
	core, cleanup, err := NewCore(testConfig(t), tagger, nil, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	ctx := context.Background()
	p, err := core.Directory.Create(ctx, "Rockets", "")
	require.NoError(t, err)
	_, err = core.Directory.Enroll(ctx, "u1", "Ada")
	require.NoError(t, err)

	res, err := core.Membership.Join(ctx, "Rockets", []string{"u1"})
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)
	assert.True(t, tagger.Holds("u1", p.MemberRoleID))
	assert.Equal(t, directory.PolicyClear, core.Directory.Policy())
	assert.True(t, core.Offline)

	assert.NotNil(t, New(core))
}
