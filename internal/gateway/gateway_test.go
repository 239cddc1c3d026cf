package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/projektbot/internal/lifecycle"
	"github.com/HendryAvila/projektbot/internal/logging"
	"github.com/HendryAvila/projektbot/internal/roles"
	"github.com/HendryAvila/projektbot/internal/telemetry"
)

// --- Fakes ---

func restErr(code int) error {
	return &discordgo.RESTError{
		Response:     &http.Response{Status: "404 Not Found", StatusCode: http.StatusNotFound},
		ResponseBody: []byte(`{}`),
		Message:      &discordgo.APIErrorMessage{Code: code, Message: "unknown"},
	}
}

type fakeAPI struct {
	created []string
	err     error
	calls   []string
}

func (f *fakeAPI) GuildRoleCreate(guildID string, data *discordgo.RoleParams, _ ...discordgo.RequestOption) (*discordgo.Role, error) {
	f.calls = append(f.calls, "create "+guildID+" "+data.Name)
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, data.Name)
	return &discordgo.Role{ID: fmt.Sprintf("r%d", len(f.created)), Name: data.Name}, nil
}

func (f *fakeAPI) GuildRoleDelete(guildID, roleID string, _ ...discordgo.RequestOption) error {
	f.calls = append(f.calls, "delete "+roleID)
	return f.err
}

func (f *fakeAPI) GuildMemberRoleAdd(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.calls = append(f.calls, "add "+userID+" "+roleID)
	return f.err
}

func (f *fakeAPI) GuildMemberRoleRemove(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.calls = append(f.calls, "remove "+userID+" "+roleID)
	return f.err
}

type enrollLog struct {
	seen map[string]string
	err  error
}

func (e *enrollLog) Enroll(_ context.Context, id, name string) (bool, error) {
	if e.err != nil {
		return false, e.err
	}
	if e.seen == nil {
		e.seen = map[string]string{}
	}
	_, existed := e.seen[id]
	e.seen[id] = name
	return !existed, nil
}

type pingResult struct{ err error }

func (p pingResult) Ping(context.Context) error { return p.err }

// --- RoleTagger ---

func TestRoleTagger_CreateAndGrant(t *testing.T) {
	api := &fakeAPI{}
	tg := NewRoleTagger(api, "g1", 100, 10)
	ctx := context.Background()

	id, err := tg.CreateTag(ctx, "Rockets", 0x3498DB)
	require.NoError(t, err)
	assert.Equal(t, "r1", id)
	require.NoError(t, tg.Grant(ctx, "u1", id))
	assert.Equal(t, []string{"create g1 Rockets", "add u1 r1"}, api.calls)
}

func TestRoleTagger_UnknownRoleMapsToUnknownTag(t *testing.T) {
	api := &fakeAPI{err: restErr(discordgo.ErrCodeUnknownRole)}
	tg := NewRoleTagger(api, "g1", 100, 10)

	err := tg.DeleteTag(context.Background(), "r9")
	assert.ErrorIs(t, err, roles.ErrUnknownTag)
	err = tg.Revoke(context.Background(), "u1", "r9")
	assert.ErrorIs(t, err, roles.ErrUnknownTag)
}

func TestRoleTagger_RevokeFromDepartedMemberSucceeds(t *testing.T) {
	api := &fakeAPI{err: restErr(discordgo.ErrCodeUnknownMember)}
	tg := NewRoleTagger(api, "g1", 100, 10)

	assert.NoError(t, tg.Revoke(context.Background(), "gone", "r1"))
	assert.Error(t, tg.Grant(context.Background(), "gone", "r1"))
}

func TestRoleTagger_OtherErrorsPassThrough(t *testing.T) {
	boom := errors.New("network down")
	tg := NewRoleTagger(&fakeAPI{err: boom}, "g1", 100, 10)
	_, err := tg.CreateTag(context.Background(), "X", 0)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, roles.ErrUnknownTag)
}

func TestRoleTagger_CancelledContext(t *testing.T) {
	api := &fakeAPI{}
	tg := NewRoleTagger(api, "g1", 0.001, 1)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, tg.Grant(ctx, "u1", "r1")) // uses the burst token
	cancel()
	assert.Error(t, tg.Grant(ctx, "u1", "r1"))
	assert.Len(t, api.calls, 1)
}

// --- Member sync ---

func member(id, nick, global, username string, bot bool) *discordgo.Member {
	return &discordgo.Member{Nick: nick, User: &discordgo.User{ID: id, GlobalName: global, Username: username, Bot: bot}}
}

func TestSyncMembers_PagesAndSkipsBots(t *testing.T) {
	var all []*discordgo.Member
	for i := range memberPageSize + 5 {
		all = append(all, member(fmt.Sprintf("%05d", i), "", "", fmt.Sprintf("user%d", i), false))
	}
	all = append(all, member("bot", "", "", "projektbot", true))

	var afters []string
	fetch := func(after string, limit int) ([]*discordgo.Member, error) {
		afters = append(afters, after)
		start := 0
		for start < len(all) && after != "" && all[start].User.ID <= after {
			start++
		}
		end := min(start+limit, len(all))
		return all[start:end], nil
	}

	enroll := &enrollLog{}
	created, err := syncMembers(context.Background(), fetch, enroll, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, memberPageSize+5, created)
	assert.NotContains(t, enroll.seen, "bot")
	assert.Equal(t, []string{"", "00999"}, afters)

	created, err = syncMembers(context.Background(), fetch, enroll, logging.Nop())
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestSyncMembers_StopsOnError(t *testing.T) {
	enroll := &enrollLog{err: errors.New("store closed")}
	fetch := func(string, int) ([]*discordgo.Member, error) {
		return []*discordgo.Member{member("1", "", "", "a", false)}, nil
	}
	_, err := syncMembers(context.Background(), fetch, enroll, logging.Nop())
	assert.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Nick", displayName(member("1", "Nick", "Global", "user", false)))
	assert.Equal(t, "Global", displayName(member("1", "", "Global", "user", false)))
	assert.Equal(t, "user", displayName(member("1", "", "", "user", false)))
}

// --- Messages ---

func TestSplitMessage(t *testing.T) {
	assert.Nil(t, splitMessage("", 10))
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))
	assert.Equal(t, []string{"line one", "line two"}, splitMessage("line one\nline two", 10))
	assert.Equal(t, []string{"abcdefghij", "klm"}, splitMessage("abcdefghijklm", 10))

	parts := splitMessage(strings.Repeat("ü", 6), 5)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 5)
		assert.True(t, strings.Trim(p, "ü") == "", "rune split in %q", p)
	}
}

func TestHasAdminRole(t *testing.T) {
	assert.True(t, hasAdminRole([]string{"a", "b"}, []string{"b"}))
	assert.False(t, hasAdminRole([]string{"a"}, []string{"b"}))
	assert.False(t, hasAdminRole(nil, []string{"b"}))
}

// --- Lifecycle wiring ---

func TestOnTransition_UpdatesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)
	b := &Bot{
		machine: lifecycle.New(),
		metrics: m,
		db:      pingResult{},
		log:     logging.Nop(),
		ctx:     context.Background(),
	}
	b.machine.Observe(b.onTransition)

	b.fire(lifecycle.Dial)
	b.fire(lifecycle.Ready)
	assert.Equal(t, lifecycle.Connected, b.machine.State())
	assert.Equal(t, 1.0, gauge(t, reg, "bot_main_database_connected"))

	b.fire(lifecycle.Drop)
	assert.Equal(t, 0.0, gauge(t, reg, "bot_main_database_connected"))

	b.db = pingResult{err: errors.New("closed")}
	b.fire(lifecycle.Resume)
	b.fire(lifecycle.Resumed)
	assert.Equal(t, 0.0, gauge(t, reg, "bot_main_database_connected"))

	// Invalid events are logged and ignored.
	b.fire(lifecycle.Resumed)
	assert.Equal(t, lifecycle.Connected, b.machine.State())
}

func gauge(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
