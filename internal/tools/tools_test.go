package tools

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap/zapcore"

	"github.com/HendryAvila/projektbot/internal/directory"
	"github.com/HendryAvila/projektbot/internal/logging"
	"github.com/HendryAvila/projektbot/internal/membership"
	"github.com/HendryAvila/projektbot/internal/roles"
	"github.com/HendryAvila/projektbot/internal/store"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

type testEnv struct {
	tagger  *roles.MemoryTagger
	dir     *directory.Service
	members *membership.Service
}

// newTestEnv wires real services over a temp store and an in-memory tagger.
func newTestEnv(t *testing.T, policy directory.DeletePolicy) *testEnv {
	t.Helper()
	s, err := store.New(store.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	tagger := roles.NewMemoryTagger()
	applier := roles.NewApplier(tagger, logging.Nop(), nil)
	return &testEnv{
		tagger:  tagger,
		dir:     directory.New(s, applier, policy, logging.Nop()),
		members: membership.NewService(s, applier, logging.Nop()),
	}
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// call invokes h and fails the test on a Go error.
func call(t *testing.T, h handler, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	res, err := h(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil {
		t.Fatal("expected non-nil result")
	}
	return res
}

func (e *testEnv) enroll(t *testing.T, ids ...string) {
	t.Helper()
	tool := NewUserEnrollTool(e.dir)
	for _, id := range ids {
		res := call(t, tool.Handle, map[string]interface{}{"user": id, "name": "name-" + id})
		if res.IsError {
			t.Fatalf("enroll %s: %s", id, resultText(res))
		}
	}
}

func (e *testEnv) addProject(t *testing.T, name string) {
	t.Helper()
	res := call(t, NewProjectAddTool(e.dir).Handle, map[string]interface{}{"name": name})
	if res.IsError {
		t.Fatalf("add %s: %s", name, resultText(res))
	}
}

// ─── Definitions ─────────────────────────────────────────────────────────────

func TestDefinitions_Names(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	tests := []struct {
		def  mcp.Tool
		want string
	}{
		{NewProjectAddTool(e.dir).Definition(), "project_add"},
		{NewProjectRemoveTool(e.dir).Definition(), "project_remove"},
		{NewProjectListTool(e.dir).Definition(), "project_list"},
		{NewProjectInfoTool(e.dir).Definition(), "project_info"},
		{NewProjectJoinTool(e.members).Definition(), "project_join"},
		{NewProjectLeaveTool(e.members).Definition(), "project_leave"},
		{NewProjectLeadTool(e.dir).Definition(), "project_lead"},
		{NewProjectRepoAddTool(e.dir).Definition(), "project_repo_add"},
		{NewProjectRepoRemoveTool(e.dir).Definition(), "project_repo_remove"},
		{NewProjectRepoModifyTool(e.dir).Definition(), "project_repo_modify"},
		{NewUserEnrollTool(e.dir).Definition(), "user_enroll"},
	}
	for _, tt := range tests {
		if tt.def.Name != tt.want {
			t.Errorf("Name = %q, want %q", tt.def.Name, tt.want)
		}
		if tt.def.Description == "" {
			t.Errorf("%s: empty description", tt.want)
		}
	}
}

func TestProjectJoinTool_RequiredParams(t *testing.T) {
	def := NewProjectJoinTool(nil).Definition()
	required := map[string]bool{}
	for _, r := range def.InputSchema.Required {
		required[r] = true
	}
	if !required["project"] || !required["users"] {
		t.Errorf("required = %v, want project and users", def.InputSchema.Required)
	}
}

// ─── Project tools ───────────────────────────────────────────────────────────

func TestProjectAddTool_MissingName(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	res := call(t, NewProjectAddTool(e.dir).Handle, map[string]interface{}{"name": "  "})
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(resultText(res), "'name' is required") {
		t.Errorf("text = %q", resultText(res))
	}
	if e.tagger.TagCount() != 0 {
		t.Errorf("tags = %d, want 0", e.tagger.TagCount())
	}
}

func TestProjectAddTool_CreatesTags(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	res := call(t, NewProjectAddTool(e.dir).Handle, map[string]interface{}{
		"name": "Rockets", "description": "Build rockets",
	})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(res))
	}
	if !strings.Contains(resultText(res), `"Rockets" created`) {
		t.Errorf("text = %q", resultText(res))
	}
	if e.tagger.TagCount() != 2 {
		t.Errorf("tags = %d, want 2", e.tagger.TagCount())
	}
}

func TestProjectAddTool_OfflineRolesWarn(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	log := logging.NewTestLogger()

	res := call(t, NewProjectAddTool(e.dir, OfflineRoles(log.Logger)).Handle, map[string]interface{}{"name": "Rockets"})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(res))
	}
	if !strings.Contains(resultText(res), "no chat connection is configured") {
		t.Errorf("text = %q", resultText(res))
	}
	log.AssertLogged(t, zapcore.WarnLevel, "offline role ids")

	res = call(t, NewProjectAddTool(e.dir).Handle, map[string]interface{}{"name": "Comets"})
	if strings.Contains(resultText(res), "Warning") {
		t.Errorf("online result carries offline warning: %q", resultText(res))
	}
}

func TestProjectAddTool_Duplicate(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	e.addProject(t, "Rockets")

	res := call(t, NewProjectAddTool(e.dir).Handle, map[string]interface{}{"name": "Rockets"})
	if !res.IsError {
		t.Fatal("expected error result for duplicate")
	}
	if !strings.Contains(resultText(res), "already exists") {
		t.Errorf("text = %q", resultText(res))
	}
	if e.tagger.TagCount() != 2 {
		t.Errorf("tags = %d, want 2 (no new allocation)", e.tagger.TagCount())
	}
}

func TestProjectListTool_Empty(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	res := call(t, NewProjectListTool(e.dir).Handle, nil)
	if resultText(res) != "No projects yet." {
		t.Errorf("text = %q", resultText(res))
	}
}

func TestProjectListTool_NameOrder(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	e.addProject(t, "zeta")
	e.addProject(t, "Alpha")

	text := resultText(call(t, NewProjectListTool(e.dir).Handle, nil))
	if !strings.Contains(text, "Projects (2)") {
		t.Errorf("missing count in %q", text)
	}
	if strings.Index(text, "Alpha") > strings.Index(text, "zeta") {
		t.Errorf("Alpha should be listed before zeta:\n%s", text)
	}
}

type failingList struct{ Directory }

func (failingList) List(context.Context) iter.Seq2[store.Project, error] {
	return func(yield func(store.Project, error) bool) {
		yield(store.Project{}, errors.New("disk gone"))
	}
}

func TestProjectListTool_StoreError(t *testing.T) {
	_, err := NewProjectListTool(failingList{}).Handle(context.Background(), makeReq(nil))
	if err == nil || !strings.Contains(err.Error(), "disk gone") {
		t.Errorf("err = %v, want wrapped store error", err)
	}
}

func TestProjectInfoTool_NotFound(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	res := call(t, NewProjectInfoTool(e.dir).Handle, map[string]interface{}{"name": "ghost"})
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(resultText(res), "not found") {
		t.Errorf("text = %q", resultText(res))
	}
}

func TestProjectInfoTool_Details(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	e.addProject(t, "Rockets")
	e.enroll(t, "u1")
	call(t, NewProjectJoinTool(e.members).Handle, map[string]interface{}{"project": "Rockets", "users": "u1"})
	call(t, NewProjectLeadTool(e.dir).Handle, map[string]interface{}{"project": "Rockets", "user": "u1"})
	call(t, NewProjectRepoAddTool(e.dir).Handle, map[string]interface{}{
		"project": "Rockets", "label": "code", "url": "https://example.com/rockets",
	})

	text := resultText(call(t, NewProjectInfoTool(e.dir).Handle, map[string]interface{}{"name": "Rockets"}))
	for _, want := range []string{"## Rockets", "**Leader**: name-u1", "**Members** (1)", "name-u1 (u1)", "code: https://example.com/rockets"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestProjectRemoveTool_Policies(t *testing.T) {
	t.Run("reject", func(t *testing.T) {
		e := newTestEnv(t, directory.PolicyReject)
		e.addProject(t, "Rockets")
		e.enroll(t, "u1")
		call(t, NewProjectJoinTool(e.members).Handle, map[string]interface{}{"project": "Rockets", "users": "u1"})

		res := call(t, NewProjectRemoveTool(e.dir).Handle, map[string]interface{}{"name": "Rockets"})
		if !res.IsError {
			t.Fatal("expected refusal while project has members")
		}
		if e.tagger.TagCount() != 2 {
			t.Errorf("tags = %d, want 2", e.tagger.TagCount())
		}
	})

	t.Run("clear", func(t *testing.T) {
		e := newTestEnv(t, directory.PolicyClear)
		e.addProject(t, "Rockets")
		e.enroll(t, "u1")
		call(t, NewProjectJoinTool(e.members).Handle, map[string]interface{}{"project": "Rockets", "users": "u1"})

		res := call(t, NewProjectRemoveTool(e.dir).Handle, map[string]interface{}{"name": "Rockets"})
		if res.IsError {
			t.Fatalf("unexpected error: %s", resultText(res))
		}
		if e.tagger.TagCount() != 0 {
			t.Errorf("tags = %d, want 0", e.tagger.TagCount())
		}
	})
}

// ─── Membership tools ────────────────────────────────────────────────────────

func TestProjectJoinTool_MoveAndUnknown(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	e.addProject(t, "Rockets")
	e.addProject(t, "Comets")
	e.enroll(t, "u1")

	call(t, NewProjectJoinTool(e.members).Handle, map[string]interface{}{"project": "Rockets", "users": "u1"})
	text := resultText(call(t, NewProjectJoinTool(e.members).Handle, map[string]interface{}{
		"project": "Comets", "users": "u1, ghost u1",
	}))

	if !strings.Contains(text, "u1: moved from Rockets to Comets") {
		t.Errorf("missing move line in:\n%s", text)
	}
	if !strings.Contains(text, "ghost: not found") {
		t.Errorf("missing not-found line in:\n%s", text)
	}
	if strings.Count(text, "u1:") != 1 {
		t.Errorf("duplicate id should be reported once:\n%s", text)
	}
}

func TestProjectJoinTool_UnknownProject(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	e.enroll(t, "u1")
	res := call(t, NewProjectJoinTool(e.members).Handle, map[string]interface{}{"project": "ghost", "users": "u1"})
	if !res.IsError {
		t.Fatal("expected error result")
	}
}

func TestProjectJoinTool_BlankUserList(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	res := call(t, NewProjectJoinTool(e.members).Handle, map[string]interface{}{"project": "Rockets", "users": " , ,"})
	if !res.IsError || !strings.Contains(resultText(res), "lists no ids") {
		t.Errorf("got %q, want lists-no-ids error", resultText(res))
	}
}

func TestProjectLeaveTool(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	e.addProject(t, "Rockets")
	e.enroll(t, "u1", "u2")
	call(t, NewProjectJoinTool(e.members).Handle, map[string]interface{}{"project": "Rockets", "users": "u1"})

	text := resultText(call(t, NewProjectLeaveTool(e.members).Handle, map[string]interface{}{"users": "u1 u2"}))
	if !strings.Contains(text, "u1: removed from Rockets") {
		t.Errorf("missing removal in:\n%s", text)
	}
	if !strings.Contains(text, "u2: not in a project") {
		t.Errorf("missing no-op in:\n%s", text)
	}
}

func TestProjectJoinTool_EffectWarning(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	e.addProject(t, "Rockets")
	e.enroll(t, "u1")
	e.tagger.FailWith(func(op, _ string) error {
		if op == "grant" {
			return errors.New("rate limited")
		}
		return nil
	})

	res := call(t, NewProjectJoinTool(e.members).Handle, map[string]interface{}{"project": "Rockets", "users": "u1"})
	if res.IsError {
		t.Fatalf("committed batch must not be an error: %s", resultText(res))
	}
	text := resultText(res)
	if !strings.Contains(text, "u1: added to Rockets") || !strings.Contains(text, "**Warnings**") {
		t.Errorf("text = %q", text)
	}
}

func TestProjectLeadTool_NotMember(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	e.addProject(t, "Rockets")
	e.enroll(t, "u1")

	res := call(t, NewProjectLeadTool(e.dir).Handle, map[string]interface{}{"project": "Rockets", "user": "u1"})
	if !res.IsError {
		t.Fatal("expected error for non-member")
	}
	if !strings.Contains(resultText(res), "not a member") {
		t.Errorf("text = %q", resultText(res))
	}
}

// ─── Repo tools ──────────────────────────────────────────────────────────────

func TestProjectRepoAddTool_InvalidURL(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	e.addProject(t, "Rockets")
	for _, raw := range []string{"ftp://x.example", "not a url", "https://"} {
		res := call(t, NewProjectRepoAddTool(e.dir).Handle, map[string]interface{}{
			"project": "Rockets", "label": "code", "url": raw,
		})
		if !res.IsError || !strings.Contains(resultText(res), "not an http(s) URL") {
			t.Errorf("%q: expected URL error, got %q", raw, resultText(res))
		}
	}
}

func TestProjectRepoTools_Lifecycle(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	e.addProject(t, "Rockets")
	args := map[string]interface{}{"project": "Rockets", "label": "code", "url": "https://a.example"}

	if res := call(t, NewProjectRepoAddTool(e.dir).Handle, args); res.IsError {
		t.Fatalf("add: %s", resultText(res))
	}
	if res := call(t, NewProjectRepoAddTool(e.dir).Handle, args); !res.IsError {
		t.Error("duplicate label should be rejected")
	}

	args["url"] = "https://b.example"
	if res := call(t, NewProjectRepoModifyTool(e.dir).Handle, args); res.IsError {
		t.Fatalf("modify: %s", resultText(res))
	}
	d, err := e.dir.Describe(context.Background(), "Rockets")
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Links) != 1 || d.Links[0].URL != "https://b.example" {
		t.Errorf("links = %+v", d.Links)
	}

	rm := map[string]interface{}{"project": "Rockets", "label": "code"}
	if res := call(t, NewProjectRepoRemoveTool(e.dir).Handle, rm); res.IsError {
		t.Fatalf("remove: %s", resultText(res))
	}
	if res := call(t, NewProjectRepoRemoveTool(e.dir).Handle, rm); !res.IsError {
		t.Error("removing a missing link should be an error result")
	}
}

// ─── User tools ──────────────────────────────────────────────────────────────

func TestUserEnrollTool_CreateThenRename(t *testing.T) {
	e := newTestEnv(t, directory.PolicyClear)
	tool := NewUserEnrollTool(e.dir)

	first := resultText(call(t, tool.Handle, map[string]interface{}{"user": "u1", "name": "Ada"}))
	if !strings.HasPrefix(first, "Enrolled u1") {
		t.Errorf("first = %q", first)
	}
	second := resultText(call(t, tool.Handle, map[string]interface{}{"user": "u1", "name": "Ada L."}))
	if !strings.Contains(second, "already enrolled") {
		t.Errorf("second = %q", second)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func TestUserIDs(t *testing.T) {
	got := userIDs("a, b\tc a\n,b")
	want := []string{"a", "b", "c"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("userIDs = %v, want %v", got, want)
	}
}

func TestErrorResult_PassesThroughUnexpected(t *testing.T) {
	boom := errors.New("boom")
	res, err := errorResult(boom)
	if res != nil || !errors.Is(err, boom) {
		t.Errorf("errorResult = (%v, %v), want (nil, boom)", res, err)
	}
}
