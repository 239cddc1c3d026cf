package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/HendryAvila/projektbot/internal/logging"
)

// ─── ProjectAddTool ──────────────────────────────────────────────────────────

// ProjectAddTool handles the project_add MCP tool.
type ProjectAddTool struct {
	dir     Directory
	offline bool
	log     *logging.Logger
}

// ProjectAddOption configures a ProjectAddTool.
type ProjectAddOption func(*ProjectAddTool)

// OfflineRoles marks the tool as running without a chat connection. Role
// ids it reports are unknown to the chat service.
func OfflineRoles(log *logging.Logger) ProjectAddOption {
	return func(t *ProjectAddTool) {
		t.offline = true
		if log != nil {
			t.log = log
		}
	}
}

// NewProjectAddTool creates a ProjectAddTool.
func NewProjectAddTool(dir Directory, opts ...ProjectAddOption) *ProjectAddTool {
	t := &ProjectAddTool{dir: dir, log: logging.Nop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

const offlineWarning = "\n\n**Warning**: no chat connection is configured. These role ids exist only " +
	"in this process and will not match any role in the chat service."

// Definition returns the MCP tool definition for project_add.
func (t *ProjectAddTool) Definition() mcp.Tool {
	return mcp.NewTool("project_add",
		mcp.WithDescription("Create a project together with its member and leader role tags."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Unique project name"),
		),
		mcp.WithString("description",
			mcp.Description("Free-form description"),
		),
	)
}

// Handle processes the project_add tool call.
func (t *ProjectAddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, bad := requireArgs(req, "name")
	if bad != nil {
		return bad, nil
	}
	p, err := t.dir.Create(ctx, args["name"], strings.TrimSpace(req.GetString("description", "")))
	if err != nil {
		return errorResult(err)
	}
	text := fmt.Sprintf("Project %q created (member role %s, leader role %s).",
		p.Name, p.MemberRoleID, p.LeaderRoleID)
	if t.offline {
		t.log.Warn(ctx, "project created with offline role ids", zap.String("project", p.Name))
		text += offlineWarning
	}
	return mcp.NewToolResultText(text), nil
}

// ─── ProjectRemoveTool ───────────────────────────────────────────────────────

// ProjectRemoveTool handles the project_remove MCP tool.
type ProjectRemoveTool struct {
	dir Directory
}

// NewProjectRemoveTool creates a ProjectRemoveTool.
func NewProjectRemoveTool(dir Directory) *ProjectRemoveTool {
	return &ProjectRemoveTool{dir: dir}
}

// Definition returns the MCP tool definition for project_remove.
func (t *ProjectRemoveTool) Definition() mcp.Tool {
	return mcp.NewTool("project_remove",
		mcp.WithDescription(
			"Delete a project, its links and its role tags. Depending on the configured delete policy, "+
				"members are unassigned or the call is refused while the project has members.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project to delete"),
		),
	)
}

// Handle processes the project_remove tool call.
func (t *ProjectRemoveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, bad := requireArgs(req, "name")
	if bad != nil {
		return bad, nil
	}
	if err := t.dir.Delete(ctx, args["name"]); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Project %q deleted.", args["name"])), nil
}

// ─── ProjectListTool ─────────────────────────────────────────────────────────

// ProjectListTool handles the project_list MCP tool.
type ProjectListTool struct {
	dir Directory
}

// NewProjectListTool creates a ProjectListTool.
func NewProjectListTool(dir Directory) *ProjectListTool {
	return &ProjectListTool{dir: dir}
}

// Definition returns the MCP tool definition for project_list.
func (t *ProjectListTool) Definition() mcp.Tool {
	return mcp.NewTool("project_list",
		mcp.WithDescription("List every project in name order."),
	)
}

// Handle processes the project_list tool call.
func (t *ProjectListTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	n := 0
	for p, err := range t.dir.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("listing projects: %w", err)
		}
		n++
		fmt.Fprintf(&b, "- **%s**", p.Name)
		if p.Description != "" {
			fmt.Fprintf(&b, ": %s", p.Description)
		}
		b.WriteString("\n")
	}
	if n == 0 {
		return mcp.NewToolResultText("No projects yet."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("## Projects (%d)\n\n%s", n, b.String())), nil
}

// ─── ProjectInfoTool ─────────────────────────────────────────────────────────

// ProjectInfoTool handles the project_info MCP tool.
type ProjectInfoTool struct {
	dir Directory
}

// NewProjectInfoTool creates a ProjectInfoTool.
func NewProjectInfoTool(dir Directory) *ProjectInfoTool {
	return &ProjectInfoTool{dir: dir}
}

// Definition returns the MCP tool definition for project_info.
func (t *ProjectInfoTool) Definition() mcp.Tool {
	return mcp.NewTool("project_info",
		mcp.WithDescription("Show a project's description, leader, members and repository links."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name"),
		),
	)
}

// Handle processes the project_info tool call.
func (t *ProjectInfoTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, bad := requireArgs(req, "name")
	if bad != nil {
		return bad, nil
	}
	d, err := t.dir.Describe(ctx, args["name"])
	if err != nil {
		return errorResult(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", d.Project.Name)
	if d.Project.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", d.Project.Description)
	}
	fmt.Fprintf(&b, "**Leader**: %s\n", lo.Ternary(d.LeaderName == "", "none", d.LeaderName))

	fmt.Fprintf(&b, "**Members** (%d):", len(d.Members))
	if len(d.Members) == 0 {
		b.WriteString(" none\n")
	} else {
		b.WriteString("\n")
		for _, m := range d.Members {
			fmt.Fprintf(&b, "- %s (%s)\n", m.DisplayName, m.ID)
		}
	}

	if len(d.Links) > 0 {
		b.WriteString("**Links**:\n")
		for _, l := range d.Links {
			fmt.Fprintf(&b, "- %s: %s\n", l.Label, l.URL)
		}
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}
