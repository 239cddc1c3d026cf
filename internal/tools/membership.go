package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

const usersDescription = "User ids separated by commas or spaces"

// ─── ProjectJoinTool ─────────────────────────────────────────────────────────

// ProjectJoinTool handles the project_join MCP tool.
type ProjectJoinTool struct {
	members Membership
}

// NewProjectJoinTool creates a ProjectJoinTool.
func NewProjectJoinTool(members Membership) *ProjectJoinTool {
	return &ProjectJoinTool{members: members}
}

// Definition returns the MCP tool definition for project_join.
func (t *ProjectJoinTool) Definition() mcp.Tool {
	return mcp.NewTool("project_join",
		mcp.WithDescription(
			"Assign users to a project. A user already in another project is moved, "+
				"losing that project's roles. Unknown users are reported, not created.",
		),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Target project"),
		),
		mcp.WithString("users",
			mcp.Required(),
			mcp.Description(usersDescription),
		),
	)
}

// Handle processes the project_join tool call.
func (t *ProjectJoinTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, bad := requireArgs(req, "project", "users")
	if bad != nil {
		return bad, nil
	}
	ids := userIDs(args["users"])
	if len(ids) == 0 {
		return mcp.NewToolResultError("'users' lists no ids"), nil
	}
	res, err := t.members.Join(ctx, args["project"], ids)
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(formatBatch(res)), nil
}

// ─── ProjectLeaveTool ────────────────────────────────────────────────────────

// ProjectLeaveTool handles the project_leave MCP tool.
type ProjectLeaveTool struct {
	members Membership
}

// NewProjectLeaveTool creates a ProjectLeaveTool.
func NewProjectLeaveTool(members Membership) *ProjectLeaveTool {
	return &ProjectLeaveTool{members: members}
}

// Definition returns the MCP tool definition for project_leave.
func (t *ProjectLeaveTool) Definition() mcp.Tool {
	return mcp.NewTool("project_leave",
		mcp.WithDescription("Unassign users from whatever project they are in."),
		mcp.WithString("users",
			mcp.Required(),
			mcp.Description(usersDescription),
		),
	)
}

// Handle processes the project_leave tool call.
func (t *ProjectLeaveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, bad := requireArgs(req, "users")
	if bad != nil {
		return bad, nil
	}
	ids := userIDs(args["users"])
	if len(ids) == 0 {
		return mcp.NewToolResultError("'users' lists no ids"), nil
	}
	res, err := t.members.Leave(ctx, ids)
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(formatBatch(res)), nil
}

// ─── ProjectLeadTool ─────────────────────────────────────────────────────────

// ProjectLeadTool handles the project_lead MCP tool.
type ProjectLeadTool struct {
	dir Directory
}

// NewProjectLeadTool creates a ProjectLeadTool.
func NewProjectLeadTool(dir Directory) *ProjectLeadTool {
	return &ProjectLeadTool{dir: dir}
}

// Definition returns the MCP tool definition for project_lead.
func (t *ProjectLeadTool) Definition() mcp.Tool {
	return mcp.NewTool("project_lead",
		mcp.WithDescription("Make a member the project's leader. The previous leader loses the leader role."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project name"),
		),
		mcp.WithString("user",
			mcp.Required(),
			mcp.Description("User id of a current member"),
		),
	)
}

// Handle processes the project_lead tool call.
func (t *ProjectLeadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, bad := requireArgs(req, "project", "user")
	if bad != nil {
		return bad, nil
	}
	warnings, err := t.dir.SetLeader(ctx, args["project"], args["user"])
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(
		fmt.Sprintf("%s now leads %s.", args["user"], args["project"]) + formatWarnings(warnings),
	), nil
}
