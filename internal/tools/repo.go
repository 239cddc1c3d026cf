package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ─── ProjectRepoAddTool ──────────────────────────────────────────────────────

// ProjectRepoAddTool handles the project_repo_add MCP tool.
type ProjectRepoAddTool struct {
	dir Directory
}

// NewProjectRepoAddTool creates a ProjectRepoAddTool.
func NewProjectRepoAddTool(dir Directory) *ProjectRepoAddTool {
	return &ProjectRepoAddTool{dir: dir}
}

// Definition returns the MCP tool definition for project_repo_add.
func (t *ProjectRepoAddTool) Definition() mcp.Tool {
	return mcp.NewTool("project_repo_add",
		mcp.WithDescription("Attach a labelled repository URL to a project. Labels are unique per project."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("label", mcp.Required(), mcp.Description("Link label (e.g. 'backend')")),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL")),
	)
}

// Handle processes the project_repo_add tool call.
func (t *ProjectRepoAddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, bad := requireArgs(req, "project", "label", "url")
	if bad != nil {
		return bad, nil
	}
	if err := t.dir.AddLink(ctx, args["project"], args["label"], args["url"]); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Added %s to %s.", args["label"], args["project"])), nil
}

// ─── ProjectRepoRemoveTool ───────────────────────────────────────────────────

// ProjectRepoRemoveTool handles the project_repo_remove MCP tool.
type ProjectRepoRemoveTool struct {
	dir Directory
}

// NewProjectRepoRemoveTool creates a ProjectRepoRemoveTool.
func NewProjectRepoRemoveTool(dir Directory) *ProjectRepoRemoveTool {
	return &ProjectRepoRemoveTool{dir: dir}
}

// Definition returns the MCP tool definition for project_repo_remove.
func (t *ProjectRepoRemoveTool) Definition() mcp.Tool {
	return mcp.NewTool("project_repo_remove",
		mcp.WithDescription("Remove a labelled repository link from a project."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("label", mcp.Required(), mcp.Description("Link label")),
	)
}

// Handle processes the project_repo_remove tool call.
func (t *ProjectRepoRemoveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, bad := requireArgs(req, "project", "label")
	if bad != nil {
		return bad, nil
	}
	if err := t.dir.RemoveLink(ctx, args["project"], args["label"]); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed %s from %s.", args["label"], args["project"])), nil
}

// ─── ProjectRepoModifyTool ───────────────────────────────────────────────────

// ProjectRepoModifyTool handles the project_repo_modify MCP tool.
type ProjectRepoModifyTool struct {
	dir Directory
}

// NewProjectRepoModifyTool creates a ProjectRepoModifyTool.
func NewProjectRepoModifyTool(dir Directory) *ProjectRepoModifyTool {
	return &ProjectRepoModifyTool{dir: dir}
}

// Definition returns the MCP tool definition for project_repo_modify.
func (t *ProjectRepoModifyTool) Definition() mcp.Tool {
	return mcp.NewTool("project_repo_modify",
		mcp.WithDescription("Point an existing repository link at a new URL."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("label", mcp.Required(), mcp.Description("Link label")),
		mcp.WithString("url", mcp.Required(), mcp.Description("New http(s) URL")),
	)
}

// Handle processes the project_repo_modify tool call.
func (t *ProjectRepoModifyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, bad := requireArgs(req, "project", "label", "url")
	if bad != nil {
		return bad, nil
	}
	if err := t.dir.UpdateLink(ctx, args["project"], args["label"], args["url"]); err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Updated %s of %s.", args["label"], args["project"])), nil
}
