package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// UserEnrollTool handles the user_enroll MCP tool.
type UserEnrollTool struct {
	dir Directory
}

// NewUserEnrollTool creates a UserEnrollTool.
func NewUserEnrollTool(dir Directory) *UserEnrollTool {
	return &UserEnrollTool{dir: dir}
}

// Definition returns the MCP tool definition for user_enroll.
func (t *UserEnrollTool) Definition() mcp.Tool {
	return mcp.NewTool("user_enroll",
		mcp.WithDescription(
			"Record a community member so they can be assigned to projects. "+
				"Enrolling a known user refreshes their display name.",
		),
		mcp.WithString("user", mcp.Required(), mcp.Description("External account id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
	)
}

// Handle processes the user_enroll tool call.
func (t *UserEnrollTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, bad := requireArgs(req, "user", "name")
	if bad != nil {
		return bad, nil
	}
	created, err := t.dir.Enroll(ctx, args["user"], args["name"])
	if err != nil {
		return errorResult(err)
	}
	if created {
		return mcp.NewToolResultText(fmt.Sprintf("Enrolled %s as %q.", args["user"], args["name"])), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s already enrolled; name is now %q.", args["user"], args["name"])), nil
}
