// Package prompts implements MCP prompt handlers for the project admin
// surface.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// SetupPrompt handles the project-setup MCP prompt.
// It walks the AI through creating a project and staffing it.
type SetupPrompt struct{}

// NewSetupPrompt creates a SetupPrompt.
func NewSetupPrompt() *SetupPrompt {
	return &SetupPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *SetupPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("project-setup",
		mcp.WithPromptDescription(
			"Create a project, enroll and assign its members, and pick a leader.",
		),
		mcp.WithArgument("name",
			mcp.ArgumentDescription("Project name"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("description",
			mcp.ArgumentDescription("Short description of the project"),
		),
		mcp.WithArgument("members",
			mcp.ArgumentDescription("User ids to assign, separated by commas"),
		),
	)
}

// Handle processes the project-setup prompt request.
func (p *SetupPrompt) Handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments
	name := strings.TrimSpace(args["name"])
	if name == "" {
		return nil, fmt.Errorf("argument 'name' is required")
	}
	description := strings.TrimSpace(args["description"])
	members := strings.TrimSpace(args["members"])

	var b strings.Builder
	fmt.Fprintf(&b, "I want to set up the project '%s'.\n\n", name)
	b.WriteString("Please:\n")
	if description != "" {
		fmt.Fprintf(&b, "1. Run `project_add` with name='%s' and description='%s'\n", name, description)
	} else {
		fmt.Fprintf(&b, "1. Ask me for a one-line description, then run `project_add` with name='%s'\n", name)
	}
	if members != "" {
		fmt.Fprintf(&b, "2. Run `project_join` with project='%s' and users='%s'\n", name, members)
	} else {
		b.WriteString("2. Ask me which user ids should join, then run `project_join`\n")
	}
	b.WriteString("3. For any user reported as not found, ask me for their display name and run `user_enroll`, then retry the join\n")
	b.WriteString("4. Ask me who should lead the project and run `project_lead`\n")
	fmt.Fprintf(&b, "5. Finish with `project_info` for '%s' and point out any warnings from the earlier steps", name)

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Set up project: %s", name),
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(b.String()),
			},
		},
	}, nil
}
