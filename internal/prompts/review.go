package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the project-review MCP prompt.
// It instructs the AI to audit the directory for incomplete projects.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("project-review",
		mcp.WithPromptDescription(
			"Review every project and list the ones missing a leader, members or repository links.",
		),
	)
}

// Handle processes the project-review prompt request.
func (p *ReviewPrompt) Handle(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Project directory review",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please read the `projekt://projects` resource.\n\n" +
						"Then:\n" +
						"1. Show every project with its leader and member count in a table\n" +
						"2. List projects with no leader, no members or no repository links\n" +
						"3. Suggest the tool call that fixes each gap (`project_lead`, `project_join`, `project_repo_add`)\n" +
						"4. Do not run any of those calls until I confirm",
				),
			},
		},
	}, nil
}
