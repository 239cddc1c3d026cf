// Package resources implements MCP resource handlers for the project
// directory.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (projekt://...) following MCP conventions.
package resources

import (
	"context"
	"fmt"
	"iter"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/projektbot/internal/directory"
	"github.com/HendryAvila/projektbot/internal/store"
)

// ProjectsURI addresses the full project directory.
const ProjectsURI = "projekt://projects"

// Directory is the read side of directory.Service.
type Directory interface {
	List(ctx context.Context) iter.Seq2[store.Project, error]
	Describe(ctx context.Context, name string) (*directory.Details, error)
}

// Handler manages project resource endpoints.
type Handler struct {
	dir Directory
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(dir Directory) *Handler {
	return &Handler{dir: dir}
}

// ProjectsResource returns the MCP resource definition for the project list.
func (h *Handler) ProjectsResource() mcp.Resource {
	return mcp.NewResource(
		ProjectsURI,
		"Projects",
		mcp.WithResourceDescription("Every project with its leader, members and repository links"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleProjects returns every project in name order as JSON.
func (h *Handler) HandleProjects(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	views := []projectView{}
	for p, err := range h.dir.List(ctx) {
		if err != nil {
			return errorResource(req.Params.URI, err.Error()), nil
		}
		d, err := h.dir.Describe(ctx, p.Name)
		if err != nil {
			// Deleted between List and Describe.
			return errorResource(req.Params.URI, err.Error()), nil
		}
		views = append(views, newProjectView(d))
	}

	text, err := marshal(views)
	if err != nil {
		return nil, fmt.Errorf("marshaling projects: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     text,
		},
	}, nil
}
