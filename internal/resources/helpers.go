package resources

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/lo"

	"github.com/HendryAvila/projektbot/internal/directory"
	"github.com/HendryAvila/projektbot/internal/store"
)

type memberView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type linkView struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type projectView struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Leader      *memberView  `json:"leader,omitempty"`
	Members     []memberView `json:"members"`
	Links       []linkView   `json:"links"`
	CreatedAt   string       `json:"created_at"`
}

func newProjectView(d *directory.Details) projectView {
	v := projectView{
		Name:        d.Project.Name,
		Description: d.Project.Description,
		CreatedAt:   d.Project.CreatedAt,
		Members: lo.Map(d.Members, func(u store.User, _ int) memberView {
			return memberView{ID: u.ID, Name: u.DisplayName}
		}),
		Links: lo.Map(d.Links, func(l store.RepoLink, _ int) linkView {
			return linkView{Label: l.Label, URL: l.URL}
		}),
	}
	// A stale leader reference has no name and is left out.
	if d.Project.LeaderID != nil && d.LeaderName != "" {
		v.Leader = &memberView{ID: *d.Project.LeaderID, Name: d.LeaderName}
	}
	return v
}

func marshal(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
