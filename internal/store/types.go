package store

import "errors"

// ─── Errors ──────────────────────────────────────────────────────────────────

var (
	// ErrNotFound is returned when a keyed record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a project name or role id is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrDuplicateLabel is returned when a project already has a link with that label.
	ErrDuplicateLabel = errors.New("duplicate label")
)

// ─── Types ───────────────────────────────────────────────────────────────────

// User is a member of the chat community, keyed by the external account id.
type User struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	ProjectID   *int64  `json:"project_id,omitempty"`
	BirthYear   *int    `json:"birth_year,omitempty"`
	ClassLabel  *string `json:"class_label,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// AssignedTo reports whether the user is currently assigned to projectID.
func (u *User) AssignedTo(projectID int64) bool {
	return u.ProjectID != nil && *u.ProjectID == projectID
}

// Project is a named team. MemberRoleID and LeaderRoleID are the external
// role tags granted to its members and its leader.
type Project struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	LeaderID     *string `json:"leader_id,omitempty"`
	MemberRoleID string  `json:"member_role_id"`
	LeaderRoleID string  `json:"leader_role_id"`
	Color        int     `json:"color"`
	CreatedAt    string  `json:"created_at"`
}

// LedBy reports whether userID is the project's leader.
func (p *Project) LedBy(userID string) bool {
	return p.LeaderID != nil && *p.LeaderID == userID
}

// RepoLink is a labelled repository URL owned by a project.
type RepoLink struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Label     string `json:"label"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}
