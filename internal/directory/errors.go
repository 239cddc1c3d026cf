package directory

import (
	"errors"
	"fmt"

	"github.com/HendryAvila/projektbot/internal/membership"
	"github.com/HendryAvila/projektbot/internal/store"
)

var (
	// ErrProjectNotFound is shared with membership so callers match one sentinel.
	ErrProjectNotFound = membership.ErrProjectNotFound
	ErrLinkNotFound    = fmt.Errorf("link %w", store.ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", store.ErrNotFound)

	ErrProjectNotEmpty = errors.New("project still has members")
	ErrNotMember       = errors.New("user is not a member of the project")
	ErrInvalidPolicy   = errors.New("unknown delete policy")
	ErrInvalidURL      = errors.New("not an http(s) URL")
)
