package directory

import (
	"fmt"
	"net/url"
)

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is %w", raw, ErrInvalidURL)
	}
	return nil
}
