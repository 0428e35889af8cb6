// Package validation checks externally supplied identifiers and paths
// before they reach the store or a sandbox filesystem.
package validation

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var (
	// slugRegex matches agent slugs: lowercase alphanumeric with single
	// dashes, no leading or trailing dash.
	slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

	// safeComponentRegex matches safe path components
	safeComponentRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

const maxSlugLength = 64

// ValidateSlug checks an agent slug as used in routes and the store.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug cannot be empty")
	}
	if len(slug) > maxSlugLength {
		return fmt.Errorf("slug too long: %d characters (max %d)", len(slug), maxSlugLength)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("invalid slug: %s", slug)
	}
	return nil
}

// ValidateSandboxPath checks a user-supplied sandbox file path. Paths may
// be relative (resolved against the sandbox home) or absolute, but must
// not traverse upward or contain unsafe components.
func ValidateSandboxPath(p string) error {
	if p == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.Contains(p, "..") {
		return fmt.Errorf("path traversal detected: %s", p)
	}
	cleaned := path.Clean(p)
	for _, component := range strings.Split(strings.TrimPrefix(cleaned, "/"), "/") {
		if !safeComponentRegex.MatchString(component) {
			return fmt.Errorf("invalid path component: %s", component)
		}
	}
	return nil
}
