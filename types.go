package pypindex

import (
	"path"
	"regexp"
	"strings"
	"time"
)

// Artifact is one stored distributable file under a package prefix.
// Artifacts are immutable once uploaded; all mutations happen through
// external publishing tools and are observed via storage events.
type Artifact struct {
	// Key is the full object key, "<package>/<filename>".
	Key          string
	Size         int64
	LastModified time.Time
}

// Filename returns the last element of the artifact key.
func (a Artifact) Filename() string {
	return path.Base(a.Key)
}

// PresignedRef is an ephemeral capability URL granting read access to one
// artifact. It is created per request and never persisted.
type PresignedRef struct {
	URL       string
	ExpiresAt time.Time
}

var (
	nameSeparators = regexp.MustCompile(`[-_.]+`)
	validName      = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)
)

// NormalizeName normalizes a package name per PEP 503: runs of hyphens,
// underscores and dots collapse to a single hyphen, and the result is
// lowercased. Lookups through the service always compare normalized names,
// so "Friendly_Bard" and "friendly.bard" address the same package.
func NormalizeName(name string) string {
	return strings.ToLower(nameSeparators.ReplaceAllString(name, "-"))
}

// IsValidName reports whether name is a well-formed package name per
// PEP 508: ASCII letters, digits, '.', '_' and '-', starting and ending
// with a letter or digit.
func IsValidName(name string) bool {
	return validName.MatchString(name)
}
