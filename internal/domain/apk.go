package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// ValidAPKVersion reports whether v is in X.Y.Z form.
func ValidAPKVersion(v string) bool {
	return versionPattern.MatchString(v)
}

// APKVersion is one release of the companion mobile app.
type APKVersion struct {
	ID                      uuid.UUID `json:"id" db:"id"`
	Version                 string    `json:"version" db:"version"`
	FilePath                string    `json:"file_path" db:"file_path"`
	FileSize                int64     `json:"file_size" db:"file_size"`
	Checksum                string    `json:"checksum" db:"checksum"`
	ReleaseNotes            string    `json:"release_notes" db:"release_notes"`
	IsActive                bool      `json:"is_active" db:"is_active"`
	IsLatest                bool      `json:"is_latest" db:"is_latest"`
	ForceUpdate             bool      `json:"force_update" db:"force_update"`
	MinimumSupportedVersion string    `json:"minimum_supported_version" db:"minimum_supported_version"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}

// CompareVersions compares two dotted version strings numerically.
// Returns -1 when a < b, 0 when equal, 1 when a > b. Missing segments
// are treated as zero.
func CompareVersions(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	n := len(aParts)
	if len(bParts) > n {
		n = len(bParts)
	}

	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(aParts) {
			av, _ = strconv.Atoi(aParts[i])
		}
		if i < len(bParts) {
			bv, _ = strconv.Atoi(bParts[i])
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}
