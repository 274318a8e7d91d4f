package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckSchemaCompatibility checks whether a results file written under
// writerVersion can be read by a reader built against readerVersion.
// Returns nil if compatible, error with details if not.
//
// Compatibility rules:
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
func CheckSchemaCompatibility(writerVersion, readerVersion string) error {
	writerVersion = strings.TrimPrefix(writerVersion, "v")
	readerVersion = strings.TrimPrefix(readerVersion, "v")

	if writerVersion == "main" || readerVersion == "main" {
		return nil
	}

	writer, err := semver.NewVersion(writerVersion)
	if err != nil {
		return fmt.Errorf("invalid writer schema version '%s': %w", writerVersion, err)
	}

	reader, err := semver.NewVersion(readerVersion)
	if err != nil {
		return fmt.Errorf("invalid reader schema version '%s': %w", readerVersion, err)
	}

	if writer.Major() != reader.Major() {
		return fmt.Errorf("major schema version mismatch: results are %d.x.x but reader expects %d.x.x",
			writer.Major(), reader.Major())
	}

	if writer.Minor() != reader.Minor() {
		return fmt.Errorf("minor schema version mismatch: results are %d.%d.x but reader expects %d.%d.x",
			writer.Major(), writer.Minor(),
			reader.Major(), reader.Minor())
	}

	return nil
}
