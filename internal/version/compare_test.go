package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSchemaCompatibility(t *testing.T) {
	tests := []struct {
		name          string
		writerVersion string
		readerVersion string
		expectError   bool
		errorContains string
	}{
		{
			name:          "exact match",
			writerVersion: "1.2.0",
			readerVersion: "1.2.0",
			expectError:   false,
		},
		{
			name:          "patch differs",
			writerVersion: "1.2.1",
			readerVersion: "1.2.0",
			expectError:   false,
		},
		{
			name:          "minor differs",
			writerVersion: "1.3.0",
			readerVersion: "1.2.0",
			expectError:   true,
			errorContains: "minor schema version mismatch",
		},
		{
			name:          "major differs",
			writerVersion: "2.0.0",
			readerVersion: "1.2.0",
			expectError:   true,
			errorContains: "major schema version mismatch",
		},
		{
			name:          "writer dev build skips check",
			writerVersion: "main",
			readerVersion: "1.2.0",
			expectError:   false,
		},
		{
			name:          "reader dev build skips check",
			writerVersion: "1.2.0",
			readerVersion: "main",
			expectError:   false,
		},
		{
			name:          "v prefix stripped",
			writerVersion: "v1.2.0",
			readerVersion: "1.2.3",
			expectError:   false,
		},
		{
			name:          "invalid writer version",
			writerVersion: "not-a-version",
			readerVersion: "1.2.0",
			expectError:   true,
			errorContains: "invalid writer schema version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSchemaCompatibility(tt.writerVersion, tt.readerVersion)

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
