package koboload_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vvka-141/koboload/pkg/koboload"
)

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, koboload.ExitSuccess},
		{"general error", errors.New("something went wrong"), koboload.ExitGeneralError},
		{"unknown flag", errors.New("unknown flag: --foo"), koboload.ExitUsageError},
		{"unknown shorthand flag", errors.New("unknown shorthand flag: 'x' in -x"), koboload.ExitUsageError},
		{"unknown command", errors.New(`unknown command "lod" for "koboload"`), koboload.ExitUsageError},
		{"accepts args", errors.New("accepts 0 arg(s), received 1"), koboload.ExitUsageError},
		{"invalid argument", errors.New(`invalid argument "abc" for "--preview"`), koboload.ExitUsageError},
		{"invalid config", fmt.Errorf("bad port: %w", koboload.ErrInvalidConfig), koboload.ExitConfigError},
		{"fetch failed", fmt.Errorf("status 404: %w", koboload.ErrFetchFailed), koboload.ExitFetchFailed},
		{"empty input", koboload.ErrEmptyInput, koboload.ExitFetchFailed},
		{"connection failed", koboload.ErrConnectionFailed, koboload.ExitConnectionError},
		{"unwrapped connection refused", errors.New("dial tcp: connection refused"), koboload.ExitConnectionError},
		{"provision failed", koboload.ErrProvisionFailed, koboload.ExitLoadFailed},
		{"load failed", fmt.Errorf("rolled back: %w", koboload.ErrLoadFailed), koboload.ExitLoadFailed},
		{"partial load", fmt.Errorf("3 rows: %w", koboload.ErrPartialLoad), koboload.ExitPartialLoad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := koboload.ExitCodeForError(tt.err); got != tt.want {
				t.Errorf("ExitCodeForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
