package version

import (
	"strings"
	"testing"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
	if !strings.HasSuffix(Version, "-dev") {
		t.Errorf("Version = %q, want a -dev suffix", Version)
	}
}

func TestString(t *testing.T) {
	origVersion, origCommit, origMessage, origDate := Version, GitCommit, GitMessage, BuildDate
	defer func() {
		Version, GitCommit, GitMessage, BuildDate = origVersion, origCommit, origMessage, origDate
	}()

	tests := []struct {
		name                   string
		commit, message, built string
		want                   string
	}{
		{"bare", "", "", "", "strand 1.2.3"},
		{"commit", "1234567890abcdef1234", "", "", "strand 1.2.3 (1234567890ab)"},
		{"commit and message", "abc123", "fix timers", "", "strand 1.2.3 (abc123: fix timers)"},
		{"build date", "", "", "2024-01-15T10:30:00Z", "strand 1.2.3 built 2024-01-15T10:30:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version = "1.2.3"
			GitCommit, GitMessage, BuildDate = tt.commit, tt.message, tt.built
			if got := String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func BenchmarkString(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = String()
	}
}
