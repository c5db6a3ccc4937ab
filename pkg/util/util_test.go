package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeFilePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantPath string
		wantOK   bool
	}{
		{"relative", "mocks/users.yaml", "mocks/users.yaml", true},
		{"dot prefix", "./mocks/users.yaml", "mocks/users.yaml", true},
		{"resolves inside", "mocks/../users.yaml", "users.yaml", true},
		{"escapes", "../secret.yaml", "", false},
		{"escapes after clean", "mocks/../../secret.yaml", "", false},
		{"absolute", "/etc/mocks.yaml", "", false},
		{"empty", "", "", false},
		{"backslash traversal", `mocks\..\secret`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gotPath, gotOK := SafeFilePath(tt.input)
			assert.Equal(t, tt.wantOK, gotOK)
			assert.Equal(t, tt.wantPath, gotPath)
		})
	}
}

func TestSafeFilePathAllowAbsolute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantPath string
		wantOK   bool
	}{
		{"absolute", "/srv/mocks/users.yaml", "/srv/mocks/users.yaml", true},
		{"absolute resolved", "/srv/mocks/../../etc/m.yaml", "/etc/m.yaml", true},
		{"root dot-dot", "/..", "/", true},
		{"relative escape", "../m.yaml", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gotPath, gotOK := SafeFilePathAllowAbsolute(tt.input)
			assert.Equal(t, tt.wantOK, gotOK)
			assert.Equal(t, tt.wantPath, gotPath)
		})
	}
}

func TestTruncateBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		limit int
		want  string
	}{
		{"short", "hello", 100, "hello"},
		{"exact", "12345", 5, "12345"},
		{"one over", "123456", 5, "12345...(1 more bytes)"},
		{"zero uses default", "hello", 0, "hello"},
		{"empty", "", 10, ""},
		{"keeps runes whole", "héllo", 2, "h...(5 more bytes)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TruncateBody([]byte(tt.body), tt.limit))
		})
	}

	long := bytes.Repeat([]byte("x"), MaxLogBodySize+1)
	assert.Equal(t, strings.Repeat("x", MaxLogBodySize)+"...(1 more bytes)", TruncateBody(long, 0))
}
