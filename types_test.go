package pypindex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pypindex/pypindex"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already normalized", in: "requests", want: "requests"},
		{name: "uppercase", in: "Django", want: "django"},
		{name: "underscores", in: "friendly_bard", want: "friendly-bard"},
		{name: "dots", in: "zope.interface", want: "zope-interface"},
		{name: "mixed run of separators", in: "Friendly-_.Bard", want: "friendly-bard"},
		{name: "repeated separators", in: "a---b___c...d", want: "a-b-c-d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pypindex.NormalizeName(tt.in))
		})
	}
}

func TestIsValidName(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		valid bool
	}{
		{name: "simple", in: "requests", valid: true},
		{name: "single character", in: "a", valid: true},
		{name: "separators inside", in: "zope.interface", valid: true},
		{name: "digits", in: "py3dns", valid: true},
		{name: "empty", in: "", valid: false},
		{name: "leading separator", in: "-requests", valid: false},
		{name: "trailing separator", in: "requests.", valid: false},
		{name: "slash", in: "a/b", valid: false},
		{name: "space", in: "a b", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, pypindex.IsValidName(tt.in))
		})
	}
}

func TestArtifact_Filename(t *testing.T) {
	a := pypindex.Artifact{Key: "fizz/fizz-1.0.tar.gz"}
	assert.Equal(t, "fizz-1.0.tar.gz", a.Filename())
}
