package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseYear(t *testing.T) {
	tests := []struct {
		date   string
		want   int
		wantOK bool
	}{
		{"1969-09-26", 1969, true},
		{"1969-09", 1969, true},
		{"1969", 1969, true},
		{"", 0, false},
		{"69", 0, false},
		{"abcd-01-01", 0, false},
		{"0000", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			got, ok := ParseYear(tt.date)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArtistDisplay(t *testing.T) {
	r := Recording{Performers: []Performer{
		{Name: "Queen", JoinPhrase: " & "},
		{Name: "David Bowie"},
	}}
	assert.Equal(t, "Queen & David Bowie", r.ArtistDisplay())

	r = Recording{Performers: []Performer{{Name: "A"}, {Name: "B"}}}
	assert.Equal(t, "A, B", r.ArtistDisplay())

	assert.Equal(t, "", Recording{}.ArtistDisplay())
}

func TestHasSecondaryType(t *testing.T) {
	r := Release{SecondaryTypes: []string{TypeCompilation, TypeLive}}
	assert.True(t, r.HasSecondaryType(TypeLive))
	assert.False(t, r.HasSecondaryType("Soundtrack"))
}
