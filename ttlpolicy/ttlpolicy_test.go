package ttlpolicy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"music-search-api-go/keys"
)

func TestTTLFor(t *testing.T) {
	tests := []struct {
		name   string
		artist string
		want   time.Duration
	}{
		{"popular", "The Beatles", PopularTTL},
		{"popular with whitespace", "   the BEATLES  ", PopularTTL},
		{"popular single word", "Queen", PopularTTL},
		{"popular with punctuation", "AC/DC", PopularTTL},
		{"popular with inner spacing", "The  Beatles.", PopularTTL},
		{"same key as popular", "acdc", PopularTTL},
		{"unknown", "Some Random Indie Band", StandardTTL},
		{"empty", "", StandardTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TTLFor(tt.artist))
		})
	}
}

func TestPolicy_CustomWindows(t *testing.T) {
	p := Policy{Popular: time.Hour, Standard: time.Minute}

	assert.Equal(t, time.Hour, p.TTLFor("radiohead"))
	assert.Equal(t, time.Minute, p.TTLFor("radiohead tribute band"))
}

func TestIsPopular_ComparesVerbatim(t *testing.T) {
	assert.True(t, IsPopular("u2"))
	assert.False(t, IsPopular("U2"))
	assert.False(t, IsPopular("the_beatles"))
}

// Ranking checks the underscore-joined key form, which only one-word entries
// share with the allow-list.
func TestIsPopular_KeyForm(t *testing.T) {
	tests := []struct {
		artist string
		want   bool
	}{
		{"Queen", true},
		{"U2", true},
		{"Radiohead", true},
		{"The Beatles", false},
		{"Led Zeppelin", false},
		{"AC/DC", false},
	}

	for _, tt := range tests {
		t.Run(tt.artist, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPopular(keys.Normalize(tt.artist)))
		})
	}
}
