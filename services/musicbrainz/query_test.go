package musicbrainz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeTerm(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Come Together", "Come Together"},
		{"AC/DC", `AC\/DC`},
		{"What's Going On?", `What's Going On\?`},
		{`a:b "c"`, `a\:b \"c\"`},
		{"  padded  ", "padded"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeTerm(tt.in), tt.in)
	}
}

func TestPhrase(t *testing.T) {
	assert.Equal(t, `"Come Together"`, Phrase(" Come Together "))
	assert.Equal(t, `"say \"hi\""`, Phrase(`say "hi"`))
}

func TestStrategies(t *testing.T) {
	withArtist := Strategies("The Beatles", "Come Together")
	assert.Equal(t, []Query{
		{Name: "exact", Lucene: `recording:"Come Together" AND artist:"The Beatles"`},
		{Name: "loose", Lucene: `recording:(Come Together) AND artist:(The Beatles)`},
		{Name: "title-only", Lucene: `recording:"Come Together"`},
	}, withArtist)

	titleOnly := Strategies("  ", "Yesterday")
	assert.Equal(t, []Query{
		{Name: "exact-title", Lucene: `recording:"Yesterday"`},
		{Name: "loose-title", Lucene: `recording:(Yesterday)`},
	}, titleOnly)
}

func TestLooseQuery(t *testing.T) {
	assert.Equal(t, "Come Together The Beatles", LooseQuery("The Beatles", "Come Together").Lucene)
	assert.Equal(t, "Yesterday", LooseQuery("", "Yesterday").Lucene)
}
