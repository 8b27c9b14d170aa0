package keys

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"music-search-api-go/apperrors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase and trim", "  The Beatles ", "the_beatles"},
		{"punctuation stripped", "come    together!!", "come_together"},
		{"slash removed", "AC/DC", "acdc"},
		{"tabs and newlines", "Led\tZeppelin\nIV", "led_zeppelin_iv"},
		{"non ascii dropped", "Björk", "bjrk"},
		{"colon dropped", "artist:evil", "artistevil"},
		{"only symbols", "!!!", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestSearchKey_EquivalentQueriesShareKey(t *testing.T) {
	a, err := SearchKey("The Beatles", "Come Together")
	require.NoError(t, err)

	b, err := SearchKey(" the BEATLES ", "come    together!!")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, "search:the_beatles:come_together", a)
}

func TestSearchKey_EmptyArtist(t *testing.T) {
	key, err := SearchKey("", "Yesterday")
	require.NoError(t, err)
	assert.Equal(t, "search::yesterday", key)
}

func TestSearchKey_InputTooLong(t *testing.T) {
	long := strings.Repeat("a", MaxInputLength+1)

	_, err := SearchKey(long, "song")
	assert.True(t, errors.Is(err, apperrors.ErrInputTooLong))

	_, err = SearchKey("artist", long)
	assert.True(t, errors.Is(err, apperrors.ErrInputTooLong))

	// exactly at the cap is accepted
	_, err = SearchKey(strings.Repeat("a", MaxInputLength), "song")
	assert.NoError(t, err)
}

func TestSearchKey_LengthCountsCharactersNotBytes(t *testing.T) {
	// 200 two-byte runes is still within the cap
	_, err := SearchKey(strings.Repeat("é", MaxInputLength), "song")
	assert.NoError(t, err)
}

func TestSearchKey_SongWithoutSearchableCharacters(t *testing.T) {
	_, err := SearchKey("artist", "?!?")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCharacters))
}

func TestBuild_RejectsSeparatorInComponent(t *testing.T) {
	_, err := build(SearchNamespace, "a:b", "song")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCharacters))

	_, err = build(SearchNamespace, "artist", "song:credits")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCharacters))
}

func TestSearchKey_ColonInputCannotEscapeNamespace(t *testing.T) {
	key, err := SearchKey("x:credits", "y")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(key, Separator))
	assert.Equal(t, "search:xcredits:y", key)
}

func TestCreditsKey(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		want    string
		wantErr bool
	}{
		{"canonical uuid", "b9ad642e-b012-41c7-b72a-42cf4911f9ff", "credits:b9ad642e-b012-41c7-b72a-42cf4911f9ff", false},
		{"uppercase rejected", "B9AD642E-B012-41C7-B72A-42CF4911F9FF", "", true},
		{"urn form rejected", "urn:uuid:b9ad642e-b012-41c7-b72a-42cf4911f9ff", "", true},
		{"unhyphenated rejected", "b9ad642eb01241c7b72a42cf4911f9ff", "", true},
		{"injection attempt", "x:search:the_beatles", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CreditsKey(tt.id)
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperrors.ErrInvalidIdentifier), "expected InvalidIdentifier, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "search:", Prefix(SearchNamespace))
	assert.Equal(t, "credits:", Prefix(CreditsNamespace))
}
