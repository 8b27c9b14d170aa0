// Package keys builds cache keys from free-text search terms and catalog ids.
//
// The same normalization runs on the read and the write path, so equivalent
// queries that differ only in case, punctuation or spacing share one entry.
package keys

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"music-search-api-go/apperrors"
)

const (
	// MaxInputLength is the longest artist or song accepted, in characters
	MaxInputLength = 200

	// Separator divides the namespace and key components
	Separator = ":"

	SearchNamespace  = "search"
	CreditsNamespace = "credits"
)

// Normalize lowercases s, drops everything outside [a-z0-9 ] and joins the
// remaining words with a single underscore.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), "_")
}

// SearchKey returns the cache key for a search. artist may be empty.
func SearchKey(artist, song string) (string, error) {
	if err := checkLength("artist", artist); err != nil {
		return "", err
	}
	if err := checkLength("song", song); err != nil {
		return "", err
	}

	normalizedSong := Normalize(song)
	if normalizedSong == "" {
		return "", apperrors.New(apperrors.KindInvalidCharacters, "song contains no searchable characters")
	}

	return build(SearchNamespace, Normalize(artist), normalizedSong)
}

// CreditsKey returns the cache key for a recording's credits.
// The id must be a canonical lowercase UUID.
func CreditsKey(recordingID string) (string, error) {
	if err := ValidateRecordingID(recordingID); err != nil {
		return "", err
	}
	return build(CreditsNamespace, recordingID)
}

// ValidateRecordingID checks that id has the upstream's canonical id shape
func ValidateRecordingID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInvalidIdentifier, "recording id is not a valid identifier", err)
	}
	// uuid.Parse also accepts urn:uuid:, braced and unhyphenated forms
	if parsed.String() != id {
		return apperrors.New(apperrors.KindInvalidIdentifier, "recording id is not in canonical form")
	}
	return nil
}

// Prefix returns the prefix shared by every key in namespace
func Prefix(namespace string) string {
	return namespace + Separator
}

// build joins namespace and parts, refusing any part that still carries the separator
func build(namespace string, parts ...string) (string, error) {
	for _, part := range parts {
		if strings.Contains(part, Separator) {
			return "", apperrors.New(apperrors.KindInvalidCharacters, "key component contains a namespace separator")
		}
	}
	return namespace + Separator + strings.Join(parts, Separator), nil
}

func checkLength(field, value string) error {
	if utf8.RuneCountInString(value) > MaxInputLength {
		return apperrors.New(apperrors.KindInputTooLong, field+" exceeds 200 characters")
	}
	return nil
}
