package musicbrainz

import (
	"strings"
)

// Query is one search attempt
type Query struct {
	Name   string
	Lucene string
}

const luceneSpecial = `+-&|!(){}[]^"~*?:\/`

// EscapeTerm escapes Lucene operators so s is searched as plain words
func EscapeTerm(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if strings.ContainsRune(luceneSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Phrase quotes s for an exact phrase match
func Phrase(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(strings.TrimSpace(s)) + `"`
}

// Strategies returns the search attempts from strictest to loosest
func Strategies(artist, song string) []Query {
	artist = strings.TrimSpace(artist)
	if artist == "" {
		return []Query{
			{Name: "exact-title", Lucene: "recording:" + Phrase(song)},
			{Name: "loose-title", Lucene: "recording:(" + EscapeTerm(song) + ")"},
		}
	}

	return []Query{
		{Name: "exact", Lucene: "recording:" + Phrase(song) + " AND artist:" + Phrase(artist)},
		{Name: "loose", Lucene: "recording:(" + EscapeTerm(song) + ") AND artist:(" + EscapeTerm(artist) + ")"},
		{Name: "title-only", Lucene: "recording:" + Phrase(song)},
	}
}

// LooseQuery is the single free-text query used when ranking is skipped
func LooseQuery(artist, song string) Query {
	terms := EscapeTerm(song)
	if a := EscapeTerm(artist); a != "" {
		terms += " " + a
	}
	return Query{Name: "unranked", Lucene: terms}
}
