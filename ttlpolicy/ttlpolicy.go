// Package ttlpolicy decides how long search results stay cached.
// Popular artists are searched often and their catalogs change rarely, so
// their results live longer.
package ttlpolicy

import (
	"time"

	"music-search-api-go/keys"
)

const (
	PopularTTL  = 24 * time.Hour
	StandardTTL = 6 * time.Hour
)

var popularArtists = map[string]bool{
	"the beatles":        true,
	"queen":              true,
	"led zeppelin":       true,
	"pink floyd":         true,
	"david bowie":        true,
	"bob dylan":          true,
	"prince":             true,
	"michael jackson":    true,
	"madonna":            true,
	"elvis presley":      true,
	"the rolling stones": true,
	"radiohead":          true,
	"nirvana":            true,
	"u2":                 true,
	"the who":            true,
	"ac/dc":              true,
}

// Policy holds the two expiration windows
type Policy struct {
	Popular  time.Duration
	Standard time.Duration
}

// popularKeys holds the allow-list in cache key form, so every query that
// shares a cache entry with a popular artist also shares its window
var popularKeys = func() map[string]bool {
	m := make(map[string]bool, len(popularArtists))
	for name := range popularArtists {
		m[keys.Normalize(name)] = true
	}
	return m
}()

// Default is the 24h / 6h policy
var Default = Policy{Popular: PopularTTL, Standard: StandardTTL}

// IsPopular reports whether name is on the allow-list. name is compared verbatim.
func IsPopular(name string) bool {
	return popularArtists[name]
}

// TTLFor returns the expiration window for results of a search by artist
func (p Policy) TTLFor(artist string) time.Duration {
	if popularKeys[keys.Normalize(artist)] {
		return p.Popular
	}
	return p.Standard
}

// TTLFor applies the default policy
func TTLFor(artist string) time.Duration {
	return Default.TTLFor(artist)
}
