package search

import (
	"time"

	"music-search-api-go/catalog"
	"music-search-api-go/credits"
	"music-search-api-go/ranking"
)

// Result is one search hit as returned to callers
type Result struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Artist          string          `json:"artist"`
	Album           string          `json:"album,omitempty"`
	Year            int             `json:"year,omitempty"`
	DurationSeconds *int            `json:"durationSeconds,omitempty"`
	Credits         credits.Credits `json:"credits"`
	Score           int             `json:"score"`
	Rationale       string          `json:"rationale,omitempty"`
}

// Response is the outcome of one search
type Response struct {
	Results         []Result `json:"results"`
	TotalCount      int      `json:"totalCount"`
	Cached          bool     `json:"cached"`
	CacheTTLSeconds int64    `json:"cacheTtlSeconds,omitempty"`
	Ranked          bool     `json:"ranked"`
	Fallback        bool     `json:"fallback"`
	SearchTimeMs    int64    `json:"searchTimeMs"`
}

// CachedSearch is the stored value of a search entry. Results hold the full ranked list.
type CachedSearch struct {
	Results   []Result  `json:"results"`
	CachedAt  time.Time `json:"cachedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Artist    string    `json:"artist"`
	Song      string    `json:"song"`
}

// CachedCredits is the stored value of a credits entry
type CachedCredits struct {
	RecordingID string          `json:"recordingId"`
	Title       string          `json:"title,omitempty"`
	Artist      string          `json:"artist,omitempty"`
	Credits     credits.Credits `json:"credits"`
	CachedAt    time.Time       `json:"cachedAt"`
}

// CreditsResponse is the outcome of a credits lookup
type CreditsResponse struct {
	CachedCredits
	Total  int  `json:"total"`
	Cached bool `json:"cached"`
}

// toResult shapes a ranked candidate for callers
func toResult(s ranking.Scored) Result {
	r := baseResult(s.Recording, s.BestRelease)
	r.Score = s.Score
	r.Rationale = s.Rationale()
	return r
}

// toUnrankedResult shapes a candidate in upstream order, using its first release
func toUnrankedResult(rec catalog.Recording) Result {
	var first *catalog.Release
	if len(rec.Releases) > 0 {
		first = &rec.Releases[0]
	}
	return baseResult(rec, first)
}

func baseResult(rec catalog.Recording, release *catalog.Release) Result {
	r := Result{
		ID:              rec.ID,
		Title:           rec.Title,
		Artist:          rec.ArtistDisplay(),
		DurationSeconds: rec.DurationSeconds,
		Credits:         credits.Extract(rec),
	}
	if release != nil {
		r.Album = release.Title
		if year, ok := release.Year(); ok {
			r.Year = year
		}
	}
	return r
}
