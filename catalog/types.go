// Package catalog holds the record types every other package works on.
// Upstream responses are mapped into these at the client boundary, with
// missing fields already defaulted.
package catalog

import "strconv"

// Canonical release status values
const (
	StatusOfficial = "Official"
	StatusBootleg  = "Bootleg"
)

// Canonical release types
const (
	TypeAlbum       = "Album"
	TypeSingle      = "Single"
	TypeEP          = "EP"
	TypeBroadcast   = "Broadcast"
	TypeOther       = "Other"
	TypeCompilation = "Compilation"
	TypeLive        = "Live"
)

// Performer is one credited artist on a recording, in upstream order
type Performer struct {
	Name       string `json:"name"`
	ArtistID   string `json:"artistId,omitempty"`
	JoinPhrase string `json:"joinPhrase,omitempty"`
}

// Release is one published edition containing a recording
type Release struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Status         string   `json:"status,omitempty"`
	PrimaryType    string   `json:"primaryType,omitempty"`
	SecondaryTypes []string `json:"secondaryTypes,omitempty"`
	// Date is YYYY, YYYY-MM or YYYY-MM-DD, or empty when unknown
	Date    string   `json:"date,omitempty"`
	Artists []string `json:"artists,omitempty"`
}

// HasSecondaryType reports whether the release carries the given secondary type
func (r Release) HasSecondaryType(t string) bool {
	for _, st := range r.SecondaryTypes {
		if st == t {
			return true
		}
	}
	return false
}

// Year returns the release year and whether the date had a parseable year
func (r Release) Year() (int, bool) {
	return ParseYear(r.Date)
}

// Relationship is a credit relation attached to a recording or its work
type Relationship struct {
	Type       string   `json:"type"`
	TargetName string   `json:"targetName"`
	Attributes []string `json:"attributes,omitempty"`
	Instrument string   `json:"instrument,omitempty"`
}

// Recording is one performance of a song as reported by the catalog
type Recording struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	DurationSeconds *int           `json:"durationSeconds,omitempty"`
	Disambiguation  string         `json:"disambiguation,omitempty"`
	Performers      []Performer    `json:"performers,omitempty"`
	Releases        []Release      `json:"releases,omitempty"`
	Relationships   []Relationship `json:"relationships,omitempty"`
}

// ArtistDisplay joins the performers with their join phrases, e.g. "Queen & David Bowie"
func (r Recording) ArtistDisplay() string {
	var s string
	for i, p := range r.Performers {
		s += p.Name
		if p.JoinPhrase != "" {
			s += p.JoinPhrase
		} else if i < len(r.Performers)-1 {
			s += ", "
		}
	}
	return s
}

// ParseYear extracts the leading four-digit year from a partial date
func ParseYear(date string) (int, bool) {
	if len(date) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year <= 0 {
		return 0, false
	}
	return year, true
}
