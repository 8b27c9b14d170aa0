// Package ranking orders candidate recordings so that a song's original studio
// release comes before singles, compilations, live albums and bootlegs.
//
// Everything here is pure: inputs are only read and every call allocates its
// own output, so Rank may be called from any goroutine.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"music-search-api-go/catalog"
	"music-search-api-go/keys"
	"music-search-api-go/ttlpolicy"
)

const (
	artistMatchBonus    = 1000
	artistMismatchFloor = 50
	noReleasesBonus     = 100
	officialBonus       = 500
	bootlegPenalty      = 300
	popularArtistBonus  = 100

	// undatedSelectionYear sorts undated releases last when picking the best release
	undatedSelectionYear = 2099
	// UndatedTieBreakYear is the tie-break year of a candidate with no parseable dates
	UndatedTieBreakYear = 9999
)

var releaseTypeScores = map[string]struct {
	points int
	reason string
}{
	catalog.TypeAlbum:     {800, "Studio album"},
	catalog.TypeSingle:    {600, "Single"},
	catalog.TypeEP:        {400, "EP"},
	catalog.TypeBroadcast: {200, "Broadcast"},
}

// Scored is a recording annotated with its priority score
type Scored struct {
	Recording    catalog.Recording
	Score        int
	Reasons      []string
	BestRelease  *catalog.Release
	TieBreakYear int
}

// Rationale joins the applied reasons for diagnostics
func (s Scored) Rationale() string {
	return strings.Join(s.Reasons, ", ")
}

// Rank scores every candidate and returns them by descending score, equal
// scores ordered by earliest release year.
func Rank(candidates []catalog.Recording, searchArtist string) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, Score(c, searchArtist))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].TieBreakYear < scored[j].TieBreakYear
	})

	return scored
}

// Score computes the priority score of a single candidate
func Score(rec catalog.Recording, searchArtist string) Scored {
	result := Scored{
		Recording:    rec,
		TieBreakYear: TieBreakYear(rec),
	}

	total := 0
	add := func(points int, reason string) {
		total += points
		result.Reasons = append(result.Reasons, reason)
	}

	artist := keys.Normalize(searchArtist)
	if artist != "" {
		if !matchesArtist(rec, artist) {
			result.Score = artistMismatchFloor
			result.Reasons = []string{"No artist match"}
			return result
		}
		add(artistMatchBonus, "Artist match")
	}

	best := SelectBestRelease(rec.Releases)
	if best == nil {
		add(noReleasesBonus, "No releases")
		result.Score = total
		return result
	}
	result.BestRelease = best

	switch best.Status {
	case catalog.StatusOfficial:
		add(officialBonus, "Official release")
	case catalog.StatusBootleg:
		add(-bootlegPenalty, "Bootleg")
	}

	switch {
	case best.HasSecondaryType(catalog.TypeCompilation):
		add(200, "Compilation album")
	case best.HasSecondaryType(catalog.TypeLive):
		add(400, "Live album")
	default:
		if ts, ok := releaseTypeScores[best.PrimaryType]; ok {
			add(ts.points, ts.reason)
		} else {
			add(300, fmt.Sprintf("Other (%s)", otherTypeLabel(best.PrimaryType)))
		}
	}

	title := strings.ToLower(best.Title)
	for _, kw := range matchKeywords(title, compilationKeywords) {
		add(-compilationKeywordPenalty, "Compilation keyword: "+kw)
	}
	if hasYearRange(title) {
		add(-yearRangePenalty, "Year range in title")
	}
	if hasVolume(title) {
		add(-volumePenalty, "Volume in title")
	}

	// a bootleg has already paid its status penalty
	if best.Status != catalog.StatusBootleg {
		isLive := best.HasSecondaryType(catalog.TypeLive)
		for _, kw := range matchKeywords(title, liveKeywords) {
			if isLive && liveTypeKeywords[kw] {
				continue
			}
			add(-liveKeywordPenalty, "Live/bootleg keyword: "+kw)
		}
	}

	if ttlpolicy.IsPopular(keys.Normalize(searchArtist)) {
		add(popularArtistBonus, "Popular artist")
	}

	if strings.Contains(strings.ToLower(rec.Disambiguation), "remaster") {
		add(-remasterPenalty, "Remaster")
	}

	if total < 0 {
		total = 0
	}
	result.Score = total
	return result
}

// SelectBestRelease picks the release a recording is scored by: official
// before anything else, then albums, then non-compilations, then earliest.
// Returns nil when there are no releases. Ties keep upstream order.
func SelectBestRelease(releases []catalog.Release) *catalog.Release {
	if len(releases) == 0 {
		return nil
	}

	bestIdx := 0
	for i := 1; i < len(releases); i++ {
		if preferRelease(releases[i], releases[bestIdx]) {
			bestIdx = i
		}
	}

	best := releases[bestIdx]
	return &best
}

// preferRelease reports whether a strictly outranks b
func preferRelease(a, b catalog.Release) bool {
	aOfficial, bOfficial := a.Status == catalog.StatusOfficial, b.Status == catalog.StatusOfficial
	if aOfficial != bOfficial {
		return aOfficial
	}

	aAlbum, bAlbum := a.PrimaryType == catalog.TypeAlbum, b.PrimaryType == catalog.TypeAlbum
	if aAlbum != bAlbum {
		return aAlbum
	}

	aComp, bComp := IsCompilation(a), IsCompilation(b)
	if aComp != bComp {
		return !aComp
	}

	return selectionYear(a) < selectionYear(b)
}

// IsCompilation reports whether a release looks like a compilation, either by
// its secondary types or by its title.
func IsCompilation(r catalog.Release) bool {
	if r.HasSecondaryType(catalog.TypeCompilation) {
		return true
	}
	title := strings.ToLower(r.Title)
	return len(matchKeywords(title, compilationKeywords)) > 0 || hasYearRange(title)
}

// TieBreakYear returns the earliest parseable year across all releases
func TieBreakYear(rec catalog.Recording) int {
	earliest := UndatedTieBreakYear
	for _, r := range rec.Releases {
		if year, ok := r.Year(); ok && year < earliest {
			earliest = year
		}
	}
	return earliest
}

func selectionYear(r catalog.Release) int {
	if year, ok := r.Year(); ok {
		return year
	}
	return undatedSelectionYear
}

// matchesArtist compares in key form, so spacing and punctuation never decide a match
func matchesArtist(rec catalog.Recording, artist string) bool {
	for _, p := range rec.Performers {
		if strings.Contains(keys.Normalize(p.Name), artist) {
			return true
		}
	}
	for _, r := range rec.Releases {
		for _, name := range r.Artists {
			if strings.Contains(keys.Normalize(name), artist) {
				return true
			}
		}
	}
	return false
}

func otherTypeLabel(primaryType string) string {
	if primaryType == "" {
		return "unknown"
	}
	return primaryType
}
