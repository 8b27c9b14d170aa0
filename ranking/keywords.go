package ranking

import (
	"regexp"
	"strings"
)

// compilationKeywords mark reissues and best-of collections
var compilationKeywords = []string{
	"greatest", "hits", "collection", "best", "compilation", "anthology",
	"essential", "ultimate", "complete", "selected", "classics", "definitive",
	"gold", "platinum", "singles", "rarities", "chronicles", "retrospective",
	"treasury", "legend", "very best",
}

// liveKeywords mark live recordings, bootlegs and studio leftovers
var liveKeywords = []string{
	"live", "concert", "bootleg", "unofficial", "demo", "rehearsal", "outtake",
	"alternate", "unreleased", "session", "bbc", "radio", "broadcast", "soundcheck",
}

// liveTypeKeywords restate a Live secondary type and are not counted again
var liveTypeKeywords = map[string]bool{
	"live":    true,
	"concert": true,
}

var yearRangePattern = regexp.MustCompile(`\d{4}-\d{4}`)

const (
	compilationKeywordPenalty = 200
	yearRangePenalty          = 300
	volumePenalty             = 100
	liveKeywordPenalty        = 150
	remasterPenalty           = 50
)

// matchKeywords returns the distinct keywords found in title, in list order.
// title must already be lowercased.
func matchKeywords(title string, keywords []string) []string {
	var found []string
	for _, kw := range keywords {
		if strings.Contains(title, kw) {
			found = append(found, kw)
		}
	}
	return found
}

func hasYearRange(title string) bool {
	return yearRangePattern.MatchString(title)
}

// hasVolume also covers "volume"
func hasVolume(title string) bool {
	return strings.Contains(title, "vol")
}
