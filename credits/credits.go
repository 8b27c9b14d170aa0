// Package credits sorts a recording's relationship records into contributor buckets.
package credits

import (
	"strings"

	"music-search-api-go/catalog"
)

// ProvisionalSongwriterRole labels performers assumed to have written the song
const ProvisionalSongwriterRole = "likely songwriter"

// Credit is one contributor entry
type Credit struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Attribute  string `json:"attribute,omitempty"`
	Instrument string `json:"instrument,omitempty"`
}

// Credits groups contributors into five fixed buckets
type Credits struct {
	Songwriters []Credit `json:"songwriters"`
	Producers   []Credit `json:"producers"`
	Musicians   []Credit `json:"musicians"`
	Engineers   []Credit `json:"engineers"`
	Misc        []Credit `json:"misc"`
}

// Total returns the number of credits across all buckets
func (c Credits) Total() int {
	return len(c.Songwriters) + len(c.Producers) + len(c.Musicians) + len(c.Engineers) + len(c.Misc)
}

type bucket int

const (
	bucketMisc bucket = iota
	bucketSongwriters
	bucketProducers
	bucketMusicians
	bucketEngineers
)

var relationshipBuckets = map[string]bucket{
	"composer": bucketSongwriters,
	"lyricist": bucketSongwriters,
	"writer":   bucketSongwriters,

	"producer": bucketProducers,

	"instrument":           bucketMusicians,
	"vocal":                bucketMusicians,
	"performer":            bucketMusicians,
	"performing orchestra": bucketMusicians,
	"conductor":            bucketMusicians,

	"engineer":  bucketEngineers,
	"audio":     bucketEngineers,
	"mix":       bucketEngineers,
	"mastering": bucketEngineers,
	"recording": bucketEngineers,
	"sound":     bucketEngineers,
	"editor":    bucketEngineers,
}

// Extract categorizes rec's relationships.
//
// Until a composer, lyricist or writer relationship is seen, the songwriter
// bucket holds the credited performers labeled as likely songwriters. The
// first explicit songwriting credit discards all of them.
func Extract(rec catalog.Recording) Credits {
	var (
		out      Credits
		explicit bool
		seen     = map[bucket]map[string]bool{}
	)

	add := func(b bucket, c Credit) {
		key := strings.ToLower(c.Name) + "\x00" + strings.ToLower(c.Role)
		if seen[b] == nil {
			seen[b] = map[string]bool{}
		}
		if seen[b][key] {
			return
		}
		seen[b][key] = true

		switch b {
		case bucketSongwriters:
			out.Songwriters = append(out.Songwriters, c)
		case bucketProducers:
			out.Producers = append(out.Producers, c)
		case bucketMusicians:
			out.Musicians = append(out.Musicians, c)
		case bucketEngineers:
			out.Engineers = append(out.Engineers, c)
		default:
			out.Misc = append(out.Misc, c)
		}
	}

	for _, p := range rec.Performers {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		add(bucketSongwriters, Credit{Name: p.Name, Role: ProvisionalSongwriterRole})
	}

	for _, rel := range rec.Relationships {
		if strings.TrimSpace(rel.TargetName) == "" {
			continue
		}
		relType := strings.ToLower(strings.TrimSpace(rel.Type))
		b := relationshipBuckets[relType]

		if b == bucketSongwriters && !explicit {
			explicit = true
			out.Songwriters = nil
			seen[bucketSongwriters] = nil
		}

		add(b, Credit{
			Name:       rel.TargetName,
			Role:       relType,
			Attribute:  strings.Join(rel.Attributes, ", "),
			Instrument: rel.Instrument,
		})
	}

	return out
}
