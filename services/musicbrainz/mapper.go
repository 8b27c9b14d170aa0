package musicbrainz

import (
	"strings"

	"music-search-api-go/catalog"
)

// toRecordings maps a search page, dropping entries without an id
func toRecordings(in []recording) []catalog.Recording {
	out := make([]catalog.Recording, 0, len(in))
	for _, r := range in {
		if r.ID == "" {
			continue
		}
		out = append(out, toRecording(r))
	}
	return out
}

func toRecording(r recording) catalog.Recording {
	rec := catalog.Recording{
		ID:             r.ID,
		Title:          strings.TrimSpace(r.Title),
		Disambiguation: r.Disambiguation,
		Performers:     toPerformers(r.ArtistCredit),
	}
	if r.Length != nil && *r.Length > 0 {
		seconds := (*r.Length + 500) / 1000
		rec.DurationSeconds = &seconds
	}

	for _, rel := range r.Releases {
		rec.Releases = append(rec.Releases, toRelease(rel))
	}
	rec.Relationships = toRelationships(r.Relations)
	return rec
}

func toPerformers(credits []artistCredit) []catalog.Performer {
	var out []catalog.Performer
	for _, c := range credits {
		name := c.Name
		if name == "" {
			name = c.Artist.Name
		}
		if name == "" {
			continue
		}
		out = append(out, catalog.Performer{
			Name:       name,
			ArtistID:   c.Artist.ID,
			JoinPhrase: c.JoinPhrase,
		})
	}
	return out
}

func toRelease(r release) catalog.Release {
	out := catalog.Release{
		ID:     r.ID,
		Title:  strings.TrimSpace(r.Title),
		Status: r.Status,
		Date:   r.Date,
	}
	if rg := r.ReleaseGroup; rg != nil {
		out.PrimaryType = rg.PrimaryType
		out.SecondaryTypes = append([]string(nil), rg.SecondaryTypes...)
	}
	for _, p := range toPerformers(r.ArtistCredit) {
		out.Artists = append(out.Artists, p.Name)
	}
	return out
}

// toRelationships keeps artist relations and lifts the artist relations of
// linked works (composer, lyricist, ...) onto the recording.
func toRelationships(in []relation) []catalog.Relationship {
	var out []catalog.Relationship
	for _, rel := range in {
		switch {
		case rel.Artist != nil:
			out = append(out, toRelationship(rel))
		case rel.Work != nil:
			for _, wr := range rel.Work.Relations {
				if wr.Artist != nil {
					out = append(out, toRelationship(wr))
				}
			}
		}
	}
	return out
}

func toRelationship(rel relation) catalog.Relationship {
	out := catalog.Relationship{
		Type:       rel.Type,
		TargetName: rel.Artist.Name,
		Attributes: append([]string(nil), rel.Attributes...),
	}
	if rel.Type == "instrument" && len(rel.Attributes) > 0 {
		out.Instrument = rel.Attributes[0]
	}
	return out
}
