package credits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"music-search-api-go/catalog"
)

func TestExtract_ProvisionalSongwriterFromPerformer(t *testing.T) {
	rec := catalog.Recording{
		Performers: []catalog.Performer{{Name: "X"}},
	}

	got := Extract(rec)
	require.Len(t, got.Songwriters, 1)
	assert.Equal(t, "X", got.Songwriters[0].Name)
	assert.Contains(t, got.Songwriters[0].Role, "likely songwriter")
}

func TestExtract_ExplicitComposerReplacesProvisional(t *testing.T) {
	rec := catalog.Recording{
		Performers: []catalog.Performer{{Name: "X"}},
		Relationships: []catalog.Relationship{
			{Type: "composer", TargetName: "Y"},
		},
	}

	got := Extract(rec)
	assert.Equal(t, []Credit{{Name: "Y", Role: "composer"}}, got.Songwriters)
}

func TestExtract_ExplicitAfterOtherRelationships(t *testing.T) {
	rec := catalog.Recording{
		Performers: []catalog.Performer{{Name: "X"}, {Name: "Z"}},
		Relationships: []catalog.Relationship{
			{Type: "producer", TargetName: "George Martin"},
			{Type: "lyricist", TargetName: "John Lennon"},
			{Type: "composer", TargetName: "John Lennon"},
			{Type: "composer", TargetName: "Paul McCartney"},
		},
	}

	got := Extract(rec)
	names := make([]string, 0, len(got.Songwriters))
	for _, c := range got.Songwriters {
		names = append(names, c.Name)
		assert.NotEqual(t, ProvisionalSongwriterRole, c.Role)
	}
	assert.Equal(t, []string{"John Lennon", "John Lennon", "Paul McCartney"}, names)
	assert.Len(t, got.Producers, 1)
}

func TestExtract_Buckets(t *testing.T) {
	rec := catalog.Recording{
		Relationships: []catalog.Relationship{
			{Type: "producer", TargetName: "George Martin"},
			{Type: "instrument", TargetName: "Paul McCartney", Attributes: []string{"bass guitar"}, Instrument: "bass guitar"},
			{Type: "vocal", TargetName: "John Lennon", Attributes: []string{"lead vocals"}},
			{Type: "engineer", TargetName: "Geoff Emerick"},
			{Type: "mix", TargetName: "Phil McDonald"},
			{Type: "arranger", TargetName: "Someone"},
		},
	}

	got := Extract(rec)
	assert.Len(t, got.Producers, 1)
	assert.Len(t, got.Musicians, 2)
	assert.Len(t, got.Engineers, 2)
	assert.Len(t, got.Misc, 1)
	assert.Empty(t, got.Songwriters)
	assert.Equal(t, 6, got.Total())

	assert.Equal(t, "bass guitar", got.Musicians[0].Instrument)
	assert.Equal(t, "lead vocals", got.Musicians[1].Attribute)
}

func TestExtract_DeduplicatesByNameAndRole(t *testing.T) {
	rec := catalog.Recording{
		Performers: []catalog.Performer{{Name: "X"}, {Name: "x"}},
		Relationships: []catalog.Relationship{
			{Type: "producer", TargetName: "George Martin"},
			{Type: "Producer", TargetName: "george martin"},
			{Type: "engineer", TargetName: "George Martin"},
		},
	}

	got := Extract(rec)
	assert.Len(t, got.Songwriters, 1)
	assert.Len(t, got.Producers, 1)
	assert.Len(t, got.Engineers, 1)
}

func TestExtract_SkipsBlankNames(t *testing.T) {
	rec := catalog.Recording{
		Performers:    []catalog.Performer{{Name: " "}},
		Relationships: []catalog.Relationship{{Type: "composer", TargetName: ""}},
	}

	got := Extract(rec)
	assert.Equal(t, 0, got.Total())
}
