package musicbrainz

// Wire shapes of the WS/2 JSON API. Only the fields the mapper reads are declared.

type searchResponse struct {
	Created    string      `json:"created"`
	Count      int         `json:"count"`
	Offset     int         `json:"offset"`
	Recordings []recording `json:"recordings"`
}

type recording struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Length         *int           `json:"length"` // milliseconds
	Disambiguation string         `json:"disambiguation"`
	Score          int            `json:"score"`
	ArtistCredit   []artistCredit `json:"artist-credit"`
	Releases       []release      `json:"releases"`
	Relations      []relation     `json:"relations"`
}

type artistCredit struct {
	Name       string `json:"name"`
	JoinPhrase string `json:"joinphrase"`
	Artist     artist `json:"artist"`
}

type artist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SortName string `json:"sort-name"`
}

type release struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Status       string         `json:"status"`
	Date         string         `json:"date"`
	Country      string         `json:"country"`
	ArtistCredit []artistCredit `json:"artist-credit"`
	ReleaseGroup *releaseGroup  `json:"release-group"`
}

type releaseGroup struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	PrimaryType    string   `json:"primary-type"`
	SecondaryTypes []string `json:"secondary-types"`
}

type relation struct {
	Type       string   `json:"type"`
	TargetType string   `json:"target-type"`
	Direction  string   `json:"direction"`
	Attributes []string `json:"attributes"`
	Artist     *artist  `json:"artist"`
	Work       *work    `json:"work"`
}

type work struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Relations []relation `json:"relations"`
}

// errorResponse is the body the API sends with most non-2xx statuses
type errorResponse struct {
	Error string `json:"error"`
	Help  string `json:"help"`
}
