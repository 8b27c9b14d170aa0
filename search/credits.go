package search

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"music-search-api-go/apperrors"
	"music-search-api-go/credits"
	"music-search-api-go/keys"
	"music-search-api-go/logcolors"
)

// LoadCredits returns the categorized credits of a recording, from the cache
// when possible.
func (o *Orchestrator) LoadCredits(ctx context.Context, recordingID string) (*CreditsResponse, error) {
	key, err := keys.CreditsKey(recordingID)
	if err != nil {
		return nil, err
	}

	var entry CachedCredits
	if o.store.GetJSON(key, &entry) {
		o.opts.Stats.RecordCreditsCache(true)
		log.Debugf("%s Hit for %s", logcolors.LogCacheCredits, key)
		return &CreditsResponse{CachedCredits: entry, Total: entry.Credits.Total(), Cached: true}, nil
	}
	o.opts.Stats.RecordCreditsCache(false)

	if IsCacheOnly(ctx) {
		return nil, o.cacheOnlyError()
	}

	v, err := o.share(ctx, key, func(ctx context.Context) (any, error) {
		return o.lookupAndStore(ctx, key, recordingID)
	})
	if err != nil {
		return nil, err
	}

	fresh := v.(*CachedCredits)
	return &CreditsResponse{CachedCredits: *fresh, Total: fresh.Credits.Total()}, nil
}

func (o *Orchestrator) lookupAndStore(ctx context.Context, key, recordingID string) (*CachedCredits, error) {
	start := time.Now()
	rec, err := o.catalog.LookupRecording(ctx, recordingID)
	o.opts.Stats.RecordUpstream(err, apperrors.KindOf(err) == apperrors.KindRateLimitExceeded)
	if err != nil {
		log.Warnf("%s Lookup of %s failed: %v", logcolors.LogCredits, recordingID, err)
		return nil, err
	}

	entry := &CachedCredits{
		RecordingID: rec.ID,
		Title:       rec.Title,
		Artist:      rec.ArtistDisplay(),
		Credits:     credits.Extract(*rec),
		CachedAt:    o.opts.Now(),
	}
	log.Infof("%s %s: %d credits in %v", logcolors.LogCredits, recordingID, entry.Credits.Total(), time.Since(start).Round(time.Millisecond))

	if !o.store.SetJSON(key, entry, o.opts.CreditsTTL) {
		log.Warnf("%s Could not cache %s, continuing without", logcolors.LogCacheCredits, key)
	}
	return entry, nil
}
