package repositories

import (
	"fmt"
	"strings"

	"github.com/desertthunder/spotify2apple/internal/models"
)

// TrackCacheAdapter writes fetched catalog tracks through to a [TrackRepository].
//
// Provides track caching with deduplication via service+service_id constraints.
// Duplicate tracks are silently ignored (UNIQUE constraint violations).
type TrackCacheAdapter struct {
	repo *TrackRepository
}

// NewTrackCacheAdapter creates a new TrackCacheAdapter with the given repository
func NewTrackCacheAdapter(repo *TrackRepository) *TrackCacheAdapter {
	return &TrackCacheAdapter{repo: repo}
}

// CacheTrack caches a track from a service and reports whether a new row was written.
// Returns false with a nil error if the track already exists.
func (a *TrackCacheAdapter) CacheTrack(service, serviceID string, track models.Track) (bool, error) {
	existing, err := a.repo.GetByServiceID(service, serviceID)
	if err == nil && existing != nil {
		return false, nil
	}

	persistedTrack := models.NewPersistedTrack(0, service, serviceID, track)

	err = a.repo.Create(persistedTrack)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return false, nil
		}
		return false, fmt.Errorf("failed to cache track: %w", err)
	}

	return true, nil
}

// CacheTracks caches each track under service and returns how many were new.
func (a *TrackCacheAdapter) CacheTracks(service string, tracks []models.Track) (int, error) {
	added := 0
	for _, t := range tracks {
		ok, err := a.CacheTrack(service, t.ID, t)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}
