package models

import (
	"fmt"
	"strings"
	"time"
)

// ServiceAppleMusic is the service name recorded for tracks fetched from the Apple Music catalog.
const ServiceAppleMusic = "apple_music"

// Track is song metadata as returned by a music service.
//
// Duration is in whole seconds.
type Track struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Duration int    `json:"duration,omitempty"`
	ISRC     string `json:"isrc,omitempty"`
	URL      string `json:"url,omitempty"`
}

// PersistedTrack is a cached [Track] keyed by service and service id.
type PersistedTrack struct {
	id        string
	sequence  int
	service   string
	serviceID string
	track     Track
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

var _ SoftDeleter = (*PersistedTrack)(nil)

// NewPersistedTrack wraps a [Track] for storage. The ID is assigned by the repository on create.
func NewPersistedTrack(sequence int, service, serviceID string, track Track) *PersistedTrack {
	now := time.Now()
	return &PersistedTrack{
		sequence:  sequence,
		service:   service,
		serviceID: serviceID,
		track:     track,
		createdAt: now,
		updatedAt: now,
	}
}

func (t *PersistedTrack) ID() string { return t.id }
func (t *PersistedTrack) Sequence() int { return t.sequence }
func (t *PersistedTrack) Service() string { return t.service }
func (t *PersistedTrack) ServiceID() string { return t.serviceID }
func (t *PersistedTrack) Title() string { return t.track.Title }
func (t *PersistedTrack) Artist() string { return t.track.Artist }
func (t *PersistedTrack) Album() string { return t.track.Album }
func (t *PersistedTrack) Duration() int { return t.track.Duration }
func (t *PersistedTrack) ISRC() string { return t.track.ISRC }
func (t *PersistedTrack) URL() string { return t.track.URL }
func (t *PersistedTrack) CreatedAt() time.Time { return t.createdAt }
func (t *PersistedTrack) UpdatedAt() time.Time { return t.updatedAt }
func (t *PersistedTrack) DeletedAt() *time.Time { return t.deletedAt }
func (t *PersistedTrack) IsDeleted() bool { return t.deletedAt != nil }
func (t *PersistedTrack) SetID(id string) { t.id = id }
func (t *PersistedTrack) SetSequence(seq int) { t.sequence = seq }
func (t *PersistedTrack) SetTitle(title string) { t.track.Title = title }
func (t *PersistedTrack) SetISRC(isrc string) { t.track.ISRC = isrc }
func (t *PersistedTrack) SetCreatedAt(ts time.Time) { t.createdAt = ts }
func (t *PersistedTrack) SetUpdatedAt(ts time.Time) { t.updatedAt = ts }
func (t *PersistedTrack) SetDeletedAt(ts *time.Time) { t.deletedAt = ts }

// Track returns the DTO with its ID set to the service id.
func (t *PersistedTrack) Track() Track {
	dto := t.track
	dto.ID = t.serviceID
	return dto
}

// Validate checks required fields.
func (t *PersistedTrack) Validate() error {
	switch {
	case t.id == "":
		return fmt.Errorf("track id is required")
	case strings.TrimSpace(t.service) == "":
		return fmt.Errorf("track service is required")
	case strings.TrimSpace(t.serviceID) == "":
		return fmt.Errorf("track service id is required")
	case strings.TrimSpace(t.track.Title) == "":
		return fmt.Errorf("track title is required")
	case strings.TrimSpace(t.track.Artist) == "":
		return fmt.Errorf("track artist is required")
	case t.track.Duration < 0:
		return fmt.Errorf("track duration must not be negative")
	}
	return nil
}
