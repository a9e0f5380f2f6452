package models

import (
	"testing"
	"time"
)

func TestPersistedTrack(t *testing.T) {
	dto := Track{ID: "ignored", Title: "Teen Spirit", Artist: "Nirvana", Album: "Nevermind", Duration: 301, ISRC: "USGF19942501"}

	t.Run("NewPersistedTrack", func(t *testing.T) {
		track := NewPersistedTrack(3, ServiceAppleMusic, "1440783617", dto)

		if track.ID() != "" {
			t.Error("expected ID to be assigned by the repository")
		}
		if track.Sequence() != 3 || track.Service() != ServiceAppleMusic || track.ServiceID() != "1440783617" {
			t.Errorf("unexpected identity fields: %d %s %s", track.Sequence(), track.Service(), track.ServiceID())
		}
		if track.CreatedAt().IsZero() || !track.CreatedAt().Equal(track.UpdatedAt()) {
			t.Error("expected matching creation and update timestamps")
		}
		if got := track.Track(); got.ID != "1440783617" || got.Title != dto.Title {
			t.Errorf("expected DTO keyed by service id, got %+v", got)
		}
	})

	t.Run("soft delete", func(t *testing.T) {
		track := NewPersistedTrack(1, ServiceAppleMusic, "1", dto)
		if track.IsDeleted() {
			t.Fatal("new track should not be deleted")
		}
		now := time.Now()
		track.SetDeletedAt(&now)
		if !track.IsDeleted() {
			t.Error("expected track to be deleted")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name    string
			mutate  func(*PersistedTrack)
			wantErr bool
		}{
			{"valid", func(*PersistedTrack) {}, false},
			{"missing id", func(p *PersistedTrack) { p.SetID("") }, true},
			{"missing title", func(p *PersistedTrack) { p.SetTitle(" ") }, true},
			{"missing artist", func(p *PersistedTrack) { p.track.Artist = "" }, true},
			{"missing service id", func(p *PersistedTrack) { p.serviceID = "" }, true},
			{"negative duration", func(p *PersistedTrack) { p.track.Duration = -1 }, true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				track := NewPersistedTrack(1, ServiceAppleMusic, "1", dto)
				track.SetID("abc")
				tt.mutate(track)

				err := track.Validate()
				if (err != nil) != tt.wantErr {
					t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			})
		}
	})
}
