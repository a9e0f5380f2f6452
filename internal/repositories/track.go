package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotify2apple/internal/models"
	"github.com/desertthunder/spotify2apple/internal/shared"
)

const trackColumns = `id, sequence, service, service_id, title, artist, album, duration, isrc, url, created_at, updated_at, deleted_at`

// TrackRepository implements models.Repository[*models.PersistedTrack] for track caching.
//
// Handles track caching with soft delete support and service-specific lookups.
// Catalog tracks are cached when search results are saved from the CLI and can be looked up by ISRC.
type TrackRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.PersistedTrack] = (*TrackRepository)(nil)

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new [models.PersistedTrack] into the database with generated ID and sequence
func (r *TrackRepository) Create(track *models.PersistedTrack) error {
	track.SetID(shared.GenerateID())
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := NextSequenceTx(tx, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	track.SetSequence(sequence)

	query := `
		INSERT INTO tracks (id, sequence, service, service_id, title, artist, album, duration, isrc, url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		track.ID(),
		sequence,
		track.Service(),
		track.ServiceID(),
		track.Title(),
		track.Artist(),
		track.Album(),
		track.Duration(),
		track.ISRC(),
		track.URL(),
		track.CreatedAt(),
		track.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit track: %w", err)
	}

	return nil
}

// Get retrieves a track by ID, excluding soft-deleted tracks
func (r *TrackRepository) Get(id string) (*models.PersistedTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetByServiceID retrieves a track by service and service_id
func (r *TrackRepository) GetByServiceID(service, serviceID string) (*models.PersistedTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE service = ? AND service_id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, service, serviceID))
}

// GetByISRC retrieves the earliest cached track with the ISRC code across any service
func (r *TrackRepository) GetByISRC(isrc string) (*models.PersistedTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE isrc = ? AND deleted_at IS NULL ORDER BY sequence ASC LIMIT 1`
	return r.scan(r.db.QueryRow(query, isrc))
}

// Update modifies an existing track in the database
func (r *TrackRepository) Update(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	track.SetUpdatedAt(now)

	query := `
		UPDATE tracks
		SET title = ?, artist = ?, album = ?, duration = ?, isrc = ?, url = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		track.Title(),
		track.Artist(),
		track.Album(),
		track.Duration(),
		track.ISRC(),
		track.URL(),
		now,
		track.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	return requireAffected(result, track.ID())
}

// Delete soft-deletes a track by ID
func (r *TrackRepository) Delete(id string) error {
	query := `
		UPDATE tracks
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	return requireAffected(result, id)
}

// List retrieves all tracks matching the given criteria, excluding soft-deleted tracks.
//
// Supported criteria keys are "service" and "isrc".
func (r *TrackRepository) List(criteria map[string]any) ([]*models.PersistedTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE deleted_at IS NULL`
	args := []any{}

	if service, ok := criteria["service"].(string); ok && service != "" {
		query += " AND service = ?"
		args = append(args, service)
	}

	if isrc, ok := criteria["isrc"].(string); ok && isrc != "" {
		query += " AND isrc = ?"
		args = append(args, isrc)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.PersistedTrack
	for rows.Next() {
		track, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// scan reads one row into a [models.PersistedTrack]
func (r *TrackRepository) scan(row scanner) (*models.PersistedTrack, error) {
	var (
		id        string
		sequence  int
		dto       models.Track
		service   string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &service, &dto.ID, &dto.Title, &dto.Artist, &dto.Album, &dto.Duration, &dto.ISRC, &dto.URL, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	track := models.NewPersistedTrack(sequence, service, dto.ID, dto)
	track.SetID(id)
	track.SetCreatedAt(createdAt)
	track.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		track.SetDeletedAt(&deletedAt.Time)
	}

	return track, nil
}

func requireAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s not found or already deleted", shared.ErrTrackNotFound, id)
	}
	return nil
}
