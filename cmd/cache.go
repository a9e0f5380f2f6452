package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/spotify2apple/internal/models"
	"github.com/desertthunder/spotify2apple/internal/repositories"
	"github.com/desertthunder/spotify2apple/internal/shared"
	"github.com/urfave/cli/v3"
)

// trackRepository opens the configured database and returns a repository with its closer.
func (r *Runner) trackRepository() (*repositories.TrackRepository, func(), error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewTrackRepository(db), func() { db.Close() }, nil
}

// CacheList prints cached catalog tracks.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	repo, closeDB, err := r.trackRepository()
	if err != nil {
		return err
	}
	defer closeDB()

	criteria := map[string]any{"service": models.ServiceAppleMusic}
	if isrc := cmd.String("isrc"); isrc != "" {
		criteria["isrc"] = strings.ToUpper(isrc)
	}

	persisted, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		tracks := make([]models.Track, 0, len(persisted))
		for _, p := range persisted {
			tracks = append(tracks, p.Track())
		}
		return r.writeJSON(tracks, true)
	}

	r.writePlainHeader(fmt.Sprintf("Cached tracks (%d)", len(persisted)))
	for _, p := range persisted {
		r.writePlain("%d. %s - %s [%s]\n", p.Sequence(), p.Artist(), p.Title(), shared.FormatDuration(p.Duration()))
		r.writePlain("   ID: %s\n", p.ID())
		r.writePlain("   Catalog ID: %s\n", p.ServiceID())
		if p.ISRC() != "" {
			r.writePlain("   ISRC: %s\n", p.ISRC())
		}
	}

	return nil
}

// CacheClear soft-deletes one cached track.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "id"); err != nil {
		return err
	}
	id := cmd.StringArg("id")

	repo, closeDB, err := r.trackRepository()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := repo.Delete(id); err != nil {
		if errors.Is(err, shared.ErrTrackNotFound) {
			return fmt.Errorf("%w: %s", shared.ErrInvalidArgument, err)
		}
		return err
	}

	return r.writePlain("✓ Removed %s\n", id)
}
