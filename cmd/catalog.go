package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/spotify2apple/internal/applemusic"
	"github.com/desertthunder/spotify2apple/internal/formatter"
	"github.com/desertthunder/spotify2apple/internal/models"
	"github.com/desertthunder/spotify2apple/internal/repositories"
	"github.com/desertthunder/spotify2apple/internal/shared"
	"github.com/urfave/cli/v3"
)

// requireArgs returns ErrMissingArgument naming the first empty positional argument.
func requireArgs(cmd *cli.Command, names ...string) error {
	for _, name := range names {
		if strings.TrimSpace(cmd.StringArg(name)) == "" {
			return fmt.Errorf("%w: <%s>", shared.ErrMissingArgument, name)
		}
	}
	return nil
}

// writeResource prints a raw catalog document and optionally saves it as name.json.
func (r *Runner) writeResource(cmd *cli.Command, name string, body map[string]any) error {
	if cmd.Bool("save") {
		saveFile := name + ".json"
		data, err := shared.MarshalJSON(body, true)
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		if err := os.WriteFile(saveFile, data, 0644); err != nil {
			r.logger.Warn("failed to save response", "error", err)
		} else {
			r.logger.Info("response saved", "file", saveFile)
		}
	}
	return r.writeJSON(body, cmd.Bool("pretty"))
}

// CatalogGet fetches one resource.
func (r *Runner) CatalogGet(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "type", "id"); err != nil {
		return err
	}
	typ, id := cmd.StringArg("type"), cmd.StringArg("id")
	sf := r.storefront(cmd.String("storefront"))

	r.logger.Debugf("fetching %s %s from storefront %s", typ, id, sf)

	return r.withCatalog(func(c *applemusic.Client) error {
		body, err := c.GetResource(ctx, id, typ, applemusic.WithStorefront(sf))
		if err != nil {
			return err
		}
		return r.writeResource(cmd, fmt.Sprintf("%s_%s", typ, id), body)
	})
}

// CatalogRelated fetches a relationship of one resource, e.g. an artist's albums.
func (r *Runner) CatalogRelated(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "type", "id", "relationship"); err != nil {
		return err
	}
	typ, id, rel := cmd.StringArg("type"), cmd.StringArg("id"), cmd.StringArg("relationship")
	sf := r.storefront(cmd.String("storefront"))

	return r.withCatalog(func(c *applemusic.Client) error {
		body, err := c.GetResourceRelationship(ctx, id, typ, rel, applemusic.WithStorefront(sf))
		if err != nil {
			return err
		}
		return r.writeResource(cmd, fmt.Sprintf("%s_%s_%s", typ, id, rel), body)
	})
}

// CatalogList fetches several resources of one type in a single request.
func (r *Runner) CatalogList(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "type"); err != nil {
		return err
	}
	typ := cmd.StringArg("type")
	ids := cmd.StringSlice("ids")
	sf := r.storefront(cmd.String("storefront"))

	return r.withCatalog(func(c *applemusic.Client) error {
		body, err := c.GetMultipleResources(ctx, ids, typ, applemusic.WithStorefront(sf))
		if err != nil {
			return err
		}
		return r.writeResource(cmd, typ, body)
	})
}

// CatalogFilter fetches resources by filter, most commonly songs by ISRC.
func (r *Runner) CatalogFilter(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "type"); err != nil {
		return err
	}
	typ := cmd.StringArg("type")
	filter := cmd.String("filter")
	values := cmd.StringSlice("value")
	opts := []applemusic.RequestOption{applemusic.WithStorefront(r.storefront(cmd.String("storefront")))}
	if ids := cmd.StringSlice("ids"); len(ids) > 0 {
		opts = append(opts, applemusic.WithIDs(ids...))
	}

	return r.withCatalog(func(c *applemusic.Client) error {
		body, err := c.GetResourceByFilter(ctx, filter, values, typ, opts...)
		if err != nil {
			return err
		}
		return r.writeResource(cmd, fmt.Sprintf("%s_%s", typ, filter), body)
	})
}

// CatalogSearch searches the catalog and renders song results.
//
// With --save, song results are written through to the local track cache.
func (r *Runner) CatalogSearch(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "term"); err != nil {
		return err
	}
	term := cmd.StringArg("term")
	format := cmd.String("format")
	sf := r.storefront(cmd.String("storefront"))

	if _, err := formatter.Render(&formatter.SearchExport{}, format); err != nil {
		return err
	}

	var export *formatter.SearchExport
	err := r.withCatalog(func(c *applemusic.Client) error {
		res, err := c.Search(ctx, term,
			applemusic.WithStorefront(sf),
			applemusic.WithTypes(cmd.StringSlice("types")...),
			applemusic.WithLimit(cmd.Int("limit")),
			applemusic.WithOffset(cmd.Int("offset")),
		)
		if err != nil {
			return err
		}
		export, err = formatter.NewSearchExport(term, sf, res)
		return err
	})
	if err != nil {
		return err
	}

	r.logger.Debugf("search %q returned %d songs", term, len(export.Tracks))

	if cmd.Bool("save") {
		added, err := r.cacheTracks(export.Tracks)
		if err != nil {
			return err
		}
		r.logger.Info("cached search results", "new", added, "total", len(export.Tracks))
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(export, format, path); err != nil {
			return err
		}
		r.writePlain("✓ %d tracks written to %s\n", len(export.Tracks), path)
		return nil
	}

	data, err := formatter.Render(export, format)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// cacheTracks stores tracks in the local database and returns how many were new.
func (r *Runner) cacheTracks(tracks []models.Track) (int, error) {
	repo, closeDB, err := r.trackRepository()
	if err != nil {
		return 0, err
	}
	defer closeDB()

	return repositories.NewTrackCacheAdapter(repo).CacheTracks(models.ServiceAppleMusic, tracks)
}
