package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cinebook/internal/models"

	"github.com/uptrace/bun"
)

var ErrMovieNotFound = errors.New("movie not found")

type DB struct {
	Bun *bun.DB
}

// ---------------- MOVIES ----------------

func (d *DB) GetMovieByID(ctx context.Context, movieID string) (*models.Movie, error) {
	var movie models.Movie
	err := d.Bun.NewSelect().
		Model(&movie).
		Where("movie_id = ?", movieID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &movie, nil
}

func (d *DB) CreateMovie(ctx context.Context, movie *models.Movie) error {
	_, err := d.Bun.NewInsert().Model(movie).Exec(ctx)
	return err
}

// ---------------- SHOWS ----------------

// CreateShows bulk-inserts screenings, each starting with an empty seat map.
func (d *DB) CreateShows(ctx context.Context, shows []models.Show) error {
	if len(shows) == 0 {
		return nil
	}
	_, err := d.Bun.NewInsert().Model(&shows).Exec(ctx)
	return err
}

// ListUpcomingShows returns shows that have not started yet, soonest first.
func (d *DB) ListUpcomingShows(ctx context.Context) ([]models.Show, error) {
	var shows []models.Show
	err := d.Bun.NewSelect().
		Model(&shows).
		Relation("Movie").
		Where("show.show_date_time >= ?", time.Now()).
		Order("show.show_date_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return shows, nil
}

// ListShowsByMovie returns upcoming shows for one movie.
func (d *DB) ListShowsByMovie(ctx context.Context, movieID string) ([]models.Show, error) {
	var shows []models.Show
	err := d.Bun.NewSelect().
		Model(&shows).
		Where("movie_id = ? AND show_date_time >= ?", movieID, time.Now()).
		Order("show_date_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return shows, nil
}
