package catalog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"cinebook/internal/logger"
	"cinebook/internal/models"

	"github.com/google/uuid"
)

// MovieStore caches TMDB movies locally; ShowStore persists screenings.
type MovieStore interface {
	GetMovieByID(ctx context.Context, movieID string) (*models.Movie, error)
	CreateMovie(ctx context.Context, movie *models.Movie) error
}

type ShowStore interface {
	CreateShows(ctx context.Context, shows []models.Show) error
	ListUpcomingShows(ctx context.Context) ([]models.Show, error)
	ListShowsByMovie(ctx context.Context, movieID string) ([]models.Show, error)
}

// MovieAPI is the external movie database (TMDB in production, a stub in
// tests).
type MovieAPI interface {
	NowPlaying(ctx context.Context) ([]TMDBMovie, error)
	MovieDetails(ctx context.Context, movieID string) (*TMDBMovie, error)
	MovieCredits(ctx context.Context, movieID string) ([]models.CastMember, error)
}

type CatalogService struct {
	Movies MovieStore
	Shows  ShowStore
	TMDB   MovieAPI
	logger *logger.Logger
}

func NewCatalogService(movies MovieStore, shows ShowStore, tmdb MovieAPI, log *logger.Logger) *CatalogService {
	return &CatalogService{Movies: movies, Shows: shows, TMDB: tmdb, logger: log}
}

// NowPlaying proxies the external now-playing listing.
func (s *CatalogService) NowPlaying(ctx context.Context) ([]TMDBMovie, error) {
	return s.TMDB.NowPlaying(ctx)
}

// AddShows ingests screenings for a movie. The movie is fetched from TMDB
// and cached locally the first time it is referenced.
func (s *CatalogService) AddShows(ctx context.Context, req models.AddShowsRequest) (int, error) {
	movie, err := s.Movies.GetMovieByID(ctx, req.MovieID)
	if err != nil {
		details, derr := s.TMDB.MovieDetails(ctx, req.MovieID)
		if derr != nil {
			return 0, fmt.Errorf("fetch movie %s from tmdb: %w", req.MovieID, derr)
		}
		casts, cerr := s.TMDB.MovieCredits(ctx, req.MovieID)
		if cerr != nil {
			return 0, fmt.Errorf("fetch credits for %s from tmdb: %w", req.MovieID, cerr)
		}

		movie = &models.Movie{
			MovieID:          strconv.Itoa(details.ID),
			Title:            details.Title,
			Overview:         details.Overview,
			PosterPath:       details.PosterPath,
			BackdropPath:     details.BackdropPath,
			Genres:           details.Genres,
			Casts:            casts,
			ReleaseDate:      details.ReleaseDate,
			OriginalLanguage: details.OriginalLanguage,
			Tagline:          details.Tagline,
			VoteAverage:      details.VoteAverage,
			Runtime:          details.Runtime,
		}
		if err := s.Movies.CreateMovie(ctx, movie); err != nil {
			return 0, fmt.Errorf("cache movie %s: %w", req.MovieID, err)
		}
		s.logger.Info("CATALOG", fmt.Sprintf("Cached movie %s (%s)", movie.MovieID, movie.Title))
	}

	var shows []models.Show
	for _, input := range req.ShowInput {
		for _, startTime := range input.Times {
			dateTime, err := time.Parse("2006-01-02T15:04", input.Date+"T"+startTime)
			if err != nil {
				s.logger.Warn("CATALOG", fmt.Sprintf("Skipping invalid show time %s %s: %v", input.Date, startTime, err))
				continue
			}
			shows = append(shows, models.Show{
				ShowID:        uuid.NewString(),
				MovieID:       movie.MovieID,
				ShowDateTime:  dateTime,
				ShowPrice:     req.ShowPrice,
				OccupiedSeats: map[string]string{},
			})
		}
	}

	if len(shows) == 0 {
		return 0, fmt.Errorf("no valid show entries in request")
	}

	if err := s.Shows.CreateShows(ctx, shows); err != nil {
		return 0, fmt.Errorf("insert shows: %w", err)
	}

	s.logger.Info("CATALOG", fmt.Sprintf("Added %d show(s) for movie %s", len(shows), movie.MovieID))
	return len(shows), nil
}

// ListMovies returns the unique movies that have upcoming shows.
func (s *CatalogService) ListMovies(ctx context.Context) ([]models.Movie, error) {
	shows, err := s.Shows.ListUpcomingShows(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var movies []models.Movie
	for _, show := range shows {
		if show.Movie == nil || seen[show.Movie.MovieID] {
			continue
		}
		seen[show.Movie.MovieID] = true
		movies = append(movies, *show.Movie)
	}
	return movies, nil
}

// ShowTime is one bookable screening slot for a movie.
type ShowTime struct {
	ShowID string    `json:"show_id"`
	Time   time.Time `json:"time"`
}

// ShowTimes groups a movie's upcoming shows by date (YYYY-MM-DD).
func (s *CatalogService) ShowTimes(ctx context.Context, movieID string) (map[string][]ShowTime, error) {
	shows, err := s.Shows.ListShowsByMovie(ctx, movieID)
	if err != nil {
		return nil, err
	}

	dateTime := make(map[string][]ShowTime)
	for _, show := range shows {
		date := show.ShowDateTime.Format("2006-01-02")
		dateTime[date] = append(dateTime[date], ShowTime{
			ShowID: show.ShowID,
			Time:   show.ShowDateTime,
		})
	}
	return dateTime, nil
}

// Movie returns one cached movie.
func (s *CatalogService) Movie(ctx context.Context, movieID string) (*models.Movie, error) {
	return s.Movies.GetMovieByID(ctx, movieID)
}
