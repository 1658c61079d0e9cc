package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cinebook/internal/models"
)

// TMDBClient talks to the external movie database API. Only the three
// endpoints the catalog needs are wrapped.
type TMDBClient struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func NewTMDBClient(apiKey, baseURL string) *TMDBClient {
	return &TMDBClient{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// TMDBMovie is the subset of the TMDB movie object the catalog stores.
type TMDBMovie struct {
	ID               int            `json:"id"`
	Title            string         `json:"title"`
	Overview         string         `json:"overview"`
	PosterPath       string         `json:"poster_path"`
	BackdropPath     string         `json:"backdrop_path"`
	Genres           []models.Genre `json:"genres"`
	ReleaseDate      string         `json:"release_date"`
	OriginalLanguage string         `json:"original_language"`
	Tagline          string         `json:"tagline"`
	VoteAverage      float64        `json:"vote_average"`
	Runtime          int            `json:"runtime"`
}

type tmdbCredits struct {
	Cast []models.CastMember `json:"cast"`
}

type tmdbNowPlaying struct {
	Results []TMDBMovie `json:"results"`
}

func (c *TMDBClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb request %s: status %d", path, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// NowPlaying returns the movies currently in theaters.
func (c *TMDBClient) NowPlaying(ctx context.Context) ([]TMDBMovie, error) {
	var payload tmdbNowPlaying
	if err := c.get(ctx, "/movie/now_playing", &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// MovieDetails fetches one movie by TMDB id.
func (c *TMDBClient) MovieDetails(ctx context.Context, movieID string) (*TMDBMovie, error) {
	var movie TMDBMovie
	if err := c.get(ctx, "/movie/"+movieID, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// MovieCredits fetches the cast list for one movie.
func (c *TMDBClient) MovieCredits(ctx context.Context, movieID string) ([]models.CastMember, error) {
	var credits tmdbCredits
	if err := c.get(ctx, "/movie/"+movieID+"/credits", &credits); err != nil {
		return nil, err
	}
	return credits.Cast, nil
}
