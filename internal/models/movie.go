package models

import (
	"github.com/uptrace/bun"
)

// Movie is cached locally the first time a show is created for it. The
// record mirrors what the TMDB API returns for a movie id.
type Movie struct {
	bun.BaseModel `bun:"table:movies"`

	MovieID          string       `bun:"movie_id,pk" json:"movie_id"`
	Title            string       `bun:"title,notnull" json:"title"`
	Overview         string       `bun:"overview" json:"overview"`
	PosterPath       string       `bun:"poster_path" json:"poster_path"`
	BackdropPath     string       `bun:"backdrop_path" json:"backdrop_path"`
	Genres           []Genre      `bun:"genres" json:"genres"`
	Casts            []CastMember `bun:"casts" json:"casts"`
	ReleaseDate      string       `bun:"release_date" json:"release_date"`
	OriginalLanguage string       `bun:"original_language" json:"original_language"`
	Tagline          string       `bun:"tagline" json:"tagline"`
	VoteAverage      float64      `bun:"vote_average" json:"vote_average"`
	Runtime          int          `bun:"runtime" json:"runtime"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type CastMember struct {
	Name        string `json:"name"`
	ProfilePath string `json:"profile_path"`
}
