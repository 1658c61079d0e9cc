package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Show is a single screening of a movie. OccupiedSeats maps a seat label
// (e.g. "A1") to the user ID holding it; a label absent from the map is a
// free seat. The map is only ever mutated through the store's guarded
// OccupySeats/ReleaseSeats operations — Version backs that guard.
type Show struct {
	bun.BaseModel `bun:"table:shows"`

	ShowID        string            `bun:"show_id,pk" json:"show_id"`
	MovieID       string            `bun:"movie_id,notnull" json:"movie_id"`
	ShowDateTime  time.Time         `bun:"show_date_time,notnull" json:"show_date_time"`
	ShowPrice     float64           `bun:"show_price,notnull" json:"show_price"`
	OccupiedSeats map[string]string `bun:"occupied_seats" json:"occupied_seats"`
	Version       int64             `bun:"version,notnull,default:0" json:"-"`

	Movie *Movie `bun:"rel:belongs-to,join:movie_id=movie_id" json:"movie,omitempty"`
}

// SeatsFree reports whether every requested label is absent from the
// occupied map.
func (s *Show) SeatsFree(seats []string) bool {
	for _, seat := range seats {
		if _, taken := s.OccupiedSeats[seat]; taken {
			return false
		}
	}
	return true
}

// ShowInput is one admin-supplied screening date with its start times.
type ShowInput struct {
	Date  string   `json:"date" validate:"required"`
	Times []string `json:"times" validate:"required,min=1"`
}

type AddShowsRequest struct {
	MovieID   string      `json:"movie_id" validate:"required"`
	ShowInput []ShowInput `json:"show_input" validate:"required,min=1,dive"`
	ShowPrice float64     `json:"show_price" validate:"required,gt=0"`
}
