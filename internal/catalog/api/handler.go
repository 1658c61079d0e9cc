package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"cinebook/internal/catalog"
	"cinebook/internal/catalog/db"
	"cinebook/internal/logger"
	"cinebook/internal/models"
	"cinebook/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	CatalogService *catalog.CatalogService
	Validator      *validator.Validate
	Logger         *logger.Logger
}

// NowPlaying handles GET /api/show/now-playing (admin).
func (h *Handler) NowPlaying(w http.ResponseWriter, r *http.Request) {
	movies, err := h.CatalogService.NowPlaying(r.Context())
	if err != nil {
		h.Logger.Error("API", "TMDB now-playing failed: "+err.Error())
		utils.WriteJSON(w, http.StatusBadGateway, utils.ErrorResponse("Could not reach movie database", "upstream error"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Now playing", movies))
}

// AddShows handles POST /api/show (admin).
func (h *Handler) AddShows(w http.ResponseWriter, r *http.Request) {
	var req models.AddShowsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid show input", err.Error()))
		return
	}

	count, err := h.CatalogService.AddShows(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", "Add shows failed: "+err.Error())
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not add shows", "internal error"))
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Shows added", map[string]int{"created": count}))
}

// ListMovies handles GET /api/show.
func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.CatalogService.ListMovies(r.Context())
	if err != nil {
		h.Logger.Error("API", "List movies failed: "+err.Error())
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not list shows", "internal error"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Movies with upcoming shows", movies))
}

// MovieShowTimes handles GET /api/show/{movieId}.
func (h *Handler) MovieShowTimes(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieId")

	movie, err := h.CatalogService.Movie(r.Context(), movieID)
	if err != nil {
		if errors.Is(err, db.ErrMovieNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Movie not found", err.Error()))
			return
		}
		h.Logger.Error("API", "Fetch movie failed: "+err.Error())
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not fetch movie", "internal error"))
		return
	}

	times, err := h.CatalogService.ShowTimes(r.Context(), movieID)
	if err != nil {
		h.Logger.Error("API", "Fetch show times failed: "+err.Error())
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not fetch show times", "internal error"))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Show times", map[string]interface{}{
		"movie":     movie,
		"date_time": times,
	}))
}
