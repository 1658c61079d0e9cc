package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"cinebook/internal/auth"
	"cinebook/internal/booking"
	"cinebook/internal/logger"
	"cinebook/internal/models"
	"cinebook/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	BookingService *booking.BookingService
	Validator      *validator.Validate
	Logger         *logger.Logger
}

// CreateBooking handles POST /api/booking. A seat conflict is a normal
// rejected request (409), not a fault.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid booking request", err.Error()))
		return
	}

	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", "missing user identity"))
		return
	}

	resp, err := h.BookingService.CreateBooking(r.Context(), userID, auth.Email(r.Context()), req.ShowID, req.SelectedSeats)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrSeatsUnavailable):
			utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("Selected seats are not available", err.Error()))
		case errors.Is(err, booking.ErrShowNotFound):
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Show not found", err.Error()))
		default:
			h.Logger.Error("API", "Create booking failed: "+err.Error())
			utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not create booking", "internal error"))
		}
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Booking created", resp))
}

// OccupiedSeats handles GET /api/booking/seats/{showId}.
func (h *Handler) OccupiedSeats(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "showId")

	seats, err := h.BookingService.OccupiedSeats(r.Context(), showID)
	if err != nil {
		if errors.Is(err, booking.ErrShowNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Show not found", err.Error()))
			return
		}
		h.Logger.Error("API", "Fetch occupied seats failed: "+err.Error())
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not fetch seats", "internal error"))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Occupied seats", map[string]interface{}{
		"show_id":        showID,
		"occupied_seats": seats,
	}))
}

// MyBookings handles GET /api/booking/me.
func (h *Handler) MyBookings(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", "missing user identity"))
		return
	}

	bookings, err := h.BookingService.UserBookings(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", "Fetch user bookings failed: "+err.Error())
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not fetch bookings", "internal error"))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Bookings", bookings))
}
