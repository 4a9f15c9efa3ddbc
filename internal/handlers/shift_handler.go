package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/diegoclair/shift-notify-bot/internal/domain"
	"github.com/diegoclair/shift-notify-bot/internal/domain/contract"
	"github.com/diegoclair/shift-notify-bot/internal/domain/entity"
	"github.com/rs/zerolog"
)

type ShiftHandler struct {
	shiftService contract.ShiftService
	log          zerolog.Logger
}

func NewShiftHandler(shiftService contract.ShiftService, log zerolog.Logger) *ShiftHandler {
	return &ShiftHandler{
		shiftService: shiftService,
		log:          log.With().Str("comp", "http").Logger(),
	}
}

// HandleSubmit schedules one shift declaration.
func (h *ShiftHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var shift entity.Shift
	if err := json.NewDecoder(r.Body).Decode(&shift); err != nil {
		writeError(w, domain.NewValidationError(domain.ErrCodeValidationInvalidValue, "body", "must be a JSON shift declaration"))
		return
	}

	result, err := h.shiftService.Submit(r.Context(), &shift)
	if err != nil {
		if !domain.IsValidation(err) {
			h.log.Error().Err(err).Msg("failed to submit shift")
		}
		writeError(w, err)
		return
	}

	message := "Shift scheduled"
	if !result.SlotScheduled && result.SkippedReason != "" {
		message = "Shift scheduled without pre-shift slot: " + result.SkippedReason
	}
	writeSuccess(w, message, result)
}

// HandleClear cancels every scheduled alarm.
func (h *ShiftHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	cancelled, err := h.shiftService.ClearAll(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to clear schedules")
		writeError(w, err)
		return
	}

	writeSuccess(w, "All schedules cleared", map[string]int{"cancelled": cancelled})
}

func (h *ShiftHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.shiftService.Status(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load status")
		writeError(w, err)
		return
	}

	writeSuccess(w, "", status)
}

func (h *ShiftHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
