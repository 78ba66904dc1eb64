package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/carcall/signal-server-go/internal/errors"
	"github.com/carcall/signal-server-go/internal/model"
	"github.com/carcall/signal-server-go/internal/repository"
)

type CallsHandler struct {
	historyRepo repository.CallHistoryRepository
}

func NewCallsHandler(historyRepo repository.CallHistoryRepository) *CallsHandler {
	return &CallsHandler{historyRepo: historyRepo}
}

func (h *CallsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/history/{identity}", h.GetHistory)
	r.Post("/save", h.SaveCall)

	return r
}

// GET /v1/calls/history/{identity}
func (h *CallsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	if identity == "" {
		writeError(w, apperrors.MissingRequired("identity"))
		return
	}

	ctx := r.Context()
	pagination := ParsePagination(r)

	records, err := h.historyRepo.FindByIdentity(ctx, identity, pagination.Limit, pagination.Offset)
	if err != nil {
		log.Error().Err(err).Str("identity", identity).Msg("failed to load call history")
		writeError(w, apperrors.Database(err))
		return
	}

	total, err := h.historyRepo.CountByIdentity(ctx, identity)
	if err != nil {
		log.Error().Err(err).Str("identity", identity).Msg("failed to count call history")
		writeError(w, apperrors.Database(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"history": records,
		"total":   total,
		"limit":   pagination.Limit,
		"offset":  pagination.Offset,
	})
}

type saveCallRequest struct {
	CallerIdentity   string            `json:"callerIdentity"`
	ReceiverIdentity string            `json:"receiverIdentity"`
	MediaKind        model.MediaKind   `json:"mediaKind"`
	Outcome          model.CallOutcome `json:"outcome"`
	DurationSeconds  int               `json:"durationSeconds"`
}

// POST /v1/calls/save
//
// Client-reported record for calls the server never coordinated (e.g. a
// push-delivered call answered after the signaling attempt lapsed).
func (h *CallsHandler) SaveCall(w http.ResponseWriter, r *http.Request) {
	var req saveCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid JSON body"))
		return
	}

	if req.CallerIdentity == "" {
		writeError(w, apperrors.MissingRequired("callerIdentity"))
		return
	}
	if req.ReceiverIdentity == "" {
		writeError(w, apperrors.MissingRequired("receiverIdentity"))
		return
	}
	if !req.MediaKind.Valid() {
		req.MediaKind = model.MediaAudio
	}
	if !req.Outcome.Valid() {
		req.Outcome = model.OutcomeMissed
	}
	if req.DurationSeconds < 0 {
		writeError(w, apperrors.InvalidInput("durationSeconds", "must be non-negative"))
		return
	}

	record, err := h.historyRepo.Append(r.Context(), model.CreateCallRecordParams{
		CallerIdentity:   req.CallerIdentity,
		ReceiverIdentity: req.ReceiverIdentity,
		MediaKind:        req.MediaKind,
		Outcome:          req.Outcome,
		DurationSeconds:  req.DurationSeconds,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to save call record")
		writeError(w, apperrors.Database(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"call":    record,
	})
}
