package progress

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/formcoach/internal/telemetry/tracing"
	"github.com/2beens/formcoach/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=progress_test

type progressService interface {
	RecordSession(ctx context.Context, summary Summary) (_ int, err error)
	ListSummaries(ctx context.Context, userID string, limit int) (_ []Summary, err error)
	GetGoals(ctx context.Context, userID string) (_ *Goals, err error)
	SetGoals(ctx context.Context, goals Goals) (_ *Goals, err error)
	GetTotals(ctx context.Context, userID string) (_ *Totals, err error)
}

type liveBoard interface {
	Update(ctx context.Context, c LiveCounters) (err error)
	Get(ctx context.Context, userID string) (_ *LiveCounters, err error)
	Clear(ctx context.Context, userID string) (err error)
}

type Handler struct {
	service progressService
	live    liveBoard
}

func NewHandler(service progressService, live liveBoard) *Handler {
	return &Handler{
		service: service,
		live:    live,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/progress/{user}/sessions", h.HandleRecordSession).Methods("POST", "OPTIONS").Name("record-session")
	r.HandleFunc("/progress/{user}/sessions", h.HandleListSessions).Methods("GET", "OPTIONS").Name("list-sessions")
	r.HandleFunc("/progress/{user}/goals", h.HandleGetGoals).Methods("GET", "OPTIONS").Name("get-goals")
	r.HandleFunc("/progress/{user}/goals", h.HandleSetGoals).Methods("PUT", "OPTIONS").Name("set-goals")
	r.HandleFunc("/progress/{user}/totals", h.HandleGetTotals).Methods("GET", "OPTIONS").Name("get-totals")
	r.HandleFunc("/progress/{user}/live", h.HandleGetLive).Methods("GET", "OPTIONS").Name("get-live")
	r.HandleFunc("/progress/{user}/live", h.HandleUpdateLive).Methods("PUT", "OPTIONS").Name("update-live")
	r.HandleFunc("/progress/{user}/live", h.HandleClearLive).Methods("DELETE", "OPTIONS").Name("clear-live")
}

type recordSessionResponse struct {
	ID int `json:"id"`
}

func (h *Handler) HandleRecordSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.recordsession")
	defer span.End()

	userID := mux.Vars(r)["user"]
	if r.Header.Get("Content-Type") != pkg.ContentType.JSON {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var summary Summary
	if err := json.NewDecoder(r.Body).Decode(&summary); err != nil {
		log.Errorf("record session, unmarshal json: %s", err)
		http.Error(w, "invalid session summary", http.StatusBadRequest)
		return
	}
	summary.UserID = userID

	if err := summary.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.service.RecordSession(ctx, summary)
	if err != nil {
		log.Errorf("record session: %s", err)
		http.Error(w, "record session failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, recordSessionResponse{ID: id}, http.StatusCreated)
}

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.listsessions")
	defer span.End()

	userID := mux.Vars(r)["user"]
	limit := DefaultListLimit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = pkg.ClampInt(parsed, 1, MaxListLimit)
	}

	summaries, err := h.service.ListSummaries(ctx, userID, limit)
	if err != nil {
		if errors.Is(err, ErrInvalidUserID) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("list sessions: %s", err)
		http.Error(w, "list sessions failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, summaries)
}

func (h *Handler) HandleGetGoals(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.getgoals")
	defer span.End()

	goals, err := h.service.GetGoals(ctx, mux.Vars(r)["user"])
	if err != nil {
		h.writeLookupError(w, "get goals", err)
		return
	}

	pkg.WriteJSONResponseOK(w, goals)
}

func (h *Handler) HandleSetGoals(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.setgoals")
	defer span.End()

	if r.Header.Get("Content-Type") != pkg.ContentType.JSON {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var goals Goals
	if err := json.NewDecoder(r.Body).Decode(&goals); err != nil {
		log.Errorf("set goals, unmarshal json: %s", err)
		http.Error(w, "invalid goals", http.StatusBadRequest)
		return
	}
	goals.UserID = mux.Vars(r)["user"]

	if err := goals.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	saved, err := h.service.SetGoals(ctx, goals)
	if err != nil {
		log.Errorf("set goals: %s", err)
		http.Error(w, "set goals failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, saved)
}

func (h *Handler) HandleGetTotals(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.gettotals")
	defer span.End()

	totals, err := h.service.GetTotals(ctx, mux.Vars(r)["user"])
	if err != nil {
		h.writeLookupError(w, "get totals", err)
		return
	}

	pkg.WriteJSONResponseOK(w, totals)
}

func (h *Handler) HandleGetLive(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.getlive")
	defer span.End()

	counters, err := h.live.Get(ctx, mux.Vars(r)["user"])
	if err != nil {
		h.writeLookupError(w, "get live counters", err)
		return
	}

	pkg.WriteJSONResponseOK(w, counters)
}

func (h *Handler) HandleUpdateLive(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.updatelive")
	defer span.End()

	var counters LiveCounters
	if err := json.NewDecoder(r.Body).Decode(&counters); err != nil {
		http.Error(w, "invalid live counters", http.StatusBadRequest)
		return
	}
	counters.UserID = mux.Vars(r)["user"]
	if counters.UpdatedAt.IsZero() {
		counters.UpdatedAt = time.Now().UTC()
	}

	if err := h.live.Update(ctx, counters); err != nil {
		if errors.Is(err, ErrInvalidUserID) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("update live counters: %s", err)
		http.Error(w, "update live counters failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleClearLive(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.progress.clearlive")
	defer span.End()

	if err := h.live.Clear(ctx, mux.Vars(r)["user"]); err != nil {
		log.Errorf("clear live counters: %s", err)
		http.Error(w, "clear live counters failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeLookupError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidUserID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Errorf("%s: %s", op, err)
		http.Error(w, op+" failed", http.StatusInternalServerError)
	}
}
