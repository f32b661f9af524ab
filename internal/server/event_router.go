package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/zhirschtritt/account-ledger/internal/domain"
	"github.com/zhirschtritt/account-ledger/internal/events"
	"github.com/zhirschtritt/account-ledger/internal/ingest"
)

type EventRouter struct {
	ingestor ingest.Ingestor
	eventLog domain.EventLog
	logger   *slog.Logger
	validate *validator.Validate
}

func NewEventRouter(ingestor ingest.Ingestor, eventLog domain.EventLog, logger *slog.Logger) *EventRouter {
	return &EventRouter{
		ingestor: ingestor,
		eventLog: eventLog,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (er *EventRouter) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", er.ingestEvent)
	r.Get("/{eventID}", er.getEvent)
	return r
}

type IngestEventResponse struct {
	EventID string `json:"eventId"`
}

func (er *EventRouter) ingestEvent(w http.ResponseWriter, r *http.Request) {
	var envelope events.Envelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		er.logger.Error("failed to decode ingest request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Only the envelope shape is validated here. Payload fields are the
	// producer's responsibility and flow into the projection as-is.
	if err := er.validate.Struct(envelope); err != nil {
		er.logger.Error("incomplete event envelope", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	event, err := envelope.Event()
	if err != nil {
		er.logger.Error("failed to decode event payload", "error", err, "event_id", envelope.EventID)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := er.ingestor.Ingest(r.Context(), event); err != nil {
		if errors.Is(err, ingest.ErrIngestorFull) {
			er.logger.Error("ingestor is full", "error", err, "event_id", event.ID)
			http.Error(w, err.Error(), http.StatusTooManyRequests)
			return
		}

		er.logger.Error("failed to ingest event", "error", err, "event_id", event.ID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response := IngestEventResponse{
		EventID: event.ID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		er.logger.Error("failed to encode ingest response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (er *EventRouter) getEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	event, err := er.eventLog.FindByID(r.Context(), eventID)
	if err != nil {
		er.logger.Error("failed to get event", "error", err, "event_id", eventID)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if event == nil {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(event); err != nil {
		er.logger.Error("failed to encode event response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
