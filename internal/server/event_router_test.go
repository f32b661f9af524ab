package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhirschtritt/account-ledger/internal/domain"
	"github.com/zhirschtritt/account-ledger/internal/events"
	"github.com/zhirschtritt/account-ledger/internal/ingest"
	"github.com/zhirschtritt/account-ledger/internal/repository"
)

type stubIngestor struct {
	ingested []events.Event
	err      error
}

func (s *stubIngestor) Ingest(ctx context.Context, event events.Event) error {
	if s.err != nil {
		return s.err
	}
	s.ingested = append(s.ingested, event)
	return nil
}

func (s *stubIngestor) Start(ctx context.Context) {}
func (s *stubIngestor) Stop()                     {}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestIngestEventSuccess(t *testing.T) {
	ingestor := &stubIngestor{}
	router := NewEventRouter(ingestor, repository.NewMemoryEventLog(), testLogger()).Routes()

	body := `{
		"eventId": "evt-1",
		"eventType": "AccountCreated",
		"payload": {"accountId": "123", "email": "olu@example.com"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Len(t, ingestor.ingested, 1)
	require.Equal(t, "evt-1", ingestor.ingested[0].ID)

	var response IngestEventResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	require.Equal(t, "evt-1", response.EventID)
}

func TestIngestEventUnknownTypeAccepted(t *testing.T) {
	ingestor := &stubIngestor{}
	router := NewEventRouter(ingestor, repository.NewMemoryEventLog(), testLogger()).Routes()

	body := `{
		"eventId": "evt-2",
		"eventType": "WithdrawalConfirmed",
		"payload": {"accountId": "123", "amount": 25}
	}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Len(t, ingestor.ingested, 1)
	require.IsType(t, events.Unrecognized{}, ingestor.ingested[0].Payload)
}

func TestIngestEventMissingEventID(t *testing.T) {
	router := NewEventRouter(&stubIngestor{}, repository.NewMemoryEventLog(), testLogger()).Routes()

	body := `{
		"eventType": "AccountCreated",
		"payload": {"accountId": "123", "email": "olu@example.com"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestIngestEventInvalidBody(t *testing.T) {
	router := NewEventRouter(&stubIngestor{}, repository.NewMemoryEventLog(), testLogger()).Routes()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not json"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestIngestEventIngestorFull(t *testing.T) {
	router := NewEventRouter(&stubIngestor{err: ingest.ErrIngestorFull}, repository.NewMemoryEventLog(), testLogger()).Routes()

	body := `{
		"eventId": "evt-3",
		"eventType": "DepositConfirmed",
		"payload": {"accountId": "1234", "email": "olu@example.com", "amount": 100}
	}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestGetEventSuccess(t *testing.T) {
	log := repository.NewMemoryEventLog()
	event := events.Event{
		ID:      "evt-4",
		Type:    events.TypeAccountCreated,
		Payload: events.AccountCreated{Account: "123", Email: "olu@example.com"},
	}
	require.NoError(t, log.Append(context.Background(), event))

	router := NewEventRouter(&stubIngestor{}, log, testLogger()).Routes()

	req := httptest.NewRequest(http.MethodGet, "/evt-4", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)

	var decoded events.Event
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.Equal(t, event, decoded)
}

func TestGetEventNotFound(t *testing.T) {
	router := NewEventRouter(&stubIngestor{}, repository.NewMemoryEventLog(), testLogger()).Routes()

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

// keep the stub honest
var _ domain.EventLog = (*repository.MemoryEventLog)(nil)
var _ ingest.Ingestor = (*stubIngestor)(nil)
