package ingest

import (
	"context"
	"errors"
	"hash/fnv"

	"github.com/zhirschtritt/account-ledger/internal/events"
)

// Sender is the synchronous write entry point the ingestors drive,
// implemented by domain.Ledger.
type Sender interface {
	Send(ctx context.Context, event events.Event) error
	SendBatch(ctx context.Context, evs []events.Event) error
}

// Ingestor accepts producer events and gets them appended to the log and
// projected. Implementations must keep rebuilds for one account serialized.
type Ingestor interface {
	Ingest(ctx context.Context, event events.Event) error
	Start(ctx context.Context)
	Stop()
}

var ErrIngestorFull = errors.New("ingestor buffer is full")

// shardFor pins an account to a worker so its events are always folded by
// the same goroutine, in arrival order.
func shardFor(accountID string, shards int) int {
	h := fnv.New32a()
	h.Write([]byte(accountID))
	return int(h.Sum32() % uint32(shards))
}

// typecheck
var _ Ingestor = new(SyncIngestor)

// SyncIngestor is the reference ingestion path: append then rebuild inline,
// one event at a time, completed before Ingest returns.
type SyncIngestor struct {
	sender Sender
}

func NewSyncIngestor(sender Sender) *SyncIngestor {
	return &SyncIngestor{sender: sender}
}

func (i *SyncIngestor) Ingest(ctx context.Context, event events.Event) error {
	return i.sender.Send(ctx, event)
}

func (i *SyncIngestor) Start(ctx context.Context) {}

func (i *SyncIngestor) Stop() {}
