package ingest

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/destel/rill"

	"github.com/zhirschtritt/account-ledger/internal/events"
)

type ChannelIngestorOptions struct {
	BufferSize   int
	BatchSize    int
	BatchTimeout time.Duration
	WorkerCount  int
}

func (o *ChannelIngestorOptions) defaults() {
	if o.BufferSize == 0 {
		o.BufferSize = 1000
	}
	if o.BatchSize == 0 {
		o.BatchSize = 100
	}
	if o.BatchTimeout == 0 {
		o.BatchTimeout = 100 * time.Millisecond
	}
	if o.WorkerCount == 0 {
		o.WorkerCount = 4
	}
}

// typecheck
var _ Ingestor = new(ChannelIngestor)

// ChannelIngestor buffers events in per-worker channels. Events are sharded
// by account id, so one worker owns all events of an account and the
// projection fold stays deterministic under concurrent producers.
type ChannelIngestor struct {
	sender   Sender
	shards   []chan events.Event
	opts     ChannelIngestorOptions
	workerWg sync.WaitGroup
}

func NewChannelIngestor(sender Sender, opts ChannelIngestorOptions) *ChannelIngestor {
	opts.defaults()

	shards := make([]chan events.Event, opts.WorkerCount)
	for i := range shards {
		shards[i] = make(chan events.Event, opts.BufferSize)
	}

	return &ChannelIngestor{
		sender: sender,
		shards: shards,
		opts:   opts,
	}
}

func (c *ChannelIngestor) Start(ctx context.Context) {
	// One worker per shard
	for _, shard := range c.shards {
		c.workerWg.Add(1)
		go c.worker(ctx, shard)
	}
}

func (c *ChannelIngestor) Stop() {
	for _, shard := range c.shards {
		close(shard)
	}

	// Wait for all workers to finish
	c.workerWg.Wait()
}

func (c *ChannelIngestor) Ingest(ctx context.Context, event events.Event) error {
	shard := c.shards[shardFor(event.Payload.AccountID(), len(c.shards))]

	select {
	case shard <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrIngestorFull
	}
}

func (c *ChannelIngestor) worker(ctx context.Context, shard chan events.Event) {
	defer c.workerWg.Done()

	batches := rill.Batch(rill.FromChan(shard, nil), c.opts.BatchSize, c.opts.BatchTimeout)
	for batch := range batches {
		if len(batch.Value) > 0 {
			if err := c.sender.SendBatch(ctx, batch.Value); err != nil {
				// TODO: retry logic, dead-letter queue, etc.
				log.Printf("error ingesting event batch: %v", err)
			}
		}
	}
}
