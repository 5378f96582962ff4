package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "hotelbook/internal/app/outbox"
	"hotelbook/internal/app/uow"
)

type outboxState int

const (
	outboxNew outboxState = iota
	outboxClaimed
	outboxSent
	outboxFailed
)

type outboxEntry struct {
	record   appoutbox.EventRecord
	state    outboxState
	attempts int
	next     time.Time
	lastErr  string
}

// Outbox keeps event records in memory. Records added inside a unit of work
// become visible only when that unit commits.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
	now     func() time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{now: time.Now}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok && !mu.closed && mu.outbox == o {
			mu.stageEvent(record)
			return nil
		}
	}
	o.append(record)
	return nil
}

// Flush drops records already relayed.
func (o *Outbox) Flush(context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.entries[:0]
	for _, e := range o.entries {
		if e.state != outboxSent {
			kept = append(kept, e)
		}
	}
	o.entries = kept
	return nil
}

func (o *Outbox) Claim(_ context.Context, _ string) (*appoutbox.Pending, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.clock()
	for _, e := range o.entries {
		if (e.state == outboxNew || e.state == outboxFailed) && !e.next.After(now) {
			e.state = outboxClaimed
			return &appoutbox.Pending{EventRecord: e.record, Attempts: e.attempts}, nil
		}
	}
	return nil, nil
}

func (o *Outbox) MarkSent(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e := o.find(id); e != nil {
		e.state = outboxSent
	}
	return nil
}

func (o *Outbox) MarkFailed(_ context.Context, id string, next time.Time, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e := o.find(id); e != nil {
		e.state = outboxFailed
		e.attempts++
		e.next = next
		e.lastErr = reason
	}
	return nil
}

// Records returns every record not yet flushed, oldest first.
func (o *Outbox) Records() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e.record)
	}
	return out
}

func (o *Outbox) append(records ...appoutbox.EventRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.clock()
	for _, rec := range records {
		o.entries = append(o.entries, &outboxEntry{record: rec, state: outboxNew, next: now})
	}
}

func (o *Outbox) find(id string) *outboxEntry {
	for _, e := range o.entries {
		if e.record.ID == id {
			return e
		}
	}
	return nil
}

func (o *Outbox) clock() time.Time {
	if o.now == nil {
		return time.Now()
	}
	return o.now()
}

var (
	_ appoutbox.Outbox = (*Outbox)(nil)
	_ appoutbox.Queue  = (*Outbox)(nil)
)
