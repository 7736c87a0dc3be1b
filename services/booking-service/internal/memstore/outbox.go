package memstore

import (
	"context"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/outbox"
)

func (s *Store) appendEvents(events []outbox.Event) {
	if len(events) == 0 {
		return
	}
	s.outMu.Lock()
	defer s.outMu.Unlock()
	now := s.now()
	for _, evt := range events {
		s.seq++
		s.events = append(s.events, outbox.Record{Seq: s.seq, Event: evt, CreatedAt: now})
	}
}

// Claim serializes dispatchers; appends are not blocked while fn runs.
func (s *Store) Claim(ctx context.Context, limit int, fn func(context.Context, []outbox.Record) ([]int64, error)) error {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	s.outMu.Lock()
	var batch []outbox.Record
	for _, r := range s.events {
		if len(batch) == limit {
			break
		}
		if !s.delivered[r.Seq] {
			batch = append(batch, r)
		}
	}
	s.outMu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	done, err := fn(ctx, batch)

	s.outMu.Lock()
	for _, seq := range done {
		s.delivered[seq] = true
	}
	s.trimDelivered()
	s.outMu.Unlock()
	return err
}

// trimDelivered drops the delivered prefix of the log. Callers hold outMu.
func (s *Store) trimDelivered() {
	n := 0
	for n < len(s.events) && s.delivered[s.events[n].Seq] {
		delete(s.delivered, s.events[n].Seq)
		n++
	}
	if n == 0 {
		return
	}
	s.events = append(s.events[:0:0], s.events[n:]...)
}

// Pending returns the number of undelivered outbox records.
func (s *Store) Pending() int {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	return len(s.events) - len(s.delivered)
}
