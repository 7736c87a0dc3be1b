package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// ErrDeclined is returned by a Processor that refused the charge.
var ErrDeclined = errors.New("card declined")

// Processor is the external payment provider contract: it either returns a
// provider payment id or an error.
type Processor interface {
	Process(ctx context.Context, amountCents int64, method string) (string, error)
}

// SimulatedProcessor stands in for a real provider: it waits for Delay and
// then succeeds with probability SuccessRate.
type SimulatedProcessor struct {
	delay       time.Duration
	successRate float64

	mu   sync.Mutex
	rand func() float64
	now  func() time.Time
}

type SimulatedOption func(*SimulatedProcessor)

// WithRand replaces the random source, e.g. with a fixed sequence in tests.
func WithRand(r func() float64) SimulatedOption {
	return func(p *SimulatedProcessor) { p.rand = r }
}

func NewSimulatedProcessor(delay time.Duration, successRate float64, opts ...SimulatedOption) *SimulatedProcessor {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}
	p := &SimulatedProcessor{
		delay:       delay,
		successRate: successRate,
		rand:        rand.Float64,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *SimulatedProcessor) Process(ctx context.Context, amountCents int64, method string) (string, error) {
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	p.mu.Lock()
	roll := p.rand()
	p.mu.Unlock()

	if roll >= p.successRate {
		return "", ErrDeclined
	}
	return fmt.Sprintf("pay_%d_%09d", p.now().UnixMilli(), rand.IntN(1_000_000_000)), nil
}
