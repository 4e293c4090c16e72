// Package orders supervises the vendor's asynchronous device-control jobs.
// A submitted order is polled until it reaches a terminal status or the
// retry budget runs out.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solarsync/internal/deyecloud"
	"solarsync/internal/observability/metrics"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxPolls     = 30
)

// ErrPollTimeout is returned when an order is still pending after the retry
// budget. It is distinct from a failed terminal status: the vendor never said
// no, we just stopped waiting.
var ErrPollTimeout = errors.New("orders: gave up waiting for terminal status")

// FailedError carries the vendor's terminal failure status.
type FailedError struct {
	OrderID int64
	Status  int
	Detail  string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("orders: order %d failed with status %d: %s", e.OrderID, e.Status, e.Detail)
}

// statusClient is the slice of the vendor client the poller needs.
type statusClient interface {
	SubmitCustomControl(ctx context.Context, deviceSN, content string, timeoutSeconds int) (int64, error)
	OrderStatus(ctx context.Context, orderID int64) (*deyecloud.Order, error)
}

// Poller submits control orders and waits for them to finish.
type Poller struct {
	client   statusClient
	logger   *log.Logger
	interval time.Duration
	maxPolls int
	sleep    func(time.Duration)
}

// NewPoller constructs a poller.
func NewPoller(client statusClient, logger *log.Logger, opts ...PollerOption) (*Poller, error) {
	if client == nil {
		return nil, errors.New("orders: nil client")
	}
	if logger == nil {
		logger = log.Default()
	}
	p := &Poller{
		client:   client,
		logger:   logger,
		interval: defaultPollInterval,
		maxPolls: defaultMaxPolls,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// PollerOption configures the poller.
type PollerOption func(*Poller)

// WithInterval overrides the delay between status polls.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxPolls overrides the retry budget.
func WithMaxPolls(n int) PollerOption {
	return func(p *Poller) {
		if n > 0 {
			p.maxPolls = n
		}
	}
}

// WithSleep replaces the poll sleep, for tests.
func WithSleep(fn func(time.Duration)) PollerOption {
	return func(p *Poller) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// Run submits a raw control command and waits for the resulting order to
// reach a terminal status. On success the finished order is returned; a
// vendor-side failure surfaces as *FailedError and an exhausted retry budget
// as ErrPollTimeout.
func (p *Poller) Run(ctx context.Context, deviceSN, content string, timeoutSeconds int) (*deyecloud.Order, error) {
	orderID, err := p.client.SubmitCustomControl(ctx, deviceSN, content, timeoutSeconds)
	if err != nil {
		return nil, err
	}
	metrics.IncOrderSubmitted()
	p.logger.Printf("orders: submitted order %d for device %s", orderID, deviceSN)
	return p.Await(ctx, orderID)
}

// Await polls an already-submitted order until terminal.
func (p *Poller) Await(ctx context.Context, orderID int64) (*deyecloud.Order, error) {
	for attempt := 0; attempt < p.maxPolls; attempt++ {
		if attempt > 0 {
			p.sleep(p.interval)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		order, err := p.client.OrderStatus(ctx, orderID)
		if err != nil {
			// A flaky status read is not terminal; the budget still bounds us.
			p.logger.Printf("orders: status poll %d for order %d failed: %v", attempt+1, orderID, err)
			continue
		}
		if order.Pending() {
			continue
		}
		if order.Succeeded() {
			metrics.IncOrderResult(metrics.OrderResultSucceeded)
			return order, nil
		}
		metrics.IncOrderResult(metrics.OrderResultFailed)
		detail := order.Error
		if detail == "" {
			detail = order.AnalysisResult
		}
		return order, &FailedError{OrderID: orderID, Status: order.Status, Detail: detail}
	}

	metrics.IncOrderResult(metrics.OrderResultTimeout)
	return nil, fmt.Errorf("orders: order %d after %d polls: %w", orderID, p.maxPolls, ErrPollTimeout)
}
