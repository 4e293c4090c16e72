package orders

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"solarsync/internal/deyecloud"
)

type stubClient struct {
	orderID  int64
	statuses []int
	calls    int

	submitErr error
	statusErr error
}

func (s *stubClient) SubmitCustomControl(ctx context.Context, deviceSN, content string, timeoutSeconds int) (int64, error) {
	if s.submitErr != nil {
		return 0, s.submitErr
	}
	return s.orderID, nil
}

func (s *stubClient) OrderStatus(ctx context.Context, orderID int64) (*deyecloud.Order, error) {
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	status := s.statuses[len(s.statuses)-1]
	if s.calls < len(s.statuses) {
		status = s.statuses[s.calls]
	}
	s.calls++
	return &deyecloud.Order{OrderID: orderID, Status: status}, nil
}

func newTestPoller(t *testing.T, client statusClient, slept *int) *Poller {
	t.Helper()
	p, err := NewPoller(client, log.New(io.Discard, "", 0),
		WithSleep(func(time.Duration) {
			if slept != nil {
				*slept++
			}
		}))
	if err != nil {
		t.Fatalf("poller: %v", err)
	}
	return p
}

func TestRunSucceedsAfterPendingStatuses(t *testing.T) {
	client := &stubClient{orderID: 9, statuses: []int{0, 100, 100, 666}}
	slept := 0
	p := newTestPoller(t, client, &slept)

	order, err := p.Run(context.Background(), "SN1", "01 03 00 00 00 01 84 0A", 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !order.Succeeded() {
		t.Fatalf("status = %d, want succeeded", order.Status)
	}
	if client.calls != 4 {
		t.Fatalf("status calls = %d, want 4", client.calls)
	}
	if slept != 3 {
		t.Fatalf("sleeps = %d, want 3", slept)
	}
}

func TestAwaitTimesOutWhilePending(t *testing.T) {
	client := &stubClient{statuses: []int{0}}
	p := newTestPoller(t, client, nil)

	_, err := p.Await(context.Background(), 9)
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("err = %v, want ErrPollTimeout", err)
	}
	if client.calls != defaultMaxPolls {
		t.Fatalf("status calls = %d, want %d", client.calls, defaultMaxPolls)
	}
}

func TestAwaitFailsImmediatelyOnTerminalStatus(t *testing.T) {
	client := &stubClient{statuses: []int{3}}
	p := newTestPoller(t, client, nil)

	order, err := p.Await(context.Background(), 9)
	var failed *FailedError
	if !errors.As(err, &failed) {
		t.Fatalf("err = %v, want FailedError", err)
	}
	if errors.Is(err, ErrPollTimeout) {
		t.Fatal("terminal failure must not look like a timeout")
	}
	if failed.Status != 3 {
		t.Fatalf("status = %d, want 3", failed.Status)
	}
	if order == nil || order.Status != 3 {
		t.Fatalf("order = %+v, want terminal order returned", order)
	}
	if client.calls != 1 {
		t.Fatalf("status calls = %d, want 1", client.calls)
	}
}

func TestAwaitSurvivesFlakyStatusReads(t *testing.T) {
	reads := 0
	flaky := &flakyClient{
		inner:     &stubClient{statuses: []int{666}},
		failUntil: 2,
		reads:     &reads,
	}
	p := newTestPoller(t, flaky, nil)

	order, err := p.Await(context.Background(), 9)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if !order.Succeeded() {
		t.Fatalf("status = %d, want succeeded", order.Status)
	}
	if reads != 3 {
		t.Fatalf("status reads = %d, want 3", reads)
	}
}

type flakyClient struct {
	inner     *stubClient
	failUntil int
	reads     *int
}

func (f *flakyClient) SubmitCustomControl(ctx context.Context, deviceSN, content string, timeoutSeconds int) (int64, error) {
	return f.inner.SubmitCustomControl(ctx, deviceSN, content, timeoutSeconds)
}

func (f *flakyClient) OrderStatus(ctx context.Context, orderID int64) (*deyecloud.Order, error) {
	*f.reads++
	if *f.reads <= f.failUntil {
		return nil, errors.New("connection reset")
	}
	return f.inner.OrderStatus(ctx, orderID)
}

func TestRunPropagatesSubmitError(t *testing.T) {
	client := &stubClient{submitErr: errors.New("vendor down")}
	p := newTestPoller(t, client, nil)

	if _, err := p.Run(context.Background(), "SN1", "abc", 0); err == nil {
		t.Fatal("expected error")
	}
	if client.calls != 0 {
		t.Fatalf("status calls = %d, want none after failed submit", client.calls)
	}
}

func TestAwaitStopsOnCancelledContext(t *testing.T) {
	client := &stubClient{statuses: []int{0}}
	ctx, cancel := context.WithCancel(context.Background())

	polls := 0
	p, err := NewPoller(client, log.New(io.Discard, "", 0),
		WithSleep(func(time.Duration) {
			polls++
			if polls == 2 {
				cancel()
			}
		}))
	if err != nil {
		t.Fatalf("poller: %v", err)
	}

	if _, err := p.Await(ctx, 9); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
