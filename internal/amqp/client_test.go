package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"bilancio/internal/core"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"closed connection", errors.New("connection closed"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"library sentinel", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"consumer channel closed", errors.New("message channel closed"), true},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit breaker should be closed initially")
		}
	})

	t.Run("multiple failures open circuit", func(t *testing.T) {
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("circuit breaker should be open after max failures")
		}
	})

	t.Run("circuit transitions to half-open after timeout", func(t *testing.T) {
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)
		if client.isCircuitOpen() {
			t.Error("circuit should let a probe through after the timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be half-open")
		}
	})

	t.Run("failure while half-open reopens", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 0)
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("state should be open again")
		}
	})

	t.Run("record success resets state", func(t *testing.T) {
		client.recordSuccess()
		if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("success should close the circuit and reset failures")
		}
	})
}

func validWarning() *NotificationMessage {
	return &NotificationMessage{
		Kind:           core.AlertBudgetWarning,
		FamilyID:       3,
		FamilyName:     "Rossi",
		Period:         "2025-03",
		Exceeds:        true,
		ProjectedCents: 120000,
		BudgetCents:    100000,
	}
}

func TestPublishNotification_FailsFast(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	t.Run("open circuit", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishNotification(context.Background(), validWarning())
		if !errors.Is(err, ErrCircuitOpen) {
			t.Errorf("got %v, want ErrCircuitOpen", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		client.recordSuccess()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.PublishNotification(ctx, validWarning()); err != context.Canceled {
			t.Errorf("got %v, want context.Canceled", err)
		}
	})

	t.Run("invalid message", func(t *testing.T) {
		msg := validWarning()
		msg.BudgetCents = 0
		err := client.PublishNotification(context.Background(), msg)
		if err == nil || !strings.Contains(err.Error(), "invalid notification") {
			t.Errorf("got %v, want validation error", err)
		}
	})
}

func TestNotificationMessage_Validate(t *testing.T) {
	breach := &NotificationMessage{
		Kind: core.AlertThresholdBreach, FamilyID: 3, Period: "2025-03",
		Category: "Food", SpentCents: 31000, LimitCents: 30000,
	}

	tests := []struct {
		name    string
		mutate  func(*NotificationMessage)
		base    func() *NotificationMessage
		wantErr bool
	}{
		{"valid warning", func(*NotificationMessage) {}, validWarning, false},
		{"valid breach", func(*NotificationMessage) {}, func() *NotificationMessage { c := *breach; return &c }, false},
		{"missing family", func(m *NotificationMessage) { m.FamilyID = 0 }, validWarning, true},
		{"bad period", func(m *NotificationMessage) { m.Period = "2025-3" }, validWarning, true},
		{"unknown kind", func(m *NotificationMessage) { m.Kind = "other" }, validWarning, true},
		{"breach without category", func(m *NotificationMessage) { m.Category = "" }, func() *NotificationMessage { c := *breach; return &c }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.base()
			tt.mutate(m)
			if err := m.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNotificationMessage_KeyAndJSON(t *testing.T) {
	hit := time.Date(2025, 3, 22, 0, 0, 0, 0, time.UTC)
	msg := validWarning()
	msg.BudgetHit = &hit

	if got := msg.Key(); got != "3/budget_warning/2025-03/" {
		t.Errorf("Key() = %q", got)
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := NotificationMessageFromJSON(body)
	if err != nil {
		t.Fatalf("NotificationMessageFromJSON() error = %v", err)
	}
	if parsed.BudgetHit == nil || !parsed.BudgetHit.Equal(hit) || !parsed.Exceeds {
		t.Errorf("round trip lost fields: %+v", parsed)
	}

	if _, err := NotificationMessageFromJSON([]byte(`{"family_id": "x"}`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

type fakeAcker struct {
	acked, nacked, requeued bool
}

func (f *fakeAcker) Ack(bool) error { f.acked = true; return nil }
func (f *fakeAcker) Nack(_ bool, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}

func TestDispatch(t *testing.T) {
	good, _ := validWarning().ToJSON()

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		want       fakeAcker
		called     bool
	}{
		{"success acks", good, nil, fakeAcker{acked: true}, true},
		{"handler error requeues", good, errors.New("smtp down"), fakeAcker{nacked: true, requeued: true}, true},
		{"garbage is dropped", []byte("{"), nil, fakeAcker{nacked: true}, false},
		{"invalid message is dropped", []byte(`{"kind":"budget_warning","family_id":1,"period":"2025-03"}`), nil, fakeAcker{nacked: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAcker{}
			called := false
			dispatch(context.Background(), tt.body, false, ack, func(context.Context, *NotificationMessage) error {
				called = true
				return tt.handlerErr
			})
			if *ack != tt.want {
				t.Errorf("acker = %+v, want %+v", *ack, tt.want)
			}
			if called != tt.called {
				t.Errorf("handler called = %v, want %v", called, tt.called)
			}
		})
	}
}
