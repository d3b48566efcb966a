package events

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/roofing-ledger/internal/crm"
)

func TestEmitDeliversInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.OnFunc(CustomerDeleted, func(ctx context.Context, evt Event) error {
		order = append(order, "first")
		return nil
	})
	bus.OnFunc(CustomerDeleted, func(ctx context.Context, evt Event) error {
		order = append(order, "second")
		payload := evt.Payload.(CustomerDeletedPayload)
		assert.Equal(t, "CUST-1", payload.ID)
		return nil
	})

	bus.Emit(context.Background(), CustomerDeletedPayload{ID: "CUST-1"})

	require.Equal(t, []string{"first", "second"}, order)
}

func TestOnCollapsesDuplicateHandler(t *testing.T) {
	bus := NewBus()
	var calls int
	h := NewHandler(func(ctx context.Context, evt Event) error {
		calls++
		return nil
	})
	unsubscribeA := bus.On(InvoiceSent, h)
	unsubscribeB := bus.On(InvoiceSent, h)
	require.Equal(t, 1, bus.ListenerCount(InvoiceSent))

	bus.Emit(context.Background(), InvoiceSentPayload{InvoiceID: "INV-1"})
	require.Equal(t, 1, calls)

	unsubscribeA()
	unsubscribeA()
	unsubscribeB()
	require.Equal(t, 0, bus.ListenerCount(InvoiceSent))
	require.Empty(t, bus.EventNames())
}

func TestOnceFiresSingleTime(t *testing.T) {
	bus := NewBus()
	var calls int
	bus.Once(SystemBackup, func(ctx context.Context, evt Event) error {
		calls++
		return nil
	})

	bus.Emit(context.Background(), SystemBackupPayload{Timestamp: time.Now()})
	bus.Emit(context.Background(), SystemBackupPayload{Timestamp: time.Now()})

	require.Equal(t, 1, calls)
	require.Zero(t, bus.ListenerCount(SystemBackup))
}

func TestListenerFailureIsContained(t *testing.T) {
	bus := NewBus()
	var reached bool
	var captured []SystemErrorPayload
	bus.OnFunc(SystemError, func(ctx context.Context, evt Event) error {
		captured = append(captured, evt.Payload.(SystemErrorPayload))
		return nil
	})
	bus.OnFunc(InvoicePaid, func(ctx context.Context, evt Event) error {
		return errors.New("ledger offline")
	})
	bus.OnFunc(InvoicePaid, func(ctx context.Context, evt Event) error {
		panic("boom")
	})
	bus.OnFunc(InvoicePaid, func(ctx context.Context, evt Event) error {
		reached = true
		return nil
	})

	require.NotPanics(t, func() {
		bus.Emit(context.Background(), InvoicePaidPayload{InvoiceID: "INV-9"})
	})

	require.True(t, reached)
	require.Len(t, captured, 2)
	assert.Equal(t, "Event listener error for invoice:paid", captured[0].Error)
	assert.Equal(t, InvoicePaid, captured[0].Context.Event)
	assert.Equal(t, "ledger offline", captured[0].Context.Error)
	assert.Contains(t, captured[1].Context.Error, "boom")
}

func TestSystemErrorListenerFailureDoesNotRecurse(t *testing.T) {
	bus := NewBus()
	var calls atomic.Int32
	bus.OnFunc(SystemError, func(ctx context.Context, evt Event) error {
		calls.Add(1)
		return errors.New("still broken")
	})

	bus.Emit(context.Background(), Failure("root", ErrorContext{}))

	require.Equal(t, int32(1), calls.Load())
	require.Len(t, bus.GetEvents("system:error"), 1)
}

func TestAsyncListenersSettleBeforeEmitReturns(t *testing.T) {
	bus := NewBus()
	var done atomic.Int32
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)
	for i := 0; i < 2; i++ {
		bus.OnFunc(MaterialDelivered, func(ctx context.Context, evt Event) error {
			started.Done()
			<-release
			done.Add(1)
			return nil
		}, Async())
	}
	go func() {
		started.Wait()
		close(release)
	}()

	bus.Emit(context.Background(), MaterialDeliveredPayload{MaterialID: "MAT-1"})

	require.Equal(t, int32(2), done.Load())
}

func TestReentrantEmit(t *testing.T) {
	bus := NewBus()
	bus.OnFunc(LeadConverted, func(ctx context.Context, evt Event) error {
		bus.Emit(ctx, Notification("converted", NotifySuccess))
		return nil
	})
	var notified bool
	bus.OnFunc(SystemNotification, func(ctx context.Context, evt Event) error {
		notified = true
		return nil
	})

	bus.Emit(context.Background(), LeadConvertedPayload{LeadID: "L1", CustomerID: "C1"})

	require.True(t, notified)
	history := bus.GetEvents("")
	require.Len(t, history, 2)
	assert.Equal(t, LeadConverted, history[0].Name)
	assert.Equal(t, SystemNotification, history[1].Name)
}

func TestHistoryKeepsMostRecentThousand(t *testing.T) {
	bus := NewBus()
	for i := 0; i < 1500; i++ {
		bus.Emit(context.Background(), CustomerCreatedPayload{Customer: crm.Customer{ID: string(rune('a' + i%26)), FirstName: "n", LastName: strconv.Itoa(i)}})
	}

	history := bus.GetEvents("")
	require.Len(t, history, 1000)
	first := history[0].Payload.(CustomerCreatedPayload)
	last := history[999].Payload.(CustomerCreatedPayload)
	assert.Equal(t, strconv.Itoa(500), first.Customer.LastName)
	assert.Equal(t, strconv.Itoa(1499), last.Customer.LastName)
}

func TestGetEventsReturnsCopy(t *testing.T) {
	bus := NewBus()
	bus.Emit(context.Background(), InvoiceSentPayload{InvoiceID: "A"})
	events := bus.GetEvents("")
	events[0] = Event{Name: "tampered"}

	require.Equal(t, InvoiceSent, bus.GetEvents("")[0].Name)
}

func TestGetEventsFiltersByPattern(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()
	bus.Emit(ctx, InvoiceSentPayload{InvoiceID: "A"})
	bus.Emit(ctx, CustomerDeletedPayload{ID: "C"})
	bus.Emit(ctx, InvoiceOverduePayload{InvoiceID: "B"})

	require.Len(t, bus.GetEvents("^invoice:"), 2)
	require.Len(t, bus.GetEvents("customer"), 1)
	require.Empty(t, bus.GetEvents("["))
}

func TestSetMaxHistorySizeTrimsImmediately(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		bus.Emit(ctx, InvoiceSentPayload{InvoiceID: strconv.Itoa(i)})
	}

	bus.SetMaxHistorySize(2)
	history := bus.GetEvents("")
	require.Len(t, history, 2)
	assert.Equal(t, "3", history[0].Payload.(InvoiceSentPayload).InvoiceID)
	assert.Equal(t, "4", history[1].Payload.(InvoiceSentPayload).InvoiceID)

	bus.Emit(ctx, InvoiceSentPayload{InvoiceID: "5"})
	require.Len(t, bus.GetEvents(""), 2)

	bus.SetMaxHistorySize(0)
	bus.Emit(ctx, InvoiceSentPayload{InvoiceID: "6"})
	require.Empty(t, bus.GetEvents(""))
}

func TestOffAndRemoveAll(t *testing.T) {
	bus := NewBus()
	noop := func(ctx context.Context, evt Event) error { return nil }
	bus.OnFunc(PermitApplied, noop)
	bus.OnFunc(PermitApplied, noop)
	bus.OnFunc(PermitExpired, noop)
	require.Equal(t, []Name{PermitApplied, PermitExpired}, bus.EventNames())

	bus.Off(PermitApplied)
	require.Zero(t, bus.ListenerCount(PermitApplied))
	require.Equal(t, 1, bus.ListenerCount(PermitExpired))

	bus.RemoveAllListeners()
	require.Empty(t, bus.EventNames())
}

func TestClearHistoryAndDebugInfo(t *testing.T) {
	bus := NewBus(WithHistorySize(20))
	bus.OnFunc(SyncCompleted, func(ctx context.Context, evt Event) error { return nil })
	for i := 0; i < 12; i++ {
		bus.Emit(context.Background(), SyncCompletedPayload{Entity: "customer", EntityID: strconv.Itoa(i), Success: true})
	}

	info := bus.DebugInfo()
	require.Equal(t, 12, info.HistorySize)
	require.Equal(t, 20, info.MaxHistorySize)
	require.Len(t, info.RecentEvents, 10)
	require.Equal(t, 1, info.ListenerCounts[SyncCompleted])

	bus.ClearHistory()
	require.Empty(t, bus.GetEvents(""))
}

func TestMetricsCountEmitsAndFailures(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	bus := NewBus(WithMetrics(metrics))
	bus.OnFunc(InvoiceOverdue, func(ctx context.Context, evt Event) error { return errors.New("nope") })

	bus.Emit(context.Background(), InvoiceOverduePayload{InvoiceID: "X"})

	require.Equal(t, float64(1), testutil.ToFloat64(metrics.emitted.WithLabelValues(string(InvoiceOverdue))))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.failures.WithLabelValues(string(InvoiceOverdue))))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.emitted.WithLabelValues(string(SystemError))))
}
