package avatar

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Transaction is one Load call. Only the most recent transaction may install its avatar; every earlier one
// is superseded and resolves with ErrTransactionSuperseded.
type Transaction struct {
	id           uint64
	data         []byte
	declaredSize int64

	superseded atomic.Bool

	once sync.Once
	done chan struct{}
	err  error

	span trace.Span
}

func newTransaction(id uint64, data []byte, declaredSize int64, span trace.Span) *Transaction {
	return &Transaction{
		id:           id,
		data:         data,
		declaredSize: declaredSize,
		done:         make(chan struct{}),
		span:         span,
	}
}

// ID returns the transaction id. Ids increase with every Load.
func (t *Transaction) ID() uint64 {
	return t.id
}

// Superseded reports whether a newer Load replaced this one.
func (t *Transaction) Superseded() bool {
	return t.superseded.Load()
}

// Done returns a channel that is closed once the transaction has resolved.
func (t *Transaction) Done() <-chan struct{} {
	return t.done
}

// Err returns the terminal error: nil once installed, a *LoadError on failure, or ErrTransactionSuperseded.
// It returns nil while the transaction is still running.
func (t *Transaction) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the transaction resolves or ctx ends. Installation only progresses while the frame
// driver keeps calling Manager.Update.
//
// Parameters:
//   - ctx: bounds the wait
//
// Returns:
//   - error: the terminal error, or ctx.Err()
func (t *Transaction) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// supersede marks the transaction superseded and resolves it. It reports whether this call did the marking.
func (t *Transaction) supersede() bool {
	if t.superseded.Swap(true) {
		return false
	}
	t.resolve(ErrTransactionSuperseded)
	return true
}

// resolve records the terminal error and ends the span. Only the first call has an effect.
func (t *Transaction) resolve(err error) {
	t.once.Do(func() {
		t.err = err
		t.data = nil
		if err != nil {
			t.span.RecordError(err)
			t.span.SetStatus(codes.Error, err.Error())
		} else {
			t.span.SetStatus(codes.Ok, "installed")
		}
		t.span.End()
		close(t.done)
	})
}
