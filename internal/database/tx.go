package database

import (
	"context"
	"sync"
)

// TxManager runs fn inside one storage transaction. Nested calls join the outer
// transaction; any error returned by fn rolls the whole transaction back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type hooksKey struct{}

// Hooks collects callbacks that must only run once the outermost transaction commits.
type Hooks struct {
	mu  sync.Mutex
	fns []func()
}

// WithHooks attaches a fresh hook list to ctx. Transaction managers call it when
// they open the outermost transaction.
func WithHooks(ctx context.Context) (context.Context, *Hooks) {
	h := &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

// AfterCommit defers fn until the surrounding transaction commits. Outside a
// transaction fn runs immediately. Rolled back transactions drop their hooks.
func AfterCommit(ctx context.Context, fn func()) {
	if h, ok := ctx.Value(hooksKey{}).(*Hooks); ok {
		h.mu.Lock()
		h.fns = append(h.fns, fn)
		h.mu.Unlock()
		return
	}
	fn()
}

func (h *Hooks) Run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
