package storetest

import (
	"context"
	"sync"

	"github.com/vovakirdan/wirestream/internal/store"
)

// Op names a store.Store method for fault injection.
type Op string

const (
	OpGet                  Op = "Get"
	OpSet                  Op = "Set"
	OpSetAdd               Op = "SetAdd"
	OpSetMembers           Op = "SetMembers"
	OpMapPutIfAbsent       Op = "MapPutIfAbsent"
	OpMapDelete            Op = "MapDelete"
	OpMapGetAll            Op = "MapGetAll"
	OpCounterIncr          Op = "CounterIncr"
	OpCounterDecrFloor     Op = "CounterDecrFloor"
	OpCounterGet           Op = "CounterGet"
	OpListAppendUnlessLast Op = "ListAppendUnlessLast"
	OpListRange            Op = "ListRange"
	OpPing                 Op = "Ping"
)

// Faulty wraps a store and fails selected operations on demand.
type Faulty struct {
	store.Store

	mu    sync.Mutex
	fails map[Op]error
}

// NewFaulty wraps inner with no faults configured.
func NewFaulty(inner store.Store) *Faulty {
	return &Faulty{Store: inner, fails: make(map[Op]error)}
}

// Fail makes op return err until Heal is called.
func (f *Faulty) Fail(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails[op] = err
}

// Heal clears every configured fault.
func (f *Faulty) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails = make(map[Op]error)
}

func (f *Faulty) check(op Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fails[op]
}

func (f *Faulty) Get(ctx context.Context, key string) (string, error) {
	if err := f.check(OpGet); err != nil {
		return "", err
	}
	return f.Store.Get(ctx, key)
}

func (f *Faulty) Set(ctx context.Context, key, value string) error {
	if err := f.check(OpSet); err != nil {
		return err
	}
	return f.Store.Set(ctx, key, value)
}

func (f *Faulty) SetAdd(ctx context.Context, key, member string) error {
	if err := f.check(OpSetAdd); err != nil {
		return err
	}
	return f.Store.SetAdd(ctx, key, member)
}

func (f *Faulty) SetMembers(ctx context.Context, key string) ([]string, error) {
	if err := f.check(OpSetMembers); err != nil {
		return nil, err
	}
	return f.Store.SetMembers(ctx, key)
}

func (f *Faulty) MapPutIfAbsent(ctx context.Context, key, field, value string) (bool, error) {
	if err := f.check(OpMapPutIfAbsent); err != nil {
		return false, err
	}
	return f.Store.MapPutIfAbsent(ctx, key, field, value)
}

func (f *Faulty) MapDelete(ctx context.Context, key, field string) (bool, error) {
	if err := f.check(OpMapDelete); err != nil {
		return false, err
	}
	return f.Store.MapDelete(ctx, key, field)
}

func (f *Faulty) MapGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := f.check(OpMapGetAll); err != nil {
		return nil, err
	}
	return f.Store.MapGetAll(ctx, key)
}

func (f *Faulty) CounterIncr(ctx context.Context, key string) (int64, error) {
	if err := f.check(OpCounterIncr); err != nil {
		return 0, err
	}
	return f.Store.CounterIncr(ctx, key)
}

func (f *Faulty) CounterDecrFloor(ctx context.Context, key string) (int64, error) {
	if err := f.check(OpCounterDecrFloor); err != nil {
		return 0, err
	}
	return f.Store.CounterDecrFloor(ctx, key)
}

func (f *Faulty) CounterGet(ctx context.Context, key string) (int64, error) {
	if err := f.check(OpCounterGet); err != nil {
		return 0, err
	}
	return f.Store.CounterGet(ctx, key)
}

func (f *Faulty) ListAppendUnlessLast(ctx context.Context, key, value string) (bool, error) {
	if err := f.check(OpListAppendUnlessLast); err != nil {
		return false, err
	}
	return f.Store.ListAppendUnlessLast(ctx, key, value)
}

func (f *Faulty) ListRange(ctx context.Context, key string) ([]string, error) {
	if err := f.check(OpListRange); err != nil {
		return nil, err
	}
	return f.Store.ListRange(ctx, key)
}

func (f *Faulty) Ping(ctx context.Context) error {
	if err := f.check(OpPing); err != nil {
		return err
	}
	return f.Store.Ping(ctx)
}

var _ store.Store = (*Faulty)(nil)
