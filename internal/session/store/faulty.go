package store

import (
	"context"
	"errors"
	"sync"
)

// ErrInjected is returned by Faulty for operations set to fail.
var ErrInjected = errors.New("store: injected failure")

// Op names a KV operation for fault injection.
type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpRemove Op = "remove"
	OpKeys   Op = "keys"
	OpPing   Op = "ping"
)

// Faulty wraps a KV and fails selected operations on demand. It is used to
// exercise storage-degradation paths.
type Faulty struct {
	KV

	mu       sync.Mutex
	failing  map[Op]bool
	panicOn  map[Op]bool
	failures int
}

// NewFaulty wraps kv with no faults armed.
func NewFaulty(kv KV) *Faulty {
	return &Faulty{KV: kv, failing: map[Op]bool{}, panicOn: map[Op]bool{}}
}

// Fail makes every listed operation return ErrInjected until Heal.
func (f *Faulty) Fail(ops ...Op) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, op := range ops {
		f.failing[op] = true
	}
}

// Panic makes every listed operation panic until Heal.
func (f *Faulty) Panic(ops ...Op) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, op := range ops {
		f.panicOn[op] = true
	}
}

// Heal disarms every fault.
func (f *Faulty) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = map[Op]bool{}
	f.panicOn = map[Op]bool{}
}

// Failures counts injected failures so far.
func (f *Faulty) Failures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures
}

func (f *Faulty) check(op Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn[op] {
		panic("store: injected panic on " + string(op))
	}
	if f.failing[op] {
		f.failures++
		return ErrInjected
	}
	return nil
}

func (f *Faulty) Get(ctx context.Context, key string) ([]byte, error) {
	if err := f.check(OpGet); err != nil {
		return nil, err
	}
	return f.KV.Get(ctx, key)
}

func (f *Faulty) Set(ctx context.Context, key string, value []byte) error {
	if err := f.check(OpSet); err != nil {
		return err
	}
	return f.KV.Set(ctx, key, value)
}

func (f *Faulty) Remove(ctx context.Context, key string) error {
	if err := f.check(OpRemove); err != nil {
		return err
	}
	return f.KV.Remove(ctx, key)
}

func (f *Faulty) Keys(ctx context.Context) ([]string, error) {
	if err := f.check(OpKeys); err != nil {
		return nil, err
	}
	return f.KV.Keys(ctx)
}

func (f *Faulty) Ping(ctx context.Context) error {
	if err := f.check(OpPing); err != nil {
		return err
	}
	return f.KV.Ping(ctx)
}
