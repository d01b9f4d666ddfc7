package store

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/sessioncache/pkg/cryptox"
)

// Sealed encrypts every value before handing it to the wrapped KV. The key is
// bound as additional data so a blob cannot be replayed under another key.
type Sealed struct {
	kv     KV
	sealer *cryptox.Sealer
}

// NewSealed wraps kv. A nil sealer returns kv unchanged.
func NewSealed(kv KV, sealer *cryptox.Sealer) KV {
	if sealer == nil {
		return kv
	}
	return &Sealed{kv: kv, sealer: sealer}
}

func (s *Sealed) Get(ctx context.Context, key string) ([]byte, error) {
	blob, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	plain, err := s.sealer.Open(blob, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", key, err)
	}
	return plain, nil
}

func (s *Sealed) Set(ctx context.Context, key string, value []byte) error {
	blob, err := s.sealer.Seal(value, []byte(key))
	if err != nil {
		return fmt.Errorf("store: seal %q: %w", key, err)
	}
	return s.kv.Set(ctx, key, blob)
}

func (s *Sealed) Remove(ctx context.Context, key string) error { return s.kv.Remove(ctx, key) }
func (s *Sealed) Keys(ctx context.Context) ([]string, error)   { return s.kv.Keys(ctx) }
func (s *Sealed) Ping(ctx context.Context) error               { return s.kv.Ping(ctx) }
func (s *Sealed) Close() error                                 { return s.kv.Close() }

// ApplyMigrations forwards to the wrapped driver when it owns a schema.
func (s *Sealed) ApplyMigrations() error {
	if m, ok := s.kv.(Migrator); ok {
		return m.ApplyMigrations()
	}
	return nil
}
