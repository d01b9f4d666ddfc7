package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDecode reports a stored value that is not valid JSON for its type.
var ErrDecode = errors.New("store: decode")

// GetJSON reads key and decodes it into v.
func GetJSON(ctx context.Context, kv KV, key string, v any) error {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w %q: %v", ErrDecode, key, err)
	}
	return nil
}

// SetJSON encodes v and writes it under key.
func SetJSON(ctx context.Context, kv KV, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %q: %w", key, err)
	}
	return kv.Set(ctx, key, raw)
}
