package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"carbon-scribe/project-portal/ledger-backend/pkg/kv"
)

// GetAux decodes the JSON value stored under key into out. It reports false
// when the key is absent or the value cannot be decoded.
func GetAux(ctx context.Context, store kv.Store, key string, out any) (bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, nil
	}
	return true, nil
}

// SetAux stores value as JSON under key.
func SetAux(ctx context.Context, store kv.Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
