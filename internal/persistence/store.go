// Package persistence saves and restores designer configurations by key.
// Backends store the JSON form of a configuration; every load runs the
// configuration validator so a corrupted or hand-edited record surfaces as
// CONFIG_LOAD_FAILED instead of reaching a session.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pitabwire/designer/internal/definition"
	"github.com/pitabwire/designer/model"
)

// Store persists configurations.
type Store interface {
	// Save validates cfg and stores it under key, replacing any previous
	// value.
	Save(ctx context.Context, key string, cfg *model.Configuration) error

	// Load returns the configuration stored under key. Returns NOT_FOUND if
	// nothing is stored and CONFIG_LOAD_FAILED if the stored value no
	// longer parses as a valid configuration.
	Load(ctx context.Context, key string) (*model.Configuration, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists the stored keys in ascending order.
	Keys(ctx context.Context) ([]string, error)
}

// Backend names used in logs, metrics and spans.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// MaxKeyLength bounds the length of a persistence key.
const MaxKeyLength = 200

// CheckKey rejects keys that cannot be stored portably.
func CheckKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return model.NewBadRequestError("persistence key is required")
	case len(key) > MaxKeyLength:
		return model.NewBadRequestError(fmt.Sprintf("persistence key exceeds %d characters", MaxKeyLength))
	case strings.ContainsAny(key, "*?[]"):
		return model.NewBadRequestError(fmt.Sprintf("persistence key %q contains pattern characters", key))
	}
	return nil
}

// encode validates cfg and returns its stored form.
func encode(key string, cfg *model.Configuration) ([]byte, error) {
	if err := CheckKey(key); err != nil {
		return nil, err
	}
	valid, err := definition.Validate(cfg)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(valid)
	if err != nil {
		return nil, fmt.Errorf("marshal configuration %q: %w", key, err)
	}
	return data, nil
}

// decode parses a stored value back into a validated configuration.
func decode(key string, data []byte) (*model.Configuration, error) {
	cfg, err := definition.Parse(data)
	if err != nil {
		return nil, model.NewConfigLoadError(key, err)
	}
	return cfg, nil
}

func notFound(key string) error {
	return model.NewNotFoundError(fmt.Sprintf("no configuration saved under %q", key))
}
