// Package cache holds read-through caches for list endpoints. Writers drop
// whole key prefixes rather than tracking individual entries.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"
)

// Key prefixes shared by the writers that must invalidate them.
const (
	PrefixProducts      = "products:list"
	PrefixLowStock      = "stock:low"
	PrefixCreditSummary = "credit:summary"
)

type Cache interface {
	// GetJSON decodes a cached value into dest and reports whether it was found.
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// Key builds "<prefix>:<md5 of params as JSON>".
func Key(prefix string, params interface{}) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%x", prefix, md5.Sum(data)), nil
}

type noop struct{}

// NewNoop returns a Cache that never hits.
func NewNoop() Cache { return noop{} }

func (noop) GetJSON(context.Context, string, interface{}) (bool, error) { return false, nil }
func (noop) SetJSON(context.Context, string, interface{}, time.Duration) error {
	return nil
}
func (noop) DeletePrefix(context.Context, string) error { return nil }
func (noop) Close() error                               { return nil }
