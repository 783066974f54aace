package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Keyer generates deterministic cache keys from operation calls.
//
// Contract:
// - Determinism: same logical inputs must produce the same key, regardless of
//   map iteration order, process identity or pointer identity.
// - Isolation: different operation names must never produce the same key.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key generates a cache key from the operation name and its arguments.
	Key(name string, args []any, kwargs map[string]any) (string, error)
}

// DefaultKeyer generates SHA-256 based cache keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic cache key. See ComputeKey.
func (k *DefaultKeyer) Key(name string, args []any, kwargs map[string]any) (string, error) {
	return ComputeKey(name, args, kwargs)
}

// ComputeKey returns the 64 character hex SHA-256 of
//
//	len(name):name:canonical(args):canonical(kwargs)
//
// The length prefix keeps operation names from bleeding into the argument
// encoding, so distinct names cannot collide.
func ComputeKey(name string, args []any, kwargs map[string]any) (string, error) {
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	argsJSON, err := canonicalJSON(args)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize args: %w", err)
	}
	kwargsJSON, err := canonicalJSON(kwargs)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize kwargs: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(strconv.Itoa(len(name))))
	h.Write([]byte{':'})
	h.Write([]byte(name))
	h.Write([]byte{':'})
	h.Write(argsJSON)
	h.Write([]byte{':'})
	h.Write(kwargsJSON)

	return hex.EncodeToString(h.Sum(nil)), nil
}

// canonicalJSON normalizes v through a JSON round trip so that structs, typed
// maps and pointers compare by value, then encodes it with sorted keys.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return canonicalize(generic)
}

// canonicalize produces a deterministic JSON representation of the input.
// Maps are sorted by key to ensure consistent ordering.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

var _ Keyer = (*DefaultKeyer)(nil)
