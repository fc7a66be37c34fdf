package tester

import (
	"fmt"

	"github.com/aretw0/stacktester/pkg/domain"
	"github.com/aretw0/stacktester/pkg/tuple"
)

func asBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	}
	return nil, fmt.Errorf("%w: expected bytes, got %T", domain.ErrInvalidArgument, v)
}

func asInt(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	}
	return 0, fmt.Errorf("%w: expected integer, got %T", domain.ErrInvalidArgument, v)
}

// packValue encodes a resolved stack value as a single-element tuple.
func packValue(v any) ([]byte, error) {
	switch v.(type) {
	case nil, []byte, string, int, int64, tuple.Tuple:
		return tuple.Pack(v), nil
	}
	return nil, fmt.Errorf("%w: cannot log %T", domain.ErrInvalidArgument, v)
}
