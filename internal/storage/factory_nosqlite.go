//go:build !sqlite

package storage

import "fmt"

func DefaultStoreKind() string { return "memory" }

func NewStore(kind, _ string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return nil, fmt.Errorf("sqlite backend unavailable in this build; rebuild with -tags sqlite")
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
