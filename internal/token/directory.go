package token

import (
	"errors"
	"sync"
)

var ErrUnknownContract = errors.New("unknown token contract")

// Directory resolves a token contract address to its ownership registry.
type Directory interface {
	Get(contract string) (Registry, error)
	Add(contract string, registry Registry)
}

type directory struct {
	mu        sync.RWMutex
	contracts map[string]Registry
}

func NewDirectory() Directory {
	return &directory{contracts: make(map[string]Registry)}
}

func (d *directory) Get(contract string) (Registry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	registry, ok := d.contracts[contract]
	if !ok {
		return nil, ErrUnknownContract
	}

	return registry, nil
}

func (d *directory) Add(contract string, registry Registry) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.contracts[contract] = registry
}
