package registry

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"objdetect-node/internal/domain/port"
)

// RuntimeFactory создаёт новый экземпляр рантайма
type RuntimeFactory func() (port.Runtime, error)

// RuntimeRegistry хранилище общих рантаймов процесса.
// Рантайм создаётся при первом запросе и переиспользуется всеми узлами.
type RuntimeRegistry struct {
	mu       sync.RWMutex
	runtimes map[string]port.Runtime
	group    singleflight.Group
}

// NewRuntimeRegistry создаёт пустой реестр
func NewRuntimeRegistry() *RuntimeRegistry {
	return &RuntimeRegistry{
		runtimes: make(map[string]port.Runtime),
	}
}

// GetOrCreate возвращает рантайм по имени, создаёт его если не найден.
// Одновременные первые вызовы создают рантайм один раз.
func (r *RuntimeRegistry) GetOrCreate(name string, create RuntimeFactory) (port.Runtime, error) {
	if rt, ok := r.Get(name); ok {
		return rt, nil
	}

	v, err, _ := r.group.Do(name, func() (interface{}, error) {
		if rt, ok := r.Get(name); ok {
			return rt, nil
		}

		rt, err := create()
		if err != nil {
			return nil, fmt.Errorf("create runtime %q: %w", name, err)
		}

		r.mu.Lock()
		r.runtimes[name] = rt
		r.mu.Unlock()

		return rt, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(port.Runtime), nil
}

// Get возвращает рантайм, если он уже создан
func (r *RuntimeRegistry) Get(name string) (port.Runtime, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.runtimes[name]
	return rt, ok
}

// Close закрывает все рантаймы. Вызывается один раз при завершении процесса.
func (r *RuntimeRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	for name, rt := range r.runtimes {
		if cerr := rt.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close runtime %q: %w", name, cerr))
		}
		delete(r.runtimes, name)
	}

	return err
}
