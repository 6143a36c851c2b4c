package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Checker reports whether a dependency is reachable
type Checker interface {
	// Type returns the dependency kind, e.g. "postgres"
	Type() string

	// HealthCheck returns nil when the dependency answers
	HealthCheck(ctx context.Context) error
}

// Result is the outcome of one check
type Result struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency"`
}

// Registry manages named checkers
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewRegistry creates a new checker registry
func NewRegistry() *Registry {
	return &Registry{
		checkers: make(map[string]Checker),
	}
}

// Register adds a checker to the registry
func (r *Registry) Register(name string, checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = checker
}

// Unregister removes a checker from the registry
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.checkers, name)
}

// List returns all registered checker names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckAll runs every checker concurrently and returns the results by name
// order. ok is false when any check failed.
func (r *Registry) CheckAll(ctx context.Context) (results []Result, ok bool) {
	r.mu.RLock()
	checkers := make(map[string]Checker, len(r.checkers))
	for name, c := range r.checkers {
		checkers[name] = c
	}
	r.mu.RUnlock()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		all = make([]Result, 0, len(checkers))
	)
	for name, c := range checkers {
		wg.Add(1)
		go func(name string, c Checker) {
			defer wg.Done()

			start := time.Now()
			err := c.HealthCheck(ctx)
			res := Result{
				Name:    name,
				Type:    c.Type(),
				Healthy: err == nil,
				Latency: time.Since(start).Round(time.Millisecond).String(),
			}
			if err != nil {
				res.Error = err.Error()
			}

			mu.Lock()
			all = append(all, res)
			mu.Unlock()
		}(name, c)
	}
	wg.Wait()

	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	ok = true
	for _, res := range all {
		if !res.Healthy {
			ok = false
		}
	}
	return all, ok
}
