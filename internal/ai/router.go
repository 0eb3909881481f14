package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Router selects a provider per task type. The first registered provider
// serves any task that has no explicit assignment.
//
// A failed call is returned to the caller as is; the router never retries
// or falls through to another provider.
type Router struct {
	providers map[string]Provider
	order     []string
	byTask    map[TaskType]string
	mu        sync.RWMutex
}

// NewRouter creates a new AI router.
func NewRouter() *Router {
	return &Router{
		providers: make(map[string]Provider),
		byTask:    make(map[TaskType]string),
	}
}

// Register adds a provider to the router. When tasks are given the provider
// becomes the assignment for each of them, replacing any earlier one.
func (r *Router) Register(name string, provider Provider, tasks ...TaskType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = provider
	for _, t := range tasks {
		r.byTask[t] = name
	}
}

// Route returns the provider name that would serve the given task.
func (r *Router) Route(task TaskType) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, _, ok := r.route(task)
	return name, ok
}

func (r *Router) route(task TaskType) (string, Provider, bool) {
	if name, ok := r.byTask[task]; ok {
		return name, r.providers[name], true
	}
	if len(r.order) == 0 {
		return "", nil, false
	}
	name := r.order[0]
	return name, r.providers[name], true
}

// Complete sends the request to the provider assigned to req.Task.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	r.mu.RLock()
	name, provider, ok := r.route(req.Task)
	r.mu.RUnlock()
	if !ok {
		return CompletionResponse{}, ErrNoProvider
	}

	resp, err := provider.Complete(ctx, req)
	if err != nil {
		slog.Warn("AI provider failed",
			"provider", name,
			"task", req.Task.String(),
			"error", err,
		)
		return CompletionResponse{}, fmt.Errorf("%s: %w", name, err)
	}

	slog.Debug("AI request completed",
		"provider", name,
		"task", req.Task.String(),
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
	)
	return resp, nil
}

// HasProvider returns true if at least one provider is registered.
func (r *Router) HasProvider() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers) > 0
}

// HealthCheck checks every registered provider and returns the first failure.
func (r *Router) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		if err := r.providers[name].HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
