// Package health reports whether HAmq channels hold a live broker channel
// and how much state they would replay after a reset.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Report is the health of every registered channel
type Report struct {
	Status    Status                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Duration  time.Duration            `json:"duration"`
	Channels  map[string]ChannelReport `json:"channels"`
}

// Registry tracks the channels whose health is reported
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*channelEntry
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]*channelEntry),
	}
}

// Register reports on channel under name, replacing any channel already
// registered under that name
func (r *Registry) Register(name string, channel ChannelState, options ...ChannelOption) {
	entry := &channelEntry{name: name, channel: channel}
	for _, opt := range options {
		opt(entry)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[name] = entry
}

// Check inspects all channels concurrently. Reading a channel's state waits
// while that channel is reconnecting, so channels still unread when ctx is
// done are reported unhealthy.
func (r *Registry) Check(ctx context.Context) Report {
	start := time.Now()

	r.mu.RLock()
	entries := make([]*channelEntry, 0, len(r.channels))
	for _, entry := range r.channels {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	reports := make(map[string]ChannelReport, len(entries))
	overall := StatusHealthy

	resultChan := make(chan ChannelReport, len(entries))
	for _, entry := range entries {
		go func(entry *channelEntry) {
			resultChan <- entry.inspect()
		}(entry)
	}

collectLoop:
	for range entries {
		select {
		case report := <-resultChan:
			reports[report.Name] = report
			overall = worst(overall, report.Status)

		case <-ctx.Done():
			for _, entry := range entries {
				if _, exists := reports[entry.name]; !exists {
					reports[entry.name] = ChannelReport{
						Name:    entry.name,
						Status:  StatusUnhealthy,
						Message: "Channel is reconnecting",
						Error:   ctx.Err().Error(),
					}
				}
			}
			overall = StatusUnhealthy
			break collectLoop
		}
	}

	return Report{
		Status:    overall,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
		Channels:  reports,
	}
}

func worst(current, next Status) Status {
	switch {
	case current == StatusUnhealthy || next == StatusUnhealthy:
		return StatusUnhealthy
	case current == StatusDegraded || next == StatusDegraded:
		return StatusDegraded
	}
	return StatusHealthy
}

// Handler serves the registry's Report as JSON
type Handler struct {
	registry *Registry
	timeout  time.Duration
}

// NewHandler creates a handler that waits at most timeout for channel state
func NewHandler(registry *Registry, timeout time.Duration) *Handler {
	return &Handler{
		registry: registry,
		timeout:  timeout,
	}
}

// ServeHTTP implements http.Handler. Degraded still answers 200.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report := h.registry.Check(ctx)

	statusCode := http.StatusOK
	if report.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		http.Error(w, "Failed to encode health response", http.StatusInternalServerError)
	}
}
