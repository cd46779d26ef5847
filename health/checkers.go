package health

import (
	"fmt"

	hamq "github.com/buybrain/HAmq"
)

// ChannelState is the view of a hamq.Channel the registry needs
type ChannelState interface {
	ID() string
	Open() bool
	Resets() int64
	Topology() hamq.Topology
}

// ChannelReport is the health of one channel together with the size of the
// state it replays after a reset
type ChannelReport struct {
	Name      string `json:"name"`
	ChannelID string `json:"channel_id,omitempty"`
	Status    Status `json:"status"`
	Message   string `json:"message,omitempty"`
	Open      bool   `json:"open"`
	Resets    int64  `json:"resets"`
	Exchanges int    `json:"exchanges"`
	Queues    int    `json:"queues"`
	Bindings  int    `json:"bindings"`
	Consumers int    `json:"consumers"`
	// Prefetch is nil when no prefetch was ever set
	Prefetch *int   `json:"prefetch,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ChannelOption configures how one registered channel is judged
type ChannelOption func(*channelEntry)

// WithMaxResets marks the channel unhealthy once it reset more than max times
func WithMaxResets(max int64) ChannelOption {
	return func(e *channelEntry) {
		e.maxResets = max
	}
}

type channelEntry struct {
	name      string
	channel   ChannelState
	maxResets int64
}

// inspect judges the channel. A channel without a live transport channel is
// degraded, not unhealthy: it reopens on next use.
func (e *channelEntry) inspect() ChannelReport {
	topology := e.channel.Topology()

	report := ChannelReport{
		Name:      e.name,
		ChannelID: e.channel.ID(),
		Open:      e.channel.Open(),
		Resets:    e.channel.Resets(),
		Exchanges: len(topology.Exchanges),
		Queues:    len(topology.Queues),
		Bindings:  len(topology.Bindings),
		Consumers: len(topology.Consumers),
	}
	if topology.Prefetch != nil {
		amount := topology.Prefetch.Amount()
		report.Prefetch = &amount
	}

	switch {
	case e.maxResets > 0 && report.Resets > e.maxResets:
		report.Status = StatusUnhealthy
		report.Message = fmt.Sprintf("Channel reset %d times", report.Resets)
	case !report.Open:
		report.Status = StatusDegraded
		report.Message = "Channel is closed and will reopen on next use"
	default:
		report.Status = StatusHealthy
		report.Message = "Channel is open"
	}

	return report
}
