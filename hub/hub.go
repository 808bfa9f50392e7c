// Package hub implements the single-slot, latest-value store that decouples the processing
// pipeline from its consumers.
//
// The hub keeps no history. A slow reader skips intermediate states instead of holding back the
// producer. Publishing swaps a pointer, so a reader always observes one complete state.
package hub

import (
	"time"

	"go.uber.org/atomic"

	"github.com/e2e-ad/rover/sensordata"
)

// Hub holds the most recently published FusedState.
type Hub struct {
	latest        *atomic.Pointer[sensordata.FusedState]
	publishes     *atomic.Uint64
	lastPublished *atomic.Time
}

// Stats describes the hub's publishing activity.
type Stats struct {
	Publishes     uint64    `json:"publishes"`
	LastPublished time.Time `json:"last_published"`
}

// New returns an empty hub.
func New() *Hub {
	return &Hub{
		latest:        atomic.NewPointer[sensordata.FusedState](nil),
		publishes:     atomic.NewUint64(0),
		lastPublished: atomic.NewTime(time.Time{}),
	}
}

// Publish replaces the stored state. The caller must not modify state afterwards. A nil state is
// ignored.
func (h *Hub) Publish(state *sensordata.FusedState) {
	if state == nil {
		return
	}
	h.latest.Store(state)
	h.publishes.Inc()
	h.lastPublished.Store(time.Now())
}

// Latest returns the most recently published state, or false if nothing was published yet.
func (h *Hub) Latest() (*sensordata.FusedState, bool) {
	state := h.latest.Load()
	return state, state != nil
}

// Stats returns the publish count and the time of the last publish.
func (h *Hub) Stats() Stats {
	return Stats{Publishes: h.publishes.Load(), LastPublished: h.lastPublished.Load()}
}
