package agent

import (
	"time"

	"github.com/jurepetric/avatard/internal/room"
)

// monitor polls remote presence until the idle threshold is reached. There is
// deliberately no cancellation path in here: the loop exits only through the
// threshold, matching the debounce contract. A brief empty room (client
// reconnect, page reload) must not tear the session down.
func (o *Orchestrator) monitor(r room.Room) {
	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()

	for range ticker.C {
		if o.observe(len(r.RemoteParticipants())) {
			return
		}
	}
}

// observe applies one monitor tick and reports whether teardown should start.
// An empty room increments the idle counter; any positive count resets it to
// zero, cancelling a pending teardown.
func (o *Orchestrator) observe(count int) bool {
	if count != o.lastCount {
		o.logger.Info("remote participant count changed",
			"from", o.lastCount, "to", count)
		o.lastCount = count
	}

	if count > 0 {
		o.idleTicks = 0
		return false
	}

	o.idleTicks++
	if o.idleTicks >= o.opts.IdleThreshold {
		o.logger.Info("room empty past idle threshold",
			"ticks", o.idleTicks, "threshold", o.opts.IdleThreshold)
		return true
	}
	return false
}

// IdleTicks reports the current consecutive-empty-tick count.
func (o *Orchestrator) IdleTicks() int { return o.idleTicks }
