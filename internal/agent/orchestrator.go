package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jurepetric/avatard/internal/avatar"
	"github.com/jurepetric/avatard/internal/observability"
	"github.com/jurepetric/avatard/internal/realtime"
	"github.com/jurepetric/avatard/internal/room"
)

// RoomDeleter is the slice of the management API the orchestrator needs for
// teardown.
type RoomDeleter interface {
	DeleteRoom(ctx context.Context, name string) error
}

// Options wires one session. Bridge and adapter construction is deferred so
// the orchestrator controls when the first network-affecting call happens.
type Options struct {
	RoomName  string
	Connector room.Connector

	// NewBridge builds the avatar bridge. Construction is local; it fails
	// only on malformed configuration.
	NewBridge func() (avatar.Bridge, error)

	// NewAdapter starts the interactive backend session.
	NewAdapter func(ctx context.Context) (realtime.Adapter, error)

	Deleter RoomDeleter
	Agent   *Agent
	Logger  *slog.Logger
	Metrics *observability.Metrics

	PollInterval  time.Duration
	IdleThreshold int
}

// Orchestrator runs one session end to end. A single Orchestrator serves a
// single room occupancy; concurrent sessions use independent instances.
type Orchestrator struct {
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
	agent   *Agent

	runCtx context.Context

	stateMu sync.Mutex
	state   State

	// Monitor-loop state. Mutated only by the monitor goroutine.
	idleTicks int
	lastCount int

	room    room.Room
	bridge  avatar.Bridge
	adapter realtime.Adapter

	cleanupOnce sync.Once
}

func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Connector == nil {
		return nil, fmt.Errorf("room connector is required")
	}
	if opts.NewBridge == nil || opts.NewAdapter == nil {
		return nil, fmt.Errorf("bridge and adapter factories are required")
	}
	if opts.Deleter == nil {
		return nil, fmt.Errorf("room deleter is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Agent == nil {
		opts.Agent = NewAgent("")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.IdleThreshold <= 0 {
		opts.IdleThreshold = 4
	}
	return &Orchestrator{
		opts:      opts,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		agent:     opts.Agent,
		runCtx:    context.Background(),
		state:     StateConnecting,
		lastCount: -1,
	}, nil
}

func (o *Orchestrator) State() State {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.stateMu.Lock()
	o.state = s
	o.stateMu.Unlock()
	o.logger.Info("session state changed", "state", string(s))
}

func (o *Orchestrator) countEvent(event string) {
	if o.metrics != nil {
		o.metrics.SessionEvents.WithLabelValues(event).Inc()
	}
}

// Run drives the session protocol. Each step is a precondition for the next;
// a failure anywhere proceeds to the shared cleanup path, which runs exactly
// once no matter where the fault occurred.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.runCtx = ctx
	if o.metrics != nil {
		o.metrics.ActiveSessions.Inc()
		defer o.metrics.ActiveSessions.Dec()
	}

	r, err := o.opts.Connector.Connect(ctx)
	if err != nil {
		return o.fail(fmt.Errorf("connect room: %w", err))
	}
	o.room = r
	o.countEvent("connected")
	o.logger.Info("room connected",
		"room", r.Name(),
		"identity", r.LocalIdentity(),
		"remote_participants", len(r.RemoteParticipants()))
	o.setState(StateProvisioning)

	bridge, err := o.opts.NewBridge()
	if err != nil {
		return o.fail(fmt.Errorf("build avatar bridge: %w", err))
	}
	o.bridge = bridge

	if err := bridge.Start(ctx, r); err != nil {
		return o.fail(fmt.Errorf("start avatar bridge: %w", err))
	}
	o.countEvent("avatar_started")
	o.logger.Info("avatar bridge started", "room", r.Name())

	adapter, err := o.opts.NewAdapter(ctx)
	if err != nil {
		return o.fail(fmt.Errorf("start interactive session: %w", err))
	}
	o.adapter = adapter

	r.OnData(o.onData)
	o.setState(StateLive)
	o.countEvent("live")

	o.monitor(r)

	o.setState(StateDraining)
	o.countEvent("idle_teardown")
	o.cleanup()
	return nil
}

// fail converts a fatal startup error into the terminal transition.
func (o *Orchestrator) fail(err error) error {
	o.logger.Error("session aborted", "state", string(o.State()), "error", err)
	o.countEvent("fatal")
	o.setState(StateDraining)
	o.cleanup()
	return err
}

// cleanup runs the two best-effort teardown actions. A failure in one never
// prevents the other, and no error escapes. The session ends Closed
// unconditionally.
func (o *Orchestrator) cleanup() {
	o.cleanupOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if o.adapter != nil {
			if err := o.adapter.Close(); err != nil {
				o.logger.Debug("adapter close failed", "error", err)
			}
		}
		if o.bridge != nil {
			if err := o.bridge.Close(); err != nil {
				o.logger.Warn("avatar bridge close failed", "error", err)
			}
		}

		name := o.opts.RoomName
		if o.room != nil && o.room.Name() != "" {
			name = o.room.Name()
		}
		if name != "" {
			if err := o.opts.Deleter.DeleteRoom(ctx, name); err != nil {
				o.logger.Warn("room deletion failed", "room", name, "error", err)
			} else {
				o.logger.Info("room deleted", "room", name)
			}
		}

		if o.room != nil {
			_ = o.room.Disconnect()
		}

		o.countEvent("cleanup")
		o.setState(StateClosed)
	})
}
