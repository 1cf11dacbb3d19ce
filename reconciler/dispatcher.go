package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	client "github.com/caarlos0/homekit-lupusec"
)

// ErrInvalidArgument is returned by Dispatch for unknown targets.
var ErrInvalidArgument = errors.New("invalid argument")

// Target is the mode a caller wants the panel in.
type Target string

const (
	TargetDisarm  Target = "disarm"
	TargetArmAway Target = "armAway"
	TargetArmHome Target = "armHome"
)

// Mode maps the target to the panel mode.
func (t Target) Mode() (client.Mode, bool) {
	switch t {
	case TargetDisarm:
		return client.ModeDisarmed, true
	case TargetArmAway:
		return client.ModeArmedAway, true
	case TargetArmHome:
		return client.ModeArmedHome, true
	default:
		return 0, false
	}
}

// ParseTarget validates a target received from the outside world.
func ParseTarget(s string) (Target, error) {
	t := Target(s)
	if _, ok := t.Mode(); !ok {
		return "", fmt.Errorf("%w: unknown target %q", ErrInvalidArgument, s)
	}
	return t, nil
}

// Commander is what the Dispatcher writes to.
type Commander interface {
	SetMode(ctx context.Context, mode client.Mode)
}

// Dispatcher sends mode changes to the panel, and asks for a
// reconciliation right after, so the new state shows up before the next
// scheduled poll.
type Dispatcher struct {
	remote    Commander
	reconcile func(context.Context)
	settle    time.Duration
}

type DispatcherOption func(d *Dispatcher)

// WithSettleDelay waits before reconciling after a command, the panel takes
// a moment to report the new mode.
func WithSettleDelay(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		disp.settle = d
	}
}

func NewDispatcher(remote Commander, reconcile func(context.Context), opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		remote:    remote,
		reconcile: reconcile,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch validates the target and returns. The mode is written to the
// panel in the background, followed by a reconciliation. Whether the panel
// accepted it is only visible in a later snapshot. Only unknown targets
// return an error.
func (d *Dispatcher) Dispatch(ctx context.Context, target Target) error {
	mode, ok := target.Mode()
	if !ok {
		return fmt.Errorf("%w: unknown target %q", ErrInvalidArgument, target)
	}

	log.Info("dispatch", "target", target, "mode", mode)
	dispatchCounter.WithLabelValues(string(target)).Inc()

	// the write outlives the request that asked for it.
	ctx = context.WithoutCancel(ctx)
	go func() {
		d.remote.SetMode(ctx, mode)
		if d.reconcile == nil {
			return
		}
		if d.settle > 0 {
			time.Sleep(d.settle)
		}
		d.reconcile(ctx)
	}()
	return nil
}
