package reconciler

import (
	"context"
	"os"
	"sync"
	"time"

	client "github.com/caarlos0/homekit-lupusec"
	logp "github.com/charmbracelet/log"
	"golang.org/x/exp/slices"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "reconciler",
})

// SetLogLevel sets the level of the reconciler logger.
func SetLogLevel(level logp.Level) {
	log.SetLevel(level)
}

const DefaultInterval = 15 * time.Second

// Remote is what the Reconciler reads from.
type Remote interface {
	PanelState(ctx context.Context) (client.PanelState, error)
	Devices(ctx context.Context) ([]client.Device, error)
}

// Snapshot is the last reconciled view of the panel.
type Snapshot struct {
	Panel     client.PanelState
	Devices   []client.Device
	PanelAt   time.Time
	DevicesAt time.Time
}

// Observer is called after every successful reconciliation.
type Observer func(Snapshot)

// Reconciler polls the panel and is the only writer of the local
// snapshot. A failed poll keeps the previous snapshot.
type Reconciler struct {
	remote         Remote
	registry       *Registry
	panelInterval  time.Duration
	deviceInterval time.Duration
	observers      []Observer

	// serialize reconciliations of the same kind, scheduled or not.
	panelLock  sync.Mutex
	deviceLock sync.Mutex

	// device gauge series set by the last device reconciliation, guarded
	// by deviceLock.
	gauged map[deviceLabels]struct{}

	lock      sync.RWMutex
	panel     client.PanelState
	panelAt   time.Time
	devicesAt time.Time
}

type Option func(r *Reconciler)

func WithPanelInterval(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.panelInterval = d
		}
	}
}

func WithDeviceInterval(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.deviceInterval = d
		}
	}
}

func WithObserver(fn Observer) Option {
	return func(r *Reconciler) {
		r.observers = append(r.observers, fn)
	}
}

func New(remote Remote, opts ...Option) *Reconciler {
	r := &Reconciler{
		remote:         remote,
		registry:       &Registry{},
		panelInterval:  DefaultInterval,
		deviceInterval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry gives read access to the reconciled devices.
func (r *Reconciler) Registry() *Registry {
	return r.registry
}

func (r *Reconciler) CurrentPanelState() client.PanelState {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.panel
}

func (r *Reconciler) CurrentDevices() []client.Device {
	return r.registry.Devices()
}

func (r *Reconciler) Snapshot() Snapshot {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return Snapshot{
		Panel:     r.panel,
		Devices:   r.registry.Devices(),
		PanelAt:   r.panelAt,
		DevicesAt: r.devicesAt,
	}
}

// Run reconciles everything once, then keeps polling the panel state and
// the device list on their own intervals until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	r.Reconcile(ctx)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.every(ctx, r.panelInterval, r.ReconcilePanel)
	}()
	go func() {
		defer wg.Done()
		r.every(ctx, r.deviceInterval, r.ReconcileDevices)
	}()
	wg.Wait()
}

func (r *Reconciler) every(ctx context.Context, d time.Duration, fn func(context.Context) error) {
	tick := time.NewTicker(d)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			_ = fn(ctx)
		}
	}
}

// Reconcile refreshes both the panel state and the device list.
func (r *Reconciler) Reconcile(ctx context.Context) {
	_ = r.ReconcilePanel(ctx)
	_ = r.ReconcileDevices(ctx)
}

func (r *Reconciler) ReconcilePanel(ctx context.Context) error {
	r.panelLock.Lock()
	defer r.panelLock.Unlock()

	pollCounter.WithLabelValues("panel").Inc()
	state, err := r.remote.PanelState(ctx)
	if err != nil {
		pollErrorCounter.WithLabelValues("panel").Inc()
		log.Error("could not get panel state", "err", err)
		return err
	}

	r.lock.Lock()
	previous := r.panel
	r.panel = state
	r.panelAt = time.Now()
	r.lock.Unlock()

	panelModeGauge.Set(float64(state.Mode()))
	if previous != state {
		log.Info("panel state changed", "from", previous, "to", state)
	}
	r.notify()
	return nil
}

func (r *Reconciler) ReconcileDevices(ctx context.Context) error {
	r.deviceLock.Lock()
	defer r.deviceLock.Unlock()

	pollCounter.WithLabelValues("devices").Inc()
	devices, err := r.remote.Devices(ctx)
	if err != nil {
		pollErrorCounter.WithLabelValues("devices").Inc()
		log.Error("could not get devices", "err", err)
		return err
	}

	previous := r.registry.Devices()
	r.lock.Lock()
	r.registry.replace(devices)
	r.devicesAt = time.Now()
	r.lock.Unlock()

	logDeviceChanges(previous, r.registry.Devices())
	r.updateDeviceGauges(devices)
	r.notify()
	return nil
}

type deviceLabels struct {
	zone, name string
}

// updateDeviceGauges sets the current series first and only then drops the
// ones of devices that are gone, so a scrape never sees an empty gauge.
func (r *Reconciler) updateDeviceGauges(devices []client.Device) {
	current := make(map[deviceLabels]struct{}, len(devices))
	for _, d := range devices {
		l := deviceLabels{zone: d.Key().String(), name: d.Name}
		current[l] = struct{}{}
		deviceOpenGauge.WithLabelValues(l.zone, l.name).Set(boolAs[float64](d.ContactOpen))
	}
	for l := range r.gauged {
		if _, ok := current[l]; !ok {
			deviceOpenGauge.DeleteLabelValues(l.zone, l.name)
		}
	}
	r.gauged = current
}

// Observe registers fn to be called after every successful
// reconciliation.
func (r *Reconciler) Observe(fn Observer) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.observers = append(r.observers, fn)
}

func (r *Reconciler) notify() {
	r.lock.RLock()
	observers := slices.Clone(r.observers)
	r.lock.RUnlock()
	if len(observers) == 0 {
		return
	}
	snap := r.Snapshot()
	for _, fn := range observers {
		fn(snap)
	}
}

func logDeviceChanges(previous, current []client.Device) {
	before := make(map[client.Key]client.Device, len(previous))
	for _, d := range previous {
		before[d.Key()] = d
	}
	for _, d := range current {
		old, ok := before[d.Key()]
		switch {
		case !ok:
			log.Info("device", "zone", d.Key(), "name", d.Name, "open", d.ContactOpen)
		case old.ContactOpen != d.ContactOpen:
			log.Info("contact", "zone", d.Key(), "name", d.Name, "open", d.ContactOpen)
		}
	}
}

func boolAs[T int | float64](b bool) T {
	if b {
		return 1
	}
	return 0
}
