package devices

import (
	"context"
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/pma-simulator/internal/core/environment"
)

const (
	defaultQueueSize      = 256
	defaultUpdateInterval = 30 * time.Second
	defaultRandomMin      = 30 * time.Second
	defaultRandomMax      = 5 * time.Minute
)

// Device is the simulation engine shared by every variant. It owns the
// three runtime loops (event dispatch, random event generation, periodic
// state updates), the command pipeline and all state access. Variant
// logic is delegated to the attached Behavior.
type Device struct {
	info     Info
	behavior Behavior
	commands map[string]bool
	log      *logrus.Logger

	mu            sync.RWMutex
	online        bool
	enabled       bool
	lastSeen      time.Time
	lastError     string
	state         map[string]interface{}
	attributes    map[string]interface{}
	responseDelay time.Duration
	failureRate   float64
	savedRate     float64
	rateForced    bool
	randomEvents  bool
	env           environment.Conditions
	randomMin     time.Duration
	randomMax     time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand

	listenerMu sync.RWMutex
	listeners  []EventListener

	events  chan Event
	dropped atomic.Int64

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	timerMu sync.Mutex
	timers  map[string]*time.Timer
}

// NewDevice assembles a device around a behavior. The device is created
// online, enabled and stopped; call Start to launch its loops.
func NewDevice(info Info, behavior Behavior, opts Options, log *logrus.Logger) *Device {
	if log == nil {
		log = logrus.New()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.RandomEventMin <= 0 {
		opts.RandomEventMin = defaultRandomMin
	}
	if opts.RandomEventMax < opts.RandomEventMin {
		opts.RandomEventMax = opts.RandomEventMin + defaultRandomMax
	}
	d := &Device{
		info:          info,
		behavior:      behavior,
		commands:      make(map[string]bool),
		log:           log,
		online:        true,
		enabled:       true,
		lastSeen:      time.Now(),
		state:         copyMap(behavior.InitialState()),
		attributes:    copyMap(behavior.Attributes()),
		responseDelay: opts.ResponseDelay,
		failureRate:   opts.FailureRate,
		randomEvents:  opts.RandomEvents,
		env:           environment.DefaultConditions(),
		randomMin:     opts.RandomEventMin,
		randomMax:     opts.RandomEventMax,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		events:        make(chan Event, opts.QueueSize),
		timers:        make(map[string]*time.Timer),
	}
	if d.state == nil {
		d.state = make(map[string]interface{})
	}
	if d.attributes == nil {
		d.attributes = make(map[string]interface{})
	}
	for _, name := range behavior.Commands() {
		d.commands[name] = true
	}
	return d
}

// Info returns a copy of the device identity.
func (d *Device) Info() Info { return d.info }

// ID returns the device identifier.
func (d *Device) ID() string { return d.info.ID }

// Name returns the device display name.
func (d *Device) Name() string { return d.info.Name }

// Type returns the base variant type.
func (d *Device) Type() DeviceType { return d.info.Type }

// TypeTag returns the external type tag, including sensor subtypes.
func (d *Device) TypeTag() string { return d.behavior.TypeTag() }

// Features lists the capability names supported by the variant.
func (d *Device) Features() []string { return d.behavior.Features() }

// Commands lists the accepted command names.
func (d *Device) Commands() []string { return d.behavior.Commands() }

// Start launches the dispatch, random event and state update loops.
// Starting an already running device is a no-op.
func (d *Device) Start(ctx context.Context) error {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if d.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.wg.Add(3)
	go func() {
		defer d.wg.Done()
		d.dispatchLoop(runCtx)
	}()
	go func() {
		defer d.wg.Done()
		d.randomEventLoop(runCtx)
	}()
	go func() {
		defer d.wg.Done()
		d.updateLoop(runCtx)
	}()
	d.log.WithFields(logrus.Fields{
		"device_id":   d.info.ID,
		"device_type": d.TypeTag(),
		"name":        d.info.Name,
	}).Info("Device started")
	return nil
}

// Stop cancels the loops, waits for them to exit and releases pending
// timers. Stopping a stopped or never started device is a no-op.
func (d *Device) Stop() error {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if !d.running {
		return nil
	}
	d.cancel()
	d.wg.Wait()
	d.running = false
	d.cancelAllActions()
	d.log.WithFields(logrus.Fields{
		"device_id": d.info.ID,
		"name":      d.info.Name,
	}).Info("Device stopped")
	return nil
}

// IsRunning reports whether the loops are active.
func (d *Device) IsRunning() bool {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	return d.running
}

// ExecuteCommand runs a command through the validation pipeline: offline
// check, simulated response delay, probabilistic failure, command table
// lookup and finally the variant handler. Failures are reported in the
// result, never as panics.
func (d *Device) ExecuteCommand(ctx context.Context, cmd Command) CommandResult {
	started := time.Now()
	if !d.IsEnabled() {
		msg := "device disabled"
		d.setLastError(msg)
		return failureResult(d.info.ID, cmd.Name, started, msg)
	}
	if !d.Online() {
		msg := "device offline"
		d.setLastError(msg)
		return failureResult(d.info.ID, cmd.Name, started, msg)
	}
	if delay := d.ResponseDelay(); delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			msg := fmt.Sprintf("command cancelled: %v", ctx.Err())
			d.setLastError(msg)
			return failureResult(d.info.ID, cmd.Name, started, msg)
		case <-timer.C:
		}
	}
	if rate := d.FailureRate(); rate > 0 && d.randomFloat() < rate {
		msg := fmt.Sprintf("simulated failure executing %s", cmd.Name)
		d.setLastError(msg)
		d.EmitEvent(EventError, map[string]interface{}{
			"command": cmd.Name,
			"error":   msg,
		})
		d.log.WithFields(logrus.Fields{
			"device_id": d.info.ID,
			"command":   cmd.Name,
		}).Debug("Injected simulated command failure")
		return failureResult(d.info.ID, cmd.Name, started, msg)
	}
	if !d.commands[cmd.Name] {
		msg := fmt.Sprintf("unknown command: %s", cmd.Name)
		d.setLastError(msg)
		return failureResult(d.info.ID, cmd.Name, started, msg)
	}
	result, err := d.invokeHandler(cmd)
	if err != nil {
		d.setLastError(err.Error())
		return failureResult(d.info.ID, cmd.Name, started, err.Error())
	}
	d.touch()
	return successResult(d.info.ID, cmd.Name, started, result)
}

func (d *Device) invokeHandler(cmd Command) (result map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithFields(logrus.Fields{
				"device_id": d.info.ID,
				"command":   cmd.Name,
				"panic":     r,
			}).Error("Command handler panicked")
			result = nil
			err = fmt.Errorf("command %s panicked: %v", cmd.Name, r)
		}
	}()
	return d.behavior.HandleCommand(d, cmd)
}

// ForceUpdate runs one state update tick immediately, outside the
// periodic loop.
func (d *Device) ForceUpdate() {
	d.safeUpdateTick()
}

// AddListener registers an event listener. Listeners are invoked in
// registration order from the dispatch loop; a panicking listener is
// isolated and does not affect the others.
func (d *Device) AddListener(fn EventListener) {
	if fn == nil {
		return
	}
	d.listenerMu.Lock()
	d.listeners = append(d.listeners, fn)
	d.listenerMu.Unlock()
}

// EmitEvent queues an event for dispatch and returns it. When the queue
// is full the oldest queued event is dropped to make room.
func (d *Device) EmitEvent(eventType EventType, data map[string]interface{}) Event {
	ev := newEvent(d.info.ID, eventType, data)
	d.push(ev)
	return ev
}

// DroppedEvents reports how many events were discarded due to queue
// overflow.
func (d *Device) DroppedEvents() int64 {
	return d.dropped.Load()
}

// Online reports connectivity.
func (d *Device) Online() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.online
}

// SetOnline flips connectivity and emits the matching connection event.
// Setting the current value is a no-op.
func (d *Device) SetOnline(online bool) {
	d.mu.Lock()
	if d.online == online {
		d.mu.Unlock()
		return
	}
	d.online = online
	if online {
		d.lastSeen = time.Now()
	}
	d.mu.Unlock()
	if online {
		d.EmitEvent(EventConnectionRestored, nil)
	} else {
		d.EmitEvent(EventConnectionLost, nil)
	}
	d.log.WithFields(logrus.Fields{
		"device_id": d.info.ID,
		"online":    online,
	}).Info("Device connectivity changed")
}

// IsEnabled reports whether the device participates in the simulation.
func (d *Device) IsEnabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// SetEnabled pauses or resumes simulation participation. A disabled
// device rejects commands and produces no random events or state updates.
func (d *Device) SetEnabled(enabled bool) {
	d.mu.Lock()
	d.enabled = enabled
	d.mu.Unlock()
}

// LastSeen reports the time of the last successful interaction.
func (d *Device) LastSeen() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastSeen
}

// LastError reports the most recent failure message, if any.
func (d *Device) LastError() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastError
}

// InjectError records an error and emits an error event without touching
// device state. Used for fault injection.
func (d *Device) InjectError(message string) {
	d.setLastError(message)
	d.EmitEvent(EventError, map[string]interface{}{"error": message})
}

// FailureRate returns the probability of simulated command failures.
func (d *Device) FailureRate() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.failureRate
}

// SetFailureRate sets the simulated failure probability, clamped to
// [0, 1]. It cancels any pending ForceFailures revert.
func (d *Device) SetFailureRate(rate float64) {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	d.cancelAction("failure_revert")
	d.mu.Lock()
	d.failureRate = rate
	d.rateForced = false
	d.mu.Unlock()
}

// ForceFailures raises the failure rate to 1.0 for the given duration and
// then restores the previous rate. Re-arming extends the window without
// losing the original rate.
func (d *Device) ForceFailures(duration time.Duration) {
	d.mu.Lock()
	if !d.rateForced {
		d.savedRate = d.failureRate
		d.rateForced = true
	}
	d.failureRate = 1.0
	d.mu.Unlock()
	d.scheduleAction("failure_revert", duration, func() {
		d.mu.Lock()
		restored := d.rateForced
		if restored {
			d.failureRate = d.savedRate
			d.rateForced = false
		}
		d.mu.Unlock()
		if restored {
			d.log.WithFields(logrus.Fields{
				"device_id": d.info.ID,
			}).Info("Simulated failure window ended")
		}
	})
}

// ResponseDelay returns the simulated command latency.
func (d *Device) ResponseDelay() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.responseDelay
}

// SetResponseDelay adjusts the simulated command latency.
func (d *Device) SetResponseDelay(delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	d.mu.Lock()
	d.responseDelay = delay
	d.mu.Unlock()
}

// RandomEventsEnabled reports whether spontaneous events are generated.
func (d *Device) RandomEventsEnabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.randomEvents
}

// SetRandomEvents toggles spontaneous event generation.
func (d *Device) SetRandomEvents(enabled bool) {
	d.mu.Lock()
	d.randomEvents = enabled
	d.mu.Unlock()
}

// Environment returns the ambient conditions last pushed to the device.
func (d *Device) Environment() environment.Conditions {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.env
}

// UpdateEnvironment replaces the ambient conditions used by state update
// ticks.
func (d *Device) UpdateEnvironment(env environment.Conditions) {
	d.mu.Lock()
	d.env = env
	d.mu.Unlock()
}

// State returns a deep copy of the device state.
func (d *Device) State() map[string]interface{} {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return copyMap(d.state)
}

// Attributes returns a deep copy of the capability metadata.
func (d *Device) Attributes() map[string]interface{} {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return copyMap(d.attributes)
}

// StateValue returns a copy of a single state entry.
func (d *Device) StateValue(key string) (interface{}, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.state[key]
	if !ok {
		return nil, false
	}
	return copyValue(v), true
}

// MergeState overlays values onto the state without emitting events.
// Intended for seeding and configuration import before a device starts.
func (d *Device) MergeState(values map[string]interface{}) {
	if len(values) == 0 {
		return
	}
	d.mu.Lock()
	for k, v := range values {
		d.state[k] = copyValue(v)
	}
	d.mu.Unlock()
}

// MergeAttributes overlays values onto the capability metadata.
func (d *Device) MergeAttributes(values map[string]interface{}) {
	if len(values) == 0 {
		return
	}
	d.mu.Lock()
	for k, v := range values {
		d.attributes[k] = copyValue(v)
	}
	d.mu.Unlock()
}

// Snapshot captures the portable identity and state used by
// configuration export.
func (d *Device) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Snapshot{
		ID:       d.info.ID,
		Type:     d.behavior.TypeTag(),
		Name:     d.info.Name,
		Brand:    d.info.Brand,
		Model:    d.info.Model,
		Location: d.info.Location,
		State:    copyMap(d.state),
	}
}

// applyState applies state changes and emits a single event of the given
// type carrying old and new values for every key that actually changed.
// Extra entries are merged into the event data. Returns true when an
// event was emitted.
func (d *Device) applyState(eventType EventType, changes map[string]interface{}, extra map[string]interface{}) bool {
	if len(changes) == 0 {
		return false
	}
	d.mu.Lock()
	diff := make(map[string]interface{})
	for k, v := range changes {
		old, exists := d.state[k]
		if exists && reflect.DeepEqual(old, v) {
			continue
		}
		diff[k] = map[string]interface{}{
			"old": copyValue(old),
			"new": copyValue(v),
		}
		d.state[k] = copyValue(v)
	}
	d.mu.Unlock()
	if len(diff) == 0 {
		return false
	}
	data := map[string]interface{}{"changes": diff}
	for k, v := range extra {
		data[k] = v
	}
	d.EmitEvent(eventType, data)
	return true
}

// setState records changes silently. Used for continuous accumulators
// and sub-epsilon drift that would otherwise flood the event queue.
func (d *Device) setState(changes map[string]interface{}) {
	d.mu.Lock()
	for k, v := range changes {
		d.state[k] = copyValue(v)
	}
	d.mu.Unlock()
}

func (d *Device) stateFloat(key string) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f, _ := asFloat(d.state[key])
	return f
}

func (d *Device) stateBool(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, _ := asBool(d.state[key])
	return b
}

func (d *Device) stateString(key string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, _ := asString(d.state[key])
	return s
}

func (d *Device) attrFloat(key string, fallback float64) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if f, ok := asFloat(d.attributes[key]); ok {
		return f
	}
	return fallback
}

func (d *Device) attrString(key, fallback string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if s, ok := asString(d.attributes[key]); ok {
		return s
	}
	return fallback
}

func (d *Device) setLastError(msg string) {
	d.mu.Lock()
	d.lastError = msg
	d.mu.Unlock()
}

func (d *Device) touch() {
	d.mu.Lock()
	d.lastSeen = time.Now()
	d.mu.Unlock()
}

func (d *Device) randomFloat() float64 {
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return d.rng.Float64()
}

func (d *Device) randomBetween(min, max float64) float64 {
	if max <= min {
		return min
	}
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return min + d.rng.Float64()*(max-min)
}

func (d *Device) randomIndex(n int) int {
	if n <= 0 {
		return 0
	}
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return d.rng.Intn(n)
}

func (d *Device) nextRandomDelay() time.Duration {
	d.mu.RLock()
	min, max := d.randomMin, d.randomMax
	d.mu.RUnlock()
	if max <= min {
		return min
	}
	return min + time.Duration(d.randomFloat()*float64(max-min))
}

func (d *Device) push(ev Event) {
	for {
		select {
		case d.events <- ev:
			return
		default:
		}
		select {
		case old := <-d.events:
			d.dropped.Add(1)
			d.log.WithFields(logrus.Fields{
				"device_id":  d.info.ID,
				"event_type": old.Type,
			}).Warn("Event queue full, dropping oldest event")
		default:
		}
	}
}

func (d *Device) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.events:
			d.deliver(ev)
		}
	}
}

func (d *Device) deliver(ev Event) {
	d.listenerMu.RLock()
	listeners := make([]EventListener, len(d.listeners))
	copy(listeners, d.listeners)
	d.listenerMu.RUnlock()
	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.log.WithFields(logrus.Fields{
						"device_id":  d.info.ID,
						"event_type": ev.Type,
						"panic":      r,
					}).Error("Event listener panicked")
				}
			}()
			fn(ev)
		}()
	}
}

func (d *Device) randomEventLoop(ctx context.Context) {
	timer := time.NewTimer(d.nextRandomDelay())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if d.RandomEventsEnabled() && d.Online() && d.IsEnabled() {
				if ev := d.safeRandomEvent(); ev != nil {
					d.EmitEvent(ev.Type, ev.Data)
				}
			}
			timer.Reset(d.nextRandomDelay())
		}
	}
}

func (d *Device) safeRandomEvent() (ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithFields(logrus.Fields{
				"device_id": d.info.ID,
				"panic":     r,
			}).Error("Random event generator panicked")
			ev = nil
		}
	}()
	return d.behavior.RandomEvent(d)
}

func (d *Device) updateLoop(ctx context.Context) {
	interval := d.behavior.UpdateInterval()
	if interval <= 0 {
		interval = defaultUpdateInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if d.IsEnabled() {
				d.safeUpdateTick()
			}
		}
	}
}

func (d *Device) safeUpdateTick() {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithFields(logrus.Fields{
				"device_id": d.info.ID,
				"panic":     r,
			}).Error("State update tick panicked")
		}
	}()
	d.behavior.UpdateTick(d, d.Environment())
}

// scheduleAction arms a named one-shot timer. Arming a name that is
// already pending cancels the previous timer first.
func (d *Device) scheduleAction(key string, delay time.Duration, fn func()) {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		// A re-arm or cancel that won the lock first has supplanted this
		// timer; its action must not run anymore.
		d.timerMu.Lock()
		current := d.timers[key] == timer
		if current {
			delete(d.timers, key)
		}
		d.timerMu.Unlock()
		if !current {
			return
		}
		fn()
	})
	d.timers[key] = timer
}

func (d *Device) cancelAction(key string) {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

func (d *Device) cancelAllActions() {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
