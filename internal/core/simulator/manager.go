package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/pma-simulator/internal/config"
	"github.com/frostdev-ops/pma-simulator/internal/core/devices"
	"github.com/frostdev-ops/pma-simulator/internal/core/environment"
	"github.com/frostdev-ops/pma-simulator/internal/core/metrics"
	"github.com/frostdev-ops/pma-simulator/internal/database/models"
	"github.com/frostdev-ops/pma-simulator/internal/database/sqlite"
	"github.com/frostdev-ops/pma-simulator/pkg/errors"
)

// Fault kinds accepted by SimulateFailure.
const (
	FaultOffline        = "offline"
	FaultError          = "error"
	FaultCommandFailure = "command_failure"
)

type managerState int

const (
	stateIdle managerState = iota
	stateRunning
	stateStopped
)

func (s managerState) String() string {
	switch s {
	case stateRunning:
		return "running"
	case stateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Options tunes the manager and the defaults applied to new devices.
type Options struct {
	AutoStartDevices      bool
	RandomEvents          bool
	FailureRate           float64
	ResponseDelayMin      time.Duration
	ResponseDelayMax      time.Duration
	PropagateEnvironment  bool
	OrchestrationInterval time.Duration
	EventLogMaxEntries    int
	EventLogFlushInterval time.Duration
	PersistEvents         bool
}

// DefaultOptions returns the baseline manager configuration.
func DefaultOptions() Options {
	return Options{
		AutoStartDevices:      true,
		RandomEvents:          true,
		FailureRate:           0.05,
		ResponseDelayMin:      100 * time.Millisecond,
		ResponseDelayMax:      500 * time.Millisecond,
		PropagateEnvironment:  true,
		OrchestrationInterval: 30 * time.Second,
		EventLogMaxEntries:    1000,
		EventLogFlushInterval: time.Minute,
		PersistEvents:         false,
	}
}

// OptionsFromConfig builds manager options from the loaded configuration,
// falling back to defaults for unparsable durations.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	sim := cfg.Simulator
	opts.AutoStartDevices = sim.AutoStartDevices
	opts.RandomEvents = sim.RandomEvents
	opts.FailureRate = sim.FailureRate
	opts.PropagateEnvironment = sim.PropagateEnvironment
	opts.PersistEvents = sim.EventLog.Persist
	if d, err := time.ParseDuration(sim.ResponseDelayMin); err == nil && d >= 0 {
		opts.ResponseDelayMin = d
	}
	if d, err := time.ParseDuration(sim.ResponseDelayMax); err == nil && d >= opts.ResponseDelayMin {
		opts.ResponseDelayMax = d
	}
	if d, err := time.ParseDuration(sim.OrchestrationInterval); err == nil && d > 0 {
		opts.OrchestrationInterval = d
	}
	if sim.EventLog.MaxEntries > 0 {
		opts.EventLogMaxEntries = sim.EventLog.MaxEntries
	}
	if d, err := time.ParseDuration(sim.EventLog.FlushInterval); err == nil && d > 0 {
		opts.EventLogFlushInterval = d
	}
	return opts
}

// CreateOptions carries per-device overrides for CreateDevice. Pointer
// fields distinguish "not set" from zero values.
type CreateOptions struct {
	ID            string
	Brand         string
	Model         string
	Location      string
	Integration   string
	ResponseDelay *time.Duration
	FailureRate   *float64
	RandomEvents  *bool
	State         map[string]interface{}
	Attributes    map[string]interface{}
}

// Manager owns the device registry and orchestrates the simulation: it
// creates and starts devices, routes commands, injects faults, fans out
// events and periodically republishes the ambient environment.
type Manager struct {
	opts    Options
	env     *environment.Simulator
	repo    *sqlite.EventRepository
	metrics *metrics.Collector
	log     *logrus.Logger

	mu        sync.RWMutex
	devices   map[string]*devices.Device
	state     managerState
	startedAt time.Time

	runCtx context.Context
	cancel context.CancelFunc
	cron   *cron.Cron

	rngMu sync.Mutex
	rng   *rand.Rand

	eventMu     sync.Mutex
	eventLog    []devices.Event
	pending     []devices.Event
	lastDropped int64

	subMu       sync.RWMutex
	subscribers map[int]func(devices.Event)
	nextSubID   int

	timerMu     sync.Mutex
	faultTimers map[string]*time.Timer

	stats counters
}

// NewManager wires the manager against its collaborators. The event
// repository and metrics collector are optional.
func NewManager(opts Options, env *environment.Simulator, repo *sqlite.EventRepository, collector *metrics.Collector, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.New()
	}
	if env == nil {
		env = environment.NewSimulator(0, log)
	}
	if opts.OrchestrationInterval <= 0 {
		opts.OrchestrationInterval = 30 * time.Second
	}
	if opts.EventLogMaxEntries <= 0 {
		opts.EventLogMaxEntries = 1000
	}
	if opts.EventLogFlushInterval <= 0 {
		opts.EventLogFlushInterval = time.Minute
	}
	if opts.ResponseDelayMax < opts.ResponseDelayMin {
		opts.ResponseDelayMax = opts.ResponseDelayMin
	}
	return &Manager{
		opts:        opts,
		env:         env,
		repo:        repo,
		metrics:     collector,
		log:         log,
		devices:     make(map[string]*devices.Device),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		subscribers: make(map[int]func(devices.Event)),
		faultTimers: make(map[string]*time.Timer),
	}
}

// Environment exposes the ambient condition simulator.
func (m *Manager) Environment() *environment.Simulator { return m.env }

// Start launches orchestration and any registered devices. Starting a
// running manager is a no-op; a stopped manager cannot be restarted.
func (m *Manager) Start() error {
	m.mu.Lock()
	switch m.state {
	case stateRunning:
		m.mu.Unlock()
		return nil
	case stateStopped:
		m.mu.Unlock()
		return errors.New("manager_stopped", "manager cannot be restarted after stop")
	}
	m.runCtx, m.cancel = context.WithCancel(context.Background())
	m.startedAt = time.Now()
	m.state = stateRunning

	m.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))
	if _, err := m.cron.AddFunc(fmt.Sprintf("@every %s", m.opts.OrchestrationInterval), m.orchestrate); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to schedule orchestration: %w", err)
	}
	if m.opts.PersistEvents && m.repo != nil {
		if _, err := m.cron.AddFunc(fmt.Sprintf("@every %s", m.opts.EventLogFlushInterval), m.flushEvents); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("failed to schedule event flush: %w", err)
		}
	}
	m.cron.Start()

	registered := make([]*devices.Device, 0, len(m.devices))
	for _, dev := range m.devices {
		registered = append(registered, dev)
	}
	runCtx := m.runCtx
	m.mu.Unlock()

	if m.opts.AutoStartDevices {
		for _, dev := range registered {
			if err := dev.Start(runCtx); err != nil {
				m.log.WithError(err).WithField("device_id", dev.ID()).Error("Failed to start device")
			}
		}
	}
	m.publishEnvironment()

	m.log.WithFields(logrus.Fields{
		"devices":       len(registered),
		"orchestration": m.opts.OrchestrationInterval.String(),
		"persistence":   m.opts.PersistEvents && m.repo != nil,
	}).Info("Simulator manager started")
	return nil
}

// Stop shuts down orchestration, stops every device and flushes pending
// events. Stop is idempotent.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if m.state != stateRunning {
		m.state = stateStopped
		m.mu.Unlock()
		return nil
	}
	m.state = stateStopped
	cronInstance := m.cron
	cancel := m.cancel
	registered := make([]*devices.Device, 0, len(m.devices))
	for _, dev := range m.devices {
		registered = append(registered, dev)
	}
	m.mu.Unlock()

	if cronInstance != nil {
		stopCtx := cronInstance.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(10 * time.Second):
			m.log.Warn("Timeout waiting for orchestration jobs to complete")
		}
	}
	if cancel != nil {
		cancel()
	}
	m.cancelFaultTimers()

	for _, dev := range registered {
		if err := dev.Stop(); err != nil {
			m.log.WithError(err).WithField("device_id", dev.ID()).Warn("Failed to stop device")
		}
	}
	if m.opts.PersistEvents && m.repo != nil {
		m.flushEvents()
	}

	m.log.WithFields(logrus.Fields{"devices": len(registered)}).Info("Simulator manager stopped")
	return nil
}

// IsRunning reports whether the manager is active.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == stateRunning
}

// CreateDevice instantiates and registers a device of the given type
// tag. When the manager is running and auto start is enabled the device
// loops start immediately.
func (m *Manager) CreateDevice(typeTag, name string, opts CreateOptions) (*devices.Device, error) {
	if name == "" {
		return nil, errors.WithDetails(errors.ErrInvalidParameter, "device name is required")
	}
	behavior, err := devices.NewBehavior(typeTag)
	if err != nil {
		return nil, err
	}

	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	defaults := behavior.Defaults()
	info := devices.Info{
		ID:          id,
		Name:        name,
		Type:        behavior.Type(),
		Brand:       firstNonEmpty(opts.Brand, defaults.Brand),
		Model:       firstNonEmpty(opts.Model, defaults.Model),
		Integration: firstNonEmpty(opts.Integration, defaults.Integration),
		Location:    opts.Location,
	}

	devOpts := devices.Options{
		ResponseDelay: m.sampleDelay(),
		FailureRate:   m.opts.FailureRate,
		RandomEvents:  m.opts.RandomEvents,
	}
	if opts.ResponseDelay != nil {
		devOpts.ResponseDelay = *opts.ResponseDelay
	}
	if opts.FailureRate != nil {
		devOpts.FailureRate = *opts.FailureRate
	}
	if opts.RandomEvents != nil {
		devOpts.RandomEvents = *opts.RandomEvents
	}

	dev := devices.NewDevice(info, behavior, devOpts, m.log)
	dev.MergeAttributes(opts.Attributes)
	dev.MergeState(opts.State)
	if hub, ok := behavior.(*devices.HubBehavior); ok {
		hub.SetResolver(m.resolveDevice)
	}
	dev.AddListener(m.handleEvent)

	m.mu.Lock()
	if m.state == stateStopped {
		m.mu.Unlock()
		return nil, errors.New("manager_stopped", "cannot create devices after shutdown")
	}
	if _, exists := m.devices[id]; exists {
		m.mu.Unlock()
		return nil, errors.Detailsf(errors.ErrInvalidParameter, "device %s already registered", id)
	}
	m.devices[id] = dev
	total := len(m.devices)
	running := m.state == stateRunning
	runCtx := m.runCtx
	m.mu.Unlock()

	m.stats.devicesCreated.Add(1)
	m.metrics.SetDevicesRegistered(float64(total))

	if running && m.opts.AutoStartDevices {
		if err := dev.Start(runCtx); err != nil {
			m.log.WithError(err).WithField("device_id", id).Error("Failed to start device")
		}
	}

	m.log.WithFields(logrus.Fields{
		"device_id":   id,
		"device_type": dev.TypeTag(),
		"name":        name,
	}).Info("Device created")
	return dev, nil
}

// GetDevice looks up a device by id.
func (m *Manager) GetDevice(id string) (*devices.Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dev, ok := m.devices[id]
	return dev, ok
}

// ListDevices returns all devices ordered by name then id.
func (m *Manager) ListDevices() []*devices.Device {
	return m.listFiltered("")
}

// ListDevicesByType returns devices whose type tag or base type matches.
func (m *Manager) ListDevicesByType(typeTag string) []*devices.Device {
	return m.listFiltered(typeTag)
}

func (m *Manager) listFiltered(typeTag string) []*devices.Device {
	m.mu.RLock()
	list := make([]*devices.Device, 0, len(m.devices))
	for _, dev := range m.devices {
		if typeTag != "" && dev.TypeTag() != typeTag && string(dev.Type()) != typeTag {
			continue
		}
		list = append(list, dev)
	}
	m.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name() != list[j].Name() {
			return list[i].Name() < list[j].Name()
		}
		return list[i].ID() < list[j].ID()
	})
	return list
}

// CountDevices returns the registry size.
func (m *Manager) CountDevices() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.devices)
}

// RemoveDevice stops and unregisters a device. It reports whether the
// id was registered; removing an unknown id is not an error.
func (m *Manager) RemoveDevice(id string) bool {
	m.mu.Lock()
	dev, ok := m.devices[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.devices, id)
	total := len(m.devices)
	m.mu.Unlock()

	if err := dev.Stop(); err != nil {
		m.log.WithError(err).WithField("device_id", id).Warn("Failed to stop removed device")
	}
	m.stats.devicesRemoved.Add(1)
	m.metrics.SetDevicesRegistered(float64(total))
	m.log.WithFields(logrus.Fields{"device_id": id}).Info("Device removed")
	return true
}

// StartDevice starts one device's loops under the manager context.
func (m *Manager) StartDevice(id string) error {
	m.mu.RLock()
	dev, ok := m.devices[id]
	runCtx := m.runCtx
	running := m.state == stateRunning
	m.mu.RUnlock()
	if !ok {
		return errors.Detailsf(errors.ErrDeviceNotFound, "no registered device %s", id)
	}
	if !running {
		return errors.New("manager_not_running", "start the manager before starting devices")
	}
	return dev.Start(runCtx)
}

// StopDevice stops one device's loops.
func (m *Manager) StopDevice(id string) error {
	dev, ok := m.GetDevice(id)
	if !ok {
		return errors.Detailsf(errors.ErrDeviceNotFound, "no registered device %s", id)
	}
	return dev.Stop()
}

// SendCommand routes one command to one device. A missing device is
// reported in the result, not as an error.
func (m *Manager) SendCommand(ctx context.Context, id string, cmd devices.Command) devices.CommandResult {
	dev, ok := m.GetDevice(id)
	if !ok {
		return devices.CommandResult{
			Success:     false,
			DeviceID:    id,
			Command:     cmd.Name,
			Error:       fmt.Sprintf("device not found: %s", id),
			ProcessedAt: time.Now(),
		}
	}
	result := dev.ExecuteCommand(ctx, cmd)
	m.stats.commandsExecuted.Add(1)
	if !result.Success {
		m.stats.commandsFailed.Add(1)
	}
	m.metrics.RecordCommand(dev.TypeTag(), cmd.Name, result.Success)
	return result
}

// BroadcastCommand applies a command to every device, optionally
// filtered by type tag. Each device executes independently; one failure
// never affects the others.
func (m *Manager) BroadcastCommand(ctx context.Context, typeTag string, cmd devices.Command) map[string]devices.CommandResult {
	targets := m.listFiltered(typeTag)
	results := make(map[string]devices.CommandResult, len(targets))
	var resultMu sync.Mutex
	var wg sync.WaitGroup
	for _, dev := range targets {
		wg.Add(1)
		go func(dev *devices.Device) {
			defer wg.Done()
			result := dev.ExecuteCommand(ctx, cmd)
			m.stats.commandsExecuted.Add(1)
			if !result.Success {
				m.stats.commandsFailed.Add(1)
			}
			m.metrics.RecordCommand(dev.TypeTag(), cmd.Name, result.Success)
			resultMu.Lock()
			results[dev.ID()] = result
			resultMu.Unlock()
		}(dev)
	}
	wg.Wait()
	return results
}

// SimulateFailure injects a fault into a device: "offline" drops
// connectivity, "error" records an error condition and
// "command_failure" makes every command fail for the duration.
// A non-positive duration applies a 30 second default where one is
// needed; an offline fault with no duration persists until restored.
func (m *Manager) SimulateFailure(id, kind string, duration time.Duration) error {
	dev, ok := m.GetDevice(id)
	if !ok {
		return errors.Detailsf(errors.ErrDeviceNotFound, "no registered device %s", id)
	}
	switch kind {
	case FaultOffline:
		dev.SetOnline(false)
		if duration > 0 {
			m.scheduleFaultRevert("offline:"+id, duration, func() {
				dev.SetOnline(true)
			})
		}
	case FaultError:
		dev.InjectError("injected fault: simulated error condition")
	case FaultCommandFailure:
		if duration <= 0 {
			duration = 30 * time.Second
		}
		dev.ForceFailures(duration)
	default:
		return errors.Detailsf(errors.ErrInvalidParameter, "unknown fault kind %q", kind)
	}
	m.stats.failuresSimulated.Add(1)
	m.metrics.RecordFailureInjection()
	m.log.WithFields(logrus.Fields{
		"device_id": id,
		"fault":     kind,
		"duration":  duration.String(),
	}).Info("Injected device fault")
	return nil
}

func (m *Manager) scheduleFaultRevert(key string, delay time.Duration, fn func()) {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	if t, ok := m.faultTimers[key]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		m.timerMu.Lock()
		if m.faultTimers[key] == timer {
			delete(m.faultTimers, key)
		}
		m.timerMu.Unlock()
		fn()
	})
	m.faultTimers[key] = timer
}

func (m *Manager) cancelFaultTimers() {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	for key, t := range m.faultTimers {
		t.Stop()
		delete(m.faultTimers, key)
	}
}

// Subscribe registers a callback for every device event and returns an
// unsubscribe function.
func (m *Manager) Subscribe(fn func(devices.Event)) func() {
	if fn == nil {
		return func() {}
	}
	m.subMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.subMu.Unlock()
	return func() {
		m.subMu.Lock()
		delete(m.subscribers, id)
		m.subMu.Unlock()
	}
}

// RecentEvents returns up to limit events from the in-memory log, most
// recent first.
func (m *Manager) RecentEvents(limit int) []devices.Event {
	m.eventMu.Lock()
	defer m.eventMu.Unlock()
	if limit <= 0 || limit > len(m.eventLog) {
		limit = len(m.eventLog)
	}
	out := make([]devices.Event, 0, limit)
	for i := len(m.eventLog) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.eventLog[i])
	}
	return out
}

// handleEvent runs inside each device's dispatch loop: it counts,
// buffers and fans out the event.
func (m *Manager) handleEvent(ev devices.Event) {
	m.stats.eventsProcessed.Add(1)
	m.metrics.RecordEvent(string(ev.Type))

	m.eventMu.Lock()
	if len(m.eventLog) >= m.opts.EventLogMaxEntries {
		excess := len(m.eventLog) - m.opts.EventLogMaxEntries + 1
		m.eventLog = append(m.eventLog[:0], m.eventLog[excess:]...)
	}
	m.eventLog = append(m.eventLog, ev)
	logSize := len(m.eventLog)
	if m.opts.PersistEvents && m.repo != nil {
		m.pending = append(m.pending, ev)
		if len(m.pending) > 4*m.opts.EventLogMaxEntries {
			drop := len(m.pending) / 2
			m.pending = append(m.pending[:0], m.pending[drop:]...)
			m.log.WithFields(logrus.Fields{"dropped": drop}).Warn("Persistence backlog full, dropping oldest pending events")
		}
	}
	m.eventMu.Unlock()
	m.metrics.SetEventLogSize(float64(logSize))

	m.subMu.RLock()
	subs := make([]func(devices.Event), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.subMu.RUnlock()
	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.log.WithFields(logrus.Fields{
						"event_type": ev.Type,
						"panic":      r,
					}).Error("Event subscriber panicked")
				}
			}()
			fn(ev)
		}()
	}
}

// orchestrate is the periodic manager job: it republishes the ambient
// environment to the fleet and refreshes bookkeeping gauges.
func (m *Manager) orchestrate() {
	m.publishEnvironment()

	onlineByType := make(map[string]int)
	totalDropped := int64(0)
	m.mu.RLock()
	total := len(m.devices)
	for _, dev := range m.devices {
		if dev.Online() {
			onlineByType[dev.TypeTag()]++
		} else {
			// Keep the series present so offline fleets read as zero.
			onlineByType[dev.TypeTag()] += 0
		}
		totalDropped += dev.DroppedEvents()
	}
	m.mu.RUnlock()

	for typeTag, n := range onlineByType {
		m.metrics.SetDevicesOnline(typeTag, float64(n))
	}
	m.metrics.SetDevicesRegistered(float64(total))

	m.eventMu.Lock()
	delta := totalDropped - m.lastDropped
	if delta > 0 {
		m.lastDropped = totalDropped
	}
	logSize := len(m.eventLog)
	m.eventMu.Unlock()
	if delta > 0 {
		m.metrics.AddDroppedEvents(float64(delta))
	}
	m.metrics.SetEventLogSize(float64(logSize))
}

func (m *Manager) publishEnvironment() {
	if !m.opts.PropagateEnvironment {
		return
	}
	cond := m.env.GetConditions()
	for _, dev := range m.ListDevices() {
		dev.UpdateEnvironment(cond)
	}
	m.metrics.RecordEnvironmentRefresh()
}

// flushEvents drains the pending buffer into the event store and prunes
// old history.
func (m *Manager) flushEvents() {
	if m.repo == nil {
		return
	}
	m.eventMu.Lock()
	batch := m.pending
	m.pending = nil
	m.eventMu.Unlock()
	if len(batch) == 0 {
		return
	}

	records := make([]*models.EventRecord, 0, len(batch))
	for _, ev := range batch {
		var data json.RawMessage
		if ev.Data != nil {
			if encoded, err := json.Marshal(ev.Data); err == nil {
				data = encoded
			}
		}
		records = append(records, &models.EventRecord{
			ID:        ev.ID,
			DeviceID:  ev.DeviceID,
			Type:      string(ev.Type),
			Data:      data,
			Timestamp: ev.Timestamp,
		})
	}

	ctx, cancelFn := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelFn()
	if err := m.repo.InsertBatch(ctx, records); err != nil {
		m.log.WithError(err).Error("Failed to persist event batch")
		m.eventMu.Lock()
		m.pending = append(records2events(records), m.pending...)
		m.eventMu.Unlock()
		return
	}
	if _, err := m.repo.Prune(ctx, 10*m.opts.EventLogMaxEntries); err != nil {
		m.log.WithError(err).Warn("Failed to prune event store")
	}
}

func records2events(records []*models.EventRecord) []devices.Event {
	out := make([]devices.Event, 0, len(records))
	for _, r := range records {
		var data map[string]interface{}
		if len(r.Data) > 0 {
			_ = json.Unmarshal(r.Data, &data)
		}
		out = append(out, devices.Event{
			ID:        r.ID,
			DeviceID:  r.DeviceID,
			Type:      devices.EventType(r.Type),
			Data:      data,
			Timestamp: r.Timestamp,
		})
	}
	return out
}

func (m *Manager) resolveDevice(id string) (*devices.Device, bool) {
	return m.GetDevice(id)
}

func (m *Manager) sampleDelay() time.Duration {
	min, max := m.opts.ResponseDelayMin, m.opts.ResponseDelayMax
	if max <= min {
		return min
	}
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return min + time.Duration(m.rng.Float64()*float64(max-min))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
