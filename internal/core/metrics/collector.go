package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config contains configuration for metrics collection.
type Config struct {
	Enabled bool
	Prefix  string
}

// Collector exposes the simulator's Prometheus metrics.
type Collector struct {
	config Config

	commandsTotal    *prometheus.CounterVec
	eventsTotal      *prometheus.CounterVec
	failuresTotal    prometheus.Counter
	eventsDropped    prometheus.Counter
	devicesOnline    *prometheus.GaugeVec
	devicesTotal     prometheus.Gauge
	environmentTicks prometheus.Counter
	eventLogSize     prometheus.Gauge
}

// NewCollector registers the simulator metrics on the given registerer.
// A nil registerer falls back to the process-wide default.
func NewCollector(config Config, reg prometheus.Registerer) *Collector {
	if config.Prefix == "" {
		config.Prefix = "pma_sim"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	prefix := config.Prefix
	factory := promauto.With(reg)

	return &Collector{
		config: config,
		commandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_device_commands_total",
				Help: "Total number of device commands executed",
			},
			[]string{"device_type", "command", "success"},
		),
		eventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_device_events_total",
				Help: "Total number of device events processed",
			},
			[]string{"type"},
		),
		failuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_injected_failures_total",
				Help: "Total number of faults injected into devices",
			},
		),
		eventsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_events_dropped_total",
				Help: "Total number of events dropped from full device queues",
			},
		),
		devicesOnline: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prefix + "_devices_online",
				Help: "Number of online devices per type",
			},
			[]string{"device_type"},
		),
		devicesTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "_devices_registered",
				Help: "Number of registered devices",
			},
		),
		environmentTicks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_environment_refreshes_total",
				Help: "Total number of environment snapshots pushed to devices",
			},
		),
		eventLogSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "_event_log_entries",
				Help: "Number of events held in the in-memory log",
			},
		),
	}
}

// RecordCommand records a command execution outcome.
func (c *Collector) RecordCommand(deviceType, command string, success bool) {
	if c == nil || !c.config.Enabled {
		return
	}
	successStr := "false"
	if success {
		successStr = "true"
	}
	c.commandsTotal.WithLabelValues(deviceType, command, successStr).Inc()
}

// RecordEvent records a processed device event.
func (c *Collector) RecordEvent(eventType string) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.eventsTotal.WithLabelValues(eventType).Inc()
}

// RecordFailureInjection counts an injected fault.
func (c *Collector) RecordFailureInjection() {
	if c == nil || !c.config.Enabled {
		return
	}
	c.failuresTotal.Inc()
}

// AddDroppedEvents accumulates queue overflow drops.
func (c *Collector) AddDroppedEvents(n float64) {
	if c == nil || !c.config.Enabled || n <= 0 {
		return
	}
	c.eventsDropped.Add(n)
}

// SetDevicesOnline sets the online gauge for one device type.
func (c *Collector) SetDevicesOnline(deviceType string, n float64) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.devicesOnline.WithLabelValues(deviceType).Set(n)
}

// SetDevicesRegistered sets the registry size gauge.
func (c *Collector) SetDevicesRegistered(n float64) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.devicesTotal.Set(n)
}

// RecordEnvironmentRefresh counts one environment push to the fleet.
func (c *Collector) RecordEnvironmentRefresh() {
	if c == nil || !c.config.Enabled {
		return
	}
	c.environmentTicks.Inc()
}

// SetEventLogSize sets the in-memory event log gauge.
func (c *Collector) SetEventLogSize(n float64) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.eventLogSize.Set(n)
}
