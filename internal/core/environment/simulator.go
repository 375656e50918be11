package environment

import (
	"context"
	_ "embed"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/frostdev-ops/pma-simulator/pkg/errors"
)

//go:embed scenarios.yaml
var scenariosRaw []byte

type scenarioFile struct {
	Scenarios map[string]map[string]interface{} `yaml:"scenarios"`
}

// Simulator evolves a shared set of ambient conditions on a fixed
// interval. The tick loop is the single writer; every reader receives an
// independent value copy.
type Simulator struct {
	log      *logrus.Logger
	interval time.Duration

	mu        sync.RWMutex
	cond      Conditions
	scenarios map[string]map[string]interface{}

	// now is swapped out in tests to pin the time of day.
	now func() time.Time
	rng *rand.Rand

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSimulator creates a simulator seeded with the default indoor
// conditions. A non-positive interval falls back to one minute.
func NewSimulator(interval time.Duration, log *logrus.Logger) *Simulator {
	if log == nil {
		log = logrus.New()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	s := &Simulator{
		log:       log,
		interval:  interval,
		cond:      DefaultConditions(),
		scenarios: make(map[string]map[string]interface{}),
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	var parsed scenarioFile
	if err := yaml.Unmarshal(scenariosRaw, &parsed); err != nil {
		log.WithError(err).Error("Failed to parse embedded environment scenarios")
	} else {
		s.scenarios = parsed.Scenarios
	}
	return s
}

// Start launches the update loop. Starting a running simulator is a
// no-op.
func (s *Simulator) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(runCtx)
	}()
	s.log.WithFields(logrus.Fields{
		"interval": s.interval.String(),
	}).Info("Environment simulator started")
	return nil
}

// Stop halts the update loop and waits for it to exit.
func (s *Simulator) Stop() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if !s.running {
		return nil
	}
	s.cancel()
	s.wg.Wait()
	s.running = false
	s.log.Info("Environment simulator stopped")
	return nil
}

// IsRunning reports whether the update loop is active.
func (s *Simulator) IsRunning() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.running
}

func (s *Simulator) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick advances every condition one step: the time of day bucket follows
// the clock, light is drawn from the bucket's range and dampened by bad
// weather, temperature is a bucket baseline plus jitter, humidity takes a
// bounded random walk and motion is drawn against the occupancy profile.
func (s *Simulator) tick() {
	hour := s.now().Hour()
	s.mu.Lock()
	cond := s.cond
	cond.TimeOfDay = bucketFor(hour)

	var lightLo, lightHi float64
	switch cond.TimeOfDay {
	case TimeDay:
		lightLo, lightHi = 300, 800
	case TimeEvening:
		lightLo, lightHi = 50, 300
	default:
		lightLo, lightHi = 0, 50
	}
	light := lightLo + s.rng.Float64()*(lightHi-lightLo)
	switch cond.Weather {
	case WeatherRainy, WeatherStormy, WeatherFoggy:
		light *= 0.5
	}
	cond.LightLevel = round1(light)

	var baseTemp float64
	switch cond.TimeOfDay {
	case TimeDay:
		baseTemp = 22.0
	case TimeEvening:
		baseTemp = 20.0
	default:
		baseTemp = 17.0
	}
	cond.Temperature = round1(baseTemp + (s.rng.Float64()*3.0 - 1.5))

	cond.Humidity = round1(clampFloat(cond.Humidity+(s.rng.Float64()*4.0-2.0), 20, 90))

	motionChance := 0.02
	if cond.Occupancy {
		switch cond.TimeOfDay {
		case TimeDay:
			motionChance = 0.40
		case TimeEvening:
			motionChance = 0.50
		default:
			motionChance = 0.10
		}
	}
	cond.Motion = s.rng.Float64() < motionChance

	if s.rng.Float64() < 0.05 {
		cond.Weather = AllWeather[s.rng.Intn(len(AllWeather))]
	}

	s.cond = cond
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"time_of_day": cond.TimeOfDay,
		"temperature": cond.Temperature,
		"humidity":    cond.Humidity,
		"light_level": cond.LightLevel,
		"weather":     cond.Weather,
		"motion":      cond.Motion,
	}).Debug("Environment conditions updated")
}

// GetConditions returns an independent copy of the current conditions.
func (s *Simulator) GetConditions() Conditions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cond
}

// SetConditions replaces the full condition set, normalizing empty enum
// fields. Used when restoring an exported configuration.
func (s *Simulator) SetConditions(cond Conditions) {
	if !validTimeOfDay(cond.TimeOfDay) {
		cond.TimeOfDay = DefaultConditions().TimeOfDay
	}
	if !validWeather(cond.Weather) {
		cond.Weather = DefaultConditions().Weather
	}
	s.mu.Lock()
	s.cond = cond
	s.mu.Unlock()
}

// SetCondition overrides a single condition by key. Unknown keys and
// values of the wrong type are rejected.
func (s *Simulator) SetCondition(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch key {
	case "temperature":
		f, ok := toFloat(value)
		if !ok {
			return errors.Detailsf(errors.ErrInvalidParameter, "temperature requires a number, got %T", value)
		}
		s.cond.Temperature = f
	case "humidity":
		f, ok := toFloat(value)
		if !ok {
			return errors.Detailsf(errors.ErrInvalidParameter, "humidity requires a number, got %T", value)
		}
		s.cond.Humidity = clampFloat(f, 0, 100)
	case "light_level":
		f, ok := toFloat(value)
		if !ok {
			return errors.Detailsf(errors.ErrInvalidParameter, "light_level requires a number, got %T", value)
		}
		if f < 0 {
			f = 0
		}
		s.cond.LightLevel = f
	case "motion":
		b, ok := value.(bool)
		if !ok {
			return errors.Detailsf(errors.ErrInvalidParameter, "motion requires a boolean, got %T", value)
		}
		s.cond.Motion = b
	case "occupancy":
		b, ok := value.(bool)
		if !ok {
			return errors.Detailsf(errors.ErrInvalidParameter, "occupancy requires a boolean, got %T", value)
		}
		s.cond.Occupancy = b
	case "time_of_day":
		str, ok := value.(string)
		if !ok || !validTimeOfDay(TimeOfDay(str)) {
			return errors.Detailsf(errors.ErrInvalidParameter, "invalid time_of_day %v", value)
		}
		s.cond.TimeOfDay = TimeOfDay(str)
	case "weather":
		str, ok := value.(string)
		if !ok || !validWeather(Weather(str)) {
			return errors.Detailsf(errors.ErrInvalidParameter, "invalid weather %v", value)
		}
		s.cond.Weather = Weather(str)
	default:
		return errors.Detailsf(errors.ErrInvalidParameter, "unknown environment condition %q", key)
	}
	return nil
}

// ApplyScenario overrides conditions with a named preset from the
// embedded scenario table.
func (s *Simulator) ApplyScenario(name string) error {
	s.mu.RLock()
	preset, ok := s.scenarios[name]
	s.mu.RUnlock()
	if !ok {
		return errors.Detailsf(errors.ErrInvalidParameter, "unknown scenario %q", name)
	}
	keys := make([]string, 0, len(preset))
	for k := range preset {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := s.SetCondition(k, preset[k]); err != nil {
			return err
		}
	}
	s.log.WithFields(logrus.Fields{"scenario": name}).Info("Applied environment scenario")
	return nil
}

// Scenarios lists the available preset names in sorted order.
func (s *Simulator) Scenarios() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.scenarios))
	for name := range s.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
