package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Logging     LoggingConfig     `mapstructure:"logging"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Simulator   SimulatorConfig   `mapstructure:"simulator"`
	Environment EnvironmentConfig `mapstructure:"environment"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Devices     []SeedDevice      `mapstructure:"devices"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MigrationsPath string `mapstructure:"migrations_path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// SimulatorConfig contains the manager-level tunables
type SimulatorConfig struct {
	AutoStartDevices      bool           `mapstructure:"auto_start_devices"`
	RandomEvents          bool           `mapstructure:"random_events"`
	FailureRate           float64        `mapstructure:"failure_rate"`
	ResponseDelayMin      string         `mapstructure:"response_delay_min"`
	ResponseDelayMax      string         `mapstructure:"response_delay_max"`
	PropagateEnvironment  bool           `mapstructure:"propagate_environment"`
	OrchestrationInterval string         `mapstructure:"orchestration_interval"`
	EventLog              EventLogConfig `mapstructure:"event_log"`
}

// EventLogConfig controls the bounded event log and its persistence
type EventLogConfig struct {
	MaxEntries    int    `mapstructure:"max_entries"`
	Persist       bool   `mapstructure:"persist"`
	FlushInterval string `mapstructure:"flush_interval"`
}

type EnvironmentConfig struct {
	UpdateInterval  string `mapstructure:"update_interval"`
	InitialScenario string `mapstructure:"initial_scenario"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

// SeedDevice describes a device created at startup
type SeedDevice struct {
	Type     string `mapstructure:"type"`
	Name     string `mapstructure:"name"`
	Brand    string `mapstructure:"brand"`
	Model    string `mapstructure:"model"`
	Location string `mapstructure:"location"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.AutomaticEnv()

	// Override specific values from env
	viper.BindEnv("logging.level", "LOG_LEVEL")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("simulator.failure_rate", "SIMULATOR_FAILURE_RATE")
	viper.BindEnv("simulator.random_events", "SIMULATOR_RANDOM_EVENTS")
	viper.BindEnv("simulator.event_log.persist", "SIMULATOR_PERSIST_EVENTS")
	viper.BindEnv("environment.update_interval", "ENVIRONMENT_UPDATE_INTERVAL")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Validate the configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration for completeness and correctness
func (c *Config) Validate() error {
	var errors []string

	if c.Simulator.FailureRate < 0 || c.Simulator.FailureRate > 1 {
		errors = append(errors, "simulator.failure_rate must be between 0.0 and 1.0")
	}

	delayMin, err := time.ParseDuration(c.Simulator.ResponseDelayMin)
	if err != nil {
		errors = append(errors, "simulator.response_delay_min must be a valid duration")
	}
	delayMax, err := time.ParseDuration(c.Simulator.ResponseDelayMax)
	if err != nil {
		errors = append(errors, "simulator.response_delay_max must be a valid duration")
	}
	if err == nil && delayMax < delayMin {
		errors = append(errors, "simulator.response_delay_max must not be less than simulator.response_delay_min")
	}

	if _, err := time.ParseDuration(c.Simulator.OrchestrationInterval); err != nil {
		errors = append(errors, "simulator.orchestration_interval must be a valid duration")
	}

	if c.Simulator.EventLog.MaxEntries <= 0 {
		errors = append(errors, "simulator.event_log.max_entries must be greater than 0")
	}
	if _, err := time.ParseDuration(c.Simulator.EventLog.FlushInterval); err != nil {
		errors = append(errors, "simulator.event_log.flush_interval must be a valid duration")
	}
	if c.Simulator.EventLog.Persist && c.Database.Path == "" {
		errors = append(errors, "database.path is required when simulator.event_log.persist is enabled")
	}

	if _, err := time.ParseDuration(c.Environment.UpdateInterval); err != nil {
		errors = append(errors, "environment.update_interval must be a valid duration")
	}

	for i, device := range c.Devices {
		if device.Type == "" {
			errors = append(errors, fmt.Sprintf("devices[%d].type is required", i))
		}
		if device.Name == "" {
			errors = append(errors, fmt.Sprintf("devices[%d].name is required", i))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func setDefaults() {
	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// Database defaults
	viper.SetDefault("database.path", "./data/simulator.db")
	viper.SetDefault("database.max_connections", 10)

	// Simulator defaults
	viper.SetDefault("simulator.auto_start_devices", true)
	viper.SetDefault("simulator.random_events", true)
	viper.SetDefault("simulator.failure_rate", 0.05)
	viper.SetDefault("simulator.response_delay_min", "100ms")
	viper.SetDefault("simulator.response_delay_max", "500ms")
	viper.SetDefault("simulator.propagate_environment", true)
	viper.SetDefault("simulator.orchestration_interval", "30s")
	viper.SetDefault("simulator.event_log.max_entries", 1000)
	viper.SetDefault("simulator.event_log.persist", false)
	viper.SetDefault("simulator.event_log.flush_interval", "60s")

	// Environment defaults
	viper.SetDefault("environment.update_interval", "60s")
	viper.SetDefault("environment.initial_scenario", "")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.prefix", "pma_sim")

	// Default seed fleet, mirrors a small household
	viper.SetDefault("devices", []map[string]interface{}{
		{"type": "light", "name": "Kitchen Light", "location": "kitchen"},
		{"type": "thermostat", "name": "Hallway Thermostat", "location": "hallway"},
		{"type": "sensor_motion", "name": "Entry Motion", "location": "entry"},
		{"type": "lock", "name": "Front Door Lock", "location": "entry"},
		{"type": "hub", "name": "Main Hub", "location": "living_room"},
	})
}
