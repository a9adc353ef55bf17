package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hilbench/internal/device"
)

// Config is the complete bench configuration.
type Config struct {
	Bench       BenchConfig       `yaml:"bench" json:"bench"`
	Protocols   ProtocolsConfig   `yaml:"protocols" json:"protocols"`
	Peripherals PeripheralsConfig `yaml:"peripherals" json:"peripherals"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
	Report      ReportConfig      `yaml:"report" json:"report"`
	Store       StoreConfig       `yaml:"store" json:"store"`
	MQTT        MQTTConfig        `yaml:"mqtt" json:"mqtt"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb" json:"influxdb"`
}

// BenchConfig identifies the bench and selects the hardware backend.
type BenchConfig struct {
	Name    string `yaml:"name" json:"name"`
	Backend string `yaml:"backend" json:"backend"`
}

// ProtocolsConfig lists protocol clients.
type ProtocolsConfig struct {
	Modbus []device.ModbusConfig `yaml:"modbus" json:"modbus"`
}

// PeripheralsConfig lists direct peripherals.
type PeripheralsConfig struct {
	UART []device.UARTConfig `yaml:"uart" json:"uart"`
	GPIO []device.GPIOConfig `yaml:"gpio" json:"gpio"`
	PWM  []device.PWMConfig  `yaml:"pwm" json:"pwm"`
	I2C  []device.I2CConfig  `yaml:"i2c" json:"i2c"`
	SPI  []device.SPIConfig  `yaml:"spi" json:"spi"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// ReportConfig names optional report files. Empty paths are skipped.
type ReportConfig struct {
	LogFile  string `yaml:"log_file" json:"log_file"`
	HTMLFile string `yaml:"html_file" json:"html_file"`
	JSONFile string `yaml:"json_file" json:"json_file"`
}

// StoreConfig configures the run history database. An empty path disables it.
type StoreConfig struct {
	Path        string `yaml:"path" json:"path"`
	BusyTimeout int    `yaml:"busy_timeout" json:"busy_timeout"` // milliseconds
}

// MQTTConfig configures the MQTT result publisher.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Broker      string `yaml:"broker" json:"broker"`
	ClientID    string `yaml:"client_id" json:"client_id"`
	Username    string `yaml:"username" json:"username"`
	Password    string `yaml:"password" json:"password"`
	QoS         int    `yaml:"qos" json:"qos"`
	TopicPrefix string `yaml:"topic_prefix" json:"topic_prefix"`
}

// InfluxDBConfig configures the InfluxDB metrics writer.
type InfluxDBConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	URL     string `yaml:"url" json:"url"`
	Token   string `yaml:"token" json:"token"`
	Org     string `yaml:"org" json:"org"`
	Bucket  string `yaml:"bucket" json:"bucket"`
}

// Load reads, validates and returns the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(path, data)
}

// Parse is Load for configuration already in memory. path selects the format
// by extension and names the source in errors.
func Parse(path string, data []byte) (*Config, error) {
	cfg := Default()

	value, err := checkSchema(path, data)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		raw, err := value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("exporting %s: %w", path, err)
		}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Bench: BenchConfig{
			Name:    "hilbench",
			Backend: "sim",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Store: StoreConfig{
			BusyTimeout: 5000,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "hilbench",
			QoS:         1,
			TopicPrefix: "hilbench",
		},
		InfluxDB: InfluxDBConfig{
			URL:    "http://localhost:8086",
			Bucket: "hilbench",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	// Bench
	if v := os.Getenv("HILBENCH_BENCH_NAME"); v != "" {
		cfg.Bench.Name = v
	}

	// Logging
	if v := os.Getenv("HILBENCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HILBENCH_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Store
	if v := os.Getenv("HILBENCH_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}

	// MQTT
	if v := os.Getenv("HILBENCH_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("HILBENCH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("HILBENCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("HILBENCH_MQTT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MQTT.Enabled = b
		}
	}

	// InfluxDB
	if v := os.Getenv("HILBENCH_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("HILBENCH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("HILBENCH_INFLUXDB_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.InfluxDB.Enabled = b
		}
	}
}

// Validate checks the configuration for errors the schema cannot express.
func (c *Config) Validate() error {
	var errs []string

	if c.Bench.Backend != "sim" {
		errs = append(errs, fmt.Sprintf("bench.backend %q is not supported (want \"sim\")", c.Bench.Backend))
	}

	seen := make(map[string]string)
	for _, d := range c.declarations() {
		if prev, ok := seen[d.name]; ok {
			errs = append(errs, fmt.Sprintf("device name %q used by %s and %s", d.name, prev, d.where))
			continue
		}
		seen[d.name] = d.where
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, "logging.format must be text or json")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, "mqtt.broker is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	if c.InfluxDB.Enabled {
		for field, v := range map[string]string{
			"url":    c.InfluxDB.URL,
			"token":  c.InfluxDB.Token,
			"org":    c.InfluxDB.Org,
			"bucket": c.InfluxDB.Bucket,
		} {
			if v == "" {
				errs = append(errs, fmt.Sprintf("influxdb.%s is required when influxdb is enabled (set HILBENCH_INFLUXDB_TOKEN for the token)", field))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(sortedCopy(errs), "; "))
	}
	return nil
}
