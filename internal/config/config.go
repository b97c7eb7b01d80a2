package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/tempo-service/internal/display"
	"github.com/kjstillabower/tempo-service/internal/traffic"
	"github.com/kjstillabower/tempo-service/internal/validation"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	WeatherAPIKey     string
	WeatherAPIURL     string // base URL; /weather and /forecast are appended
	WeatherAPITimeout time.Duration
	ValidateKeyOnStart bool

	City         string // provider query, e.g. "Cascavel,BR"
	Region       string // shown after the city name, e.g. "PR"
	FallbackCity string
	Units        string
	Language     string
	TimezoneName string
	Timezone     *time.Location

	ForecastWindow  int
	ForecastMaxDays int

	RequestTimeout time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	OverloadWindow       time.Duration
	OverloadThresholdPct int
	DegradedWindow       time.Duration
	DegradedFallbackPct  int
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL                string `yaml:"url"`
		Timeout            string `yaml:"timeout"`
		ValidateKeyOnStart *bool  `yaml:"validate_key_on_start"`
	} `yaml:"weather_api"`

	Location struct {
		City         string `yaml:"city"`
		Region       string `yaml:"region"`
		FallbackCity string `yaml:"fallback_city"`
		Units        string `yaml:"units"`
		Language     string `yaml:"language"`
		Timezone     string `yaml:"timezone"`
	} `yaml:"location"`

	Forecast struct {
		Window  int `yaml:"window"`
		MaxDays int `yaml:"max_days"`
	} `yaml:"forecast"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
		CircuitBreaker struct {
			Enabled          bool   `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			SuccessThreshold int    `yaml:"success_threshold"`
			Timeout          string `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Lifecycle struct {
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedFallbackPct  int    `yaml:"degraded_fallback_pct"`
	} `yaml:"lifecycle"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml
// under the working directory. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadDir(filepath.Join(cwd, "config"))
}

// LoadDir reads {ENV_NAME}.yaml and secrets.yaml from dir.
// The API key comes from WEATHER_API_KEY or the secrets file; WEATHER_CITY overrides location.city.
func LoadDir(dir string) (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	configPath := filepath.Join(dir, env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.WeatherAPIKey = os.Getenv("WEATHER_API_KEY")
	if cfg.WeatherAPIKey == "" {
		key, err := readSecrets(filepath.Join(dir, "secrets.yaml"))
		if err != nil {
			return nil, err
		}
		cfg.WeatherAPIKey = key
	}
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY required (set env or config/secrets.yaml weather_api_key)")
	}

	cfg.WeatherAPIURL = strings.TrimSpace(fc.WeatherAPI.URL)
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = "https://api.openweathermap.org/data/2.5"
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 5*time.Second)
	cfg.ValidateKeyOnStart = true
	if fc.WeatherAPI.ValidateKeyOnStart != nil {
		cfg.ValidateKeyOnStart = *fc.WeatherAPI.ValidateKeyOnStart
	}

	cfg.City = strings.TrimSpace(os.Getenv("WEATHER_CITY"))
	if cfg.City == "" {
		cfg.City = fc.Location.City
	}
	if strings.TrimSpace(cfg.City) == "" {
		cfg.City = "Cascavel,BR"
	}
	cfg.Region = strings.TrimSpace(fc.Location.Region)
	cfg.FallbackCity = strings.TrimSpace(fc.Location.FallbackCity)
	if cfg.FallbackCity == "" {
		cfg.FallbackCity = "Cascavel"
	}
	cfg.Units = fc.Location.Units
	if strings.TrimSpace(cfg.Units) == "" {
		cfg.Units = "metric"
	}
	cfg.Language = display.NormalizeLanguage(fc.Location.Language)
	if cfg.Language == "" {
		cfg.Language = "pt_br"
	}
	cfg.TimezoneName = strings.TrimSpace(fc.Location.Timezone)
	if cfg.TimezoneName == "" {
		cfg.TimezoneName = "America/Sao_Paulo"
	}

	cfg.ForecastWindow = fc.Forecast.Window
	if cfg.ForecastWindow <= 0 {
		cfg.ForecastWindow = 9
	}
	cfg.ForecastMaxDays = fc.Forecast.MaxDays
	if cfg.ForecastMaxDays <= 0 {
		cfg.ForecastMaxDays = 3
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 20
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}

	cb := fc.Reliability.CircuitBreaker
	cfg.CircuitBreakerEnabled = cb.Enabled
	cfg.CircuitBreakerFailureThreshold = cb.FailureThreshold
	if cfg.CircuitBreakerFailureThreshold <= 0 {
		cfg.CircuitBreakerFailureThreshold = 5
	}
	cfg.CircuitBreakerSuccessThreshold = cb.SuccessThreshold
	if cfg.CircuitBreakerSuccessThreshold <= 0 {
		cfg.CircuitBreakerSuccessThreshold = 1
	}
	cfg.CircuitBreakerTimeout = parseDuration(cb.Timeout, 30*time.Second)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.OverloadWindow = parseDuration(fc.Lifecycle.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = fc.Lifecycle.OverloadThresholdPct
	if cfg.OverloadThresholdPct <= 0 {
		cfg.OverloadThresholdPct = 80
	}
	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 5*time.Minute)
	cfg.DegradedFallbackPct = fc.Lifecycle.DegradedFallbackPct
	if cfg.DegradedFallbackPct <= 0 {
		cfg.DegradedFallbackPct = 50
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readSecrets(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return sec.WeatherAPIKey, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero or negative durations are returned as-is for validate to reject.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation and resolves derived values (Timezone).
// RequestTimeout must leave room for two sequential upstream calls and is raised if needed.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= 2*cfg.WeatherAPITimeout {
		cfg.RequestTimeout = 2*cfg.WeatherAPITimeout + time.Second
	}

	city, err := validation.ValidateCity(cfg.City)
	if err != nil {
		return fmt.Errorf("location.city: %w", err)
	}
	cfg.City = city

	units, err := validation.ValidateUnits(cfg.Units)
	if err != nil {
		return fmt.Errorf("location.units: %w", err)
	}
	cfg.Units = units

	if _, err := display.NewLocale(cfg.Language, time.UTC); err != nil {
		return fmt.Errorf("location.language: %w", err)
	}

	tz, err := time.LoadLocation(cfg.TimezoneName)
	if err != nil {
		return fmt.Errorf("location.timezone: %w", err)
	}
	cfg.Timezone = tz

	if cfg.ForecastMaxDays > cfg.ForecastWindow {
		return fmt.Errorf("forecast.max_days (%d) cannot exceed forecast.window (%d)", cfg.ForecastMaxDays, cfg.ForecastWindow)
	}

	if cfg.OverloadWindow > traffic.MaxWindow {
		return fmt.Errorf("lifecycle.overload_window (%v) cannot exceed %v", cfg.OverloadWindow, traffic.MaxWindow)
	}
	if cfg.DegradedWindow > traffic.MaxWindow {
		return fmt.Errorf("lifecycle.degraded_window (%v) cannot exceed %v", cfg.DegradedWindow, traffic.MaxWindow)
	}
	return nil
}
