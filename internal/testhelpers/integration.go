//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/kjstillabower/tempo-service/internal/client"
	"github.com/kjstillabower/tempo-service/internal/display"
	"github.com/kjstillabower/tempo-service/internal/service"
)

// IntegrationTestConfig holds configuration for live-API tests.
type IntegrationTestConfig struct {
	APIKey string
	APIURL string // base URL, /weather and /forecast are appended
	City   string
	Lang   string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if WEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	cfg := IntegrationTestConfig{
		APIKey: apiKey,
		APIURL: os.Getenv("WEATHER_API_URL"),
		City:   os.Getenv("WEATHER_CITY"),
		Lang:   "pt_br",
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.openweathermap.org/data/2.5"
	}
	if cfg.City == "" {
		cfg.City = "Cascavel,BR"
	}
	return cfg
}

// SetupIntegrationClient creates a weather client against the live API.
func SetupIntegrationClient(t *testing.T, cfg IntegrationTestConfig) *client.OpenWeatherClient {
	t.Helper()
	c, err := client.NewOpenWeatherClient(cfg.APIKey, cfg.APIURL,
		client.Query{City: cfg.City, Units: "metric", Lang: cfg.Lang}, 10*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	return c
}

// SetupIntegrationScreen creates a screen service backed by the live API, formatting in
// America/Sao_Paulo.
func SetupIntegrationScreen(t *testing.T, cfg IntegrationTestConfig) *service.ScreenService {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	locale, err := display.NewLocale(cfg.Lang, loc)
	if err != nil {
		t.Fatalf("NewLocale: %v", err)
	}
	return service.NewScreenService(SetupIntegrationClient(t, cfg), locale, service.Options{
		Region: "PR",
		Logger: zaptest.NewLogger(t),
	})
}
