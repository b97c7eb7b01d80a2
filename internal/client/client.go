package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjstillabower/tempo-service/internal/circuitbreaker"
	"github.com/kjstillabower/tempo-service/internal/models"
	"github.com/kjstillabower/tempo-service/internal/observability"
)

// WeatherClient fetches the fixed city's current conditions and 3-hour forecast.
type WeatherClient interface {
	GetCurrentWeather(ctx context.Context) (models.CurrentReport, error)
	GetForecast(ctx context.Context) ([]models.ForecastSample, error)
	ValidateAPIKey(ctx context.Context) error
}

var (
	ErrInvalidAPIKey     = errors.New("invalid API key")
	ErrLocationNotFound  = errors.New("location not found")
	ErrUpstreamFailure   = errors.New("upstream failure")
	ErrRateLimited       = errors.New("rate limited")
	ErrMalformedResponse = errors.New("malformed response")
	ErrCircuitOpen       = errors.New("circuit open")
)

const (
	endpointCurrent  = "weather"
	endpointForecast = "forecast"
)

// Query is the fixed request shape sent on every call.
type Query struct {
	City  string // e.g. "Cascavel,BR"
	Units string // provider unit system; the service only configures metric
	Lang  string // provider language code, e.g. pt_br
}

type OpenWeatherClient struct {
	apiKey  string
	baseURL string
	query   Query
	timeout time.Duration
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
}

// NewOpenWeatherClient builds a client for baseURL (e.g. https://api.openweathermap.org/data/2.5).
// Requests are single-shot; there is no retry.
func NewOpenWeatherClient(apiKey, baseURL string, query Query, timeout time.Duration) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}
	if strings.TrimSpace(query.City) == "" {
		return nil, fmt.Errorf("city is required")
	}
	if query.Units == "" {
		query.Units = "metric"
	}

	return &OpenWeatherClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		query:   query,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// SetCircuitBreaker wraps every upstream call in cb. Nil disables it.
func (c *OpenWeatherClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

type currentResponse struct {
	Name string `json:"name"`
	Main *struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

type forecastResponse struct {
	List *[]struct {
		Dt   int64 `json:"dt"`
		Main struct {
			TempMin float64 `json:"temp_min"`
			TempMax float64 `json:"temp_max"`
		} `json:"main"`
		Weather []struct {
			Icon string `json:"icon"`
		} `json:"weather"`
	} `json:"list"`
}

// GetCurrentWeather calls the current-weather endpoint.
func (c *OpenWeatherClient) GetCurrentWeather(ctx context.Context) (models.CurrentReport, error) {
	var apiResp currentResponse
	if err := c.get(ctx, endpointCurrent, &apiResp); err != nil {
		return models.CurrentReport{}, err
	}
	return c.mapCurrent(apiResp)
}

// GetForecast calls the 5-day/3-hour forecast endpoint and returns the samples in feed order.
func (c *OpenWeatherClient) GetForecast(ctx context.Context) ([]models.ForecastSample, error) {
	var apiResp forecastResponse
	if err := c.get(ctx, endpointForecast, &apiResp); err != nil {
		return nil, err
	}
	return mapForecast(apiResp)
}

func (c *OpenWeatherClient) get(ctx context.Context, endpoint string, out interface{}) error {
	call := func() error { return c.callAPI(ctx, endpoint, out) }
	if c.breaker == nil {
		return call()
	}
	err := c.breaker.Call(ctx, call)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "circuit_open").Inc()
		return fmt.Errorf("%w: %s", ErrCircuitOpen, endpoint)
	}
	return err
}

func (c *OpenWeatherClient) callAPI(ctx context.Context, endpoint string, out interface{}) error {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, endpoint)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("build request: %w", err)
	}

	corrID := extractCorrelationID(ctx)
	if corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.WeatherAPIDuration.WithLabelValues(endpoint, "error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s request timeout: %w", endpoint, err)
		}
		return fmt.Errorf("%s http request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(endpoint, status).Observe(duration)

	if err := c.handleErrorResponse(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response body: %w", endpoint, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: parse %s response: %v", ErrMalformedResponse, endpoint, err)
	}
	return nil
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, endpoint string) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + "/" + endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("q", c.query.City)
	params.Set("units", c.query.Units)
	if c.query.Lang != "" {
		params.Set("lang", c.query.Lang)
	}
	params.Set("appid", c.apiKey)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *OpenWeatherClient) handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: invalid API key", ErrInvalidAPIKey)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrLocationNotFound, c.query.City)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	return nil
}

func (c *OpenWeatherClient) mapCurrent(apiResp currentResponse) (models.CurrentReport, error) {
	if apiResp.Main == nil {
		return models.CurrentReport{}, fmt.Errorf("%w: current weather has no main block", ErrMalformedResponse)
	}
	if len(apiResp.Weather) == 0 {
		return models.CurrentReport{}, fmt.Errorf("%w: current weather has no conditions", ErrMalformedResponse)
	}

	description := apiResp.Weather[0].Description
	if description == "" {
		description = apiResp.Weather[0].Main
	}

	city := apiResp.Name
	if city == "" {
		city = CityName(c.query.City)
	}

	return models.CurrentReport{
		City:        city,
		Temp:        apiResp.Main.Temp,
		FeelsLike:   apiResp.Main.FeelsLike,
		Humidity:    apiResp.Main.Humidity,
		WindSpeed:   apiResp.Wind.Speed,
		Description: description,
		Icon:        apiResp.Weather[0].Icon,
	}, nil
}

func mapForecast(apiResp forecastResponse) ([]models.ForecastSample, error) {
	if apiResp.List == nil {
		return nil, fmt.Errorf("%w: forecast has no list", ErrMalformedResponse)
	}
	items := *apiResp.List
	samples := make([]models.ForecastSample, 0, len(items))
	for _, item := range items {
		icon := ""
		if len(item.Weather) > 0 {
			icon = item.Weather[0].Icon
		}
		samples = append(samples, models.ForecastSample{
			Time:    time.Unix(item.Dt, 0).UTC(),
			Icon:    icon,
			TempMax: item.Main.TempMax,
			TempMin: item.Main.TempMin,
		})
	}
	return samples, nil
}

// CityName returns the display part of a provider query: "Cascavel,BR" -> "Cascavel".
func CityName(query string) string {
	name, _, _ := strings.Cut(query, ",")
	return strings.TrimSpace(name)
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value("correlation_id"); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// ValidateAPIKey issues one current-weather request and reports a rejected key.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := c.buildRequest(ctx, endpointCurrent)
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: API key is invalid or not activated", ErrInvalidAPIKey)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}

	return nil
}
