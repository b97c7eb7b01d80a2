package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/tempo-service/internal/client"
	"github.com/kjstillabower/tempo-service/internal/degraded"
	"github.com/kjstillabower/tempo-service/internal/display"
	"github.com/kjstillabower/tempo-service/internal/models"
	"github.com/kjstillabower/tempo-service/internal/observability"
)

// Tuesday 2026-10-13 12:00 UTC, 09:00 in Cascavel.
var fixedNow = time.Date(2026, 10, 13, 12, 0, 0, 0, time.UTC)

type mockWeatherClient struct {
	report      models.CurrentReport
	samples     []models.ForecastSample
	currentErr  error
	forecastErr error
	gate        chan struct{} // when set, GetCurrentWeather blocks until closed

	currentCalls  atomic.Int32
	forecastCalls atomic.Int32
}

func (m *mockWeatherClient) GetCurrentWeather(ctx context.Context) (models.CurrentReport, error) {
	m.currentCalls.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	return m.report, m.currentErr
}

func (m *mockWeatherClient) GetForecast(ctx context.Context) ([]models.ForecastSample, error) {
	m.forecastCalls.Add(1)
	return m.samples, m.forecastErr
}

func (m *mockWeatherClient) ValidateAPIKey(ctx context.Context) error {
	return nil
}

func testLocale(t *testing.T) display.Locale {
	t.Helper()
	loc, err := display.NewLocale("pt_br", time.FixedZone("BRT", -3*60*60))
	if err != nil {
		t.Fatalf("NewLocale: %v", err)
	}
	return loc
}

func liveClient() *mockWeatherClient {
	tue := time.Date(2026, 10, 13, 12, 0, 0, 0, time.UTC)
	return &mockWeatherClient{
		report: models.CurrentReport{
			City:        "Cascavel",
			Temp:        21.6,
			FeelsLike:   20.4,
			Humidity:    70,
			WindSpeed:   3.0,
			Description: "nublado",
			Icon:        "04d",
		},
		samples: []models.ForecastSample{
			{Time: tue, Icon: "03d", TempMax: 22.5, TempMin: 17.2},
			{Time: tue.Add(6 * time.Hour), Icon: "10d", TempMax: 30, TempMin: 10},
			{Time: tue.Add(18 * time.Hour), Icon: "01d", TempMax: 25.4, TempMin: 15.5},
			{Time: tue.Add(42 * time.Hour), Icon: "02d", TempMax: 27, TempMin: 16},
			{Time: tue.Add(66 * time.Hour), Icon: "09d", TempMax: 19, TempMin: 14},
		},
	}
}

func newTestService(t *testing.T, c client.WeatherClient, logger *zap.Logger) *ScreenService {
	t.Helper()
	return NewScreenService(c, testLocale(t), Options{
		Region: "PR",
		Logger: logger,
		Now:    func() time.Time { return fixedNow },
	})
}

func waitScreen(t *testing.T, ch <-chan models.Screen) models.Screen {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			t.Fatal("screen channel closed without a value")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch")
	}
	return models.Screen{}
}

// TestStart_LiveData verifies that a successful cycle rounds values, converts wind to km/h,
// formats time and date in the locale zone, and reduces the forecast to three days.
func TestStart_LiveData(t *testing.T) {
	degraded.Reset()
	t.Cleanup(degraded.Reset)

	svc := newTestService(t, liveClient(), nil)
	screen := waitScreen(t, svc.Start(context.Background()))

	if screen.Source != models.SourceLive {
		t.Errorf("Source = %q, want live", screen.Source)
	}
	want := models.CurrentConditions{
		City:        "Cascavel",
		Temperature: 22,
		Condition:   "nublado",
		Icon:        "04d",
		Humidity:    70,
		WindSpeed:   11,
		FeelsLike:   20,
		Time:        "09:00",
		Date:        "ter., 13 de out.",
	}
	if screen.Current == nil || *screen.Current != want {
		t.Errorf("Current = %+v, want %+v", screen.Current, want)
	}

	wantDays := []models.ForecastDay{
		{Day: "TER", Icon: "03d", MaxTemp: 23, MinTemp: 17},
		{Day: "QUA", Icon: "01d", MaxTemp: 25, MinTemp: 16},
		{Day: "QUI", Icon: "02d", MaxTemp: 27, MinTemp: 16},
	}
	if len(screen.Forecast) != len(wantDays) {
		t.Fatalf("Forecast = %+v, want %+v", screen.Forecast, wantDays)
	}
	for i := range wantDays {
		if screen.Forecast[i] != wantDays[i] {
			t.Errorf("Forecast[%d] = %+v, want %+v", i, screen.Forecast[i], wantDays[i])
		}
	}
	if screen.Region != "PR" {
		t.Errorf("Region = %q, want PR", screen.Region)
	}
	if !screen.UpdatedAt.Equal(fixedNow) {
		t.Errorf("UpdatedAt = %v, want %v", screen.UpdatedAt, fixedNow)
	}
	if fallbacks, total := degraded.FallbackRate(time.Minute); fallbacks != 0 || total != 1 {
		t.Errorf("FallbackRate = %d/%d, want 0/1", fallbacks, total)
	}
}

// TestStart_FallbackOnFailure verifies that any failure in either call replaces both view
// models with the fixed payload, and that a current-weather failure skips the forecast call.
func TestStart_FallbackOnFailure(t *testing.T) {
	networkErr := fmt.Errorf("dial tcp: connection refused")

	tests := []struct {
		name              string
		currentErr        error
		forecastErr       error
		wantForecastCalls int32
		wantCategory      string
	}{
		{"current network error", networkErr, nil, 0, "network"},
		{"current malformed", fmt.Errorf("%w: parse weather response", client.ErrMalformedResponse), nil, 0, "malformed"},
		{"forecast fails after current succeeds", nil, client.ErrUpstreamFailure, 1, "upstream"},
		{"circuit open", client.ErrCircuitOpen, nil, 0, "circuit_open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			degraded.Reset()
			t.Cleanup(degraded.Reset)

			core, logs := observer.New(zapcore.WarnLevel)
			mc := liveClient()
			mc.currentErr = tt.currentErr
			mc.forecastErr = tt.forecastErr

			svc := newTestService(t, mc, zap.New(core))
			screen := waitScreen(t, svc.Start(context.Background()))

			if screen.Source != models.SourceFallback {
				t.Errorf("Source = %q, want fallback", screen.Source)
			}
			if screen.Current == nil {
				t.Fatal("Current is nil")
			}
			if screen.Current.Temperature != 24 || screen.Current.City != "Cascavel" {
				t.Errorf("Current = %+v, want fallback 24 / Cascavel", screen.Current)
			}
			if screen.Current.Condition != "céu limpo" || screen.Current.Humidity != 65 ||
				screen.Current.WindSpeed != 10 || screen.Current.FeelsLike != 25 {
				t.Errorf("Current = %+v, want fixed fallback values", screen.Current)
			}
			if screen.Current.Time != "09:00" {
				t.Errorf("Time = %q, want formatted at fallback time", screen.Current.Time)
			}
			if len(screen.Forecast) != 3 || screen.Forecast[0].Day != "TER" || screen.Forecast[2].Day != "QUI" {
				t.Errorf("Forecast = %+v, want fallback TER/QUA/QUI", screen.Forecast)
			}
			if got := mc.forecastCalls.Load(); got != tt.wantForecastCalls {
				t.Errorf("forecast calls = %d, want %d", got, tt.wantForecastCalls)
			}
			if fallbacks, _ := degraded.FallbackRate(time.Minute); fallbacks != 1 {
				t.Errorf("fallbacks recorded = %d, want 1", fallbacks)
			}

			entries := logs.FilterMessage("weather fetch failed, showing fallback").All()
			if len(entries) != 1 {
				t.Fatalf("expected one fallback warning, got %d", len(entries))
			}
			if got := entries[0].ContextMap()["category"]; got != tt.wantCategory {
				t.Errorf("logged category = %v, want %s", got, tt.wantCategory)
			}
		})
	}
}

// TestStart_FallbackCityOption verifies the fallback payload uses the configured city.
func TestStart_FallbackCityOption(t *testing.T) {
	mc := &mockWeatherClient{currentErr: errors.New("boom")}
	svc := NewScreenService(mc, testLocale(t), Options{FallbackCity: "Toledo", Now: func() time.Time { return fixedNow }})

	screen := waitScreen(t, svc.Start(context.Background()))
	if screen.Current.City != "Toledo" {
		t.Errorf("City = %q, want Toledo", screen.Current.City)
	}
}

// TestFallbackForecast_ReturnsCopy verifies callers cannot mutate the shared fallback table.
func TestFallbackForecast_ReturnsCopy(t *testing.T) {
	days := FallbackForecast()
	days[0].MaxTemp = 99
	if got := FallbackForecast()[0].MaxTemp; got != 26 {
		t.Errorf("FallbackForecast()[0].MaxTemp = %d, want 26", got)
	}
}

// TestNewScreenService_StartsLoading verifies the initial state shows the loading screen
// and that loading clears once the first fetch completes.
func TestNewScreenService_StartsLoading(t *testing.T) {
	mc := liveClient()
	mc.gate = make(chan struct{})
	svc := newTestService(t, mc, nil)

	snap := svc.Snapshot()
	if !snap.Loading {
		t.Error("Loading = false before Start, want true")
	}
	if snap.Current != nil {
		t.Errorf("Current = %+v before first fetch, want nil", snap.Current)
	}
	if snap.Forecast == nil || len(snap.Forecast) != 0 {
		t.Errorf("Forecast = %#v, want empty non-nil", snap.Forecast)
	}

	done := svc.Start(context.Background())
	if !svc.Snapshot().Loading {
		t.Error("Loading cleared while fetch still blocked")
	}
	close(mc.gate)
	screen := waitScreen(t, done)

	if screen.Loading {
		t.Error("Loading = true after fetch, want false")
	}
	if svc.Snapshot().Loading {
		t.Error("Snapshot().Loading = true after fetch, want false")
	}
}

// TestRefresh_SetsAndClearsRefreshing verifies the refreshing indicator is set synchronously
// and cleared after completion, on both the live and fallback paths.
func TestRefresh_SetsAndClearsRefreshing(t *testing.T) {
	for _, fail := range []bool{false, true} {
		t.Run(fmt.Sprintf("fail=%v", fail), func(t *testing.T) {
			mc := liveClient()
			if fail {
				mc.currentErr = errors.New("timeout")
			}
			svc := newTestService(t, mc, nil)
			waitScreen(t, svc.Start(context.Background()))

			mc.gate = make(chan struct{})
			done := svc.Refresh(context.Background())
			if !svc.Snapshot().Refreshing {
				t.Fatal("Refreshing = false right after Refresh, want true")
			}

			close(mc.gate)
			screen := waitScreen(t, done)
			if screen.Refreshing {
				t.Error("Refreshing = true in final screen, want false")
			}
			if svc.Snapshot().Refreshing {
				t.Error("Snapshot().Refreshing = true after completion, want false")
			}
			if mc.currentCalls.Load() != 2 {
				t.Errorf("current calls = %d, want 2", mc.currentCalls.Load())
			}
		})
	}
}

// TestRefresh_CancelledCallerContext verifies that cancelling the caller's context does not
// abort the background fetch.
func TestRefresh_CancelledCallerContext(t *testing.T) {
	mc := liveClient()
	svc := newTestService(t, mc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	screen := waitScreen(t, svc.Refresh(ctx))
	if screen.Source != models.SourceLive {
		t.Errorf("Source = %q, want live despite cancelled caller", screen.Source)
	}
}

// TestRefresh_Overlapping verifies overlapping refreshes both complete and leave a settled state.
func TestRefresh_Overlapping(t *testing.T) {
	mc := liveClient()
	mc.gate = make(chan struct{})
	svc := newTestService(t, mc, nil)

	first := svc.Refresh(context.Background())
	second := svc.Refresh(context.Background())
	close(mc.gate)
	waitScreen(t, first)
	waitScreen(t, second)

	snap := svc.Snapshot()
	if snap.Refreshing || snap.Loading {
		t.Errorf("Refreshing/Loading = %v/%v after both completed, want false/false", snap.Refreshing, snap.Loading)
	}
	if got := svc.overlap.Active(); got != 0 {
		t.Errorf("active fetches = %d, want 0", got)
	}
}

// steppedClient releases each GetCurrentWeather call on its own gate, in call order.
type steppedClient struct {
	*mockWeatherClient
	gates []chan struct{}
}

func (c *steppedClient) GetCurrentWeather(ctx context.Context) (models.CurrentReport, error) {
	n := c.currentCalls.Add(1)
	<-c.gates[n-1]
	return c.report, c.currentErr
}

// TestRefresh_LoadingGaugeHeldWhileFetchPending verifies the loading gauge stays at 1 until
// every overlapping fetch has completed.
func TestRefresh_LoadingGaugeHeldWhileFetchPending(t *testing.T) {
	sc := &steppedClient{
		mockWeatherClient: liveClient(),
		gates:             []chan struct{}{make(chan struct{}), make(chan struct{})},
	}
	svc := newTestService(t, sc, nil)

	first := svc.Refresh(context.Background())
	second := svc.Refresh(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for sc.currentCalls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("fetches did not reach the client")
		}
		time.Sleep(time.Millisecond)
	}
	if got := testutil.ToFloat64(observability.ScreenLoading); got != 1 {
		t.Fatalf("ScreenLoading = %v while fetching, want 1", got)
	}

	close(sc.gates[0])
	var remaining <-chan models.Screen
	select {
	case <-first:
		remaining = second
	case <-second:
		remaining = first
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first completion")
	}
	if got := testutil.ToFloat64(observability.ScreenLoading); got != 1 {
		t.Errorf("ScreenLoading = %v with a fetch still pending, want 1", got)
	}

	close(sc.gates[1])
	waitScreen(t, remaining)
	if got := testutil.ToFloat64(observability.ScreenLoading); got != 0 {
		t.Errorf("ScreenLoading = %v after all fetches, want 0", got)
	}
}

// TestSnapshot_ReturnsCopy verifies that mutating a snapshot does not change service state.
func TestSnapshot_ReturnsCopy(t *testing.T) {
	svc := newTestService(t, liveClient(), nil)
	waitScreen(t, svc.Start(context.Background()))

	snap := svc.Snapshot()
	snap.Current.Temperature = -50
	snap.Forecast[0].Day = "XXX"

	again := svc.Snapshot()
	if again.Current.Temperature != 22 {
		t.Errorf("Temperature = %d after mutating snapshot, want 22", again.Current.Temperature)
	}
	if again.Forecast[0].Day != "TER" {
		t.Errorf("Forecast[0].Day = %q after mutating snapshot, want TER", again.Forecast[0].Day)
	}
}

// TestFetch_UsesRequestLogger verifies a logger stored in the context under "logger" is used.
func TestFetch_UsesRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	mc := &mockWeatherClient{currentErr: errors.New("connection reset")}
	svc := newTestService(t, mc, zap.NewNop())

	ctx := context.WithValue(context.Background(), "logger", zap.New(core))
	waitScreen(t, svc.Refresh(ctx))

	if logs.FilterMessage("weather fetch failed, showing fallback").Len() != 1 {
		t.Error("expected fallback warning on the request logger")
	}
}
