package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/tempo-service/internal/client"
	"github.com/kjstillabower/tempo-service/internal/degraded"
	"github.com/kjstillabower/tempo-service/internal/display"
	"github.com/kjstillabower/tempo-service/internal/forecast"
	"github.com/kjstillabower/tempo-service/internal/models"
	"github.com/kjstillabower/tempo-service/internal/observability"
)

// Options configures a ScreenService. Zero values take the defaults noted per field.
type Options struct {
	Region          string           // shown after the city name; empty hides it
	FallbackCity    string           // city on the fallback payload (default "Cascavel")
	ForecastWindow  int              // leading samples fed to the reducer (default forecast.DefaultWindow)
	ForecastMaxDays int              // day summaries kept (default forecast.DefaultMaxDays)
	Logger          *zap.Logger      // used when the context carries no request logger
	Now             func() time.Time // clock; tests inject a fixed time
}

// ScreenService owns the display state for the configured city. Each fetch cycle calls the
// current-weather and forecast endpoints in sequence and replaces both view models; any error
// replaces both with the fallback payload. Errors are logged and counted, never surfaced.
type ScreenService struct {
	client       client.WeatherClient
	locale       display.Locale
	region       string
	fallbackCity string
	window       int
	maxDays      int
	logger       *zap.Logger
	now          func() time.Time
	overlap      *overlapTracker

	mu      sync.Mutex // protects screen and pending
	screen  models.Screen
	pending int // fetch cycles started and not yet applied
}

// NewScreenService returns a service in the loading state. Call Start to run the first fetch.
func NewScreenService(c client.WeatherClient, locale display.Locale, opts Options) *ScreenService {
	s := &ScreenService{
		client:       c,
		locale:       locale,
		region:       opts.Region,
		fallbackCity: opts.FallbackCity,
		window:       opts.ForecastWindow,
		maxDays:      opts.ForecastMaxDays,
		logger:       opts.Logger,
		now:          opts.Now,
		overlap:      newOverlapTracker(),
	}
	if s.fallbackCity == "" {
		s.fallbackCity = "Cascavel"
	}
	if s.window <= 0 {
		s.window = forecast.DefaultWindow
	}
	if s.maxDays <= 0 {
		s.maxDays = forecast.DefaultMaxDays
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.screen = models.Screen{
		Region:   s.region,
		Forecast: []models.ForecastDay{},
		Loading:  true,
	}
	return s
}

// loggerFromContext extracts a zap.Logger from request context if present.
// Falls back to the service logger.
func (s *ScreenService) loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return s.logger
}

// Start runs the initial fetch in the background. The returned channel delivers the screen
// once loading has cleared, whether the data is live or fallback.
func (s *ScreenService) Start(ctx context.Context) <-chan models.Screen {
	s.mu.Lock()
	s.beginLocked()
	s.mu.Unlock()
	return s.run(ctx)
}

// Refresh marks the screen as refreshing and fetches again in the background. The refreshing
// flag is set before Refresh returns. Concurrent refreshes are not coalesced; the last one to
// finish wins.
func (s *ScreenService) Refresh(ctx context.Context) <-chan models.Screen {
	s.mu.Lock()
	s.screen.Refreshing = true
	s.beginLocked()
	s.mu.Unlock()
	observability.ScreenRefreshesTotal.Inc()
	return s.run(ctx)
}

// beginLocked counts a new fetch cycle. The loading gauge stays up until every started
// cycle has been applied, even though the screen flags clear on the last completion.
func (s *ScreenService) beginLocked() {
	s.pending++
	observability.SetScreenLoading(true)
}

// Snapshot returns a copy of the current screen state.
func (s *ScreenService) Snapshot() models.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *ScreenService) snapshotLocked() models.Screen {
	snap := s.screen
	if s.screen.Current != nil {
		cur := *s.screen.Current
		snap.Current = &cur
	}
	snap.Forecast = make([]models.ForecastDay, len(s.screen.Forecast))
	copy(snap.Forecast, s.screen.Forecast)
	return snap
}

// run detaches ctx from its caller's cancellation so a finished HTTP request does not abort
// the fetch; the client's per-request timeout still bounds each call.
func (s *ScreenService) run(ctx context.Context) <-chan models.Screen {
	ctx = context.WithoutCancel(ctx)
	out := make(chan models.Screen, 1)
	go func() {
		defer close(out)
		current, days, source := s.fetch(ctx)

		s.mu.Lock()
		s.screen.Current = current
		s.screen.Forecast = days
		s.screen.Source = source
		s.screen.UpdatedAt = s.now()
		s.screen.Loading = false
		s.screen.Refreshing = false
		s.pending--
		observability.SetScreenLoading(s.pending > 0)
		snap := s.snapshotLocked()
		s.mu.Unlock()

		out <- snap
	}()
	return out
}

// fetch runs one cycle and always returns displayable data.
func (s *ScreenService) fetch(ctx context.Context) (*models.CurrentConditions, []models.ForecastDay, models.Source) {
	logger := s.loggerFromContext(ctx)
	start := time.Now()

	if n := s.overlap.Begin(); n > 1 {
		observability.ScreenFetchOverlapTotal.Inc()
		logger.Debug("fetch overlaps a running fetch", zap.Int("active", n))
	}
	defer s.overlap.End()

	current, days, err := s.fetchLive(ctx)
	duration := time.Since(start)
	if err != nil {
		category := client.CategorizeError(err)
		observability.RecordScreenFetch(string(models.SourceFallback), string(category), duration)
		degraded.RecordFallback()
		logger.Warn("weather fetch failed, showing fallback",
			zap.String("category", string(category)),
			zap.Error(err),
			zap.Duration("duration", duration),
		)
		return FallbackCurrent(s.fallbackCity, s.locale, s.now()), FallbackForecast(), models.SourceFallback
	}

	observability.RecordScreenFetch(string(models.SourceLive), "", duration)
	degraded.RecordLive()
	logger.Debug("weather fetched",
		zap.String("city", current.City),
		zap.Int("forecast_days", len(days)),
		zap.Duration("duration", duration),
	)
	return current, days, models.SourceLive
}

// fetchLive calls current then forecast. The first error aborts the cycle.
func (s *ScreenService) fetchLive(ctx context.Context) (*models.CurrentConditions, []models.ForecastDay, error) {
	report, err := s.client.GetCurrentWeather(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("current weather: %w", err)
	}
	samples, err := s.client.GetForecast(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("forecast: %w", err)
	}

	now := s.now()
	current := &models.CurrentConditions{
		City:        report.City,
		Temperature: display.Round(report.Temp),
		Condition:   report.Description,
		Icon:        report.Icon,
		Humidity:    report.Humidity,
		WindSpeed:   display.WindKPH(report.WindSpeed),
		FeelsLike:   display.Round(report.FeelsLike),
		Time:        s.locale.Clock(now),
		Date:        s.locale.Date(now),
	}
	days := forecast.Reduce(forecast.Window(samples, s.window), s.locale.DayLabel, s.maxDays)
	return current, days, nil
}
