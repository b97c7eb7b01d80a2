package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/tempo-service/internal/circuitbreaker"
	"github.com/kjstillabower/tempo-service/internal/client"
	"github.com/kjstillabower/tempo-service/internal/config"
	"github.com/kjstillabower/tempo-service/internal/display"
	httphandler "github.com/kjstillabower/tempo-service/internal/http"
	"github.com/kjstillabower/tempo-service/internal/lifecycle"
	"github.com/kjstillabower/tempo-service/internal/observability"
	"github.com/kjstillabower/tempo-service/internal/service"
)

func main() {
	// .env is optional; real environment variables take precedence.
	envErr := godotenv.Load()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	if envErr != nil && !os.IsNotExist(envErr) {
		logger.Warn("load .env", zap.Error(envErr))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	locale, err := display.NewLocale(cfg.Language, cfg.Timezone)
	if err != nil {
		logger.Fatal("locale", zap.Error(err))
	}

	weatherClient, err := client.NewOpenWeatherClient(
		cfg.WeatherAPIKey,
		cfg.WeatherAPIURL,
		client.Query{City: cfg.City, Units: cfg.Units, Lang: locale.Code()},
		cfg.WeatherAPITimeout,
	)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	if cfg.CircuitBreakerEnabled {
		cb := circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
			Component:        "weather_api",
			OnStateChange: func(from, to circuitbreaker.State) {
				observability.RecordCircuitBreakerTransition("weather_api", from.String(), to.String())
				observability.SetCircuitBreakerStateGauge("weather_api", observability.CircuitBreakerStateValue(int(to)))
				logger.Warn("circuit breaker transition", zap.String("from", from.String()), zap.String("to", to.String()))
			},
		})
		weatherClient.SetCircuitBreaker(cb)
		observability.SetCircuitBreakerStateGauge("weather_api", 0)
		logger.Info("circuit breaker enabled", zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold), zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}

	if cfg.ValidateKeyOnStart {
		if err := weatherClient.ValidateAPIKey(context.Background()); err != nil {
			logger.Warn("weather API key check failed; screen will show fallback data until it succeeds",
				zap.String("category", string(client.CategorizeError(err))), zap.Error(err))
		}
	}

	screen := service.NewScreenService(weatherClient, locale, service.Options{
		Region:          cfg.Region,
		FallbackCity:    cfg.FallbackCity,
		ForecastWindow:  cfg.ForecastWindow,
		ForecastMaxDays: cfg.ForecastMaxDays,
		Logger:          logger,
	})
	screen.Start(context.Background())

	page, err := httphandler.NewPageRenderer(locale, httphandler.PageConfig{
		City:   client.CityName(cfg.City),
		Region: cfg.Region,
	})
	if err != nil {
		logger.Fatal("page template", zap.Error(err))
	}

	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:       cfg.OverloadWindow,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		RateLimitRPS:         cfg.RateLimitRPS,
		DegradedWindow:       cfg.DegradedWindow,
		DegradedFallbackPct:  cfg.DegradedFallbackPct,
	}
	handler := httphandler.NewHandler(screen, page, healthConfig, logger)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	observability.RegisterRateLimitGauges(cfg.OverloadWindow)

	router := httphandler.NewRouter(handler, logger, httphandler.RouterConfig{
		Limiter:        limiter,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", ":"+cfg.ServerPort),
			zap.String("city", cfg.City),
			zap.String("language", locale.Code()),
			zap.String("timezone", cfg.TimezoneName))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	observability.RecordShutdownInFlight(inFlight)
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
