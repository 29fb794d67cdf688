package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Amund211/coalesce"
	"github.com/Amund211/coalesce/internal/config"
	"github.com/Amund211/coalesce/internal/logging"
	"github.com/Amund211/coalesce/internal/ratelimiting"
	"github.com/Amund211/coalesce/internal/reporting"
	"github.com/Amund211/coalesce/internal/server"
	"github.com/Amund211/coalesce/internal/telemetry"
)

func main() {
	instanceID := uuid.New().String()
	logger := slog.New(
		logging.NewTracingLogHandler(slog.NewJSONHandler(os.Stdout, nil)),
	).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	conf, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", conf.NonSensitiveString())

	ctx := logging.AddToContext(context.Background(), logger)

	metricsShutdown, err := telemetry.SetupMetrics(ctx, "coalesced", conf.OTLPEndpoint())
	if err != nil {
		fail("Failed to set up telemetry", "error", err.Error())
	}
	defer func() {
		if err := metricsShutdown(context.Background()); err != nil {
			logger.Error("Failed to shut down telemetry", "error", err.Error())
		}
	}()

	observer, err := telemetry.NewMeterObserver()
	if err != nil {
		fail("Failed to create meter observer", "error", err.Error())
	}

	cache := coalesce.New(conf.WaitTimeout(), coalesce.WithObserver(observer))

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}
	fetchUpstream := makeUpstreamFetcher(httpClient, conf.UpstreamURL())

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(conf)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	rateLimiter, stopRateLimiter := ratelimiting.NewTokenBucketRateLimiter(2, 120)
	defer stopRateLimiter()
	requestRateLimiter := ratelimiting.NewRequestBasedRateLimiter(rateLimiter, ratelimiting.IPKeyFunc)

	fetchThroughCache := func(ctx context.Context, key string) ([]byte, error) {
		data, err := coalesce.Get(ctx, cache, key, func() ([]byte, error) {
			return fetchUpstream(ctx, key)
		})
		if err != nil {
			if !errors.Is(err, coalesce.ErrWaitTimeout) {
				reporting.Report(ctx, err, map[string]string{"key": key})
			}
			return nil, err
		}
		return data, nil
	}

	middleware := server.ComposeMiddlewares(
		logging.NewRequestLoggerMiddleware(logger.With("port", "fetch")),
		sentryMiddleware,
		server.NewRateLimitMiddleware(requestRateLimiter),
	)

	http.HandleFunc(
		"GET /v1/fetch",
		middleware(server.MakeFetchHandler(fetchThroughCache)),
	)
	http.HandleFunc(
		"POST /v1/evict",
		middleware(server.MakeEvictHandler(cache.Evict)),
	)

	logger.Info("Init complete")
	err = http.ListenAndServe(fmt.Sprintf(":%s", conf.Port()), nil)
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info("Server shutdown")
	} else {
		fail("Server error", "error", err.Error())
	}
}

// makeUpstreamFetcher fetches key from the configured upstream. Without a
// configured upstream (local development) it falls back to a slow echo, so
// coalescing is easy to observe by hand.
func makeUpstreamFetcher(httpClient *http.Client, upstreamURL string) func(ctx context.Context, key string) ([]byte, error) {
	if upstreamURL == "" {
		return func(ctx context.Context, key string) ([]byte, error) {
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return []byte(fmt.Sprintf(`{"key":%q,"computedAt":%q}`, key, time.Now().Format(time.RFC3339))), nil
		}
	}

	return func(ctx context.Context, key string) ([]byte, error) {
		target := fmt.Sprintf("%s?key=%s", upstreamURL, url.QueryEscape(key))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create upstream request: %w", err)
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch from upstream: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read upstream response: %w", err)
		}
		return data, nil
	}
}
