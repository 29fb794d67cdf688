package server

import (
	"context"
	"fmt"
	"net/http"

	e "github.com/Amund211/coalesce/internal/errors"
	"github.com/Amund211/coalesce/internal/logging"
)

// FetchValue produces the coalesced value for key, typically by going
// through a shared cache in front of a slow upstream.
type FetchValue func(ctx context.Context, key string) ([]byte, error)

func MakeFetchHandler(fetch FetchValue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		key := r.URL.Query().Get("key")
		if key == "" {
			statusCode := writeErrorResponse(ctx, w, fmt.Errorf("%w: missing key parameter", e.BadRequestError))
			logger.Info("Returning response", "statusCode", statusCode, "reason", "missing key")
			return
		}

		data, err := fetch(ctx, key)
		if err != nil {
			statusCode := writeErrorResponse(ctx, w, err)
			logger.Error("Error fetching value", "statusCode", statusCode, "error", err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		logger.Info("Returning response", "statusCode", http.StatusOK)
	}
}

func MakeEvictHandler(evict func(key string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		key := r.URL.Query().Get("key")
		if key == "" {
			statusCode := writeErrorResponse(ctx, w, fmt.Errorf("%w: missing key parameter", e.BadRequestError))
			logger.Info("Returning response", "statusCode", statusCode, "reason", "missing key")
			return
		}

		evict(key)

		w.WriteHeader(http.StatusNoContent)
		logger.Info("Returning response", "statusCode", http.StatusNoContent, "evicted", key)
	}
}
