package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Amund211/coalesce"
	e "github.com/Amund211/coalesce/internal/errors"
	"github.com/Amund211/coalesce/internal/logging"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Cause   string `json:"cause"`
}

func writeErrorResponse(ctx context.Context, w http.ResponseWriter, responseError error) int {
	w.Header().Set("Content-Type", "application/json")

	errorBytes, err := json.Marshal(errorResponse{
		Success: false,
		Cause:   responseError.Error(),
	})
	if err != nil {
		logging.FromContext(ctx).Error("Error marshalling error response", "error", err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"cause":"Internal server error (coalesced)"}`))
		return http.StatusInternalServerError
	}

	// Unknown error: default to 500
	statusCode := http.StatusInternalServerError

	if errors.Is(responseError, e.BadRequestError) {
		statusCode = http.StatusBadRequest
	} else if errors.Is(responseError, e.RatelimitExceededError) {
		statusCode = http.StatusTooManyRequests
	} else if errors.Is(responseError, coalesce.ErrWaitTimeout) {
		statusCode = http.StatusGatewayTimeout
	} else if errors.Is(responseError, coalesce.ErrComputationFailed) {
		statusCode = http.StatusBadGateway
	}

	w.WriteHeader(statusCode)
	w.Write(errorBytes)
	return statusCode
}
