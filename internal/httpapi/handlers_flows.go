package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"qonnectme/internal/domain"
	"qonnectme/internal/flows"
)

const maxFlowBody = 64 << 10

// handleFlowRun runs a registered flow with the request body as input.
// Execution failures are logged and reported with a generic message.
func (a *api) handleFlowRun(w http.ResponseWriter, r *http.Request) {
	if !a.flowLimiter.Allow(a.clientIP(r), time.Now()) {
		a.metrics.rateLimited("flows")
		WriteDomainError(w, domain.ErrRateLimited)
		return
	}

	name := r.PathValue("flow")
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFlowBody))
	if err != nil {
		writeInvalidInput(w, []flows.Issue{{Message: "body too large"}})
		return
	}

	out, err := a.flows.Run(r.Context(), name, raw)
	if err != nil {
		var inputErr *flows.InputError
		switch {
		case errors.Is(err, flows.ErrUnknownFlow):
			WriteError(w, http.StatusNotFound, "not_found", "flow not found")
		case errors.As(err, &inputErr):
			writeInvalidInput(w, inputErr.Issues)
		default:
			a.logger.Error("flow failed", "err", err, "flow", name)
			WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred.")
		}
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

func writeInvalidInput(w http.ResponseWriter, issues []flows.Issue) {
	WriteJSON(w, http.StatusBadRequest, errorEnvelope{Error: apiError{
		Code:    "invalid_input",
		Message: "Invalid input",
		Details: issues,
	}})
}
