package httpapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"community-bot/internal/common/errors"
	"community-bot/internal/common/logger"
	"community-bot/internal/common/metrics"
	"community-bot/internal/membership"
	syncmembership "community-bot/internal/workers/storefront/sync-membership"
)

const maxBodyBytes = 16 * 1024

// statusHeader carries the sync outcome next to the plain-text message.
const statusHeader = "X-Membership-Status"

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func syncMembership(service *syncmembership.Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, details, err := parseSyncRequest(r)
		if err != nil {
			log.Warn("Rejected sync request", map[string]interface{}{
				"customerId": chi.URLParam(r, "id"),
				"error":      err.Error(),
			})
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Details: details})
			return
		}

		out, err := service.Execute(r.Context(), metrics.TriggerHTTP, input)
		w.Header().Set(statusHeader, out.Status)
		writeText(w, statusFor(err), out.Message)
	}
}

func parseSyncRequest(r *http.Request) (*syncmembership.Input, []string, error) {
	customerID := strings.TrimSpace(chi.URLParam(r, "id"))
	input := &syncmembership.Input{CustomerID: customerID}

	result, err := syncmembership.GetInputSchema().ValidateValue(map[string]interface{}{"customerId": customerID})
	if err != nil {
		return nil, nil, err
	}
	if !result.Valid {
		return nil, result.GetErrorMessages(), errors.NewValidationError("invalid customer id")
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, errors.NewValidationError("unreadable body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return input, nil, nil
	}

	result, err = syncmembership.GetBodySchema().ValidateBytes(body)
	if err != nil {
		return nil, nil, errors.NewValidationError("malformed JSON body")
	}
	if !result.Valid {
		return nil, result.GetErrorMessages(), errors.NewValidationError("invalid body")
	}

	subscriptionID, err := syncmembership.SubscriptionIDFromBody(body)
	if err != nil {
		return nil, nil, errors.NewValidationError("malformed JSON body")
	}
	input.SubscriptionID = subscriptionID
	return input, nil, nil
}

// statusFor maps a sync failure to its HTTP status. Only a member missing
// from the guild is the caller's problem.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.HasCode(err, errors.ErrCodeMemberNotFound):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func listPendingLinks(pending membership.PendingLinks, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		links, err := pending.List(r.Context())
		if err != nil {
			log.Error("Failed to list pending links", map[string]interface{}{"error": err.Error()})
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list pending links"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"pendingLinks": links})
	}
}

func resolvePendingLink(pending membership.PendingLinks, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(chi.URLParam(r, "userId"))
		if userID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing user id"})
			return
		}
		if err := pending.Resolve(r.Context(), userID); err != nil {
			log.Error("Failed to resolve pending link", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to resolve pending link"})
			return
		}
		log.Info("Pending link resolved by operator", map[string]interface{}{"userId": userID})
		w.WriteHeader(http.StatusNoContent)
	}
}
