package httphandler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/aidaco/wwwmin/internal/adapter/driving/session"
)

// browserSubscription is the subset of the browser PushSubscription JSON
// needed to deliver a notification.
type browserSubscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// VAPIDPublicKey returns the application server key as text/plain.
func (h *Handler) VAPIDPublicKey(w http.ResponseWriter, _ *http.Request) {
	if h.push == nil || h.vapidKey == "" {
		writeError(w, http.StatusNotFound, "web push is disabled")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, h.vapidKey)
}

// RegisterPushSubscription stores the caller's browser subscription.
func (h *Handler) RegisterPushSubscription(w http.ResponseWriter, r *http.Request) {
	if h.push == nil {
		writeError(w, http.StatusNotFound, "web push is disabled")
		return
	}

	user, ok := session.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized.")
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var sub browserSubscription
	if err := json.Unmarshal(raw, &sub); err != nil || sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		writeError(w, http.StatusBadRequest, "invalid push subscription")
		return
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid push subscription")
		return
	}

	stored, err := h.push.Subscribe(r.Context(), user.ID, compact.String())
	if err != nil {
		h.logger.Error("failed to store push subscription", "user", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, PushSubscriptionResponse{
		ID:           stored.ID,
		UserID:       stored.UserID,
		SubscribedAt: formatTime(stored.SubscribedAt),
	})
}
