package httphandler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/go-github/v82/github"

	"github.com/aidaco/wwwmin/internal/adapter/driving/session"
	"github.com/aidaco/wwwmin/internal/application"
	"github.com/aidaco/wwwmin/internal/domain/model"
)

// signatureHeader carries the HMAC-SHA256 of the webhook body.
const signatureHeader = "X-Hub-Signature-256"

const revisionTimeout = 5 * time.Second

var triggerMessages = map[model.UpgradeAction]string{
	model.UpgradeActionUpgrade:  "Upgrade started.",
	model.UpgradeActionRestart:  "Restart started.",
	model.UpgradeActionShutdown: "Shutdown started.",
}

// trigger starts an admin-requested upgrade, restart or shutdown.
func (h *Handler) trigger(action model.UpgradeAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		by := "admin"
		if u, ok := session.UserFrom(r.Context()); ok {
			by = "admin:" + u.Username
		}

		err := h.upgrade.Trigger(action, by)
		switch {
		case errors.Is(err, application.ErrUpgradeInProgress):
			writeError(w, http.StatusConflict, "an upgrade sequence is already running")
			return
		case errors.Is(err, application.ErrUpgradeDisabled):
			writeError(w, http.StatusServiceUnavailable, "upgrades are disabled")
			return
		case err != nil:
			h.logger.Error("failed to trigger upgrade sequence", "action", action, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		h.logger.Info("upgrade sequence triggered", "action", action, "by", by)
		writeJSON(w, http.StatusOK, MessageResponse{Message: triggerMessages[action]})
	}
}

// UpgradeStatus reports the controller state and, when a revision source is
// configured, the head of the upgrade branch.
func (h *Handler) UpgradeStatus(w http.ResponseWriter, r *http.Request) {
	resp := toUpgradeStatusResponse(h.upgrade.Enabled(), h.upgrade.Status())

	if h.revisions != nil {
		ctx, cancel := context.WithTimeout(r.Context(), revisionTimeout)
		defer cancel()

		rev, err := h.revisions.HeadRevision(ctx, h.upgrade.Branch())
		if err != nil {
			h.logger.Warn("failed to resolve head revision", "error", err)
			resp.RevisionError = err.Error()
		} else {
			resp.Revision = toRevisionResponse(rev)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Webhook receives source-control deliveries. Signature failures get a
// generic 403 with no detail.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event := model.UpgradeEvent{
		Kind:             model.ParseEventKind(github.WebHookType(r)),
		DeliveryID:       github.DeliveryID(r),
		Body:             body,
		ClaimedSignature: r.Header.Get(signatureHeader),
	}
	log := h.logger.With("app", r.PathValue("appname"), "event", event.Kind, "delivery", event.DeliveryID)

	ack, err := h.upgrade.ReceiveEvent(r.Context(), event)
	switch {
	case errors.Is(err, application.ErrForbidden):
		h.observer.ObserveWebhook(event.Kind, outcomeRejected)
		writeError(w, http.StatusForbidden, "Forbidden.")
		return
	case errors.Is(err, application.ErrUpgradeInProgress):
		h.observer.ObserveWebhook(event.Kind, outcomeRejected)
		writeError(w, http.StatusConflict, "an upgrade sequence is already running")
		return
	case err != nil:
		h.observer.ObserveWebhook(event.Kind, outcomeError)
		log.Error("failed to handle webhook", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	outcome := outcomeIgnored
	if ack.Scheduled {
		outcome = outcomeAccepted
	}
	h.observer.ObserveWebhook(event.Kind, outcome)
	log.Info("webhook handled", "message", ack.Message)

	writeJSON(w, http.StatusOK, MessageResponse{Message: ack.Message})
}
