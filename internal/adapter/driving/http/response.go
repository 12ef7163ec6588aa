package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aidaco/wwwmin/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body. Fields is set for
// validation failures.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// TokenResponse is the body returned by the token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// MessageResponse acknowledges a request that scheduled or skipped work.
type MessageResponse struct {
	Message string `json:"message"`
}

// ClosedResponse is returned with 503 outside operating hours.
type ClosedResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// SubmissionResponse is the JSON representation of a contact submission.
type SubmissionResponse struct {
	ID         int64   `json:"id"`
	Email      string  `json:"email"`
	Message    string  `json:"message"`
	Phone      string  `json:"phone"`
	ReceivedAt string  `json:"received_at"`
	ArchivedAt *string `json:"archived_at"`
}

// CategoryResponse is the JSON representation of a link category.
type CategoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LinkResponse is the JSON representation of a contact link.
type LinkResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Href       string `json:"href"`
	CategoryID int64  `json:"category_id"`
	Category   string `json:"category,omitempty"`
}

// RevisionResponse is the head commit of the upgrade branch.
type RevisionResponse struct {
	Branch  string `json:"branch"`
	SHA     string `json:"sha"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

// UpgradeStatusResponse is the JSON representation of the upgrade controller.
type UpgradeStatusResponse struct {
	Enabled       bool              `json:"enabled"`
	State         string            `json:"state"`
	Action        string            `json:"action,omitempty"`
	Trigger       string            `json:"trigger,omitempty"`
	StartedAt     string            `json:"started_at,omitempty"`
	FinishedAt    string            `json:"finished_at,omitempty"`
	LastError     string            `json:"last_error,omitempty"`
	Revision      *RevisionResponse `json:"revision,omitempty"`
	RevisionError string            `json:"revision_error,omitempty"`
}

// PushSubscriptionResponse is the JSON representation of a stored subscription.
type PushSubscriptionResponse struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	SubscribedAt string `json:"subscribed_at"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toSubmissionResponse(s model.ContactSubmission) SubmissionResponse {
	resp := SubmissionResponse{
		ID:         s.ID,
		Email:      s.Email,
		Message:    s.Message,
		Phone:      s.Phone,
		ReceivedAt: formatTime(s.ReceivedAt),
	}
	if s.ArchivedAt != nil {
		archived := formatTime(*s.ArchivedAt)
		resp.ArchivedAt = &archived
	}
	return resp
}

func toSubmissionResponses(subs []model.ContactSubmission) []SubmissionResponse {
	resp := make([]SubmissionResponse, 0, len(subs))
	for _, s := range subs {
		resp = append(resp, toSubmissionResponse(s))
	}
	return resp
}

func toCategoryResponse(c model.LinkCategory) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name}
}

func toLinkResponse(l model.ContactLink) LinkResponse {
	return LinkResponse{
		ID:         l.ID,
		Name:       l.Name,
		Href:       l.Href,
		CategoryID: l.CategoryID,
		Category:   l.CategoryName,
	}
}

func toUpgradeStatusResponse(enabled bool, st model.UpgradeStatus) UpgradeStatusResponse {
	return UpgradeStatusResponse{
		Enabled:    enabled,
		State:      string(st.State),
		Action:     string(st.Action),
		Trigger:    st.Trigger,
		StartedAt:  formatTime(st.StartedAt),
		FinishedAt: formatTime(st.FinishedAt),
		LastError:  st.LastError,
	}
}

func toRevisionResponse(r model.Revision) *RevisionResponse {
	return &RevisionResponse{
		Branch:  r.Branch,
		SHA:     r.SHA,
		Message: r.Message,
		URL:     r.URL,
	}
}
