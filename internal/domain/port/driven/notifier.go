package driven

import (
	"context"

	"github.com/aidaco/wwwmin/internal/domain/model"
)

// SubmissionNotifier is told about every stored contact submission.
// Implementations are invoked from background tasks and must honour ctx.
type SubmissionNotifier interface {
	NotifySubmission(ctx context.Context, s model.ContactSubmission) error
}

// PanicReport describes a recovered handler panic.
type PanicReport struct {
	RemoteAddr string
	Method     string
	URL        string
	Value      string
	Stack      string
}

// PanicNotifier is told about panics recovered at the HTTP boundary.
type PanicNotifier interface {
	NotifyPanic(ctx context.Context, report PanicReport) error
}
