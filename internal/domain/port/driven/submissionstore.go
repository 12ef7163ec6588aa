package driven

import (
	"context"

	"github.com/aidaco/wwwmin/internal/domain/model"
)

// SubmissionStore defines the driven port for contact form submissions.
// GetByID, Archive and Unarchive return nil, nil when the id is unknown.
type SubmissionStore interface {
	Create(ctx context.Context, s model.ContactSubmission) (model.ContactSubmission, error)
	GetByID(ctx context.Context, id int64) (*model.ContactSubmission, error)
	Archive(ctx context.Context, id int64) (*model.ContactSubmission, error)
	Unarchive(ctx context.Context, id int64) (*model.ContactSubmission, error)
	ListActive(ctx context.Context) ([]model.ContactSubmission, error)
	ListArchived(ctx context.Context) ([]model.ContactSubmission, error)
	ListAll(ctx context.Context) ([]model.ContactSubmission, error)
}
