package driven

import (
	"context"

	"github.com/aidaco/wwwmin/internal/domain/model"
)

// RevisionSource resolves the head commit of a branch on the source host.
type RevisionSource interface {
	HeadRevision(ctx context.Context, branch string) (model.Revision, error)
}
