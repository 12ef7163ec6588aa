package driven

import (
	"context"

	"github.com/aidaco/wwwmin/internal/domain/model"
)

// PushSubscriptionStore defines the driven port for Web Push subscriptions.
type PushSubscriptionStore interface {
	Subscribe(ctx context.Context, userID int64, subscription string) (model.PushSubscription, error)
	ListByUser(ctx context.Context, userID int64) ([]model.PushSubscription, error)
	ListAll(ctx context.Context) ([]model.PushSubscription, error)
	Delete(ctx context.Context, id int64) error
}
