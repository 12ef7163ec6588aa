package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aidaco/wwwmin/internal/domain/model"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// notifyTimeout bounds a single notifier delivery.
const notifyTimeout = 2 * time.Minute

// SubmissionInput is a contact form post.
type SubmissionInput struct {
	Email   string `validate:"required,email,max=320"`
	Message string `validate:"required,max=10000"`
	Phone   string `validate:"max=32"`
}

// SubmissionService stores contact submissions and fans them out to the
// configured notifiers in the background.
type SubmissionService struct {
	store     driven.SubmissionStore
	notifiers []driven.SubmissionNotifier
	hours     *HoursService
	tasks     *TaskRunner
	logger    *slog.Logger
	now       func() time.Time
}

// NewSubmissionService creates a SubmissionService. hours may be nil, in
// which case submissions are always accepted.
func NewSubmissionService(
	store driven.SubmissionStore,
	hours *HoursService,
	tasks *TaskRunner,
	logger *slog.Logger,
	notifiers ...driven.SubmissionNotifier,
) *SubmissionService {
	return &SubmissionService{
		store:     store,
		notifiers: notifiers,
		hours:     hours,
		tasks:     tasks,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit validates and stores a submission, then schedules notifications.
// It returns ErrWebsiteClosed outside operating hours.
func (s *SubmissionService) Submit(ctx context.Context, in SubmissionInput) (model.ContactSubmission, error) {
	if s.hours != nil && !s.hours.OpenNow() {
		return model.ContactSubmission{}, ErrWebsiteClosed
	}

	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validateStruct(in); err != nil {
		return model.ContactSubmission{}, err
	}

	sub, err := s.store.Create(ctx, model.ContactSubmission{
		Email:      in.Email,
		Message:    in.Message,
		Phone:      in.Phone,
		ReceivedAt: s.now().UTC(),
	})
	if err != nil {
		return model.ContactSubmission{}, fmt.Errorf("store submission: %w", err)
	}

	s.logger.InfoContext(ctx, "contact submission received", "submission_id", sub.ID)
	s.notify(sub)
	return sub, nil
}

func (s *SubmissionService) notify(sub model.ContactSubmission) {
	for _, n := range s.notifiers {
		s.tasks.Go(fmt.Sprintf("notify submission %d (%T)", sub.ID, n), func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
			defer cancel()
			return n.NotifySubmission(ctx, sub)
		})
	}
}

// Get returns a submission by id or ErrSubmissionNotFound.
func (s *SubmissionService) Get(ctx context.Context, id int64) (model.ContactSubmission, error) {
	sub, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.ContactSubmission{}, fmt.Errorf("get submission %d: %w", id, err)
	}
	if sub == nil {
		return model.ContactSubmission{}, ErrSubmissionNotFound
	}
	return *sub, nil
}

// Archive marks a submission as handled.
func (s *SubmissionService) Archive(ctx context.Context, id int64) (model.ContactSubmission, error) {
	sub, err := s.store.Archive(ctx, id)
	if err != nil {
		return model.ContactSubmission{}, fmt.Errorf("archive submission %d: %w", id, err)
	}
	if sub == nil {
		return model.ContactSubmission{}, ErrSubmissionNotFound
	}
	return *sub, nil
}

// Unarchive moves a submission back to the active list.
func (s *SubmissionService) Unarchive(ctx context.Context, id int64) (model.ContactSubmission, error) {
	sub, err := s.store.Unarchive(ctx, id)
	if err != nil {
		return model.ContactSubmission{}, fmt.Errorf("unarchive submission %d: %w", id, err)
	}
	if sub == nil {
		return model.ContactSubmission{}, ErrSubmissionNotFound
	}
	return *sub, nil
}

// ListActive returns submissions that have not been archived.
func (s *SubmissionService) ListActive(ctx context.Context) ([]model.ContactSubmission, error) {
	return s.store.ListActive(ctx)
}

// ListArchived returns archived submissions.
func (s *SubmissionService) ListArchived(ctx context.Context) ([]model.ContactSubmission, error) {
	return s.store.ListArchived(ctx)
}

// ListAll returns every submission.
func (s *SubmissionService) ListAll(ctx context.Context) ([]model.ContactSubmission, error) {
	return s.store.ListAll(ctx)
}
