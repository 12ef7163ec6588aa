package application

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aidaco/wwwmin/internal/domain/model"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

const signaturePrefix = "sha256="

// Acknowledgement messages returned to the webhook caller.
const (
	AckPong          = "pong"
	AckUnknownEvent  = "Unknown: no action will be taken."
	AckDisabled      = "Rebuild disabled."
	AckBranchSkipped = "Not on default branch: no action will be taken."
	AckScheduled     = "Push received, started upgrade."
)

// UpgradeError reports a failed package installation.
type UpgradeError = driven.UpgradeError

// UpgradeConfig is the immutable configuration of the UpgradeService.
type UpgradeConfig struct {
	Enabled         bool
	WebhookSecret   []byte
	Branch          string
	VerifySignature bool
	VerifyBranch    bool
	CleanupTimeout  time.Duration
	DrainTimeout    time.Duration
}

// Ack is the synchronous answer to a webhook delivery.
type Ack struct {
	Message   string
	Scheduled bool
}

// DrainFunc stops accepting requests and waits for in-flight ones until ctx
// expires.
type DrainFunc func(ctx context.Context) error

// UpgradeObserver is notified when a sequence finishes. outcome is one of
// "succeeded", "failed" or "rejected".
type UpgradeObserver interface {
	ObserveUpgrade(action model.UpgradeAction, outcome string)
}

type noopObserver struct{}

func (noopObserver) ObserveUpgrade(model.UpgradeAction, string) {}

// UpgradeService is the upgrade controller. At most one upgrade, restart or
// shutdown sequence runs at a time; the sequence itself runs in the
// background after the triggering request has been answered.
type UpgradeService struct {
	cfg       UpgradeConfig
	installer driven.PackageInstaller
	process   driven.ProcessController
	tasks     *TaskRunner
	logger    *slog.Logger
	observer  UpgradeObserver
	now       func() time.Time

	mu      sync.Mutex
	drain   DrainFunc
	running bool
	status  model.UpgradeStatus
	wg      sync.WaitGroup

	fatal chan error
}

// NewUpgradeService creates an idle UpgradeService. observer may be nil.
func NewUpgradeService(
	cfg UpgradeConfig,
	installer driven.PackageInstaller,
	process driven.ProcessController,
	tasks *TaskRunner,
	observer UpgradeObserver,
	logger *slog.Logger,
) *UpgradeService {
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = 10 * time.Second
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 10 * time.Second
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &UpgradeService{
		cfg:       cfg,
		installer: installer,
		process:   process,
		tasks:     tasks,
		logger:    logger,
		observer:  observer,
		now:       time.Now,
		status:    model.UpgradeStatus{State: model.UpgradeStateIdle},
		fatal:     make(chan error, 1),
	}
}

// SetDrain registers the function used to drain in-flight requests before
// the process is replaced. It is set once the HTTP server exists.
func (s *UpgradeService) SetDrain(fn DrainFunc) {
	s.mu.Lock()
	s.drain = fn
	s.mu.Unlock()
}

// Enabled reports whether self-upgrade is turned on.
func (s *UpgradeService) Enabled() bool { return s.cfg.Enabled }

// Branch returns the configured target branch, which may be empty.
func (s *UpgradeService) Branch() string { return s.cfg.Branch }

// VerifySignature checks claimed against the HMAC-SHA256 of body under
// secret. A missing signature fails.
func VerifySignature(body []byte, claimed string, secret []byte) error {
	if claimed == "" || !strings.HasPrefix(claimed, signaturePrefix) {
		return ErrForbidden
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := signaturePrefix + hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(claimed)) {
		return ErrForbidden
	}
	return nil
}

type pushPayload struct {
	Ref        *string `json:"ref"`
	Repository struct {
		DefaultBranch string `json:"default_branch"`
	} `json:"repository"`
}

// CheckBranch reports whether a push event body targets expected. An empty
// expected branch falls back to the repository's default branch. Malformed
// bodies never match.
func CheckBranch(body []byte, expected string) bool {
	var p pushPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return false
	}
	if expected == "" {
		expected = p.Repository.DefaultBranch
	}
	if expected == "" || p.Ref == nil {
		return false
	}
	return *p.Ref == "refs/heads/"+expected
}

// ReceiveEvent dispatches a webhook delivery. Only a push on the target branch
// carrying a valid signature schedules an upgrade; everything else is
// acknowledged without side effects. ErrForbidden and ErrUpgradeInProgress
// are the only errors returned.
func (s *UpgradeService) ReceiveEvent(ctx context.Context, event model.UpgradeEvent) (Ack, error) {
	switch event.Kind {
	case model.EventKindPing:
		return Ack{Message: AckPong}, nil
	case model.EventKindPush:
	default:
		return Ack{Message: AckUnknownEvent}, nil
	}

	if !s.cfg.Enabled {
		return Ack{Message: AckDisabled}, nil
	}
	if s.cfg.VerifyBranch && !CheckBranch(event.Body, s.cfg.Branch) {
		s.logger.InfoContext(ctx, "push ignored, branch mismatch", "delivery", event.DeliveryID)
		return Ack{Message: AckBranchSkipped}, nil
	}
	if s.cfg.VerifySignature {
		if err := VerifySignature(event.Body, event.ClaimedSignature, s.cfg.WebhookSecret); err != nil {
			s.logger.WarnContext(ctx, "webhook signature rejected", "delivery", event.DeliveryID)
			return Ack{}, err
		}
	}

	if err := s.start(model.UpgradeActionUpgrade, "webhook:"+event.DeliveryID); err != nil {
		return Ack{}, err
	}
	return Ack{Message: AckScheduled, Scheduled: true}, nil
}

// Trigger starts an admin-requested sequence in the background.
func (s *UpgradeService) Trigger(action model.UpgradeAction, trigger string) error {
	if action == model.UpgradeActionUpgrade && !s.cfg.Enabled {
		return ErrUpgradeDisabled
	}
	return s.start(action, trigger)
}

// Status returns a snapshot of the controller.
func (s *UpgradeService) Status() model.UpgradeStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Fatal delivers the error of a sequence that stopped the server and then
// failed to replace the process. The caller must exit when it receives one.
func (s *UpgradeService) Fatal() <-chan error {
	return s.fatal
}

// Wait blocks until the running sequence, if any, has returned.
func (s *UpgradeService) Wait() {
	s.wg.Wait()
}

func (s *UpgradeService) start(action model.UpgradeAction, trigger string) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.observer.ObserveUpgrade(action, "rejected")
		return ErrUpgradeInProgress
	}
	s.running = true
	s.status = model.UpgradeStatus{
		State:     initialState(action),
		Action:    action,
		Trigger:   trigger,
		StartedAt: s.now().UTC(),
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.run(action)
	}()
	return nil
}

func initialState(action model.UpgradeAction) model.UpgradeState {
	switch action {
	case model.UpgradeActionUpgrade:
		return model.UpgradeStateUpgrading
	case model.UpgradeActionShutdown:
		return model.UpgradeStateStopping
	default:
		return model.UpgradeStateCleaningUp
	}
}

func (s *UpgradeService) run(action model.UpgradeAction) {
	log := s.logger.With("action", string(action))
	log.Info("upgrade sequence started")

	if action == model.UpgradeActionShutdown {
		if err := s.process.Terminate(); err != nil {
			log.Error("terminating process failed", "error", err)
			s.finish(action, fmt.Errorf("terminate process: %w", err))
			return
		}
		// The process is going away; the controller stays busy.
		s.mu.Lock()
		s.status.FinishedAt = s.now().UTC()
		s.mu.Unlock()
		s.observer.ObserveUpgrade(action, "succeeded")
		return
	}

	if action == model.UpgradeActionUpgrade {
		if err := s.installer.Install(context.Background()); err != nil {
			log.Error("package install failed, keeping current binary", "error", err)
			s.finish(action, err)
			return
		}
		s.setState(model.UpgradeStateCleaningUp)
	}

	if err := s.process.CheckRestart(); err != nil {
		log.Error("process cannot be replaced, keeping server running", "error", err)
		s.finish(action, fmt.Errorf("restart process: %w", err))
		return
	}

	s.cleanup(log)

	s.setState(model.UpgradeStateRestarting)
	log.Info("replacing process image")
	err := s.process.Restart()
	if err == nil {
		// Only a controller that does not really exec gets here.
		s.mu.Lock()
		s.status.FinishedAt = s.now().UTC()
		s.mu.Unlock()
		s.observer.ObserveUpgrade(action, "succeeded")
		return
	}
	// Requests are drained and the task runner is closed, so the old image
	// cannot keep serving.
	err = fmt.Errorf("restart process: %w", err)
	log.Error("process replacement failed after cleanup", "error", err)
	s.finish(action, err)
	select {
	case s.fatal <- err:
	default:
	}
}

// cleanup drains requests, cancels sibling background tasks and releases
// descriptors. Every step is bounded and none of them stops the restart.
func (s *UpgradeService) cleanup(log *slog.Logger) {
	s.mu.Lock()
	drain := s.drain
	s.mu.Unlock()

	if drain != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DrainTimeout)
		if err := drain(ctx); err != nil {
			log.Error("draining requests did not complete", "error", err)
		}
		cancel()
	}

	if s.tasks != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CleanupTimeout)
		if err := s.tasks.Shutdown(ctx); err != nil {
			log.Error("background tasks did not stop in time, restarting anyway",
				"timeout", s.cfg.CleanupTimeout, "error", err)
		}
		cancel()
	}

	if err := s.process.ReleaseDescriptors(); err != nil {
		log.Warn("releasing descriptors", "error", err)
	}
}

func (s *UpgradeService) setState(state model.UpgradeState) {
	s.mu.Lock()
	s.status.State = state
	s.mu.Unlock()
}

// finish returns the controller to idle after a sequence that did not end
// the process.
func (s *UpgradeService) finish(action model.UpgradeAction, err error) {
	s.mu.Lock()
	s.running = false
	s.status.State = model.UpgradeStateIdle
	s.status.FinishedAt = s.now().UTC()
	s.status.LastError = err.Error()
	s.mu.Unlock()

	s.observer.ObserveUpgrade(action, "failed")
}
