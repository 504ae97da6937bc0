package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/SW-HP/hp-server/internal/conversation"
	"github.com/SW-HP/hp-server/internal/program"
)

var (
	// ErrThreadBusy means a run is already in flight on the thread; the
	// caller should retry later rather than queue.
	ErrThreadBusy = errors.New("thread busy")
	// ErrProviderUnavailable wraps transient provider failures; handlers map
	// it to a user-safe apology instead of an error status.
	ErrProviderUnavailable = errors.New("assistant provider unavailable")
	ErrRunTimeout          = errors.New("run timed out")
)

// RunLocker is the distributed run lock, keyed the same way as the in-process
// ThreadLockManager. That manager covers one replica; this covers all of them.
type RunLocker interface {
	AcquireRunLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseRunLock(ctx context.Context, key string) error
}

// NopRunLocker always grants the lock; used in tests and single-replica runs
// without redis.
type NopRunLocker struct{}

func (NopRunLocker) AcquireRunLock(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}
func (NopRunLocker) ReleaseRunLock(context.Context, string) error { return nil }

const lockAcquireTimeout = 5 * time.Second

// Service orchestrates assistant runs: thread lifecycle, run preconditions,
// streaming, and result persistence.
type Service struct {
	provider Provider
	convs    *conversation.Repo
	programs *program.Repo
	tools    *Dispatcher
	locks    *ThreadLockManager
	runLocks RunLocker

	coachAssistantID    string
	designerAssistantID string
	runTimeout          time.Duration
	runLockTTL          time.Duration
}

type ServiceConfig struct {
	CoachAssistantID    string
	DesignerAssistantID string
	RunTimeout          time.Duration
	RunLockTTL          time.Duration
}

func NewService(provider Provider, convs *conversation.Repo, programs *program.Repo, tools *Dispatcher, runLocks RunLocker, cfg ServiceConfig) *Service {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 120 * time.Second
	}
	if cfg.RunLockTTL <= 0 {
		cfg.RunLockTTL = 5 * time.Minute
	}
	if runLocks == nil {
		runLocks = NopRunLocker{}
	}
	return &Service{
		provider:            provider,
		convs:               convs,
		programs:            programs,
		tools:               tools,
		locks:               NewThreadLockManager(),
		runLocks:            runLocks,
		coachAssistantID:    cfg.CoachAssistantID,
		designerAssistantID: cfg.DesignerAssistantID,
		runTimeout:          cfg.RunTimeout,
		runLockTTL:          cfg.RunLockTTL,
	}
}

// EnsureThread returns the user's thread, creating one on first contact.
func (s *Service) EnsureThread(ctx context.Context, userID uint64) (*conversation.Thread, error) {
	th, err := s.convs.GetThreadByUser(ctx, userID)
	if err == nil {
		return th, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	providerThreadID, err := s.provider.CreateThread(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	th = &conversation.Thread{
		ThreadID: providerThreadID,
		UserID:   userID,
	}
	if err := s.convs.CreateThread(ctx, th); err != nil {
		return nil, err
	}
	log.Printf("[Service] thread created user_id=%d thread_id=%s", userID, th.ThreadID)
	return th, nil
}

// DeleteThread tears down the user's thread on both sides.
func (s *Service) DeleteThread(ctx context.Context, userID uint64) error {
	th, err := s.convs.GetThreadByUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.provider.DeleteThread(ctx, th.ThreadID); err != nil {
		// provider-side cleanup is best effort; the row is authoritative
		log.Printf("[Service] provider thread delete failed thread_id=%s err=%v", th.ThreadID, err)
	}
	return s.convs.DeleteThread(ctx, th.ThreadID)
}

func (s *Service) Messages(ctx context.Context, userID uint64) ([]conversation.Message, error) {
	th, err := s.convs.GetThreadByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.convs.ListMessages(ctx, th.ThreadID)
}

func (s *Service) LatestMessage(ctx context.Context, userID uint64) (*conversation.Message, error) {
	th, err := s.EnsureThread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.convs.LatestMessage(ctx, th.ThreadID)
}

// RunMessage appends the user's text to the thread, drives one coach run to
// completion, and returns the final assistant text.
func (s *Service) RunMessage(ctx context.Context, userID uint64, text string) (string, error) {
	return s.run(ctx, userID, text, s.coachAssistantID, CoachInstructions)
}

// GenerateProgram drives one designer run, parses the final assistant text as
// a program document, and persists it via a full replace.
func (s *Service) GenerateProgram(ctx context.Context, userID uint64, request string) (*program.Document, error) {
	finalText, err := s.run(ctx, userID, request, s.designerAssistantID, DesignerInstructions)
	if err != nil {
		return nil, err
	}
	doc, err := program.ParseDocument(finalText)
	if err != nil {
		return nil, err
	}
	if err := s.programs.Replace(ctx, userID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) run(ctx context.Context, userID uint64, text, assistantID, instructions string) (string, error) {
	th, err := s.EnsureThread(ctx, userID)
	if err != nil {
		return "", err
	}

	// both guards are user-keyed: a user owns at most one thread, and
	// recreating a failed thread mid-run must not drop the serialization
	lockKey := fmt.Sprintf("user:%d", userID)
	if err := s.locks.TryLock(ctx, lockKey, lockAcquireTimeout); err != nil {
		return "", ErrThreadBusy
	}
	defer s.locks.Unlock(lockKey)

	ok, err := s.runLocks.AcquireRunLock(ctx, lockKey, s.runLockTTL)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrThreadBusy
	}
	defer func() {
		if err := s.runLocks.ReleaseRunLock(context.WithoutCancel(ctx), lockKey); err != nil {
			log.Printf("[Service] run lock release failed user_id=%d err=%v", userID, err)
		}
	}()

	switch classifyRunState(th.RunState) {
	case stateBusy:
		return "", ErrThreadBusy
	case stateFailed:
		th, err = s.recreateThread(ctx, th)
		if err != nil {
			return "", err
		}
	}

	if err := s.provider.CreateMessage(ctx, th.ThreadID, "user", text); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if _, err := s.convs.AppendMessage(ctx, th.ThreadID, conversation.SenderUser, text); err != nil {
		return "", err
	}

	router := NewRouter(s.convs, s.tools, s.provider, th.ThreadID)

	rctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	if err := s.provider.StreamRun(rctx, th.ThreadID, assistantID, instructions, router); err != nil {
		if errors.Is(err, ErrRunCancelled) || errors.Is(err, ErrToolDepthExceeded) {
			return "", err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrRunTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	msg, err := s.convs.LatestMessage(ctx, th.ThreadID)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// recreateThread drops a failed thread and opens a fresh one for the user.
func (s *Service) recreateThread(ctx context.Context, th *conversation.Thread) (*conversation.Thread, error) {
	log.Printf("[Service] recreating failed thread user_id=%d thread_id=%s state=%s", th.UserID, th.ThreadID, th.RunState)
	if err := s.provider.DeleteThread(ctx, th.ThreadID); err != nil {
		log.Printf("[Service] provider thread delete failed thread_id=%s err=%v", th.ThreadID, err)
	}
	if err := s.convs.DeleteThread(ctx, th.ThreadID); err != nil {
		return nil, err
	}
	return s.EnsureThread(ctx, th.UserID)
}

type threadState int

const (
	stateIdle threadState = iota
	stateBusy
	stateFailed
)

// classifyRunState maps the last recorded lifecycle tag to a precondition
// verdict. Terminal tags (and a never-run thread) are idle; failure tags
// force thread recreation; anything else is an in-flight run.
func classifyRunState(runState string) threadState {
	switch runState {
	case "", "None", EventDone, EventRunCompleted, EventRunCancelled, EventMessageCompleted:
		return stateIdle
	case EventRunFailed, EventRunExpired:
		return stateFailed
	default:
		return stateBusy
	}
}
