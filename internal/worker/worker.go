package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/rules-engine/internal/session"
	"github.com/jwebster45206/rules-engine/pkg/queue"
	"github.com/jwebster45206/rules-engine/pkg/state"
)

const (
	workerTimeout = 5 * time.Second
	requeueDelay  = 100 * time.Millisecond
	maxAttempts   = 50
)

// Queue is the request source the worker drains.
type Queue interface {
	EnqueueRequest(ctx context.Context, req *queue.Request) error
	BlockingDequeueRequest(ctx context.Context, timeout time.Duration) (*queue.Request, error)
}

// Processor applies one request to its session.
type Processor interface {
	Process(ctx context.Context, req *queue.Request) (state.Decision, error)
}

// Notifier reports request outcomes to session subscribers.
type Notifier interface {
	PublishRequestCompleted(ctx context.Context, gameID uuid.UUID, requestID string, applied bool, rejection string) error
	PublishRequestFailed(ctx context.Context, gameID uuid.UUID, requestID string, errorMsg string) error
}

// Worker applies queued knowledge updates and deferred actions.
type Worker struct {
	id        string
	queue     Queue
	processor Processor
	notifier  Notifier
	log       *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(q Queue, processor Processor, notifier Notifier, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:        workerID,
		queue:     q,
		processor: processor,
		notifier:  notifier,
		log:       log.With("worker_id", workerID),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// ID returns the worker's name.
func (w *Worker) ID() string {
	return w.id
}

// Start processes requests until Stop is called.
func (w *Worker) Start() error {
	w.log.Info("Worker starting")

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down")
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	w.log.Info("Worker stop requested")
	w.cancel()
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.ctx.Done():
	case <-time.After(d):
	}
}

func (w *Worker) processNextRequest() error {
	req, err := w.queue.BlockingDequeueRequest(w.ctx, workerTimeout)
	if err != nil {
		if w.ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		return nil
	}

	log := w.log.With(
		"request_id", req.RequestID,
		"type", req.Type,
		"game_state_id", req.GameStateID.String(),
	)
	log.Info("Received request from queue")

	start := time.Now()
	d, err := w.processor.Process(w.ctx, req)
	switch {
	case errors.Is(err, session.ErrBusy):
		return w.requeue(req, log)
	case err != nil:
		log.Error("Request failed", "error", err)
		w.failed(req, err.Error())
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrInvalid) {
			return nil
		}
		return fmt.Errorf("failed to process request %s: %w", req.RequestID, err)
	}

	rejection := ""
	if d.Rejection != nil {
		rejection = string(d.Rejection.Code)
		log.Info("Request rejected", "code", d.Rejection.Code, "reason", d.Rejection.Message)
	}
	log.Info("Request completed", "applied", d.Applied, "duration", time.Since(start))
	if err := w.notifier.PublishRequestCompleted(w.ctx, req.GameStateID, req.RequestID, d.Applied, rejection); err != nil {
		log.Error("Failed to publish completion event", "error", err)
	}
	return nil
}

// requeue puts a request for a busy session back at the tail.
func (w *Worker) requeue(req *queue.Request, log *slog.Logger) error {
	req.Attempts++
	if req.Attempts >= maxAttempts {
		log.Error("Giving up on request, session stayed busy", "attempts", req.Attempts)
		w.failed(req, fmt.Sprintf("session busy after %d attempts", req.Attempts))
		return nil
	}

	log.Info("Game already locked, re-queueing request", "attempts", req.Attempts)
	if err := w.queue.EnqueueRequest(w.ctx, req); err != nil {
		w.failed(req, err.Error())
		return fmt.Errorf("failed to re-queue request: %w", err)
	}
	w.sleep(requeueDelay)
	return nil
}

func (w *Worker) failed(req *queue.Request, msg string) {
	if err := w.notifier.PublishRequestFailed(w.ctx, req.GameStateID, req.RequestID, msg); err != nil {
		w.log.Error("Failed to publish failure event", "error", err, "request_id", req.RequestID)
	}
}
