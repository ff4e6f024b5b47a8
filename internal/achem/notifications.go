package achem

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// NotificationEvent describes one completed environment step
type NotificationEvent struct {
	EnvironmentID EnvironmentID `json:"environment_id"`
	Step          int64         `json:"step"`
	EnvTime       float64       `json:"env_time"`
	Timestamp     int64         `json:"timestamp"`

	// Total reactions fired across all cells during the step
	Fired int              `json:"fired"`
	Cells []CellStepReport `json:"cells"`
}

// Notifier is the interface that all notification channels must implement
type Notifier interface {
	// ID returns a unique identifier for this notifier
	ID() string

	// Type returns the type of notifier (e.g., "webhook", "websocket")
	Type() string

	// Notify sends a notification event. Returns an error if notification fails.
	// The context can be used for cancellation and timeout.
	Notify(ctx context.Context, event NotificationEvent) error

	// Close closes the notifier and releases any resources
	Close() error
}

// NotificationConfig specifies which notifiers receive an environment's
// step events
type NotificationConfig struct {
	Enabled   bool     `json:"enabled" toml:"enabled"`
	Notifiers []string `json:"notifiers" toml:"notifiers"`
	// Every sends one event per Every steps; 0 or 1 means every step
	Every int `json:"every,omitempty" toml:"every"`
	// Quiet skips steps in which no reaction fired
	Quiet bool `json:"quiet,omitempty" toml:"quiet"`
}

// wants reports whether a step should be notified under this config
func (c NotificationConfig) wants(step int64, fired int) bool {
	if !c.Enabled || len(c.Notifiers) == 0 {
		return false
	}
	if c.Quiet && fired == 0 {
		return false
	}
	return c.Every <= 1 || step%int64(c.Every) == 0
}

// notificationJob represents a job to be processed by the notification queue
type notificationJob struct {
	Event       NotificationEvent
	NotifierIDs []string
}

// NotificationManager manages all notifiers and routes notifications
type NotificationManager struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
	jobs      chan notificationJob
	closed    bool
	wg        sync.WaitGroup
	logger    Logger
}

// NewNotificationManager creates a new notification manager
func NewNotificationManager() *NotificationManager {
	mgr := &NotificationManager{
		notifiers: make(map[string]Notifier),
		jobs:      make(chan notificationJob, 1024),
		closed:    false,
		logger:    NewNoOpLogger(),
	}
	mgr.startWorkers(1)
	return mgr
}

// SetLogger sets the logger used to report delivery failures
func (nm *NotificationManager) SetLogger(logger Logger) {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	nm.mu.Lock()
	nm.logger = logger
	nm.mu.Unlock()
}

func (nm *NotificationManager) log() Logger {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return nm.logger
}

// RegisterNotifier registers a notifier with the manager
func (nm *NotificationManager) RegisterNotifier(notifier Notifier) error {
	if notifier == nil {
		return fmt.Errorf("notifier cannot be nil")
	}

	id := notifier.ID()
	if id == "" {
		return fmt.Errorf("notifier ID cannot be empty")
	}

	nm.mu.Lock()
	defer nm.mu.Unlock()

	if _, exists := nm.notifiers[id]; exists {
		return fmt.Errorf("notifier with ID %s already exists", id)
	}

	nm.notifiers[id] = notifier
	return nil
}

// UnregisterNotifier removes a notifier from the manager
func (nm *NotificationManager) UnregisterNotifier(id string) error {
	nm.mu.Lock()
	notifier, exists := nm.notifiers[id]
	nm.mu.Unlock()

	if !exists {
		return fmt.Errorf("notifier with ID %s not found", id)
	}

	if err := notifier.Close(); err != nil {
		return fmt.Errorf("error closing notifier %s: %w", id, err)
	}

	nm.mu.Lock()
	delete(nm.notifiers, id)
	nm.mu.Unlock()

	return nil
}

// GetNotifier retrieves a notifier by ID
func (nm *NotificationManager) GetNotifier(id string) (Notifier, bool) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	notifier, exists := nm.notifiers[id]
	return notifier, exists
}

// ListNotifiers returns a list of all registered notifier IDs
func (nm *NotificationManager) ListNotifiers() []string {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	ids := make([]string, 0, len(nm.notifiers))
	for id := range nm.notifiers {
		ids = append(ids, id)
	}
	return ids
}

// Enqueue enqueues a notification event to be processed asynchronously by worker goroutines.
// This method is non-blocking and will drop notifications if the queue is full.
func (nm *NotificationManager) Enqueue(event NotificationEvent, notifierIDs []string) {
	if len(notifierIDs) == 0 {
		return
	}

	nm.mu.RLock()
	defer nm.mu.RUnlock()
	if nm.closed {
		return
	}

	// Best effort: if channel is full, drop and log
	select {
	case nm.jobs <- notificationJob{Event: event, NotifierIDs: notifierIDs}:
	default:
		nm.logger.Warnf("notification queue full, dropping notification: env=%s step=%d", event.EnvironmentID, event.Step)
	}
}

// startWorkers starts n worker goroutines to process notification jobs
func (nm *NotificationManager) startWorkers(n int) {
	for range n {
		nm.wg.Add(1)
		go nm.worker()
	}
}

// worker processes notification jobs from the queue
func (nm *NotificationManager) worker() {
	defer nm.wg.Done()
	for job := range nm.jobs {
		nm.dispatchJob(job)
	}
}

// dispatchJob dispatches a notification job to all specified notifiers
func (nm *NotificationManager) dispatchJob(job notificationJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, id := range job.NotifierIDs {
		nm.notifyWithRetry(ctx, id, job.Event)
	}
}

// notifyWithRetry attempts to send a notification with exponential backoff retry
func (nm *NotificationManager) notifyWithRetry(ctx context.Context, notifierID string, event NotificationEvent) {
	notifier, ok := nm.GetNotifier(notifierID)
	logger := nm.log()
	if !ok {
		logger.Errorf("notification failed: notifier=%s error=notifier not found", notifierID)
		return
	}

	const maxRetries = 3
	backoff := 100 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := notifier.Notify(ctx, event)
		if err == nil {
			return
		}

		logger.Warnf("notification failed: notifier=%s attempt=%d error=%v", notifierID, attempt+1, err)

		if attempt == maxRetries {
			logger.Errorf("notification failed after %d attempts: notifier=%s", maxRetries+1, notifierID)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// Notify sends a notification event to the specified notifiers synchronously.
// For async processing, use Enqueue instead.
func (nm *NotificationManager) Notify(ctx context.Context, event NotificationEvent, notifierIDs []string) error {
	if len(notifierIDs) == 0 {
		return nil
	}

	var errs []error
	for _, id := range notifierIDs {
		notifier, exists := nm.GetNotifier(id)
		if !exists {
			errs = append(errs, fmt.Errorf("notifier %s not found", id))
			continue
		}

		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("notifier %s failed: %w", id, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %v", errs)
	}

	return nil
}

// Close closes all registered notifiers and shuts down worker goroutines
func (nm *NotificationManager) Close() error {
	nm.mu.Lock()
	if nm.closed {
		nm.mu.Unlock()
		return nil
	}
	nm.closed = true
	close(nm.jobs)
	nm.mu.Unlock()

	// Wait for all workers to finish processing
	nm.wg.Wait()

	nm.mu.Lock()
	var errs []error
	for id, notifier := range nm.notifiers {
		if err := notifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing notifier %s: %w", id, err))
		}
	}
	nm.notifiers = make(map[string]Notifier)
	nm.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("errors closing notifiers: %v", errs)
	}

	return nil
}

// CreateStepEvent builds the notification event for a finished step
func CreateStepEvent(envID EnvironmentID, report StepReport) NotificationEvent {
	fired := 0
	for _, c := range report.Cells {
		fired += c.Fired
	}
	return NotificationEvent{
		EnvironmentID: envID,
		Step:          report.Step,
		EnvTime:       report.Time,
		Timestamp:     time.Now().Unix(),
		Fired:         fired,
		Cells:         report.Cells,
	}
}

// JSON returns the notification event as JSON bytes
func (ne NotificationEvent) JSON() ([]byte, error) {
	return json.Marshal(ne)
}
