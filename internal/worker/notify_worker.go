package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"drivebook/internal/database"
	"drivebook/internal/domain"
	"drivebook/internal/events"
	"drivebook/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// notifyPayload is persisted in OutboxTask.Payload as JSON.
type notifyPayload struct {
	ReservationID int64   `json:"reservation_id"`
	Code          string  `json:"code"`
	VehicleID     int64   `json:"vehicle_id"`
	OwnerID       int64   `json:"owner_id,omitempty"`
	GuestName     string  `json:"guest_name,omitempty"`
	StartAt       string  `json:"start_at"`
	EndAt         string  `json:"end_at"`
	TotalPrice    float64 `json:"total_price"`
}

// RetryPolicy shapes the redelivery schedule for failed deliveries.
// The delay grows by BackoffFactor per attempt up to MaxDelay; Jitter
// adds a random fraction on top so workers sharing a queue do not
// redeliver in lockstep.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        float64 // extra fraction of the delay, 0 disables
}

// NextDelay returns the backoff before the given attempt (1-based).
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	base := p.InitialDelay
	if base <= 0 {
		base = time.Second
	}
	factor := p.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	d := base
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * factor)
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Float64() * p.Jitter * float64(d))
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// NotifyWorker drains the notification outbox and delivers through the
// sink. Delivery is at-least-once: transient failures back off and
// retry, exhausted tasks go to the dead-letter list.
type NotifyWorker struct {
	db            *database.DB
	sink          domain.NotificationSink
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.OutboxTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger
}

// NewNotifyWorker builds a worker with sane defaults.
func NewNotifyWorker(db *database.DB, sink domain.NotificationSink, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *NotifyWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if retry.Jitter == 0 {
		retry.Jitter = 0.2
	}

	return &NotifyWorker{
		db:            db,
		sink:          sink,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.OutboxTask, models.WorkerQueueSize),
		redisQueueKey: "notify:queue",
		deadLetterKey: "notify:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		logger:        logger,
	}
}

// SetPollInterval overrides the idle polling cadence.
func (w *NotifyWorker) SetPollInterval(d time.Duration) {
	if d > 0 {
		w.pollInterval = d
	}
}

// SetBatchSize overrides how many pending tasks one poll picks up.
func (w *NotifyWorker) SetBatchSize(n int) {
	if n > 0 {
		w.batchSize = n
	}
}

// EnqueueTask persists the task and schedules it via redis or the
// in-memory queue. The polling loop picks it up either way, so a full
// queue only delays delivery.
func (w *NotifyWorker) EnqueueTask(ctx context.Context, taskType string, r *models.Reservation) error {
	if taskType == "" {
		return errors.New("task type is required")
	}
	if r == nil || r.ID == 0 {
		return errors.New("reservation is required")
	}

	payload := notifyPayload{
		ReservationID: r.ID,
		Code:          r.Code,
		VehicleID:     r.VehicleID,
		OwnerID:       r.OwnerID,
		GuestName:     r.GuestName,
		StartAt:       r.StartAt.Format("2006-01-02"),
		EndAt:         r.EndAt.Format("2006-01-02"),
		TotalPrice:    r.TotalPrice,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.OutboxTask{
		TaskType:      taskType,
		ReservationID: r.ID,
		Payload:       string(payloadBytes),
		Status:        "pending",
	}

	if err := w.db.CreateOutboxTask(ctx, &task); err != nil {
		return fmt.Errorf("persist outbox task: %w", err)
	}

	// Try redis first for durability.
	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Msg("redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("in-memory queue full, task left to polling")
	}

	return nil
}

// Start launches the main loop; stops when ctx is done.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("notify worker started")
	defer w.logger.Info().Msg("notify worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.db.GetPendingOutboxTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("fetch pending outbox tasks")
			w.sleep(ctx)
			continue
		}
		if len(tasks) == 0 {
			w.sleep(ctx)
			continue
		}

		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *NotifyWorker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.pollInterval):
	}
}

func (w *NotifyWorker) tryLocalQueue() (models.OutboxTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.OutboxTask{}, false
	}
}

func (w *NotifyWorker) tryRedis(ctx context.Context) (models.OutboxTask, bool) {
	if w.redis == nil {
		return models.OutboxTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return models.OutboxTask{}, false
		}
		w.logger.Error().Err(err).Msg("redis BRPOP error")
		return models.OutboxTask{}, false
	}
	if len(res) != 2 {
		return models.OutboxTask{}, false
	}
	var task models.OutboxTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.OutboxTask{}, false
	}
	return task, true
}

func (w *NotifyWorker) processTask(ctx context.Context, task *models.OutboxTask) {
	var payload notifyPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	message := renderMessage(task.TaskType, payload)
	if err := w.sink.Emit(ctx, payload.OwnerID, task.TaskType, message); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.db.UpdateOutboxTaskStatus(ctx, task.ID, "completed", "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark task completed")
	}
}

func renderMessage(eventType string, p notifyPayload) string {
	period := fmt.Sprintf("%s to %s", p.StartAt, p.EndAt)
	switch eventType {
	case events.EventReservationCreated:
		return fmt.Sprintf("Reservation %s created for vehicle %d (%s).", p.Code, p.VehicleID, period)
	case events.EventReservationConfirmed:
		return fmt.Sprintf("Reservation %s confirmed for vehicle %d (%s).", p.Code, p.VehicleID, period)
	case events.EventReservationCancelled:
		return fmt.Sprintf("Reservation %s was cancelled.", p.Code)
	case events.EventReservationCompleted:
		return fmt.Sprintf("Reservation %s completed. Thank you for riding with us.", p.Code)
	case events.EventReservationDeleted:
		return fmt.Sprintf("Reservation %s was removed.", p.Code)
	default:
		return fmt.Sprintf("Reservation %s: %s.", p.Code, eventType)
	}
}

func (w *NotifyWorker) retryOrFail(ctx context.Context, task *models.OutboxTask, cause error) {
	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		if err := w.db.UpdateOutboxTaskStatus(ctx, task.ID, "failed", cause.Error(), nil); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark task failed")
		}
		w.pushDeadLetter(ctx, task)
		return
	}

	nextDelay := w.retryPolicy.NextDelay(attempt)
	nextTime := time.Now().Add(nextDelay)
	if err := w.db.UpdateOutboxTaskStatus(ctx, task.ID, "retry", cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark task retry")
	}
}

func (w *NotifyWorker) failTask(ctx context.Context, task *models.OutboxTask, cause error) {
	if err := w.db.UpdateOutboxTaskStatus(ctx, task.ID, "failed", cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark task failed")
	}
	w.pushDeadLetter(ctx, task)
}

func (w *NotifyWorker) pushRedis(ctx context.Context, task models.OutboxTask) error {
	if w.redis == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *NotifyWorker) pushDeadLetter(ctx context.Context, task *models.OutboxTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("encode deadletter task")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push")
	}
}
