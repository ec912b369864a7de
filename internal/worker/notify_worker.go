package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"parkdesk/internal/domain"
	"parkdesk/internal/metrics"
	"parkdesk/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	redisQueueKey      = "parkdesk:notify:queue"
	redisDeadLetter    = "parkdesk:notify:deadletter"
	defaultPoll        = 2 * time.Second
	defaultBatch       = 20
	defaultSendTimeout = 15 * time.Second
)

// TaskStore is the persisted outbox behind the worker.
type TaskStore interface {
	EnqueueNotifyTask(ctx context.Context, task *models.NotifyTask) error
	GetNotifyTask(ctx context.Context, id int64) (*models.NotifyTask, error)
	DueNotifyTasks(ctx context.Context, now time.Time, limit int) ([]models.NotifyTask, error)
	MarkNotifyTaskDone(ctx context.Context, id int64) error
	MarkNotifyTaskRetry(ctx context.Context, id int64, cause string, next time.Time) error
	MarkNotifyTaskFailed(ctx context.Context, id int64, cause string) error
}

// NotifyWorker delivers payment notices to every configured channel. Each
// channel gets its own outbox row so a slow or failing channel is retried
// without re-sending on the others. Enqueue only persists and signals; the
// payment path never waits for delivery.
type NotifyWorker struct {
	store        TaskStore
	notifiers    map[string]domain.Notifier
	redis        *redis.Client
	retry        RetryPolicy
	queue        chan int64
	pollInterval time.Duration
	batchSize    int
	sendTimeout  time.Duration
	logger       *zerolog.Logger
	now          func() time.Time
}

func NewNotifyWorker(store TaskStore, notifiers []domain.Notifier, redisClient *redis.Client, retry RetryPolicy, pollInterval time.Duration, logger *zerolog.Logger) *NotifyWorker {
	if pollInterval <= 0 {
		pollInterval = defaultPoll
	}
	byName := make(map[string]domain.Notifier, len(notifiers))
	for _, n := range notifiers {
		byName[n.Name()] = n
	}
	return &NotifyWorker{
		store:        store,
		notifiers:    byName,
		redis:        redisClient,
		retry:        retry.withDefaults(),
		queue:        make(chan int64, models.NotifyQueueSize),
		pollInterval: pollInterval,
		batchSize:    defaultBatch,
		sendTimeout:  defaultSendTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// EnqueuePaymentNotice persists one task per channel and signals the loop.
func (w *NotifyWorker) EnqueuePaymentNotice(ctx context.Context, notice models.PaymentNotice) error {
	if notice.PaymentID <= 0 {
		return errors.New("payment id is required")
	}
	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}

	for name := range w.notifiers {
		task := models.NotifyTask{
			TaskType:  name,
			PaymentID: notice.PaymentID,
			Payload:   string(payload),
			Status:    models.TaskPending,
		}
		if err := w.store.EnqueueNotifyTask(ctx, &task); err != nil {
			return fmt.Errorf("persist notify task: %w", err)
		}
		w.signal(ctx, task.ID)
	}
	return nil
}

func (w *NotifyWorker) signal(ctx context.Context, id int64) {
	if w.redis != nil {
		err := w.redis.LPush(ctx, redisQueueKey, id).Err()
		if err == nil {
			return
		}
		w.logger.Warn().Err(err).Int64("task_id", id).Msg("redis push failed, using memory queue")
	}
	select {
	case w.queue <- id:
	default:
		// the poller picks it up from the outbox
		w.logger.Warn().Int64("task_id", id).Msg("notify queue full")
	}
}

// Run processes tasks until ctx is done.
func (w *NotifyWorker) Run(ctx context.Context) {
	w.logger.Info().Int("channels", len(w.notifiers)).Msg("notify worker started")
	defer w.logger.Info().Msg("notify worker stopped")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.drainDue(ctx)
	for {
		if ctx.Err() != nil {
			return
		}

		select {
		case id := <-w.queue:
			w.process(ctx, id)
			continue
		default:
		}

		if w.redis != nil {
			if id, ok := w.popRedis(ctx); ok {
				w.process(ctx, id)
				continue
			}
			select {
			case <-ticker.C:
				w.drainDue(ctx)
			default:
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case id := <-w.queue:
			w.process(ctx, id)
		case <-ticker.C:
			w.drainDue(ctx)
		}
	}
}

func (w *NotifyWorker) popRedis(ctx context.Context) (int64, bool) {
	res, err := w.redis.BRPop(ctx, time.Second, redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Warn().Err(err).Msg("redis BRPOP failed")
			// avoid spinning while redis is down
			select {
			case <-ctx.Done():
			case <-time.After(w.pollInterval):
			}
		}
		return 0, false
	}
	if len(res) != 2 {
		return 0, false
	}
	id, err := strconv.ParseInt(res[1], 10, 64)
	if err != nil {
		w.logger.Warn().Str("value", res[1]).Msg("bad task id in redis queue")
		return 0, false
	}
	return id, true
}

func (w *NotifyWorker) drainDue(ctx context.Context) {
	tasks, err := w.store.DueNotifyTasks(ctx, w.now(), w.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("fetch due notify tasks")
		}
		return
	}
	for i := range tasks {
		w.handle(ctx, &tasks[i])
	}
}

// process reloads the task so a signal for an already finished or
// not-yet-due task is ignored.
func (w *NotifyWorker) process(ctx context.Context, id int64) {
	task, err := w.store.GetNotifyTask(ctx, id)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", id).Msg("load notify task")
		return
	}
	w.handle(ctx, task)
}

func (w *NotifyWorker) handle(ctx context.Context, task *models.NotifyTask) {
	if task.Status != models.TaskPending && task.Status != models.TaskRetry {
		return
	}
	if task.NextRetryAt != nil && task.NextRetryAt.After(w.now()) {
		return
	}

	log := w.logger.With().Int64("task_id", task.ID).Str("channel", task.TaskType).Logger()

	notifier, ok := w.notifiers[task.TaskType]
	if !ok {
		w.fail(ctx, task, fmt.Errorf("no notifier for channel %q", task.TaskType))
		return
	}

	var notice models.PaymentNotice
	if err := json.Unmarshal([]byte(task.Payload), &notice); err != nil {
		w.fail(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	err := notifier.NotifyPayment(sendCtx, notice)
	cancel()
	if err != nil {
		metrics.IncNotification(task.TaskType, "error")
		log.Warn().Err(err).Int("attempt", task.RetryCount+1).Msg("notification failed")
		w.retryOrFail(ctx, task, err)
		return
	}

	metrics.IncNotification(task.TaskType, "sent")
	if err := w.store.MarkNotifyTaskDone(ctx, task.ID); err != nil {
		log.Error().Err(err).Msg("mark notify task done")
	}
}

func (w *NotifyWorker) retryOrFail(ctx context.Context, task *models.NotifyTask, cause error) {
	failures := task.RetryCount + 1
	if failures >= w.retry.MaxRetries {
		w.fail(ctx, task, cause)
		return
	}
	next := w.now().Add(w.retry.NextDelay(failures))
	if err := w.store.MarkNotifyTaskRetry(ctx, task.ID, cause.Error(), next); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("schedule notify retry")
	}
}

func (w *NotifyWorker) fail(ctx context.Context, task *models.NotifyTask, cause error) {
	metrics.IncNotification(task.TaskType, "dead_letter")
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Str("channel", task.TaskType).Msg("notification abandoned")
	if err := w.store.MarkNotifyTaskFailed(ctx, task.ID, cause.Error()); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark notify task failed")
	}
	w.pushDeadLetter(ctx, task, cause)
}

func (w *NotifyWorker) pushDeadLetter(ctx context.Context, task *models.NotifyTask, cause error) {
	if w.redis == nil {
		return
	}
	msg := cause.Error()
	task.LastError = &msg
	data, err := json.Marshal(task)
	if err != nil {
		return
	}
	if err := w.redis.LPush(ctx, redisDeadLetter, data).Err(); err != nil {
		w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("dead letter push failed")
	}
}
