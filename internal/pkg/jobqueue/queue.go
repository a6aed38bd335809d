package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lynqit/lynqit/internal/pkg/cache"
)

const (
	// KeyPrefix namespaces every queue key in Redis
	KeyPrefix = "lynqit:jobs:"

	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour
	// DefaultRetryDelay is multiplied by the attempt number
	DefaultRetryDelay = 30 * time.Second

	defaultWorkers   = 3
	dequeueTimeout   = time.Second
	promoteInterval  = 250 * time.Millisecond
	promoteBatch     = 100
	stuckAfter       = 10 * time.Minute
	stuckScanEvery   = time.Minute
	errorBackoff     = time.Second
	recoveredMessage = "recovered after worker stopped mid-job"
)

func jobKey(id string) string { return KeyPrefix + "job:" + id }

var (
	pendingKey    = KeyPrefix + "pending"
	processingKey = KeyPrefix + "processing"
	delayedKey    = KeyPrefix + "delayed"
	statsKey      = KeyPrefix + "stats"
)

// Handler processes one job. A returned error schedules a retry.
type Handler func(ctx context.Context, job *Job) error

// Queue is a Redis list backed job queue. Failed jobs wait in a sorted set
// until their retry is due, so pending retries survive a restart.
type Queue struct {
	client     *redis.Client
	workers    int
	retryDelay time.Duration
	now        func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	handlersMu sync.RWMutex
	handlers   map[JobType]Handler
}

// NewQueue creates a queue on the shared cache client
func NewQueue(workers int) *Queue {
	return NewQueueWithClient(cache.GetClient(), workers)
}

// NewQueueWithClient creates a queue on client
func NewQueueWithClient(client *redis.Client, workers int) *Queue {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Queue{
		client:     client,
		workers:    workers,
		retryDelay: DefaultRetryDelay,
		now:        time.Now,
		stopCh:     make(chan struct{}),
		handlers:   make(map[JobType]Handler),
	}
}

// Register installs the handler for jobType, replacing any previous one
func (q *Queue) Register(jobType JobType, h Handler) {
	q.handlersMu.Lock()
	defer q.handlersMu.Unlock()
	q.handlers[jobType] = h
}

// SetRetryDelay changes the base delay between attempts
func (q *Queue) SetRetryDelay(d time.Duration) {
	q.retryDelay = d
}

func (q *Queue) handler(jobType JobType) (Handler, bool) {
	q.handlersMu.RLock()
	defer q.handlersMu.RUnlock()
	h, ok := q.handlers[jobType]
	return h, ok
}

// Start launches the workers, the retry promoter and the stuck job scan
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.running = true
	log.Infof("[JobQueue] Starting %d workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.wg.Add(2)
	go q.every(promoteInterval, func(ctx context.Context) {
		if _, err := q.PromoteDue(ctx); err != nil {
			log.Errorf("[JobQueue] Failed to promote retries: %v", err)
		}
	})
	go q.every(stuckScanEvery, func(ctx context.Context) {
		if _, err := q.RecoverStuck(ctx, stuckAfter); err != nil {
			log.Errorf("[JobQueue] Failed to recover stuck jobs: %v", err)
		}
	})
}

// Stop stops all goroutines and waits for in-flight jobs
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return
	}
	log.Info("[JobQueue] Stopping workers...")
	close(q.stopCh)
	q.wg.Wait()
	q.running = false
	q.stopCh = make(chan struct{})
	log.Info("[JobQueue] All workers stopped")
}

func (q *Queue) every(interval time.Duration, fn func(ctx context.Context)) {
	defer q.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			fn(context.Background())
		}
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	ctx := context.Background()
	for {
		select {
		case <-q.stopCh:
			log.Debugf("[JobQueue] Worker %d stopping", id)
			return
		default:
		}

		job, err := q.dequeue(ctx)
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Errorf("[JobQueue] Worker %d: %v", id, err)
				time.Sleep(errorBackoff)
			}
			continue
		}
		q.process(ctx, job)
	}
}

// EnqueueJob stores a new job and appends it to the pending list
func (q *Queue) EnqueueJob(ctx context.Context, jobType JobType, payload map[string]interface{}) (*Job, error) {
	now := q.now()
	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: DefaultMaxRetries,
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, jobKey(job.ID), data, JobTTL)
	pipe.LPush(ctx, pendingKey, job.ID)
	pipe.HIncrBy(ctx, statsKey, string(JobStatusPending), 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	log.Debugf("[JobQueue] Enqueued job %s (%s)", job.ID, job.Type)
	return job, nil
}

// dequeue moves the oldest pending id onto the processing list and loads it.
func (q *Queue) dequeue(ctx context.Context) (*Job, error) {
	id, err := q.client.BLMove(ctx, pendingKey, processingKey, "RIGHT", "LEFT", dequeueTimeout).Result()
	if err != nil {
		return nil, err
	}
	job, err := q.GetJob(ctx, id)
	if err != nil {
		q.client.LRem(ctx, processingKey, 1, id)
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	return job, nil
}

func (q *Queue) process(ctx context.Context, job *Job) {
	job.MarkAsProcessing()
	q.save(ctx, job)

	var err error
	if h, ok := q.handler(job.Type); ok {
		err = h(ctx, job)
	} else {
		err = fmt.Errorf("no handler for job type %s", job.Type)
	}

	retry := false
	if err != nil {
		job.MarkAsFailed(err.Error())
		retry = job.IsRetryable()
	}

	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, processingKey, 1, job.ID)
	switch {
	case err == nil:
		job.MarkAsCompleted()
		pipe.Del(ctx, jobKey(job.ID))
		pipe.HIncrBy(ctx, statsKey, string(JobStatusCompleted), 1)
	case retry:
		job.MarkAsRetrying()
		due := q.now().Add(q.retryDelay * time.Duration(job.RetryCount))
		log.Warnf("[JobQueue] Job %s failed (attempt %d/%d), retrying at %s: %v",
			job.ID, job.RetryCount, job.MaxRetries, due.Format(time.RFC3339), err)
		q.queueSave(ctx, pipe, job)
		pipe.ZAdd(ctx, delayedKey, redis.Z{Score: float64(due.UnixMilli()), Member: job.ID})
		pipe.HIncrBy(ctx, statsKey, string(JobStatusRetrying), 1)
	default:
		log.Errorf("[JobQueue] Job %s (%s) failed permanently after %d attempts: %v", job.ID, job.Type, job.RetryCount, err)
		q.queueSave(ctx, pipe, job)
		pipe.HIncrBy(ctx, statsKey, string(JobStatusFailed), 1)
	}
	if _, perr := pipe.Exec(ctx); perr != nil {
		log.Errorf("[JobQueue] Failed to record outcome of job %s: %v", job.ID, perr)
	}
}

// PromoteDue moves retries whose delay has passed back onto the pending list.
func (q *Queue) PromoteDue(ctx context.Context) (int, error) {
	ids, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(q.now().UnixMilli(), 10),
		Count: promoteBatch,
	}).Result()
	if err != nil {
		return 0, err
	}
	promoted := 0
	for _, id := range ids {
		// only the caller that removes the member requeues it
		removed, err := q.client.ZRem(ctx, delayedKey, id).Result()
		if err != nil {
			return promoted, err
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, pendingKey, id).Err(); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

// RecoverStuck requeues jobs that have sat on the processing list for longer
// than maxAge, which happens when a process dies mid-job.
func (q *Queue) RecoverStuck(ctx context.Context, maxAge time.Duration) (int, error) {
	ids, err := q.client.LRange(ctx, processingKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	now := q.now()
	recovered := 0
	for _, id := range ids {
		job, err := q.GetJob(ctx, id)
		if err != nil || job.Status != JobStatusProcessing {
			// expired or stray entry
			q.client.LRem(ctx, processingKey, 1, id)
			continue
		}
		started := job.UpdatedAt
		if job.ProcessedAt != nil {
			started = *job.ProcessedAt
		}
		if now.Sub(started) <= maxAge {
			continue
		}
		log.Warnf("[JobQueue] Recovering stuck job %s (%s), running for %s", job.ID, job.Type, now.Sub(started))
		job.Status = JobStatusPending
		job.ErrorMsg = recoveredMessage
		job.UpdatedAt = now

		pipe := q.client.TxPipeline()
		q.queueSave(ctx, pipe, job)
		pipe.LRem(ctx, processingKey, 1, id)
		pipe.RPush(ctx, pendingKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}

func (q *Queue) save(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Failed to marshal job %s: %v", job.ID, err)
		return
	}
	if err := q.client.Set(ctx, jobKey(job.ID), data, JobTTL).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to save job %s: %v", job.ID, err)
	}
}

func (q *Queue) queueSave(ctx context.Context, pipe redis.Pipeliner, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Failed to marshal job %s: %v", job.ID, err)
		return
	}
	pipe.Set(ctx, jobKey(job.ID), data, JobTTL)
}

// GetJob loads a job by id
func (q *Queue) GetJob(ctx context.Context, jobID string) (*Job, error) {
	data, err := q.client.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

// GetJobStats returns how many jobs reached each status
func (q *Queue) GetJobStats(ctx context.Context) (map[JobStatus]int64, error) {
	raw, err := q.client.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return nil, err
	}
	result := make(map[JobStatus]int64, len(raw))
	for status, count := range raw {
		if n, err := strconv.ParseInt(count, 10, 64); err == nil {
			result[JobStatus(status)] = n
		}
	}
	return result, nil
}

// GetQueueSize returns the number of pending jobs
func (q *Queue) GetQueueSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, pendingKey).Result()
}

// GetProcessingSize returns the number of jobs being processed
func (q *Queue) GetProcessingSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, processingKey).Result()
}

// GetDelayedSize returns the number of jobs waiting for a retry
func (q *Queue) GetDelayedSize(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, delayedKey).Result()
}
