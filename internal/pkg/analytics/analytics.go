// Package analytics records page views and clicks without ever failing the
// visitor's request.
package analytics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/app/repository"
	"github.com/lynqit/lynqit/internal/pkg/jobqueue"
	"github.com/lynqit/lynqit/internal/pkg/metrics/counter"
)

const (
	enqueueTimeout         = 500 * time.Millisecond
	defaultFallbackTimeout = 5 * time.Second

	maxReferrer  = 2048
	maxUserAgent = 512
	maxClickType = 191
	maxTargetURL = 2048
)

var (
	ErrMissingPageID    = errors.New("pageId is required")
	ErrMissingClickType = errors.New("clickType is required")
)

// PageviewEvent is one visit of a public page.
type PageviewEvent struct {
	PageID    string
	Referrer  string
	UserAgent string
	IP        string
}

// ClickEvent is one click on a tracked element of a public page.
type ClickEvent struct {
	PageID    string
	ClickType string
	TargetURL string
	UserAgent string
	IP        string
}

// Enqueuer accepts background jobs.
type Enqueuer interface {
	EnqueueJob(ctx context.Context, jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error)
}

// Counters keeps the denormalised view and click totals of a page.
type Counters interface {
	AddPageView(ctx context.Context, pageID string) error
	AddClick(ctx context.Context, pageID string) error
}

type redisCounters struct{}

func (redisCounters) AddPageView(ctx context.Context, pageID string) error {
	return counter.AddPageView(ctx, pageID)
}

func (redisCounters) AddClick(ctx context.Context, pageID string) error {
	return counter.AddClick(ctx, pageID)
}

// Options configures a Recorder. Zero values pick defaults; a nil Queue
// writes every event directly. With Pages set, events for unknown pages are
// dropped; PageCache remembers those answers.
type Options struct {
	Queue           Enqueuer
	Counters        Counters
	Pages           PageLookup
	PageCache       *redis.Client
	FallbackTimeout time.Duration
	Enabled         func() bool
	Now             func() time.Time
}

// Recorder turns tracking calls into stored rows.
type Recorder struct {
	repo            repository.AnalyticsRepository
	queue           Enqueuer
	counters        Counters
	pages           PageLookup
	pageCache       *redis.Client
	fallbackTimeout time.Duration
	enabled         func() bool
	now             func() time.Time
	inflight        sync.WaitGroup
}

// NewRecorder creates a recorder writing through repo.
func NewRecorder(repo repository.AnalyticsRepository, opts Options) *Recorder {
	r := &Recorder{
		repo:            repo,
		queue:           opts.Queue,
		counters:        opts.Counters,
		pages:           opts.Pages,
		pageCache:       opts.PageCache,
		fallbackTimeout: opts.FallbackTimeout,
		enabled:         opts.Enabled,
		now:             opts.Now,
	}
	if r.counters == nil {
		r.counters = redisCounters{}
	}
	if r.fallbackTimeout <= 0 {
		r.fallbackTimeout = defaultFallbackTimeout
	}
	if r.enabled == nil {
		r.enabled = func() bool { return true }
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Register installs the job handlers on q.
func (r *Recorder) Register(q *jobqueue.Queue) {
	q.Register(jobqueue.JobTypeAnalyticsPageview, r.handlePageviewJob)
	q.Register(jobqueue.JobTypeAnalyticsClick, r.handleClickJob)
}

// RecordPageview validates ev and hands it off. Only validation errors are
// returned; storage failures are logged.
func (r *Recorder) RecordPageview(ctx context.Context, ev PageviewEvent) error {
	pageID := strings.TrimSpace(ev.PageID)
	if pageID == "" {
		return ErrMissingPageID
	}
	if !r.enabled() {
		return nil
	}
	payload := jobqueue.PageviewJobPayload{
		PageID:     pageID,
		Referrer:   truncate(ev.Referrer, maxReferrer),
		UserAgent:  truncate(ev.UserAgent, maxUserAgent),
		IPHash:     hashIP(ev.IP),
		OccurredAt: r.now().UTC(),
	}
	r.dispatch(ctx, jobqueue.JobTypeAnalyticsPageview, payload.ToMap(), func(ctx context.Context) error {
		return r.storePageview(ctx, &payload)
	})
	return nil
}

// RecordClick validates ev and hands it off. Only validation errors are
// returned; storage failures are logged.
func (r *Recorder) RecordClick(ctx context.Context, ev ClickEvent) error {
	pageID := strings.TrimSpace(ev.PageID)
	if pageID == "" {
		return ErrMissingPageID
	}
	clickType := strings.TrimSpace(ev.ClickType)
	if clickType == "" {
		return ErrMissingClickType
	}
	if !r.enabled() {
		return nil
	}
	payload := jobqueue.ClickJobPayload{
		PageID:     pageID,
		ClickType:  truncate(clickType, maxClickType),
		TargetURL:  truncate(ev.TargetURL, maxTargetURL),
		UserAgent:  truncate(ev.UserAgent, maxUserAgent),
		IPHash:     hashIP(ev.IP),
		OccurredAt: r.now().UTC(),
	}
	r.dispatch(ctx, jobqueue.JobTypeAnalyticsClick, payload.ToMap(), func(ctx context.Context) error {
		return r.storeClick(ctx, &payload)
	})
	return nil
}

// dispatch enqueues the event; when that fails the event is stored by a
// detached goroutine bounded by the fallback timeout.
func (r *Recorder) dispatch(ctx context.Context, jobType jobqueue.JobType, payload map[string]interface{}, store func(context.Context) error) {
	if r.queue != nil {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
		_, err := r.queue.EnqueueJob(qctx, jobType, payload)
		cancel()
		if err == nil {
			return
		}
		log.Warnf("[Analytics] enqueue %s failed, writing directly: %v", jobType, err)
	}

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		sctx, cancel := context.WithTimeout(context.Background(), r.fallbackTimeout)
		defer cancel()
		if err := store(sctx); err != nil {
			log.Errorf("[Analytics] failed to store %s: %v", jobType, err)
		}
	}()
}

// Wait blocks until direct writes started so far have finished.
func (r *Recorder) Wait() {
	r.inflight.Wait()
}

func (r *Recorder) handlePageviewJob(ctx context.Context, job *jobqueue.Job) error {
	payload, err := jobqueue.PageviewJobPayloadFromMap(job.Payload)
	if err != nil {
		return err
	}
	return r.storePageview(ctx, payload)
}

func (r *Recorder) handleClickJob(ctx context.Context, job *jobqueue.Job) error {
	payload, err := jobqueue.ClickJobPayloadFromMap(job.Payload)
	if err != nil {
		return err
	}
	return r.storeClick(ctx, payload)
}

func (r *Recorder) storePageview(ctx context.Context, p *jobqueue.PageviewJobPayload) error {
	if ok, err := r.pageExists(ctx, p.PageID); err != nil || !ok {
		if err == nil {
			log.Debugf("[Analytics] dropped view for unknown page %s", p.PageID)
		}
		return err
	}
	view := &models.PageView{
		PageID:    p.PageID,
		Referrer:  p.Referrer,
		UserAgent: p.UserAgent,
		IPHash:    p.IPHash,
		CreatedAt: p.OccurredAt,
	}
	if err := r.repo.CreatePageView(view); err != nil {
		return err
	}
	if err := r.counters.AddPageView(ctx, p.PageID); err != nil {
		log.Warnf("[Analytics] view counter for %s not updated: %v", p.PageID, err)
	}
	return nil
}

func (r *Recorder) storeClick(ctx context.Context, p *jobqueue.ClickJobPayload) error {
	if ok, err := r.pageExists(ctx, p.PageID); err != nil || !ok {
		if err == nil {
			log.Debugf("[Analytics] dropped click for unknown page %s", p.PageID)
		}
		return err
	}
	click := &models.Click{
		PageID:    p.PageID,
		ClickType: p.ClickType,
		TargetURL: p.TargetURL,
		UserAgent: p.UserAgent,
		CreatedAt: p.OccurredAt,
	}
	if err := r.repo.CreateClick(click); err != nil {
		return err
	}
	if err := r.counters.AddClick(ctx, p.PageID); err != nil {
		log.Warnf("[Analytics] click counter for %s not updated: %v", p.PageID, err)
	}
	return nil
}

func hashIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
