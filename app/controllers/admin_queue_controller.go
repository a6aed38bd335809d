package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lynqit/lynqit/internal/pkg/jobqueue"
)

const queueStatsTimeout = 3 * time.Second

// HandleQueue reports the analytics job queue: waiting and in-flight jobs
// plus the retry backlog and the count per job status.
func (ac *AdminController) HandleQueue(c *fiber.Ctx) error {
	if ac.queue == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "queue_unavailable", "De wachtrij is niet beschikbaar")
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), queueStatsTimeout)
	defer cancel()

	stats, err := ac.queue.GetJobStats(ctx)
	if err != nil {
		return ac.handleError(c, "Failed to get job stats", err)
	}
	pending, err := ac.queue.GetQueueSize(ctx)
	if err != nil {
		return ac.handleError(c, "Failed to get queue size", err)
	}
	processing, err := ac.queue.GetProcessingSize(ctx)
	if err != nil {
		return ac.handleError(c, "Failed to get processing size", err)
	}
	delayed, err := ac.queue.GetDelayedSize(ctx)
	if err != nil {
		return ac.handleError(c, "Failed to get retry backlog", err)
	}

	byStatus := make(map[string]int64, len(stats))
	for _, status := range []jobqueue.JobStatus{
		jobqueue.JobStatusPending,
		jobqueue.JobStatusProcessing,
		jobqueue.JobStatusRetrying,
		jobqueue.JobStatusCompleted,
		jobqueue.JobStatusFailed,
	} {
		byStatus[string(status)] = stats[status]
	}

	return c.JSON(fiber.Map{
		"queued":     pending,
		"processing": processing,
		"delayed":    delayed,
		"byStatus":   byStatus,
		"checkedAt":  ac.now().UTC(),
	})
}
