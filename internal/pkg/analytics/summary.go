package analytics

import (
	"context"
	"time"

	"github.com/lynqit/lynqit/app/models"
)

const (
	DefaultSummaryDays = 30
	MaxSummaryDays     = 365
)

// Summary is the analytics overview of one page.
type Summary struct {
	PageID       string                  `json:"pageId"`
	From         time.Time               `json:"from"`
	To           time.Time               `json:"to"`
	TotalViews   int                     `json:"totalViews"`
	TotalClicks  int                     `json:"totalClicks"`
	DailyViews   []models.DailyStats     `json:"dailyViews"`
	DailyClicks  []models.DailyStats     `json:"dailyClicks"`
	ClicksByType []models.ClickTypeStats `json:"clicksByType"`
}

// Summary aggregates the last days of a page, today included.
func (r *Recorder) Summary(ctx context.Context, pageID string, days int) (*Summary, error) {
	_ = ctx
	if days <= 0 {
		days = DefaultSummaryDays
	}
	if days > MaxSummaryDays {
		days = MaxSummaryDays
	}
	now := r.now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	views, err := r.repo.GetDailyViews(pageID, from, now)
	if err != nil {
		return nil, err
	}
	clicks, err := r.repo.GetDailyClicks(pageID, from, now)
	if err != nil {
		return nil, err
	}
	byType, err := r.repo.GetClicksByType(pageID, from, now)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		PageID:       pageID,
		From:         from,
		To:           now,
		DailyViews:   views,
		DailyClicks:  clicks,
		ClicksByType: byType,
	}
	for _, d := range views {
		s.TotalViews += d.Count
	}
	for _, d := range clicks {
		s.TotalClicks += d.Count
	}
	return s, nil
}
