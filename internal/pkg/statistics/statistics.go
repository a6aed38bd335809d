package statistics

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/lynqit/lynqit/app/repository"
	"github.com/lynqit/lynqit/internal/pkg/cache"
)

const (
	CacheKeyAdminStats = "statistics:admin:%s" // Format with date YYYY-MM-DD
	CacheExpiration    = 30 * time.Minute
)

// StatisticsData is the admin dashboard summary.
type StatisticsData struct {
	TotalUsers  int64            `json:"totalUsers"`
	TotalPages  int64            `json:"totalPages"`
	PagesByPlan map[string]int64 `json:"pagesByPlan"`
	ViewsToday  int64            `json:"viewsToday"`
	ClicksToday int64            `json:"clicksToday"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// Service computes admin statistics and keeps a short-lived copy in Redis.
type Service struct {
	repos *repository.Repositories
	now   func() time.Time

	mu             sync.Mutex
	lastUpdate     time.Time
	updateInterval time.Duration
}

// NewService creates a statistics service over the given repositories.
func NewService(repos *repository.Repositories) *Service {
	return &Service{
		repos:          repos,
		now:            time.Now,
		updateInterval: 5 * time.Minute,
	}
}

// ShouldUpdateCache reports whether the cached copy is older than the update interval.
func (s *Service) ShouldUpdateCache() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.lastUpdate) > s.updateInterval
}

// ResetCacheUpdateTimer forces the next Get to recompute.
func (s *Service) ResetCacheUpdateTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdate = time.Time{}
}

// Get returns cached statistics, recomputing them when the cache is stale
// or unavailable.
func (s *Service) Get() (*StatisticsData, error) {
	key := s.cacheKey()
	if !s.ShouldUpdateCache() {
		if raw, err := cache.Get(key); err == nil {
			var data StatisticsData
			if err := json.Unmarshal([]byte(raw), &data); err == nil {
				return &data, nil
			}
		}
	}

	data, err := s.Compute()
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(data)
	if err == nil {
		if err := cache.Set(key, raw, CacheExpiration); err != nil {
			log.Warnf("[Statistics] Error caching admin stats: %v", err)
		} else {
			s.mu.Lock()
			s.lastUpdate = s.now()
			s.mu.Unlock()
		}
	}
	return data, nil
}

// Compute queries the database directly.
func (s *Service) Compute() (*StatisticsData, error) {
	now := s.now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	users, err := s.repos.User.Count()
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	pages, err := s.repos.Page.Count()
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	byPlan, err := s.repos.Page.CountByPlan()
	if err != nil {
		return nil, fmt.Errorf("count pages by plan: %w", err)
	}
	views, err := s.repos.Analytics.CountViewsSince(todayStart)
	if err != nil {
		return nil, fmt.Errorf("count views: %w", err)
	}
	clicks, err := s.repos.Analytics.CountClicksSince(todayStart)
	if err != nil {
		return nil, fmt.Errorf("count clicks: %w", err)
	}

	log.Debugf("[Statistics] Admin stats computed: users=%d pages=%d views=%d clicks=%d", users, pages, views, clicks)

	return &StatisticsData{
		TotalUsers:  users,
		TotalPages:  pages,
		PagesByPlan: byPlan,
		ViewsToday:  views,
		ClicksToday: clicks,
		GeneratedAt: now,
	}, nil
}

func (s *Service) cacheKey() string {
	return fmt.Sprintf(CacheKeyAdminStats, s.now().UTC().Format("2006-01-02"))
}
