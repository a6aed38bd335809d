package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/lynqit/lynqit/app/models"
	"github.com/lynqit/lynqit/app/repository"
)

const (
	pageKeyPrefix = "lynqit:analytics:page:"
	knownPageTTL  = 10 * time.Minute
	unknownPageTTL = time.Minute
)

// PageLookup finds a page by id.
type PageLookup interface {
	GetByID(id string) (*models.LynqitPage, error)
}

// pageExists reports whether events for pageID should be stored. Without a
// lookup every page is accepted. Answers are cached in Redis when a client
// is configured.
func (r *Recorder) pageExists(ctx context.Context, pageID string) (bool, error) {
	if r.pages == nil {
		return true, nil
	}
	key := pageKeyPrefix + pageID
	if r.pageCache != nil {
		v, err := r.pageCache.Get(ctx, key).Result()
		if err == nil {
			return v == "1", nil
		}
		if !errors.Is(err, redis.Nil) {
			log.Debugf("[Analytics] page cache unavailable: %v", err)
		}
	}

	_, err := r.pages.GetByID(pageID)
	exists := err == nil
	if err != nil && !repository.IsNotFound(err) {
		return false, err
	}

	if r.pageCache != nil {
		v, ttl := "0", unknownPageTTL
		if exists {
			v, ttl = "1", knownPageTTL
		}
		if err := r.pageCache.Set(ctx, key, v, ttl).Err(); err != nil {
			log.Debugf("[Analytics] failed to cache page %s: %v", pageID, err)
		}
	}
	return exists, nil
}
