package counter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/lynqit/lynqit/internal/pkg/cache"
	"github.com/lynqit/lynqit/internal/pkg/database"
)

const (
	pageViewsKey  = "lynqit:counters:views"
	pageClicksKey = "lynqit:counters:clicks"
	pagesTable    = "lynqit_pages"
)

// AddPageView increments the pending view counter for a page in Redis
func AddPageView(ctx context.Context, pageID string) error {
	return cache.GetClient().HIncrBy(ctx, pageViewsKey, pageID, 1).Err()
}

// AddClick increments the pending click counter for a page in Redis
func AddClick(ctx context.Context, pageID string) error {
	return cache.GetClient().HIncrBy(ctx, pageClicksKey, pageID, 1).Err()
}

// FlushAll flushes views and clicks to the database
func FlushAll() error {
	db := database.GetDB()
	if db == nil {
		return errors.New("database not initialised")
	}
	return Flush(context.Background(), cache.GetClient(), db)
}

// Flush drains both counter hashes of rdb into the page table of db.
func Flush(ctx context.Context, rdb *redis.Client, db *gorm.DB) error {
	if err := flushHashToTable(ctx, rdb, db, pageViewsKey, pagesTable, "view_count"); err != nil {
		return err
	}
	return flushHashToTable(ctx, rdb, db, pageClicksKey, pagesTable, "click_count")
}

// flushHashToTable drains a Redis hash atomically and applies batched increments to table.
// Uses RENAME to a temporary key for atomic drain without losing in-flight increments.
func flushHashToTable(ctx context.Context, rdb *redis.Client, db *gorm.DB, redisKey, table, column string) error {
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Rename(ctx, redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") || errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}

	type pair struct {
		id  string
		inc int64
	}
	pairs := make([]pair, 0, len(data))
	for k, v := range data {
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if k == "" || ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{id: k, inc: inc})
	}
	if len(pairs) == 0 {
		return rdb.Del(ctx, tmpKey).Err()
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })

	// UPDATE <table> SET <column> = <column> + CASE id WHEN ? THEN ? ... END WHERE id IN ( ... )
	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("UPDATE ")
	builder.WriteString(table)
	builder.WriteString(" SET ")
	builder.WriteString(column)
	builder.WriteString(" = ")
	builder.WriteString(column)
	builder.WriteString(" + CASE id")
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.id, p.inc)
	}
	builder.WriteString(" ELSE 0 END WHERE id IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.id)
	}
	builder.WriteString(")")

	if err := db.WithContext(ctx).Exec(builder.String(), args...).Error; err != nil {
		// put the counts back so the next flush retries them
		pipe := rdb.Pipeline()
		for _, p := range pairs {
			pipe.HIncrBy(ctx, redisKey, p.id, p.inc)
		}
		pipe.Del(ctx, tmpKey)
		if _, perr := pipe.Exec(ctx); perr != nil {
			return fmt.Errorf("%w (restore failed: %v)", err, perr)
		}
		return err
	}
	return rdb.Del(ctx, tmpKey).Err()
}
