package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"course-payment-service/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb       *redis.Client
	accessTTL time.Duration
	courseTTL time.Duration
}

// NewClient creates a new Redis client used as a read-side cache
func NewClient(addr, password string, db int, accessTTL, courseTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, accessTTL: accessTTL, courseTTL: courseTTL}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func accessKey(userID, courseID int64) string {
	return fmt.Sprintf("access:%d:%d", userID, courseID)
}

func courseKey(courseID int64) string {
	return fmt.Sprintf("course:%d", courseID)
}

// GetAccess reads a cached access-check result. found is false on a miss.
func (c *Client) GetAccess(ctx context.Context, userID, courseID int64) (hasAccess, found bool, err error) {
	val, err := c.rdb.Get(ctx, accessKey(userID, courseID)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

// SetAccess caches an access-check result with TTL
func (c *Client) SetAccess(ctx context.Context, userID, courseID int64, hasAccess bool) error {
	val := "0"
	if hasAccess {
		val = "1"
	}
	return c.rdb.Set(ctx, accessKey(userID, courseID), val, c.accessTTL).Err()
}

// InvalidateAccess drops the cached access result, used when a grant lands
func (c *Client) InvalidateAccess(ctx context.Context, userID, courseID int64) error {
	return c.rdb.Del(ctx, accessKey(userID, courseID)).Err()
}

// GetCachedCourse reads a cached course snapshot; returns (nil, nil) on miss
func (c *Client) GetCachedCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	data, err := c.rdb.Get(ctx, courseKey(courseID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var course models.Course
	if err := json.Unmarshal(data, &course); err != nil {
		return nil, fmt.Errorf("failed to decode cached course: %w", err)
	}
	return &course, nil
}

// CacheCourse stores a course snapshot with TTL. Staleness is bounded by the
// TTL and never affects amounts, which are snapshotted onto payment rows.
func (c *Client) CacheCourse(ctx context.Context, course *models.Course) error {
	data, err := json.Marshal(course)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, courseKey(course.ID), data, c.courseTTL).Err()
}

// ClaimEvent is a fast-path dedup for the consumer: the first claimer wins.
// The processed_events table stays authoritative; this only short-circuits
// obvious duplicates.
func (c *Client) ClaimEvent(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("event:%s", eventID), "1", ttl).Result()
}

// ReleaseEvent drops a claim so a failed event can be redelivered
func (c *Client) ReleaseEvent(ctx context.Context, eventID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("event:%s", eventID)).Err()
}
