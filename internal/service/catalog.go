package service

import (
	"context"

	"course-payment-service/internal/models"
	"course-payment-service/internal/redisclient"
	"course-payment-service/internal/store"
	"course-payment-service/internal/util"

	"go.uber.org/zap"
)

// CourseCatalog resolves course snapshots for price and active-flag reads.
type CourseCatalog interface {
	GetCourse(ctx context.Context, courseID int64) (*models.Course, error)
}

// CatalogClient reads courses with a Redis cache in front of the database.
// The catalog is owned by another service; everything here is read-only.
type CatalogClient struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewCatalogClient creates a new catalog client
func NewCatalogClient(store *store.Store, redis *redisclient.Client) *CatalogClient {
	return &CatalogClient{
		store:  store,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// GetCourse retrieves a course, cache first with DB fallback
func (cc *CatalogClient) GetCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	ctx, span := util.StartSpan(ctx, "CatalogClient.GetCourse")
	defer span.End()

	if cc.redis != nil {
		course, err := cc.redis.GetCachedCourse(ctx, courseID)
		if err != nil {
			cc.logger.Warn("Course cache read failed, falling back to DB",
				zap.Int64("course_id", courseID),
				zap.Error(err))
		} else if course != nil {
			return course, nil
		}
	}

	course, err := cc.store.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if cc.redis != nil {
		if err := cc.redis.CacheCourse(ctx, course); err != nil {
			cc.logger.Warn("Failed to cache course",
				zap.Int64("course_id", courseID),
				zap.Error(err))
		}
	}

	return course, nil
}
