package service

import (
	"context"
	"fmt"

	"course-payment-service/internal/models"
	"course-payment-service/internal/util"

	"go.uber.org/zap"
)

// AccessStore is the persistence surface for entitlement reads.
type AccessStore interface {
	HasActiveAccess(ctx context.Context, userID, courseID int64) (bool, error)
	ListAccessibleCourses(ctx context.Context, userID int64) ([]models.Course, error)
}

// AccessCache caches access-check results. A nil cache is allowed; reads
// then go straight to the store.
type AccessCache interface {
	GetAccess(ctx context.Context, userID, courseID int64) (hasAccess, found bool, err error)
	SetAccess(ctx context.Context, userID, courseID int64, hasAccess bool) error
	InvalidateAccess(ctx context.Context, userID, courseID int64) error
}

// AccessService answers entitlement questions. It is side-effect-free:
// grants are created only by the state machine's confirm transaction.
type AccessService struct {
	store  AccessStore
	cache  AccessCache
	logger *zap.Logger
}

// NewAccessService creates a new access service
func NewAccessService(store AccessStore, cache AccessCache) *AccessService {
	return &AccessService{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// HasAccess reports whether the user can open the course: a grant exists and
// the course is still active.
func (as *AccessService) HasAccess(ctx context.Context, userID, courseID int64) (bool, error) {
	ctx, span := util.StartSpan(ctx, "AccessService.HasAccess")
	defer span.End()

	if as.cache != nil {
		hasAccess, found, err := as.cache.GetAccess(ctx, userID, courseID)
		if err != nil {
			as.logger.Warn("Access cache read failed, falling back to DB",
				zap.Int64("user_id", userID),
				zap.Int64("course_id", courseID),
				zap.Error(err))
		} else if found {
			return hasAccess, nil
		}
	}

	hasAccess, err := as.store.HasActiveAccess(ctx, userID, courseID)
	if err != nil {
		return false, fmt.Errorf("failed to check course access: %w", err)
	}

	if as.cache != nil {
		if err := as.cache.SetAccess(ctx, userID, courseID, hasAccess); err != nil {
			as.logger.Warn("Failed to cache access result", zap.Error(err))
		}
	}

	return hasAccess, nil
}

// ListAccessibleCourses retrieves the user's active courses, newest grant first
func (as *AccessService) ListAccessibleCourses(ctx context.Context, userID int64) ([]models.Course, error) {
	ctx, span := util.StartSpan(ctx, "AccessService.ListAccessibleCourses")
	defer span.End()

	return as.store.ListAccessibleCourses(ctx, userID)
}
