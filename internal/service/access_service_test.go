package service

import (
	"context"
	"testing"
	"time"

	"course-payment-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasAccessJoinsCourseActiveFlag(t *testing.T) {
	fs := newFakeStore()
	fs.addCourse(&models.Course{ID: 7, IsActive: true})
	fs.access[[2]int64{1, 7}] = time.Now()
	svc := NewAccessService(fs, nil)

	hasAccess, err := svc.HasAccess(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.True(t, hasAccess)

	// Deactivating the course revokes effective access without deleting
	// the grant row.
	fs.courses[7].IsActive = false
	hasAccess, err = svc.HasAccess(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.False(t, hasAccess)

	hasAccess, err = svc.HasAccess(context.Background(), 2, 7)
	require.NoError(t, err)
	assert.False(t, hasAccess)
}

func TestHasAccessUsesCache(t *testing.T) {
	fs := newFakeStore()
	fs.addCourse(&models.Course{ID: 7, IsActive: true})
	fs.access[[2]int64{1, 7}] = time.Now()
	cache := newFakeCache()
	svc := NewAccessService(fs, cache)

	hasAccess, err := svc.HasAccess(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.True(t, hasAccess)
	assert.True(t, cache.entries[[2]int64{1, 7}])

	// Cached value answers even after the store changes; staleness is
	// bounded by the TTL and the confirm-path invalidation.
	delete(fs.access, [2]int64{1, 7})
	hasAccess, err = svc.HasAccess(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.True(t, hasAccess)
}

func TestListAccessibleCoursesNewestFirst(t *testing.T) {
	fs := newFakeStore()
	fs.addCourse(&models.Course{ID: 7, Title: "Go", IsActive: true})
	fs.addCourse(&models.Course{ID: 8, Title: "SQL", IsActive: true})
	fs.addCourse(&models.Course{ID: 9, Title: "Archived", IsActive: false})
	now := time.Now()
	fs.access[[2]int64{1, 7}] = now.Add(-time.Hour)
	fs.access[[2]int64{1, 8}] = now
	fs.access[[2]int64{1, 9}] = now.Add(-time.Minute)
	svc := NewAccessService(fs, nil)

	courses, err := svc.ListAccessibleCourses(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, int64(8), courses[0].ID)
	assert.Equal(t, int64(7), courses[1].ID)
}
