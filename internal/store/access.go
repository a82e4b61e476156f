package store

import (
	"context"

	"course-payment-service/internal/models"
)

// HasActiveAccess reports whether the user holds a grant for a course that
// is still active. A course deactivated after purchase revokes effective
// access without touching the grant row.
func (s *Store) HasActiveAccess(ctx context.Context, userID, courseID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS(
			SELECT 1 FROM course_access ca
			JOIN courses c ON c.id = ca.course_id
			WHERE ca.user_id = $1 AND ca.course_id = $2 AND c.is_active)`,
		userID, courseID)
	return exists, err
}

// ListAccessibleCourses retrieves all active courses the user holds a grant
// for, newest grant first.
func (s *Store) ListAccessibleCourses(ctx context.Context, userID int64) ([]models.Course, error) {
	var courses []models.Course
	err := s.db.SelectContext(ctx, &courses,
		`SELECT c.id, c.title, c.price, c.currency, c.hours, c.is_active
		 FROM course_access ca
		 JOIN courses c ON c.id = ca.course_id
		 WHERE ca.user_id = $1 AND c.is_active
		 ORDER BY ca.granted_at DESC`,
		userID)
	return courses, err
}
