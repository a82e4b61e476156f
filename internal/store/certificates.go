package store

import (
	"context"
	"database/sql"
	"errors"

	"course-payment-service/internal/models"

	"github.com/lib/pq"
)

// ErrDuplicateCertificate is returned when the partial unique index on
// (user_id, course_id) WHERE revoked_at IS NULL rejects an insert. The
// caller treats it as "already issued" and fetches the winning row.
var ErrDuplicateCertificate = errors.New("certificate already issued")

// GetValidCertificate retrieves the non-revoked certificate for a pair;
// returns (nil, nil) when none exists
func (s *Store) GetValidCertificate(ctx context.Context, userID, courseID int64) (*models.Certificate, error) {
	var cert models.Certificate
	err := s.db.GetContext(ctx, &cert,
		"SELECT * FROM certificates WHERE user_id = $1 AND course_id = $2 AND revoked_at IS NULL",
		userID, courseID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// CreateCertificate inserts a certificate row. A unique violation maps to
// ErrDuplicateCertificate instead of surfacing as a storage failure.
func (s *Store) CreateCertificate(ctx context.Context, cert *models.Certificate) error {
	query := `
		INSERT INTO certificates (user_id, course_id, certificate_number, hours, issued_at, file_path, is_valid, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := s.db.GetContext(ctx, &cert.ID, query,
		cert.UserID, cert.CourseID, cert.CertificateNumber, cert.Hours,
		cert.IssuedAt, cert.FilePath, cert.IsValid, cert.Version)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateCertificate
	}
	return err
}

// CourseProgress counts total and completed lessons for a (user, course)
// pair. Lesson progress is owned by the progress service; this is a
// read-only aggregate.
func (s *Store) CourseProgress(ctx context.Context, userID, courseID int64) (completed, total int, err error) {
	row := struct {
		Total     int `db:"total"`
		Completed int `db:"completed"`
	}{}
	err = s.db.GetContext(ctx, &row,
		`SELECT COUNT(*) AS total, COUNT(lp.lesson_id) AS completed
		 FROM lessons l
		 LEFT JOIN lesson_progress lp ON lp.lesson_id = l.id AND lp.user_id = $1 AND lp.is_done
		 WHERE l.course_id = $2`,
		userID, courseID)
	return row.Completed, row.Total, err
}

// TestScore returns the aggregate score percent over the course's graded
// test parts. hasTests is false when the course defines none.
func (s *Store) TestScore(ctx context.Context, userID, courseID int64) (scorePercent int, hasTests bool, err error) {
	row := struct {
		Parts  int `db:"parts"`
		Earned int `db:"earned"`
		Max    int `db:"max"`
	}{}
	err = s.db.GetContext(ctx, &row,
		`SELECT COUNT(tp.id) AS parts,
		        COALESCE(SUM(tr.score), 0) AS earned,
		        COALESCE(SUM(tp.max_score), 0) AS max
		 FROM test_parts tp
		 LEFT JOIN test_results tr ON tr.test_part_id = tp.id AND tr.user_id = $1
		 WHERE tp.course_id = $2`,
		userID, courseID)
	if err != nil {
		return 0, false, err
	}
	if row.Parts == 0 || row.Max == 0 {
		return 0, false, nil
	}
	return 100 * row.Earned / row.Max, true, nil
}
