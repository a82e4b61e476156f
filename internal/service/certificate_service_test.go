package service

import (
	"context"
	"testing"
	"time"

	"course-payment-service/internal/apperr"
	"course-payment-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCertificateFixture() (*fakeStore, *fakeSink, *CertificateService) {
	fs := newFakeStore()
	fs.addCourse(&models.Course{ID: 7, Title: "Go from scratch", Hours: 40, IsActive: true})
	sink := &fakeSink{}
	return fs, sink, NewCertificateService(fs, sink, 70)
}

func TestIssueIfEligibleShortCircuitsOnExistingCertificate(t *testing.T) {
	fs, sink, svc := newCertificateFixture()
	fs.certs[[2]int64{1, 7}] = &models.Certificate{
		ID: 1, UserID: 1, CourseID: 7,
		CertificateNumber: "CERT-existing",
		IsValid:           true,
		IssuedAt:          time.Now().Add(-time.Hour),
	}

	cert, err := svc.IssueIfEligible(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, "CERT-existing", cert.CertificateNumber)
	assert.Len(t, fs.certs, 1)
	assert.Empty(t, sink.published)
}

func TestIssueRequiresFullCompletion(t *testing.T) {
	fs, _, svc := newCertificateFixture()
	fs.progress[[2]int64{1, 7}] = [2]int{3, 5}

	_, err := svc.IssueIfEligible(context.Background(), 1, 7)
	assert.ErrorIs(t, err, apperr.ErrCourseNotCompleted)
	assert.Empty(t, fs.certs)
}

func TestIssueRequiresLessonsToExist(t *testing.T) {
	fs, _, svc := newCertificateFixture()
	// A course with no lessons can never be completed.
	fs.progress[[2]int64{1, 7}] = [2]int{0, 0}

	_, err := svc.IssueIfEligible(context.Background(), 1, 7)
	assert.ErrorIs(t, err, apperr.ErrCourseNotCompleted)
}

func TestIssueRequiresPassingScore(t *testing.T) {
	fs, _, svc := newCertificateFixture()
	fs.progress[[2]int64{1, 7}] = [2]int{5, 5}
	fs.scores[[2]int64{1, 7}] = fakeScore{percent: 60, hasTests: true}

	_, err := svc.IssueIfEligible(context.Background(), 1, 7)
	assert.ErrorIs(t, err, apperr.ErrTestsNotPassed)
	assert.Empty(t, fs.certs)
}

func TestIssueWithoutGradedTests(t *testing.T) {
	fs, sink, svc := newCertificateFixture()
	fs.progress[[2]int64{1, 7}] = [2]int{5, 5}

	cert, err := svc.IssueIfEligible(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 40, cert.Hours)
	assert.True(t, cert.IsValid)
	assert.NotEmpty(t, cert.CertificateNumber)
	assert.Contains(t, sink.published, models.EventTypeCertificateIssued)
}

func TestIssueTwiceReturnsSameCertificate(t *testing.T) {
	fs, _, svc := newCertificateFixture()
	fs.progress[[2]int64{1, 7}] = [2]int{5, 5}
	fs.scores[[2]int64{1, 7}] = fakeScore{percent: 85, hasTests: true}

	first, err := svc.IssueIfEligible(context.Background(), 1, 7)
	require.NoError(t, err)

	second, err := svc.IssueIfEligible(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, first.CertificateNumber, second.CertificateNumber)
	assert.Len(t, fs.certs, 1)
}

func TestIssueLosingInsertRaceReturnsWinner(t *testing.T) {
	fs, _, svc := newCertificateFixture()
	fs.progress[[2]int64{1, 7}] = [2]int{5, 5}

	// A competing request lands its row between our existence check and
	// our insert; the unique index turns our insert into a fetch.
	fs.onCreateCertificate = func() {
		fs.onCreateCertificate = nil
		fs.certs[[2]int64{1, 7}] = &models.Certificate{
			ID: 99, UserID: 1, CourseID: 7,
			CertificateNumber: "CERT-winner",
			IsValid:           true,
			IssuedAt:          time.Now(),
		}
	}

	cert, err := svc.IssueIfEligible(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, "CERT-winner", cert.CertificateNumber)
	assert.Len(t, fs.certs, 1)
}
