package placementinfra

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/placement"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestFindStudent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresDirectory(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, email, branch, cgpa FROM users WHERE id = $1`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "branch", "cgpa"}).
			AddRow("u1", "Asha Rao", "asha@college.edu", "CSE", 8.7))

	s, err := repo.FindStudent(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", s.Name)
	require.NotNil(t, s.CGPA)
	assert.InDelta(t, 8.7, *s.CGPA, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindStudent_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresDirectory(db)

	mock.ExpectQuery(`SELECT id, name, email`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "branch", "cgpa"}))

	_, err := repo.FindStudent(context.Background(), "ghost")
	assert.True(t, errx.IsCode(err, placement.CodeUserNotFound))
}

func TestFindDrive(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresDirectory(db)
	date := time.Date(2026, 11, 3, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM drives WHERE id = \$1`).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_name", "role", "location", "ctc", "drive_date", "deadline"}).
			AddRow("d1", "Acme", "SDE", "Pune", "12 LPA", date, nil))

	d, err := repo.FindDrive(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", d.CompanyName)
	require.NotNil(t, d.DriveDate)
	assert.True(t, d.DriveDate.Equal(date))
	assert.Nil(t, d.Deadline)
}

func TestListApplicants(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresDirectory(db)
	now := time.Now()

	mock.ExpectQuery(`FROM applications a\s+JOIN users u`).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "branch", "cgpa", "status", "applied_at"}).
			AddRow("u1", "Asha", "asha@college.edu", "CSE", nil, "SHORTLISTED", now).
			AddRow("u2", "Ravi", "ravi@college.edu", "ECE", 7.9, "APPLIED", now))

	rows, err := repo.ListApplicants(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, placement.StatusShortlisted, rows[0].Status)
	assert.Nil(t, rows[0].CGPA)
	assert.Equal(t, "ravi@college.edu", rows[1].Email)
}

func TestListApplicants_StoreFailure(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgresDirectory(db)

	mock.ExpectQuery(`FROM applications`).WillReturnError(assert.AnError)

	_, err := repo.ListApplicants(context.Background(), "d1")
	assert.True(t, errx.IsCode(err, placement.CodeStoreFailure))
}
