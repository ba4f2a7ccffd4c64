package placementinfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Abraxas-365/placement/pkg/kernel"
	"github.com/Abraxas-365/placement/pkg/placement"
	"github.com/jmoiron/sqlx"
)

// PostgresDirectory reads users, drives and applications from Postgres.
type PostgresDirectory struct {
	db *sqlx.DB
}

func NewPostgresDirectory(db *sqlx.DB) placement.Directory {
	return &PostgresDirectory{db: db}
}

func (r *PostgresDirectory) FindStudent(ctx context.Context, id kernel.UserID) (*placement.Student, error) {
	var s placement.Student
	query := `SELECT id, name, email, branch, cgpa FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &s, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, placement.ErrUserNotFound().WithDetail("user_id", id)
		}
		return nil, placement.ErrStoreFailure(err).WithDetail("user_id", id)
	}
	return &s, nil
}

func (r *PostgresDirectory) FindDrive(ctx context.Context, id kernel.DriveID) (*placement.Drive, error) {
	var d placement.Drive
	query := `SELECT id, company_name, role, location, ctc, drive_date, deadline FROM drives WHERE id = $1`
	if err := r.db.GetContext(ctx, &d, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, placement.ErrDriveNotFound().WithDetail("drive_id", id)
		}
		return nil, placement.ErrStoreFailure(err).WithDetail("drive_id", id)
	}
	return &d, nil
}

func (r *PostgresDirectory) ListApplicants(ctx context.Context, driveID kernel.DriveID) ([]placement.Applicant, error) {
	var rows []placement.Applicant
	query := `
		SELECT u.id, u.name, u.email, u.branch, u.cgpa, a.status, a.applied_at
		FROM applications a
		JOIN users u ON u.id = a.student_id
		WHERE a.drive_id = $1
		ORDER BY u.id`
	if err := r.db.SelectContext(ctx, &rows, query, driveID.String()); err != nil {
		return nil, placement.ErrStoreFailure(err).WithDetail("drive_id", driveID)
	}
	return rows, nil
}

func (r *PostgresDirectory) ListStudents(ctx context.Context) ([]placement.Student, error) {
	var rows []placement.Student
	query := `SELECT id, name, email, branch, cgpa FROM users WHERE role = 'STUDENT' ORDER BY id`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, placement.ErrStoreFailure(err)
	}
	return rows, nil
}
