package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/attendance-service/internal/domain"
)

// ErrOpenRecordExists means the user already has an attendance record with no
// checkout. Raised by the store's unique guard, not by a prior read, so two
// concurrent check-ins cannot both succeed.
var ErrOpenRecordExists = errors.New("open attendance record exists")

// AttendanceRepository encapsulates attendance persistence.
type AttendanceRepository interface {
	// CreateOpen inserts a new open record. The partial unique index on
	// (user_id) WHERE check_out_time IS NULL makes the insert itself the
	// at-most-one-open-record check; violations map to ErrOpenRecordExists.
	CreateOpen(ctx context.Context, rec *domain.AttendanceRecord) error
	GetByID(ctx context.Context, id string) (*domain.AttendanceRecord, error)
	GetOpenByUser(ctx context.Context, userID string) (*domain.AttendanceRecord, error)
	GetLatestByUser(ctx context.Context, userID string) (*domain.AttendanceRecord, error)
	// CloseWithHours closes the open record and adds totalHours to the
	// user's cumulative aggregate in one transaction. Returns false when no
	// open record matched (already closed or unknown), in which case
	// nothing was applied and a retried checkout cannot double-count.
	CloseWithHours(ctx context.Context, userID, recordID string, checkOut time.Time, totalHours float64, notes *string) (bool, error)
}

type attendanceRepository struct {
	pool *pgxpool.Pool
}

// NewAttendanceRepository returns a Postgres-backed implementation.
func NewAttendanceRepository(pool *pgxpool.Pool) AttendanceRepository {
	return &attendanceRepository{pool: pool}
}

func (r *attendanceRepository) CreateOpen(ctx context.Context, rec *domain.AttendanceRecord) error {
	const query = `
        INSERT INTO attendance_records
            (user_id, check_in_time, location_type, location_id, qr_code, selfie_ref, verified)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		rec.UserID,
		rec.CheckInTime,
		rec.LocationType,
		rec.LocationID,
		rec.Evidence.QRCode,
		rec.Evidence.SelfieRef,
		rec.Verified,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrOpenRecordExists
		}
		return err
	}
	return nil
}

const attendanceColumns = `
        id, user_id, check_in_time, check_out_time, location_type, location_id,
        qr_code, selfie_ref, verified, notes, total_hours, created_at`

func (r *attendanceRepository) GetByID(ctx context.Context, id string) (*domain.AttendanceRecord, error) {
	query := `SELECT` + attendanceColumns + ` FROM attendance_records WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *attendanceRepository) GetOpenByUser(ctx context.Context, userID string) (*domain.AttendanceRecord, error) {
	query := `SELECT` + attendanceColumns + `
        FROM attendance_records WHERE user_id=$1 AND check_out_time IS NULL`
	return r.fetchSingle(ctx, query, userID)
}

func (r *attendanceRepository) GetLatestByUser(ctx context.Context, userID string) (*domain.AttendanceRecord, error) {
	query := `SELECT` + attendanceColumns + `
        FROM attendance_records WHERE user_id=$1
        ORDER BY check_in_time DESC LIMIT 1`
	return r.fetchSingle(ctx, query, userID)
}

func (r *attendanceRepository) CloseWithHours(ctx context.Context, userID, recordID string, checkOut time.Time, totalHours float64, notes *string) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const closeQuery = `
        UPDATE attendance_records
        SET check_out_time=$1, total_hours=$2, notes=COALESCE($3, notes)
        WHERE id=$4 AND user_id=$5 AND check_out_time IS NULL
        RETURNING id`

	var closedID string
	err = tx.QueryRow(ctx, closeQuery, checkOut, totalHours, notes, recordID, userID).Scan(&closedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	const hoursQuery = `
        UPDATE users SET completed_hours = completed_hours + $1, updated_at=NOW()
        WHERE id=$2`

	if _, err := tx.Exec(ctx, hoursQuery, totalHours, userID); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *attendanceRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.AttendanceRecord, error) {
	var rec domain.AttendanceRecord
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.CheckInTime,
		&rec.CheckOutTime,
		&rec.LocationType,
		&rec.LocationID,
		&rec.Evidence.QRCode,
		&rec.Evidence.SelfieRef,
		&rec.Verified,
		&rec.Notes,
		&rec.TotalHours,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}
