package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/booking"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/transaction"
)

type bookingRow struct {
	ID              string    `db:"id"`
	GroupID         string    `db:"group_id"`
	StationID       string    `db:"station_id"`
	CustomerID      string    `db:"customer_id"`
	Date            time.Time `db:"booking_date"`
	StartTime       time.Time `db:"start_time"`
	EndTime         time.Time `db:"end_time"`
	DurationMinutes int       `db:"duration_minutes"`
	Status          string    `db:"status"`
	CouponCode      *string   `db:"coupon_code"`
	DiscountPercent float64   `db:"discount_percent"`
	OriginalPrice   float64   `db:"original_price"`
	FinalPrice      float64   `db:"final_price"`
	CreatedAt       time.Time `db:"created_at"`
	StatusUpdatedAt time.Time `db:"status_updated_at"`
	StatusUpdatedBy string    `db:"status_updated_by"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	return &booking.Booking{
		ID: r.ID, GroupID: r.GroupID, StationID: r.StationID, CustomerID: r.CustomerID,
		Date: r.Date, StartTime: r.StartTime, EndTime: r.EndTime,
		DurationMinutes: r.DurationMinutes, Status: booking.Status(r.Status),
		CouponCode: r.CouponCode, DiscountPercent: r.DiscountPercent,
		OriginalPrice: r.OriginalPrice, FinalPrice: r.FinalPrice,
		CreatedAt: r.CreatedAt, StatusUpdatedAt: r.StatusUpdatedAt, StatusUpdatedBy: r.StatusUpdatedBy,
	}
}

const bookingColumns = `id, group_id, station_id, customer_id, booking_date, start_time, end_time, duration_minutes, status, coupon_code, discount_percent, original_price, final_price, created_at, status_updated_at, status_updated_by`

type BookingRepository struct{ db *sqlx.DB }

func NewBookingRepository(db *sqlx.DB) *BookingRepository { return &BookingRepository{db: db} }

// CreateGroup はグループの予約行を1件ずつINSERTする（呼び出し側のトランザクション内）
// confirmed 行の (station_id, 時間帯) には排他制約があり、違反は
// ErrSlotNoLongerAvailable として返す
func (r *BookingRepository) CreateGroup(ctx context.Context, tx transaction.Tx, bookings []*booking.Booking) error {
	if len(bookings) == 0 {
		return booking.ErrNoBookingsCreated
	}
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが不正です")
	}

	query := `INSERT INTO bookings (group_id, station_id, customer_id, booking_date, start_time, end_time, duration_minutes, status, coupon_code, discount_percent, original_price, final_price, created_at, status_updated_at, status_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`
	for _, b := range bookings {
		err := sqlxTx.QueryRowContext(ctx, query,
			b.GroupID, b.StationID, b.CustomerID, b.Date, b.StartTime, b.EndTime,
			b.DurationMinutes, string(b.Status), b.CouponCode, b.DiscountPercent,
			b.OriginalPrice, b.FinalPrice, b.CreatedAt, b.StatusUpdatedAt, b.StatusUpdatedBy,
		).Scan(&b.ID)
		if err != nil {
			var pgErr *pq.Error
			if errors.As(err, &pgErr) && (pgErr.Code == "23P01" || pgErr.Code == "23505") {
				// 排他制約違反 = 同じステーション・時間帯が先に確定された
				return booking.ErrSlotNoLongerAvailable
			}
			return fmt.Errorf("%w: %v", booking.ErrBookingInsertFailed, err)
		}
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	var row bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *BookingRepository) GetByGroupID(ctx context.Context, groupID string) ([]*booking.Booking, error) {
	var rows []bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE group_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &rows, query, groupID); err != nil {
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return toEntities(rows), nil
}

func (r *BookingRepository) GetConfirmedByDate(ctx context.Context, date time.Time) ([]*booking.Booking, error) {
	var rows []bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_date = $1 AND status = 'confirmed' ORDER BY start_time`
	if err := r.db.SelectContext(ctx, &rows, query, date.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return toEntities(rows), nil
}

func (r *BookingRepository) GetByCustomerID(ctx context.Context, customerID string) ([]*booking.Booking, error) {
	var rows []bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE customer_id = $1 ORDER BY booking_date DESC, start_time DESC`
	if err := r.db.SelectContext(ctx, &rows, query, customerID); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	return toEntities(rows), nil
}

func (r *BookingRepository) GetFinishedConfirmed(ctx context.Context, now time.Time) ([]*booking.Booking, error) {
	var rows []bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = 'confirmed' AND end_time < $1`
	if err := r.db.SelectContext(ctx, &rows, query, now); err != nil {
		return nil, fmt.Errorf("終了済み予約取得に失敗: %w", err)
	}
	return toEntities(rows), nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが不正です")
	}
	query := `UPDATE bookings SET status = $1, status_updated_at = $2, status_updated_by = $3 WHERE id = $4`
	result, err := sqlxTx.ExecContext(ctx, query, string(b.Status), b.StatusUpdatedAt, b.StatusUpdatedBy, b.ID)
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) SaveAccessCodes(ctx context.Context, bookingIDs []string, code string) error {
	if len(bookingIDs) == 0 {
		return nil
	}
	query := `INSERT INTO booking_views (booking_id, access_code, created_at)
		SELECT unnest($1::uuid[]), $2, NOW()
		ON CONFLICT (booking_id) DO UPDATE SET access_code = EXCLUDED.access_code`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(bookingIDs), code); err != nil {
		return fmt.Errorf("%w: %v", booking.ErrAccessCodeUnavailable, err)
	}
	return nil
}

func (r *BookingRepository) GetByAccessCode(ctx context.Context, code string) (*booking.Booking, error) {
	var row bookingRow
	query := `SELECT b.id, b.group_id, b.station_id, b.customer_id, b.booking_date, b.start_time, b.end_time, b.duration_minutes, b.status, b.coupon_code, b.discount_percent, b.original_price, b.final_price, b.created_at, b.status_updated_at, b.status_updated_by
		FROM bookings b
		JOIN booking_views v ON v.booking_id = b.id
		WHERE v.access_code = $1
		ORDER BY b.created_at
		LIMIT 1`
	if err := r.db.GetContext(ctx, &row, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}

	// 最終閲覧時刻の更新は失敗しても予約取得自体は成功扱いとする
	_, _ = r.db.ExecContext(ctx, `UPDATE booking_views SET last_accessed_at = NOW() WHERE access_code = $1`, code)

	return row.toEntity(), nil
}

func toEntities(rows []bookingRow) []*booking.Booking {
	bookings := make([]*booking.Booking, len(rows))
	for i, row := range rows {
		bookings[i] = row.toEntity()
	}
	return bookings
}

var _ booking.Repository = (*BookingRepository)(nil)
