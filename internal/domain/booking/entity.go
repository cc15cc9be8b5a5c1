package booking

import "time"

// Status は予約の状態を表す
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

// status_updated_by に記録される操作者
const (
	UpdatedBySystem   = "system"
	UpdatedByCustomer = "customer"
	UpdatedByStaff    = "staff"
)

// Booking は予約エンティティを表す
// 1回の申込で複数ステーションを予約した場合、全行が同一の GroupID を共有する
type Booking struct {
	ID              string
	GroupID         string
	StationID       string
	CustomerID      string
	Date            time.Time
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	Status          Status
	CouponCode      *string
	DiscountPercent float64
	OriginalPrice   float64
	FinalPrice      float64
	CreatedAt       time.Time
	StatusUpdatedAt time.Time
	StatusUpdatedBy string
}

// CalculatePrice は時間料金と分数から元価格を計算する
func CalculatePrice(hourlyRate float64, durationMinutes int) float64 {
	return hourlyRate * float64(durationMinutes) / 60
}

// ApplyDiscount は割引率を適用した最終価格を返す
func ApplyDiscount(originalPrice, discountPercent float64) float64 {
	final := originalPrice * (1 - discountPercent/100)
	if final < 0 {
		return 0
	}
	return final
}

// NewBooking は新しい予約を confirmed 状態で作成する
func NewBooking(groupID, stationID, customerID string, date, start, end time.Time, durationMinutes int, hourlyRate, discountPercent float64, couponCode *string) *Booking {
	now := time.Now()
	original := CalculatePrice(hourlyRate, durationMinutes)
	return &Booking{
		GroupID:         groupID,
		StationID:       stationID,
		CustomerID:      customerID,
		Date:            date,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: durationMinutes,
		Status:          StatusConfirmed,
		CouponCode:      couponCode,
		DiscountPercent: discountPercent,
		OriginalPrice:   original,
		FinalPrice:      ApplyDiscount(original, discountPercent),
		CreatedAt:       now,
		StatusUpdatedAt: now,
		StatusUpdatedBy: UpdatedBySystem,
	}
}

// IsTerminal は終端状態（これ以上遷移しない）かを返す
func (b *Booking) IsTerminal() bool {
	return b.Status == StatusCompleted || b.Status == StatusCancelled || b.Status == StatusNoShow
}

// IsFinished は予約終了時刻を過ぎているかを返す
func (b *Booking) IsFinished(now time.Time) bool {
	return now.After(b.EndTime)
}

// EffectiveStatus は現在時刻から導出した実効ステータスを返す（副作用なし）
// confirmed かつ終了時刻を過ぎていれば completed として扱う
func (b *Booking) EffectiveStatus(now time.Time) Status {
	if b.Status == StatusConfirmed && b.IsFinished(now) {
		return StatusCompleted
	}
	return b.Status
}

// Complete は終了済みの予約を completed に遷移させる（システムによる自動遷移）
// 既に completed の場合は何もしない（冪等）
func (b *Booking) Complete(now time.Time) error {
	if b.Status == StatusCompleted {
		return nil
	}
	if b.Status != StatusConfirmed {
		return ErrInvalidStateTransition
	}
	if !b.IsFinished(now) {
		return ErrBookingNotFinished
	}
	b.Status = StatusCompleted
	b.StatusUpdatedAt = now
	b.StatusUpdatedBy = UpdatedBySystem
	return nil
}

// Cancel は予約をキャンセルする
// 終端状態または終了時刻を過ぎた予約はキャンセルできない
func (b *Booking) Cancel(by string, now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidStateTransition
	}
	if b.IsFinished(now) {
		return ErrInvalidStateTransition
	}
	b.Status = StatusCancelled
	b.StatusUpdatedAt = now
	b.StatusUpdatedBy = by
	return nil
}

// MarkNoShow は予約を no-show に遷移させる（スタッフ操作）
func (b *Booking) MarkNoShow(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidStateTransition
	}
	b.Status = StatusNoShow
	b.StatusUpdatedAt = now
	b.StatusUpdatedBy = UpdatedByStaff
	return nil
}

// Overlaps は予約の時間帯 [StartTime, EndTime) が指定区間と重なるかを返す
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.StationID == "" {
		return ErrStationIDRequired
	}
	if b.CustomerID == "" {
		return ErrCustomerIDRequired
	}
	if b.Date.IsZero() || b.StartTime.IsZero() || b.EndTime.IsZero() {
		return ErrTimeSlotRequired
	}
	if !b.EndTime.After(b.StartTime) {
		return ErrInvalidTimeRange
	}
	if b.DiscountPercent < 0 || b.DiscountPercent > 100 {
		return ErrInvalidDiscountPercent
	}
	if b.FinalPrice < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Group は同一申込から作成された予約の集合を表す
type Group struct {
	GroupID    string
	BookingIDs []string
	AccessCode string
	Bookings   []*Booking
}
