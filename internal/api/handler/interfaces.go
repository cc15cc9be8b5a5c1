package handler

import (
	"context"
	"time"

	"github.com/Cuephoria/cuephoria-pos-sub001/internal/application"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/booking"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/station"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/timeslot"
)

// AvailabilityServiceInterface は空き状況サービスのインターフェース
type AvailabilityServiceInterface interface {
	Resolve(ctx context.Context, date time.Time, durationMinutes int) ([]timeslot.SlotAvailability, error)
}

// ControllerServiceInterface はコントローラー割り当てサービスのインターフェース
type ControllerServiceInterface interface {
	AvailableControllers(ctx context.Context, date time.Time, slot timeslot.TimeSlot) int
}

// StationServiceInterface はステーションサービスのインターフェース
type StationServiceInterface interface {
	List(ctx context.Context) ([]*station.Station, error)
	ListBookable(ctx context.Context) ([]*station.Station, error)
}

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	Submit(ctx context.Context, input application.SubmitBookingInput) (*application.SubmitBookingResult, error)
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
	GetGroup(ctx context.Context, groupID string) ([]*booking.Booking, error)
	GetByAccessCode(ctx context.Context, code string) (*booking.Booking, error)
	GetBookingsByPhone(ctx context.Context, phone string) ([]*booking.Booking, error)
	CancelBooking(ctx context.Context, id, by string) (*booking.Booking, error)
	MarkNoShow(ctx context.Context, id string) (*booking.Booking, error)
}
