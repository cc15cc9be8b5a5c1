package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Cuephoria/cuephoria-pos-sub001/internal/application"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/booking"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/customer"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/station"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/pkg/metrics"
)

// BookingHandler は予約のハンドラー
type BookingHandler struct {
	service BookingServiceInterface
}

func NewBookingHandler(s BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

type CreateBookingRequest struct {
	StationIDs      []string `json:"station_ids" validate:"required,min=1" example:"st-ps5-01,st-ps5-02"`
	Date            string   `json:"date" validate:"required" example:"2025-07-01"`
	StartTime       string   `json:"start_time" validate:"required" example:"2025-07-01T14:00:00+05:30"`
	EndTime         string   `json:"end_time" validate:"required" example:"2025-07-01T15:00:00+05:30"`
	DurationMinutes int      `json:"duration_minutes" validate:"required,gt=0" example:"60"`
	CustomerName    string   `json:"customer_name" example:"山田太郎"`
	CustomerPhone   string   `json:"customer_phone" example:"09012345678"`
	CustomerEmail   *string  `json:"customer_email,omitempty"`
	CustomerID      string   `json:"customer_id,omitempty"`
	CouponCode      *string  `json:"coupon_code,omitempty"`
	DiscountPercent float64  `json:"discount_percent" validate:"gte=0,lte=100"`
}

type CreateBookingResponse struct {
	BookingIDs []string `json:"booking_ids"`
	GroupID    string   `json:"group_id"`
	AccessCode string   `json:"access_code"`
}

type BookingResponse struct {
	ID              string    `json:"id"`
	GroupID         string    `json:"group_id"`
	StationID       string    `json:"station_id"`
	CustomerID      string    `json:"customer_id"`
	Date            string    `json:"date"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	CouponCode      *string   `json:"coupon_code,omitempty"`
	DiscountPercent float64   `json:"discount_percent"`
	OriginalPrice   float64   `json:"original_price"`
	FinalPrice      float64   `json:"final_price"`
	CreatedAt       time.Time `json:"created_at"`
}

// toBookingResponse は実効ステータス（終了済み confirmed は completed 扱い）で
// レスポンスを組み立てる
func toBookingResponse(b *booking.Booking, now time.Time) BookingResponse {
	return BookingResponse{
		ID: b.ID, GroupID: b.GroupID, StationID: b.StationID, CustomerID: b.CustomerID,
		Date:      b.Date.Format("2006-01-02"),
		StartTime: b.StartTime, EndTime: b.EndTime, DurationMinutes: b.DurationMinutes,
		Status:     string(b.EffectiveStatus(now)),
		CouponCode: b.CouponCode, DiscountPercent: b.DiscountPercent,
		OriginalPrice: b.OriginalPrice, FinalPrice: b.FinalPrice,
		CreatedAt: b.CreatedAt,
	}
}

// Create godoc
// @Summary 予約を作成
// @Description 複数ステーションを1グループとしてアトミックに予約する
// @Tags bookings
// @Accept json
// @Produce json
// @Param request body CreateBookingRequest true "予約情報"
// @Success 201 {object} CreateBookingResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string "スロットが既に予約済み"
// @Router /bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		countBookingSubmission("validation_error")
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		countBookingSubmission("validation_error")
		return err
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		countBookingSubmission("validation_error")
		return echo.NewHTTPError(http.StatusBadRequest, "日付の形式が不正です (YYYY-MM-DD)")
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		countBookingSubmission("validation_error")
		return echo.NewHTTPError(http.StatusBadRequest, "開始時刻の形式が不正です (RFC3339)")
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		countBookingSubmission("validation_error")
		return echo.NewHTTPError(http.StatusBadRequest, "終了時刻の形式が不正です (RFC3339)")
	}

	result, err := h.service.Submit(c.Request().Context(), application.SubmitBookingInput{
		StationIDs:         req.StationIDs,
		Date:               date,
		StartTime:          start,
		EndTime:            end,
		DurationMinutes:    req.DurationMinutes,
		CustomerName:       req.CustomerName,
		CustomerPhone:      req.CustomerPhone,
		CustomerEmail:      req.CustomerEmail,
		ExistingCustomerID: req.CustomerID,
		CouponCode:         req.CouponCode,
		DiscountPercent:    req.DiscountPercent,
	})
	if err != nil {
		return h.submitError(err)
	}

	countBookingSubmission("success")
	return c.JSON(http.StatusCreated, CreateBookingResponse{
		BookingIDs: result.BookingIDs,
		GroupID:    result.GroupID,
		AccessCode: result.AccessCode,
	})
}

// submitError はドメインエラーをHTTPステータスに対応付ける
func (h *BookingHandler) submitError(err error) error {
	switch {
	case errors.Is(err, booking.ErrSlotNoLongerAvailable),
		errors.Is(err, booking.ErrControllersUnavailable),
		errors.Is(err, customer.ErrPhoneAlreadyExists):
		countBookingSubmission("conflict")
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, station.ErrStationNotFound):
		countBookingSubmission("validation_error")
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrCustomerLookupFailed),
		errors.Is(err, booking.ErrCustomerCreateFailed),
		errors.Is(err, booking.ErrBookingInsertFailed):
		countBookingSubmission("error")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	default:
		countBookingSubmission("validation_error")
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

// GetByID godoc
// @Summary 予約を取得
// @Description 指定IDの予約を取得する
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} map[string]string
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetByID(c echo.Context) error {
	b, err := h.service.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toBookingResponse(b, time.Now()))
}

// GetGroup godoc
// @Summary 予約グループを取得
// @Description 同一申込で作成された予約一覧を取得する
// @Tags bookings
// @Produce json
// @Param group_id path string true "グループID"
// @Success 200 {array} BookingResponse
// @Router /bookings/group/{group_id} [get]
func (h *BookingHandler) GetGroup(c echo.Context) error {
	bookings, err := h.service.GetGroup(c.Request().Context(), c.Param("group_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toBookingResponses(bookings))
}

type CancelBookingRequest struct {
	CancelledBy string `json:"cancelled_by" example:"customer"`
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description confirmed かつ未終了の予約をキャンセルする
// @Tags bookings
// @Accept json
// @Produce json
// @Param id path string true "予約ID"
// @Param request body CancelBookingRequest false "操作者"
// @Success 200 {object} BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c echo.Context) error {
	var req CancelBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	by := req.CancelledBy
	if by != booking.UpdatedByStaff {
		by = booking.UpdatedByCustomer
	}

	b, err := h.service.CancelBooking(c.Request().Context(), c.Param("id"), by)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, toBookingResponse(b, time.Now()))
}

// NoShow godoc
// @Summary 予約を無断キャンセル扱いにする
// @Description スタッフ操作で予約を no-show に遷移させる
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /bookings/{id}/no-show [post]
func (h *BookingHandler) NoShow(c echo.Context) error {
	b, err := h.service.MarkNoShow(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, toBookingResponse(b, time.Now()))
}

// GetByAccessCode godoc
// @Summary アクセスコードで予約を取得
// @Description 申込時に発行されたアクセスコードから予約を取得する
// @Tags bookings
// @Produce json
// @Param code path string true "アクセスコード"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} map[string]string
// @Router /bookings/access/{code} [get]
func (h *BookingHandler) GetByAccessCode(c echo.Context) error {
	b, err := h.service.GetByAccessCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toBookingResponse(b, time.Now()))
}

// GetByPhone godoc
// @Summary 電話番号で予約一覧を取得
// @Description 電話番号から顧客を特定し、予約一覧を日時降順で返す
// @Tags bookings
// @Produce json
// @Param phone path string true "電話番号"
// @Success 200 {array} BookingResponse
// @Failure 404 {object} map[string]string
// @Router /bookings/phone/{phone} [get]
func (h *BookingHandler) GetByPhone(c echo.Context) error {
	bookings, err := h.service.GetBookingsByPhone(c.Request().Context(), c.Param("phone"))
	if err != nil {
		if errors.Is(err, customer.ErrCustomerNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toBookingResponses(bookings))
}

func toBookingResponses(bookings []*booking.Booking) []BookingResponse {
	now := time.Now()
	resp := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toBookingResponse(b, now)
	}
	return resp
}

func countBookingSubmission(status string) {
	if m := metrics.Get(); m != nil {
		m.BookingsTotal.WithLabelValues(status).Inc()
	}
}
