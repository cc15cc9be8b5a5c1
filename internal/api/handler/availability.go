package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/timeslot"
)

// AvailabilityHandler はタイムスロット空き状況のハンドラー
type AvailabilityHandler struct {
	availability AvailabilityServiceInterface
	controllers  ControllerServiceInterface
}

func NewAvailabilityHandler(as AvailabilityServiceInterface, cs ControllerServiceInterface) *AvailabilityHandler {
	return &AvailabilityHandler{availability: as, controllers: cs}
}

// SlotResponse はタイムスロット1件のレスポンス
type SlotResponse struct {
	StartTime      time.Time      `json:"start_time"`
	EndTime        time.Time      `json:"end_time"`
	IsAvailable    bool           `json:"is_available"`
	BookedStations int            `json:"booked_stations"`
	TotalStations  int            `json:"total_stations"`
	BookedByKind   map[string]int `json:"booked_by_kind,omitempty"`
	TotalByKind    map[string]int `json:"total_by_kind,omitempty"`
}

// AvailabilityResponse は空き状況のレスポンス
type AvailabilityResponse struct {
	Date            string         `json:"date"`
	DurationMinutes int            `json:"duration_minutes"`
	Slots           []SlotResponse `json:"slots"`
}

// Get は指定日・指定分数のタイムスロット一覧を返す
// @Summary タイムスロット空き状況を取得
// @Description 指定日の各タイムスロットの空き状況を返す
// @Tags availability
// @Produce json
// @Param date query string true "対象日 (YYYY-MM-DD)"
// @Param duration query int false "スロット分数" default(60)
// @Success 200 {object} AvailabilityResponse
// @Failure 400 {object} map[string]string
// @Router /availability [get]
func (h *AvailabilityHandler) Get(c echo.Context) error {
	date, err := parseDateParam(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "日付の形式が不正です (YYYY-MM-DD)")
	}

	duration := 60
	if raw := c.QueryParam("duration"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil || duration <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "スロット分数が不正です")
		}
	}

	slots, err := h.availability.Resolve(c.Request().Context(), date, duration)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := AvailabilityResponse{
		Date:            date.Format("2006-01-02"),
		DurationMinutes: duration,
		Slots:           make([]SlotResponse, len(slots)),
	}
	for i, s := range slots {
		resp.Slots[i] = SlotResponse{
			StartTime:      s.StartTime,
			EndTime:        s.EndTime,
			IsAvailable:    s.IsAvailable,
			BookedStations: s.BookedStations,
			TotalStations:  s.TotalStations,
			BookedByKind:   s.BookedByKind,
			TotalByKind:    s.TotalByKind,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// ControllersResponse はコントローラー残数のレスポンス
type ControllersResponse struct {
	Date                 string    `json:"date"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	AvailableControllers int       `json:"available_controllers"`
}

// Controllers は指定スロットで利用可能なコントローラー数を返す
// @Summary コントローラー残数を取得
// @Description 指定スロットで貸出可能なコントローラー数を返す
// @Tags availability
// @Produce json
// @Param date query string true "対象日 (YYYY-MM-DD)"
// @Param start query string true "開始時刻 (RFC3339)"
// @Param end query string true "終了時刻 (RFC3339)"
// @Success 200 {object} ControllersResponse
// @Failure 400 {object} map[string]string
// @Router /availability/controllers [get]
func (h *AvailabilityHandler) Controllers(c echo.Context) error {
	date, err := parseDateParam(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "日付の形式が不正です (YYYY-MM-DD)")
	}
	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "開始時刻の形式が不正です (RFC3339)")
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "終了時刻の形式が不正です (RFC3339)")
	}
	if !end.After(start) {
		return echo.NewHTTPError(http.StatusBadRequest, "終了時刻は開始時刻より後である必要があります")
	}

	slot := timeslot.TimeSlot{StartTime: start, EndTime: end}
	available := h.controllers.AvailableControllers(c.Request().Context(), date, slot)

	return c.JSON(http.StatusOK, ControllersResponse{
		Date:                 date.Format("2006-01-02"),
		StartTime:            start,
		EndTime:              end,
		AvailableControllers: available,
	})
}

func parseDateParam(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}
