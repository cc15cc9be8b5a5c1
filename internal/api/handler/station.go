package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/station"
)

// StationHandler はステーションのハンドラー
type StationHandler struct {
	service StationServiceInterface
}

func NewStationHandler(s StationServiceInterface) *StationHandler {
	return &StationHandler{service: s}
}

// StationResponse はステーション1件のレスポンス
type StationResponse struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Kind             string  `json:"kind"`
	HourlyRate       float64 `json:"hourly_rate"`
	IsControllerUnit bool    `json:"is_controller_unit"`
	ParentStationID  *string `json:"parent_station_id,omitempty"`
	IsOccupied       bool    `json:"is_occupied"`
}

// toStationResponse は本体ステーションの使用中判定にサブユニットも含める
func toStationResponse(s *station.Station, all []*station.Station) StationResponse {
	return StationResponse{
		ID: s.ID, Name: s.Name, Kind: string(s.Kind),
		HourlyRate: s.HourlyRate, IsControllerUnit: s.IsControllerUnit,
		ParentStationID: s.ParentStationID, IsOccupied: s.OccupiedWithUnits(all),
	}
}

// List はステーション一覧を返す
// @Summary ステーション一覧を取得
// @Description 全ステーションを返す。bookable=true で本体ステーションのみに絞り込む
// @Tags stations
// @Produce json
// @Param bookable query bool false "本体ステーションのみ"
// @Success 200 {array} StationResponse
// @Router /stations [get]
func (h *StationHandler) List(c echo.Context) error {
	// 使用中判定はサブユニットを含めて行うため全件を取得しておく
	all, err := h.service.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	stations := all
	if c.QueryParam("bookable") == "true" {
		stations, err = h.service.ListBookable(c.Request().Context())
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	resp := make([]StationResponse, len(stations))
	for i, s := range stations {
		resp[i] = toStationResponse(s, all)
	}
	return c.JSON(http.StatusOK, resp)
}
