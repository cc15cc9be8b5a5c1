package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/booking"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/station"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/timeslot"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/pkg/logger"
)

// ControllerService は共有コントローラープールの割り当てを管理する
// 読み取り専用であり、予約や選択の変更後は呼び出し側が再計算する
type ControllerService struct {
	stations         *StationService
	bookingRepo      booking.Repository
	totalControllers int
}

func NewControllerService(ss *StationService, br booking.Repository, totalControllers int) *ControllerService {
	return &ControllerService{stations: ss, bookingRepo: br, totalControllers: totalControllers}
}

// AvailableControllers は指定スロットで利用可能なコントローラー数を返す
// スロット開始時刻が完全一致し、終了時刻がスロット終了以降の confirmed な
// PS5予約をプール消費として数える
// 日付・時間帯が未確定の場合や取得に失敗した場合はプール全量を返す（フェイルオープン）
func (s *ControllerService) AvailableControllers(ctx context.Context, date time.Time, slot timeslot.TimeSlot) int {
	if date.IsZero() || slot.StartTime.IsZero() {
		return s.totalControllers
	}

	bookings, err := s.bookingRepo.GetConfirmedByDate(ctx, date)
	if err != nil {
		logger.Warn("コントローラー使用数の取得に失敗（フェイルオープン）", zap.Error(err))
		return s.totalControllers
	}

	stations, err := s.stations.List(ctx)
	if err != nil {
		logger.Warn("ステーション一覧の取得に失敗（フェイルオープン）", zap.Error(err))
		return s.totalControllers
	}
	kindByStation := make(map[string]station.Kind, len(stations))
	for _, st := range stations {
		kindByStation[st.ID] = st.Kind
	}

	booked := 0
	for _, b := range bookings {
		if kindByStation[b.StationID] != station.KindPS5 {
			continue
		}
		if b.StartTime.Equal(slot.StartTime) && !b.EndTime.Before(slot.EndTime) {
			booked++
		}
	}

	available := s.totalControllers - booked
	if available < 0 {
		return 0
	}
	return available
}

// CanSelect はステーションを追加選択できるかを返す
// PS5は既に選択済みのPS5台数が利用可能コントローラー数に達していれば不可
// PS5以外の種別はこのアロケーターの制約を受けない
func (s *ControllerService) CanSelect(kind station.Kind, selectedPS5Count, availableControllers int) bool {
	if kind != station.KindPS5 {
		return true
	}
	return selectedPS5Count < availableControllers
}
