package application

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Cuephoria/cuephoria-pos-sub001/internal/config"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/booking"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/station"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/timeslot"
	redisinfra "github.com/Cuephoria/cuephoria-pos-sub001/internal/infrastructure/redis"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/pkg/logger"
)

// AvailabilityService はタイムスロットごとの空き状況を解決する
// バックエンド障害時はフェイルオープン（全スロット空きとして返す）し、
// 利用者の予約フローを止めない
type AvailabilityService struct {
	stations    *StationService
	bookingRepo booking.Repository
	cache       redisinfra.LoungeCacheInterface
	lounge      config.LoungeConfig
}

func NewAvailabilityService(ss *StationService, br booking.Repository, cache redisinfra.LoungeCacheInterface, lounge config.LoungeConfig) *AvailabilityService {
	return &AvailabilityService{stations: ss, bookingRepo: br, cache: cache, lounge: lounge}
}

// Resolve は指定日・指定分数のスロット一覧を空き状況付きで返す
// キャッシュキーは (日付, 分数)
func (s *AvailabilityService) Resolve(ctx context.Context, date time.Time, durationMinutes int) ([]timeslot.SlotAvailability, error) {
	dateKey := date.Format("2006-01-02")

	if s.cache != nil {
		slots, err := s.cache.GetSlots(ctx, dateKey, durationMinutes)
		if err == nil {
			countCacheLookup("slots", "hit")
			return slots, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			countCacheLookup("slots", "error")
			logger.Warn("スロットキャッシュ取得エラー", zap.Error(err))
		} else {
			countCacheLookup("slots", "miss")
		}
	}

	base, err := s.generateBase(date, durationMinutes)
	if err != nil {
		return nil, err
	}

	// サブユニット予約を親コンソールへ寄せるため全件（サブユニット込み）を渡す
	stations, err := s.stations.List(ctx)
	if err != nil {
		logger.Warn("空き状況の取得に失敗（フェイルオープン）", zap.Error(err))
		return failOpen(base), nil
	}

	bookings, err := s.bookingRepo.GetConfirmedByDate(ctx, date)
	if err != nil {
		logger.Warn("空き状況の取得に失敗（フェイルオープン）", zap.Error(err))
		return failOpen(base), nil
	}

	slots := annotate(base, stations, bookings)

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})

	if s.cache != nil {
		if cacheErr := s.cache.SetSlots(ctx, dateKey, durationMinutes, slots, s.lounge.SlotCacheTTL); cacheErr != nil {
			logger.Warn("スロットキャッシュ保存エラー", zap.Error(cacheErr))
		}
	}
	return slots, nil
}

// generateBase は営業時間からベーススロットを生成する
// 対象日が当日の場合は開始済みスロットを利用不可としてマークする
func (s *AvailabilityService) generateBase(date time.Time, durationMinutes int) ([]timeslot.TimeSlot, error) {
	open, close, err := timeslot.WindowFor(date, s.lounge.OpenTime, s.lounge.CloseTime)
	if err != nil {
		return nil, err
	}
	var nowPtr *time.Time
	now := time.Now().In(date.Location())
	if sameDay(date, now) {
		nowPtr = &now
	}
	return timeslot.Generate(open, close, durationMinutes, nowPtr), nil
}

// annotate はベーススロットに予約の重なりを突き合わせて空き状況を付与する
// 収容数は本体コンソールのみで数え、サブユニットへの予約は親コンソールの
// 使用として寄せる。同一コンソールの連続予約は二重に数えない
func annotate(base []timeslot.TimeSlot, stations []*station.Station, bookings []*booking.Booking) []timeslot.SlotAvailability {
	consoleOf := make(map[string]string, len(stations))
	kindByConsole := make(map[string]string)
	totalByKind := make(map[string]int, 2)
	totalConsoles := 0
	for _, st := range stations {
		if st.IsConsole() {
			consoleOf[st.ID] = st.ID
			kindByConsole[st.ID] = string(st.Kind)
			totalByKind[string(st.Kind)]++
			totalConsoles++
		} else if st.ParentStationID != nil {
			consoleOf[st.ID] = *st.ParentStationID
		}
	}

	slots := make([]timeslot.SlotAvailability, len(base))
	for i, slot := range base {
		overlapped := make(map[string]struct{})
		bookedByKind := make(map[string]int, 2)
		for _, b := range bookings {
			if !slot.Overlaps(b.StartTime, b.EndTime) {
				continue
			}
			consoleID, ok := consoleOf[b.StationID]
			if !ok {
				continue
			}
			kind, ok := kindByConsole[consoleID]
			if !ok {
				continue
			}
			if _, seen := overlapped[consoleID]; seen {
				continue
			}
			overlapped[consoleID] = struct{}{}
			bookedByKind[kind]++
		}

		full := totalConsoles > 0 && len(overlapped) >= totalConsoles
		slots[i] = timeslot.SlotAvailability{
			TimeSlot: timeslot.TimeSlot{
				StartTime:   slot.StartTime,
				EndTime:     slot.EndTime,
				IsAvailable: slot.IsAvailable && !full,
			},
			BookedStations: len(overlapped),
			TotalStations:  totalConsoles,
			BookedByKind:   bookedByKind,
			TotalByKind:    totalByKind,
		}
	}
	return slots
}

// failOpen はベーススロットをそのまま（予約突き合わせなしで）返す
func failOpen(base []timeslot.TimeSlot) []timeslot.SlotAvailability {
	slots := make([]timeslot.SlotAvailability, len(base))
	for i, slot := range base {
		slots[i] = timeslot.SlotAvailability{TimeSlot: slot}
	}
	return slots
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
