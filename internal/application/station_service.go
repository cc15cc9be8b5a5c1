package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/station"
	redisinfra "github.com/Cuephoria/cuephoria-pos-sub001/internal/infrastructure/redis"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/pkg/logger"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/pkg/metrics"
)

// StationService はステーション一覧の取得をキャッシュ付きで提供する
type StationService struct {
	stationRepo station.Repository
	cache       redisinfra.LoungeCacheInterface
	cacheTTL    time.Duration
}

func NewStationService(sr station.Repository, cache redisinfra.LoungeCacheInterface, cacheTTL time.Duration) *StationService {
	return &StationService{stationRepo: sr, cache: cache, cacheTTL: cacheTTL}
}

// List は全ステーションを取得する（キャッシュ優先）
func (s *StationService) List(ctx context.Context) ([]*station.Station, error) {
	if s.cache != nil {
		stations, err := s.cache.GetStations(ctx)
		if err == nil {
			countCacheLookup("stations", "hit")
			return stations, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			countCacheLookup("stations", "error")
			logger.Warn("ステーションキャッシュ取得エラー", zap.Error(err))
		} else {
			countCacheLookup("stations", "miss")
		}
	}

	stations, err := s.stationRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetStations(ctx, stations, s.cacheTTL); cacheErr != nil {
			logger.Warn("ステーションキャッシュ保存エラー", zap.Error(cacheErr))
		}
	}
	return stations, nil
}

// ListBookable は予約対象となる本体ステーションのみを返す
// コントローラーサブユニットは収容数に数えない
func (s *StationService) ListBookable(ctx context.Context) ([]*station.Station, error) {
	stations, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	bookable := make([]*station.Station, 0, len(stations))
	for _, st := range stations {
		if st.IsConsole() {
			bookable = append(bookable, st)
		}
	}
	return bookable, nil
}

func countCacheLookup(cache, result string) {
	if m := metrics.Get(); m != nil {
		m.CacheLookupsTotal.WithLabelValues(cache, result).Inc()
	}
}
