package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/booking"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/customer"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/station"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/timeslot"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/transaction"
	redisinfra "github.com/Cuephoria/cuephoria-pos-sub001/internal/infrastructure/redis"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/pkg/logger"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/pkg/metrics"
)

// BookingService は予約トランザクションとステータスライフサイクルを担う
type BookingService struct {
	txManager     transaction.Manager
	bookingRepo   booking.Repository
	customerRepo  customer.Repository
	stationRepo   station.Repository
	controllerSvc *ControllerService
	lockManager   redisinfra.LockManagerInterface
	cache         redisinfra.LoungeCacheInterface
	todayCacheTTL time.Duration
}

func NewBookingService(
	tm transaction.Manager,
	br booking.Repository,
	cr customer.Repository,
	sr station.Repository,
	cs *ControllerService,
	lm redisinfra.LockManagerInterface,
	cache redisinfra.LoungeCacheInterface,
	todayCacheTTL time.Duration,
) *BookingService {
	return &BookingService{
		txManager:     tm,
		bookingRepo:   br,
		customerRepo:  cr,
		stationRepo:   sr,
		controllerSvc: cs,
		lockManager:   lm,
		cache:         cache,
		todayCacheTTL: todayCacheTTL,
	}
}

// SubmitBookingInput は予約申込の入力値
// バックエンド呼び出し前に Validate で一括検証する
type SubmitBookingInput struct {
	StationIDs         []string
	Date               time.Time
	StartTime          time.Time
	EndTime            time.Time
	DurationMinutes    int
	CustomerName       string
	CustomerPhone      string
	CustomerEmail      *string
	ExistingCustomerID string
	CouponCode         *string
	DiscountPercent    float64
}

// Validate は申込内容を検証する（I/Oなし）
func (in *SubmitBookingInput) Validate() error {
	if len(in.StationIDs) == 0 {
		return booking.ErrStationsRequired
	}
	seen := make(map[string]struct{}, len(in.StationIDs))
	for _, id := range in.StationIDs {
		if _, dup := seen[id]; dup {
			return booking.ErrDuplicateStations
		}
		seen[id] = struct{}{}
	}
	if in.Date.IsZero() {
		return booking.ErrDateRequired
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return booking.ErrTimeSlotRequired
	}
	if !in.EndTime.After(in.StartTime) {
		return booking.ErrInvalidTimeRange
	}
	if in.CustomerName == "" && in.ExistingCustomerID == "" {
		return booking.ErrCustomerNameRequired
	}
	if in.CustomerPhone == "" && in.ExistingCustomerID == "" {
		return booking.ErrCustomerPhoneRequired
	}
	if in.DiscountPercent < 0 || in.DiscountPercent > 100 {
		return booking.ErrInvalidDiscountPercent
	}
	return nil
}

// SubmitBookingResult は予約申込の結果
type SubmitBookingResult struct {
	BookingIDs []string
	GroupID    string
	AccessCode string
}

// Submit は複数ステーションの予約を1グループとしてアトミックに作成する
// 手順: 入力検証 → 分散ロック取得 → 顧客解決 → 価格計算 →
// トランザクション内で一括INSERT → アクセスコード発行
func (s *BookingService) Submit(ctx context.Context, input SubmitBookingInput) (*SubmitBookingResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	// 分散ロックで「空き確認→確定」を直列化する
	// （ステーションIDをソートしてキーを安定化）
	if s.lockManager != nil {
		lockKey := buildSlotLockKey(input.StationIDs, input.StartTime)
		start := time.Now()
		lock, err := s.lockManager.AcquireLockWithRetry(ctx, lockKey, 10*time.Second, 3, 100*time.Millisecond)
		observeLockDuration("acquire", err, time.Since(start))
		if err != nil {
			if errors.Is(err, redisinfra.ErrLockNotAcquired) {
				return nil, booking.ErrSlotNoLongerAvailable
			}
			return nil, fmt.Errorf("ロック取得に失敗: %w", err)
		}
		defer func() {
			releaseStart := time.Now()
			releaseErr := lock.Release(ctx)
			observeLockDuration("release", releaseErr, time.Since(releaseStart))
		}()
	}

	// 顧客解決（既存ID → 電話番号検索 → 新規作成）
	cust, err := s.resolveCustomer(ctx, input)
	if err != nil {
		return nil, err
	}

	// ステーション取得と種別の確認
	stations, err := s.stationRepo.GetByIDs(ctx, input.StationIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", booking.ErrBookingInsertFailed, err)
	}
	if len(stations) != len(input.StationIDs) {
		return nil, station.ErrStationNotFound
	}

	// PS5はコントローラープールの残数を最終確認する
	ps5Count := 0
	for _, st := range stations {
		if st.Kind == station.KindPS5 {
			ps5Count++
		}
	}
	if ps5Count > 0 && s.controllerSvc != nil {
		slot := timeslot.TimeSlot{StartTime: input.StartTime, EndTime: input.EndTime}
		if ps5Count > s.controllerSvc.AvailableControllers(ctx, input.Date, slot) {
			return nil, booking.ErrControllersUnavailable
		}
	}

	// グループ作成
	groupID := uuid.New().String()
	bookings := make([]*booking.Booking, 0, len(stations))
	for _, st := range stations {
		b := booking.NewBooking(
			groupID, st.ID, cust.ID,
			input.Date, input.StartTime, input.EndTime,
			input.DurationMinutes, st.HourlyRate, input.DiscountPercent, input.CouponCode,
		)
		if err := b.Validate(); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}

	// トランザクション内で一括INSERT（衝突は排他制約が最終判定する）
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if err := s.bookingRepo.CreateGroup(ctx, tx, bookings); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	bookingIDs := make([]string, len(bookings))
	for i, b := range bookings {
		bookingIDs[i] = b.ID
	}

	// アクセスコードの発行に失敗しても予約自体は成功扱い
	// （先頭予約IDからの導出コードにフォールバック）
	accessCode := newAccessCode()
	if err := s.bookingRepo.SaveAccessCodes(ctx, bookingIDs, accessCode); err != nil {
		logger.Warn("アクセスコード発行に失敗、導出コードにフォールバック", zap.Error(err))
		accessCode = derivedAccessCode(bookingIDs[0])
	}

	s.invalidateCaches(ctx, input.Date)

	logger.Info("予約グループを作成",
		zap.String("group_id", groupID),
		zap.Int("stations", len(bookings)),
		zap.String("customer_id", cust.ID),
	)

	return &SubmitBookingResult{
		BookingIDs: bookingIDs,
		GroupID:    groupID,
		AccessCode: accessCode,
	}, nil
}

// resolveCustomer は既存顧客の検索、なければ新規作成を行う
func (s *BookingService) resolveCustomer(ctx context.Context, input SubmitBookingInput) (*customer.Customer, error) {
	if input.ExistingCustomerID != "" {
		cust, err := s.customerRepo.GetByID(ctx, input.ExistingCustomerID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", booking.ErrCustomerLookupFailed, err)
		}
		return cust, nil
	}

	cust, err := s.customerRepo.GetByPhone(ctx, input.CustomerPhone)
	if err == nil {
		return cust, nil
	}
	if !errors.Is(err, customer.ErrCustomerNotFound) {
		return nil, fmt.Errorf("%w: %v", booking.ErrCustomerLookupFailed, err)
	}

	newCust := customer.NewCustomer(input.CustomerName, input.CustomerPhone, input.CustomerEmail)
	if err := newCust.Validate(); err != nil {
		return nil, err
	}
	if err := s.customerRepo.Create(ctx, newCust); err != nil {
		return nil, fmt.Errorf("%w: %v", booking.ErrCustomerCreateFailed, err)
	}
	return newCust, nil
}

// GetBooking はIDから予約を取得する
func (s *BookingService) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

// GetGroup はグループIDから予約一覧を取得する
func (s *BookingService) GetGroup(ctx context.Context, groupID string) ([]*booking.Booking, error) {
	return s.bookingRepo.GetByGroupID(ctx, groupID)
}

// GetByAccessCode はアクセスコードから予約を取得する
func (s *BookingService) GetByAccessCode(ctx context.Context, code string) (*booking.Booking, error) {
	if code == "" {
		return nil, booking.ErrBookingNotFound
	}
	return s.bookingRepo.GetByAccessCode(ctx, strings.ToUpper(code))
}

// GetBookingsByPhone は電話番号から顧客を解決し、予約一覧を日時降順で返す
func (s *BookingService) GetBookingsByPhone(ctx context.Context, phone string) ([]*booking.Booking, error) {
	cust, err := s.customerRepo.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	return s.bookingRepo.GetByCustomerID(ctx, cust.ID)
}

// CancelBooking は予約をキャンセルする
// 終了済み・終端状態の予約は ErrInvalidStateTransition
func (s *BookingService) CancelBooking(ctx context.Context, id, by string) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := b.Cancel(by, time.Now()); err != nil {
		return nil, err
	}
	if err := s.updateStatusTx(ctx, b); err != nil {
		return nil, err
	}
	s.invalidateCaches(ctx, b.Date)
	return b, nil
}

// MarkNoShow は予約を no-show に遷移させる（スタッフ操作）
func (s *BookingService) MarkNoShow(ctx context.Context, id string) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := b.MarkNoShow(time.Now()); err != nil {
		return nil, err
	}
	if err := s.updateStatusTx(ctx, b); err != nil {
		return nil, err
	}
	s.invalidateCaches(ctx, b.Date)
	return b, nil
}

// CompleteFinishedBookings は終了時刻を過ぎた confirmed 予約を completed に遷移させる
// 冪等であり、複数の呼び出し元から重複実行しても安全
func (s *BookingService) CompleteFinishedBookings(ctx context.Context) (int, error) {
	now := time.Now()
	finished, err := s.bookingRepo.GetFinishedConfirmed(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("終了済み予約の取得に失敗: %w", err)
	}
	if len(finished) == 0 {
		return 0, nil
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	completed := 0
	for _, b := range finished {
		if err := b.Complete(now); err != nil {
			continue
		}
		if err := s.bookingRepo.UpdateStatus(ctx, tx, b); err != nil {
			return 0, err
		}
		completed++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("コミットに失敗: %w", err)
	}
	return completed, nil
}

// GetTodayConfirmed は当日の confirmed 予約を取得する（1分キャッシュ）
func (s *BookingService) GetTodayConfirmed(ctx context.Context) ([]*booking.Booking, error) {
	today := time.Now()
	dateKey := today.Format("2006-01-02")

	if s.cache != nil {
		bookings, err := s.cache.GetTodayBookings(ctx, dateKey)
		if err == nil {
			countCacheLookup("today", "hit")
			return bookings, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			countCacheLookup("today", "error")
			logger.Warn("当日予約キャッシュ取得エラー", zap.Error(err))
		} else {
			countCacheLookup("today", "miss")
		}
	}

	bookings, err := s.bookingRepo.GetConfirmedByDate(ctx, today)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetTodayBookings(ctx, dateKey, bookings, s.todayCacheTTL); cacheErr != nil {
			logger.Warn("当日予約キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}
	return bookings, nil
}

func (s *BookingService) updateStatusTx(ctx context.Context, b *booking.Booking) error {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()
	if err := s.bookingRepo.UpdateStatus(ctx, tx, b); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	return nil
}

// invalidateCaches は予約の変更に関係するキャッシュを無効化する
func (s *BookingService) invalidateCaches(ctx context.Context, date time.Time) {
	if s.cache == nil {
		return
	}
	dateKey := date.Format("2006-01-02")
	// 同一日付の別分数キーも残さず落とす
	if err := s.cache.InvalidateSlotsForDate(ctx, dateKey); err != nil {
		logger.Warn("スロットキャッシュ無効化エラー", zap.Error(err))
	}
	if err := s.cache.InvalidateTodayBookings(ctx, dateKey); err != nil {
		logger.Warn("当日予約キャッシュ無効化エラー", zap.Error(err))
	}
}

// buildSlotLockKey はステーションIDと開始時刻からロックキーを生成する
// （IDをソートしてデッドロックを防止）
func buildSlotLockKey(stationIDs []string, start time.Time) string {
	sorted := make([]string, len(stationIDs))
	copy(sorted, stationIDs)
	sort.Strings(sorted)
	return "slot:" + start.UTC().Format(time.RFC3339) + ":" + strings.Join(sorted, ",")
}

// newAccessCode は共有しやすい8文字のアクセスコードを生成する
func newAccessCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return raw[:8]
}

// derivedAccessCode は予約IDから導出したフォールバックコードを返す
func derivedAccessCode(bookingID string) string {
	raw := strings.ToUpper(strings.ReplaceAll(bookingID, "-", ""))
	if len(raw) > 8 {
		return raw[:8]
	}
	return raw
}

func observeLockDuration(operation string, err error, elapsed time.Duration) {
	m := metrics.Get()
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.DistributedLockDuration.WithLabelValues(operation, status).Observe(elapsed.Seconds())
}
