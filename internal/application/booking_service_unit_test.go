package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/booking"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/customer"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/station"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/transaction"
	redisinfra "github.com/Cuephoria/cuephoria-pos-sub001/internal/infrastructure/redis"
)

// === Mock implementations ===

// MockCustomerRepository は customer.Repository のモック
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) GetByPhone(ctx context.Context, phone string) (*customer.Customer, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

// MockTxManager は transaction.Manager のモック
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

// MockTx は transaction.Tx のモック
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockLockManager は redisinfra.LockManagerInterface のモック
type MockLockManager struct {
	mock.Mock
}

func (m *MockLockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (redisinfra.Lock, error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(redisinfra.Lock), args.Error(1)
}

func (m *MockLockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (redisinfra.Lock, error) {
	args := m.Called(ctx, key, ttl, maxRetries, retryDelay)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(redisinfra.Lock), args.Error(1)
}

// MockLock は redisinfra.Lock のモック
type MockLock struct {
	mock.Mock
}

func (m *MockLock) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockLock) Extend(ctx context.Context, ttl time.Duration) error {
	args := m.Called(ctx, ttl)
	return args.Error(0)
}

// === Test helper ===

type bookingTestDeps struct {
	txManager    *MockTxManager
	tx           *MockTx
	bookingRepo  *MockBookingRepository
	customerRepo *MockCustomerRepository
	stationRepo  *MockStationRepository
	lockManager  *MockLockManager
	lock         *MockLock
	service      *BookingService
}

func newBookingTestDeps() *bookingTestDeps {
	txm := new(MockTxManager)
	tx := new(MockTx)
	bookingRepo := new(MockBookingRepository)
	customerRepo := new(MockCustomerRepository)
	stationRepo := new(MockStationRepository)
	lockManager := new(MockLockManager)
	lock := new(MockLock)

	stationService := NewStationService(stationRepo, nil, 0)
	controllerService := NewControllerService(stationService, bookingRepo, 6)
	service := NewBookingService(txm, bookingRepo, customerRepo, stationRepo, controllerService, lockManager, nil, time.Minute)

	return &bookingTestDeps{
		txManager:    txm,
		tx:           tx,
		bookingRepo:  bookingRepo,
		customerRepo: customerRepo,
		stationRepo:  stationRepo,
		lockManager:  lockManager,
		lock:         lock,
		service:      service,
	}
}

func validInput(stationIDs ...string) SubmitBookingInput {
	date := futureDate()
	return SubmitBookingInput{
		StationIDs:      stationIDs,
		Date:            date,
		StartTime:       slotTime(date, 14, 0),
		EndTime:         slotTime(date, 15, 0),
		DurationMinutes: 60,
		CustomerName:    "山田太郎",
		CustomerPhone:   "09012345678",
	}
}

func stationsFor(ids []string, kind station.Kind) []*station.Station {
	stations := make([]*station.Station, len(ids))
	for i, id := range ids {
		stations[i] = &station.Station{ID: id, Name: id, Kind: kind, HourlyRate: 300}
	}
	return stations
}

// === Tests ===

func TestBookingService_Submit(t *testing.T) {
	t.Run("複数ステーションが同一グループとしてアトミックに予約される", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()
		ids := []string{"ps5-1", "ps5-2", "pool-1"}
		input := validInput(ids...)
		stations := append(stationsFor(ids[:2], station.KindPS5), stationsFor(ids[2:], station.KindPool)...)

		deps.lockManager.On("AcquireLockWithRetry", ctx, mock.AnythingOfType("string"), 10*time.Second, 3, 100*time.Millisecond).
			Return(deps.lock, nil)
		deps.lock.On("Release", ctx).Return(nil)

		existing := &customer.Customer{ID: "customer-1", Name: input.CustomerName, Phone: input.CustomerPhone}
		deps.customerRepo.On("GetByPhone", ctx, input.CustomerPhone).Return(existing, nil)

		deps.stationRepo.On("GetByIDs", ctx, ids).Return(stations, nil)

		// コントローラー残数確認（PS5が含まれるため）
		deps.bookingRepo.On("GetConfirmedByDate", mock.Anything, input.Date).Return([]*booking.Booking{}, nil)
		deps.stationRepo.On("GetAll", mock.Anything).Return(stations, nil)

		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		deps.tx.On("Commit").Return(nil)

		deps.bookingRepo.On("CreateGroup", ctx, deps.tx, mock.AnythingOfType("[]*booking.Booking")).
			Run(func(args mock.Arguments) {
				bookings := args.Get(2).([]*booking.Booking)
				for i, b := range bookings {
					b.ID = fmt.Sprintf("booking-%d", i+1)
				}
			}).Return(nil)

		deps.bookingRepo.On("SaveAccessCodes", ctx, mock.AnythingOfType("[]string"), mock.AnythingOfType("string")).Return(nil)

		result, err := deps.service.Submit(ctx, input)

		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Len(t, result.BookingIDs, 3)
		assert.NotEmpty(t, result.GroupID)
		assert.Len(t, result.AccessCode, 8)

		deps.txManager.AssertExpectations(t)
		deps.bookingRepo.AssertExpectations(t)
		deps.lockManager.AssertExpectations(t)
		deps.lock.AssertExpectations(t)
	})

	t.Run("ステーション未指定はバックエンドに触れずにエラー", func(t *testing.T) {
		deps := newBookingTestDeps()

		_, err := deps.service.Submit(context.Background(), SubmitBookingInput{})

		assert.ErrorIs(t, err, booking.ErrStationsRequired)
		deps.lockManager.AssertNotCalled(t, "AcquireLockWithRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		deps.txManager.AssertNotCalled(t, "Begin", mock.Anything)
	})

	t.Run("重複したステーションIDはバックエンドに触れずにエラー", func(t *testing.T) {
		deps := newBookingTestDeps()
		input := validInput("ps5-1", "ps5-1")

		_, err := deps.service.Submit(context.Background(), input)

		assert.ErrorIs(t, err, booking.ErrDuplicateStations)
		deps.lockManager.AssertNotCalled(t, "AcquireLockWithRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		deps.stationRepo.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
		deps.txManager.AssertNotCalled(t, "Begin", mock.Anything)
	})

	t.Run("終了時刻が開始時刻以前の場合はエラー", func(t *testing.T) {
		deps := newBookingTestDeps()
		input := validInput("ps5-1")
		input.EndTime = input.StartTime

		_, err := deps.service.Submit(context.Background(), input)

		assert.ErrorIs(t, err, booking.ErrInvalidTimeRange)
	})

	t.Run("ロックが取得できない場合はスロット喪失エラー", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()
		input := validInput("ps5-1")

		deps.lockManager.On("AcquireLockWithRetry", ctx, mock.AnythingOfType("string"), 10*time.Second, 3, 100*time.Millisecond).
			Return(nil, redisinfra.ErrLockNotAcquired)

		_, err := deps.service.Submit(ctx, input)

		assert.ErrorIs(t, err, booking.ErrSlotNoLongerAvailable)
		deps.txManager.AssertNotCalled(t, "Begin", mock.Anything)
	})

	t.Run("電話番号が未登録の場合は新規顧客を作成する", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()
		ids := []string{"pool-1"}
		input := validInput(ids...)
		stations := stationsFor(ids, station.KindPool)

		deps.lockManager.On("AcquireLockWithRetry", ctx, mock.AnythingOfType("string"), 10*time.Second, 3, 100*time.Millisecond).
			Return(deps.lock, nil)
		deps.lock.On("Release", ctx).Return(nil)

		deps.customerRepo.On("GetByPhone", ctx, input.CustomerPhone).Return(nil, customer.ErrCustomerNotFound)
		deps.customerRepo.On("Create", ctx, mock.AnythingOfType("*customer.Customer")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*customer.Customer).ID = "customer-new"
			}).Return(nil)

		deps.stationRepo.On("GetByIDs", ctx, ids).Return(stations, nil)

		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		deps.tx.On("Commit").Return(nil)
		deps.bookingRepo.On("CreateGroup", ctx, deps.tx, mock.AnythingOfType("[]*booking.Booking")).
			Run(func(args mock.Arguments) {
				args.Get(2).([]*booking.Booking)[0].ID = "booking-1"
			}).Return(nil)
		deps.bookingRepo.On("SaveAccessCodes", ctx, mock.AnythingOfType("[]string"), mock.AnythingOfType("string")).Return(nil)

		result, err := deps.service.Submit(ctx, input)

		require.NoError(t, err)
		assert.Len(t, result.BookingIDs, 1)
		deps.customerRepo.AssertExpectations(t)
	})

	t.Run("既存顧客IDが指定された場合は電話番号検索をスキップする", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()
		ids := []string{"pool-1"}
		input := validInput(ids...)
		input.ExistingCustomerID = "customer-1"
		stations := stationsFor(ids, station.KindPool)

		deps.lockManager.On("AcquireLockWithRetry", ctx, mock.AnythingOfType("string"), 10*time.Second, 3, 100*time.Millisecond).
			Return(deps.lock, nil)
		deps.lock.On("Release", ctx).Return(nil)

		deps.customerRepo.On("GetByID", ctx, "customer-1").
			Return(&customer.Customer{ID: "customer-1", Name: "山田太郎", Phone: "09012345678"}, nil)

		deps.stationRepo.On("GetByIDs", ctx, ids).Return(stations, nil)
		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		deps.tx.On("Commit").Return(nil)
		deps.bookingRepo.On("CreateGroup", ctx, deps.tx, mock.AnythingOfType("[]*booking.Booking")).
			Run(func(args mock.Arguments) {
				args.Get(2).([]*booking.Booking)[0].ID = "booking-1"
			}).Return(nil)
		deps.bookingRepo.On("SaveAccessCodes", ctx, mock.AnythingOfType("[]string"), mock.AnythingOfType("string")).Return(nil)

		_, err := deps.service.Submit(ctx, input)

		require.NoError(t, err)
		deps.customerRepo.AssertNotCalled(t, "GetByPhone", mock.Anything, mock.Anything)
	})

	t.Run("存在しないステーションが含まれる場合はエラー", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()
		ids := []string{"pool-1", "pool-missing"}
		input := validInput(ids...)

		deps.lockManager.On("AcquireLockWithRetry", ctx, mock.AnythingOfType("string"), 10*time.Second, 3, 100*time.Millisecond).
			Return(deps.lock, nil)
		deps.lock.On("Release", ctx).Return(nil)
		deps.customerRepo.On("GetByPhone", ctx, input.CustomerPhone).
			Return(&customer.Customer{ID: "customer-1"}, nil)

		// 2件要求して1件しか見つからない
		deps.stationRepo.On("GetByIDs", ctx, ids).Return(stationsFor(ids[:1], station.KindPool), nil)

		_, err := deps.service.Submit(ctx, input)

		assert.ErrorIs(t, err, station.ErrStationNotFound)
		deps.txManager.AssertNotCalled(t, "Begin", mock.Anything)
	})

	t.Run("コントローラー残数を超えるPS5予約は拒否される", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()
		ids := []string{"ps5-1", "ps5-2", "ps5-3"}
		input := validInput(ids...)
		requested := stationsFor(ids, station.KindPS5)

		// 既存予約が4台分プールを消費（6 - 4 = 残り2）
		occupied := stationsFor([]string{"ps5-4", "ps5-5", "ps5-6", "ps5-7"}, station.KindPS5)
		existing := make([]*booking.Booking, len(occupied))
		for i, st := range occupied {
			existing[i] = confirmedAt(st.ID, input.StartTime, input.EndTime)
		}

		deps.lockManager.On("AcquireLockWithRetry", ctx, mock.AnythingOfType("string"), 10*time.Second, 3, 100*time.Millisecond).
			Return(deps.lock, nil)
		deps.lock.On("Release", ctx).Return(nil)
		deps.customerRepo.On("GetByPhone", ctx, input.CustomerPhone).
			Return(&customer.Customer{ID: "customer-1"}, nil)
		deps.stationRepo.On("GetByIDs", ctx, ids).Return(requested, nil)

		deps.bookingRepo.On("GetConfirmedByDate", mock.Anything, input.Date).Return(existing, nil)
		deps.stationRepo.On("GetAll", mock.Anything).Return(append(requested, occupied...), nil)

		_, err := deps.service.Submit(ctx, input)

		assert.ErrorIs(t, err, booking.ErrControllersUnavailable)
		deps.txManager.AssertNotCalled(t, "Begin", mock.Anything)
	})

	t.Run("INSERTで排他制約に衝突した場合はスロット喪失エラー", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()
		ids := []string{"pool-1"}
		input := validInput(ids...)

		deps.lockManager.On("AcquireLockWithRetry", ctx, mock.AnythingOfType("string"), 10*time.Second, 3, 100*time.Millisecond).
			Return(deps.lock, nil)
		deps.lock.On("Release", ctx).Return(nil)
		deps.customerRepo.On("GetByPhone", ctx, input.CustomerPhone).
			Return(&customer.Customer{ID: "customer-1"}, nil)
		deps.stationRepo.On("GetByIDs", ctx, ids).Return(stationsFor(ids, station.KindPool), nil)

		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		deps.bookingRepo.On("CreateGroup", ctx, deps.tx, mock.AnythingOfType("[]*booking.Booking")).
			Return(booking.ErrSlotNoLongerAvailable)

		_, err := deps.service.Submit(ctx, input)

		assert.ErrorIs(t, err, booking.ErrSlotNoLongerAvailable)
		deps.tx.AssertNotCalled(t, "Commit")
		deps.tx.AssertCalled(t, "Rollback")
	})

	t.Run("アクセスコード保存に失敗しても予約は成功し導出コードを返す", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()
		ids := []string{"pool-1"}
		input := validInput(ids...)

		deps.lockManager.On("AcquireLockWithRetry", ctx, mock.AnythingOfType("string"), 10*time.Second, 3, 100*time.Millisecond).
			Return(deps.lock, nil)
		deps.lock.On("Release", ctx).Return(nil)
		deps.customerRepo.On("GetByPhone", ctx, input.CustomerPhone).
			Return(&customer.Customer{ID: "customer-1"}, nil)
		deps.stationRepo.On("GetByIDs", ctx, ids).Return(stationsFor(ids, station.KindPool), nil)
		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		deps.tx.On("Commit").Return(nil)
		deps.bookingRepo.On("CreateGroup", ctx, deps.tx, mock.AnythingOfType("[]*booking.Booking")).
			Run(func(args mock.Arguments) {
				args.Get(2).([]*booking.Booking)[0].ID = "abcd1234-5678-90ef-ghij-klmnopqrstuv"
			}).Return(nil)
		deps.bookingRepo.On("SaveAccessCodes", ctx, mock.AnythingOfType("[]string"), mock.AnythingOfType("string")).
			Return(assert.AnError)

		result, err := deps.service.Submit(ctx, input)

		require.NoError(t, err)
		assert.Equal(t, "ABCD1234", result.AccessCode)
	})

	t.Run("価格は時間按分と割引が適用される", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()
		ids := []string{"pool-1"}
		input := validInput(ids...)
		input.EndTime = input.StartTime.Add(90 * time.Minute)
		input.DurationMinutes = 90
		input.DiscountPercent = 50

		var created []*booking.Booking

		deps.lockManager.On("AcquireLockWithRetry", ctx, mock.AnythingOfType("string"), 10*time.Second, 3, 100*time.Millisecond).
			Return(deps.lock, nil)
		deps.lock.On("Release", ctx).Return(nil)
		deps.customerRepo.On("GetByPhone", ctx, input.CustomerPhone).
			Return(&customer.Customer{ID: "customer-1"}, nil)
		deps.stationRepo.On("GetByIDs", ctx, ids).Return(stationsFor(ids, station.KindPool), nil)
		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		deps.tx.On("Commit").Return(nil)
		deps.bookingRepo.On("CreateGroup", ctx, deps.tx, mock.AnythingOfType("[]*booking.Booking")).
			Run(func(args mock.Arguments) {
				created = args.Get(2).([]*booking.Booking)
				created[0].ID = "booking-1"
			}).Return(nil)
		deps.bookingRepo.On("SaveAccessCodes", ctx, mock.AnythingOfType("[]string"), mock.AnythingOfType("string")).Return(nil)

		_, err := deps.service.Submit(ctx, input)

		require.NoError(t, err)
		require.Len(t, created, 1)
		assert.Equal(t, 450.0, created[0].OriginalPrice)
		assert.Equal(t, 225.0, created[0].FinalPrice)
	})
}

func TestBookingService_CancelBooking(t *testing.T) {
	t.Run("未終了のconfirmed予約をキャンセルできる", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()
		date := futureDate()
		b := &booking.Booking{
			ID: "booking-1", Status: booking.StatusConfirmed,
			Date:      date,
			StartTime: slotTime(date, 14, 0), EndTime: slotTime(date, 15, 0),
			DurationMinutes: 60,
		}

		deps.bookingRepo.On("GetByID", ctx, "booking-1").Return(b, nil)
		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		deps.tx.On("Commit").Return(nil)
		deps.bookingRepo.On("UpdateStatus", ctx, deps.tx, b).Return(nil)

		result, err := deps.service.CancelBooking(ctx, "booking-1", booking.UpdatedByCustomer)

		require.NoError(t, err)
		assert.Equal(t, booking.StatusCancelled, result.Status)
		assert.Equal(t, booking.UpdatedByCustomer, result.StatusUpdatedBy)
	})

	t.Run("終了済み予約のキャンセルは拒否される", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()
		b := &booking.Booking{
			ID: "booking-1", Status: booking.StatusConfirmed,
			StartTime: time.Now().Add(-2 * time.Hour), EndTime: time.Now().Add(-1 * time.Hour),
		}

		deps.bookingRepo.On("GetByID", ctx, "booking-1").Return(b, nil)

		_, err := deps.service.CancelBooking(ctx, "booking-1", booking.UpdatedByCustomer)

		assert.ErrorIs(t, err, booking.ErrInvalidStateTransition)
		deps.txManager.AssertNotCalled(t, "Begin", mock.Anything)
	})

	t.Run("存在しない予約はエラー", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()

		deps.bookingRepo.On("GetByID", ctx, "missing").Return(nil, booking.ErrBookingNotFound)

		_, err := deps.service.CancelBooking(ctx, "missing", booking.UpdatedByCustomer)

		assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	})
}

func TestBookingService_MarkNoShow(t *testing.T) {
	t.Run("confirmed予約をno-showにできる", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()
		date := futureDate()
		b := &booking.Booking{
			ID: "booking-1", Status: booking.StatusConfirmed,
			Date:      date,
			StartTime: slotTime(date, 14, 0), EndTime: slotTime(date, 15, 0),
		}

		deps.bookingRepo.On("GetByID", ctx, "booking-1").Return(b, nil)
		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		deps.tx.On("Commit").Return(nil)
		deps.bookingRepo.On("UpdateStatus", ctx, deps.tx, b).Return(nil)

		result, err := deps.service.MarkNoShow(ctx, "booking-1")

		require.NoError(t, err)
		assert.Equal(t, booking.StatusNoShow, result.Status)
		assert.Equal(t, booking.UpdatedByStaff, result.StatusUpdatedBy)
	})

	t.Run("終端状態の予約は拒否される", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()
		b := &booking.Booking{ID: "booking-1", Status: booking.StatusCancelled}

		deps.bookingRepo.On("GetByID", ctx, "booking-1").Return(b, nil)

		_, err := deps.service.MarkNoShow(ctx, "booking-1")

		assert.ErrorIs(t, err, booking.ErrInvalidStateTransition)
	})
}

func TestBookingService_CompleteFinishedBookings(t *testing.T) {
	t.Run("終了済みのconfirmed予約がcompletedに遷移する", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()
		finished := []*booking.Booking{
			{ID: "booking-1", Status: booking.StatusConfirmed, EndTime: time.Now().Add(-1 * time.Hour)},
			{ID: "booking-2", Status: booking.StatusConfirmed, EndTime: time.Now().Add(-30 * time.Minute)},
		}

		deps.bookingRepo.On("GetFinishedConfirmed", ctx, mock.AnythingOfType("time.Time")).Return(finished, nil)
		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		deps.tx.On("Commit").Return(nil)
		deps.bookingRepo.On("UpdateStatus", ctx, deps.tx, mock.AnythingOfType("*booking.Booking")).Return(nil)

		count, err := deps.service.CompleteFinishedBookings(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Equal(t, booking.StatusCompleted, finished[0].Status)
		assert.Equal(t, booking.StatusCompleted, finished[1].Status)
	})

	t.Run("対象がない場合はトランザクションを開始しない", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()

		deps.bookingRepo.On("GetFinishedConfirmed", ctx, mock.AnythingOfType("time.Time")).Return([]*booking.Booking{}, nil)

		count, err := deps.service.CompleteFinishedBookings(ctx)

		require.NoError(t, err)
		assert.Equal(t, 0, count)
		deps.txManager.AssertNotCalled(t, "Begin", mock.Anything)
	})
}

func TestBookingService_GetByAccessCode(t *testing.T) {
	t.Run("コードは大文字化して照合される", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()
		b := &booking.Booking{ID: "booking-1"}

		deps.bookingRepo.On("GetByAccessCode", ctx, "ABCD1234").Return(b, nil)

		result, err := deps.service.GetByAccessCode(ctx, "abcd1234")

		require.NoError(t, err)
		assert.Equal(t, "booking-1", result.ID)
	})

	t.Run("空のコードはエラー", func(t *testing.T) {
		deps := newBookingTestDeps()

		_, err := deps.service.GetByAccessCode(context.Background(), "")

		assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	})
}

func TestBookingService_GetBookingsByPhone(t *testing.T) {
	t.Run("電話番号から顧客を解決して予約一覧を返す", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()

		deps.customerRepo.On("GetByPhone", ctx, "09012345678").
			Return(&customer.Customer{ID: "customer-1"}, nil)
		deps.bookingRepo.On("GetByCustomerID", ctx, "customer-1").
			Return([]*booking.Booking{{ID: "booking-1"}, {ID: "booking-2"}}, nil)

		bookings, err := deps.service.GetBookingsByPhone(ctx, "09012345678")

		require.NoError(t, err)
		assert.Len(t, bookings, 2)
	})

	t.Run("未登録の電話番号はエラー", func(t *testing.T) {
		deps := newBookingTestDeps()
		ctx := context.Background()

		deps.customerRepo.On("GetByPhone", ctx, "00000000000").
			Return(nil, customer.ErrCustomerNotFound)

		_, err := deps.service.GetBookingsByPhone(ctx, "00000000000")

		assert.ErrorIs(t, err, customer.ErrCustomerNotFound)
	})
}

func TestBuildSlotLockKey(t *testing.T) {
	start := time.Date(2025, 7, 1, 14, 0, 0, 0, time.UTC)

	t.Run("ステーションIDの順序に依存しない", func(t *testing.T) {
		key1 := buildSlotLockKey([]string{"b", "a", "c"}, start)
		key2 := buildSlotLockKey([]string{"c", "b", "a"}, start)
		assert.Equal(t, key1, key2)
	})

	t.Run("開始時刻が異なればキーも異なる", func(t *testing.T) {
		key1 := buildSlotLockKey([]string{"a"}, start)
		key2 := buildSlotLockKey([]string{"a"}, start.Add(time.Hour))
		assert.NotEqual(t, key1, key2)
	})
}
