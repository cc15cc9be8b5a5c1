package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/booking"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/pkg/logger"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/pkg/metrics"
)

// TodayBookingLister は当日の confirmed 予約を取得するインターフェース
type TodayBookingLister interface {
	GetTodayConfirmed(ctx context.Context) ([]*booking.Booking, error)
}

// ReminderNotifier は開始時刻が近い予約のリマインダーを発行するワーカー
// 通知自体はログ出力で、外部送信は行わない
type ReminderNotifier struct {
	bookingService TodayBookingLister
	interval       time.Duration
	lookahead      time.Duration
	notified       map[string]struct{}
	stopCh         chan struct{}
	doneCh         chan struct{}
}

// NewReminderNotifier は新しいリマインダーワーカーを作成
func NewReminderNotifier(bs TodayBookingLister, interval, lookahead time.Duration) *ReminderNotifier {
	return &ReminderNotifier{
		bookingService: bs,
		interval:       interval,
		lookahead:      lookahead,
		notified:       make(map[string]struct{}),
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start はリマインダーワーカーを開始
func (n *ReminderNotifier) Start(ctx context.Context) {
	logger.Info("予約リマインダー開始",
		zap.Duration("interval", n.interval),
		zap.Duration("lookahead", n.lookahead),
	)

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()
	defer close(n.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("予約リマインダー停止（コンテキストキャンセル）")
			return
		case <-n.stopCh:
			logger.Info("予約リマインダー停止（シグナル受信）")
			return
		case <-ticker.C:
			n.notify(ctx, time.Now())
		}
	}
}

// Stop はリマインダーワーカーを停止
func (n *ReminderNotifier) Stop() {
	close(n.stopCh)
	<-n.doneCh
}

// notify は lookahead 以内に開始する未通知の予約をリマインドする
func (n *ReminderNotifier) notify(ctx context.Context, now time.Time) {
	log := logger.Get()

	bookings, err := n.bookingService.GetTodayConfirmed(ctx)
	if err != nil {
		log.Error("リマインダー対象の取得失敗", zap.Error(err))
		return
	}

	deadline := now.Add(n.lookahead)
	for _, b := range bookings {
		if b.StartTime.After(deadline) || b.StartTime.Before(now) {
			continue
		}
		if _, sent := n.notified[b.ID]; sent {
			continue
		}
		n.notified[b.ID] = struct{}{}

		log.Info("予約開始リマインダー",
			zap.String("booking_id", b.ID),
			zap.String("station_id", b.StationID),
			zap.Time("start_time", b.StartTime),
		)
		if m := metrics.Get(); m != nil {
			m.RemindersSentTotal.Inc()
		}
	}

	// 開始済み予約の通知記録を掃除してマップの肥大化を防ぐ
	for id := range n.notified {
		if !n.contains(bookings, id, now) {
			delete(n.notified, id)
		}
	}
}

// contains は通知記録を保持すべき予約（未開始）かを返す
func (n *ReminderNotifier) contains(bookings []*booking.Booking, id string, now time.Time) bool {
	for _, b := range bookings {
		if b.ID == id && b.StartTime.After(now) {
			return true
		}
	}
	return false
}
