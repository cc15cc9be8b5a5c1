package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/booking"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/station"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/timeslot"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// LoungeCacheInterface は予約エンジンが使うキャッシュの抽象
type LoungeCacheInterface interface {
	GetSlots(ctx context.Context, date string, durationMinutes int) ([]timeslot.SlotAvailability, error)
	SetSlots(ctx context.Context, date string, durationMinutes int, slots []timeslot.SlotAvailability, ttl time.Duration) error
	InvalidateSlotsForDate(ctx context.Context, date string) error
	GetStations(ctx context.Context) ([]*station.Station, error)
	SetStations(ctx context.Context, stations []*station.Station, ttl time.Duration) error
	GetTodayBookings(ctx context.Context, date string) ([]*booking.Booking, error)
	SetTodayBookings(ctx context.Context, date string, bookings []*booking.Booking, ttl time.Duration) error
	InvalidateTodayBookings(ctx context.Context, date string) error
}

// LoungeCache は予約エンジンが使う3系統の先読みキャッシュをまとめる
// いずれも「値 + TTL」の補助キャッシュであり、ミスしても正しさには影響しない
type LoungeCache struct {
	client *redis.Client
}

// NewLoungeCache は新しいLoungeCacheインスタンスを作成する
func NewLoungeCache(client *redis.Client) *LoungeCache {
	return &LoungeCache{client: client}
}

var _ LoungeCacheInterface = (*LoungeCache)(nil)

// GetSlots は (日付, 分数) キーのタイムスロット一覧をキャッシュから取得する
func (c *LoungeCache) GetSlots(ctx context.Context, date string, durationMinutes int) ([]timeslot.SlotAvailability, error) {
	var slots []timeslot.SlotAvailability
	if err := c.getJSON(ctx, c.slotsKey(date, durationMinutes), &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// SetSlots はタイムスロット一覧をキャッシュに保存する
func (c *LoungeCache) SetSlots(ctx context.Context, date string, durationMinutes int, slots []timeslot.SlotAvailability, ttl time.Duration) error {
	return c.setJSON(ctx, c.slotsKey(date, durationMinutes), slots, ttl)
}

// InvalidateSlotsForDate は対象日のスロットキャッシュを分数を問わず無効化する
// 分数はクエリパラメータで任意に指定されるため、キーをSCANで列挙して削除する
func (c *LoungeCache) InvalidateSlotsForDate(ctx context.Context, date string) error {
	iter := c.client.Scan(ctx, 0, fmt.Sprintf("slots:%s:*", date), 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("キャッシュキーの走査に失敗: %w", err)
	}
	return nil
}

// GetStations はステーション一覧をキャッシュから取得する
func (c *LoungeCache) GetStations(ctx context.Context) ([]*station.Station, error) {
	var stations []*station.Station
	if err := c.getJSON(ctx, c.stationsKey(), &stations); err != nil {
		return nil, err
	}
	return stations, nil
}

// SetStations はステーション一覧をキャッシュに保存する
func (c *LoungeCache) SetStations(ctx context.Context, stations []*station.Station, ttl time.Duration) error {
	return c.setJSON(ctx, c.stationsKey(), stations, ttl)
}

// GetTodayBookings は当日の confirmed 予約一覧をキャッシュから取得する
func (c *LoungeCache) GetTodayBookings(ctx context.Context, date string) ([]*booking.Booking, error) {
	var bookings []*booking.Booking
	if err := c.getJSON(ctx, c.todayKey(date), &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// SetTodayBookings は当日の予約一覧をキャッシュに保存する
func (c *LoungeCache) SetTodayBookings(ctx context.Context, date string, bookings []*booking.Booking, ttl time.Duration) error {
	return c.setJSON(ctx, c.todayKey(date), bookings, ttl)
}

// InvalidateTodayBookings は当日予約キャッシュを無効化する
func (c *LoungeCache) InvalidateTodayBookings(ctx context.Context, date string) error {
	if err := c.client.Del(ctx, c.todayKey(date)).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *LoungeCache) getJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("キャッシュの復元に失敗: %w", err)
	}
	return nil
}

func (c *LoungeCache) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("キャッシュの変換に失敗: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

func (c *LoungeCache) slotsKey(date string, durationMinutes int) string {
	return fmt.Sprintf("slots:%s:%d", date, durationMinutes)
}

func (c *LoungeCache) stationsKey() string {
	return "stations:all"
}

func (c *LoungeCache) todayKey(date string) string {
	return fmt.Sprintf("bookings:today:%s", date)
}
