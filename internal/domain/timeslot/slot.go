package timeslot

import (
	"fmt"
	"time"
)

// TimeSlot は予約可能な時間帯を表す（派生値であり永続化されない）
type TimeSlot struct {
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsAvailable bool      `json:"is_available"`
}

// SlotAvailability は空き状況を付与したタイムスロット
// BookedByKind / TotalByKind はステーション種別ごとの内訳
type SlotAvailability struct {
	TimeSlot
	BookedStations int            `json:"booked_stations"`
	TotalStations  int            `json:"total_stations"`
	BookedByKind   map[string]int `json:"booked_by_kind,omitempty"`
	TotalByKind    map[string]int `json:"total_by_kind,omitempty"`
}

// Generate は営業時間内の連続したタイムスロットを生成する純粋関数
// closeTime を超える端数スロットは生成しない
// now が指定された場合（対象日が当日の場合）、開始済みのスロットは
// 削除せず利用不可としてマークする（カレンダーの形を日をまたいで一定に保つ）
func Generate(openTime, closeTime time.Time, durationMinutes int, now *time.Time) []TimeSlot {
	if durationMinutes <= 0 || !closeTime.After(openTime) {
		return nil
	}

	duration := time.Duration(durationMinutes) * time.Minute
	slots := make([]TimeSlot, 0, int(closeTime.Sub(openTime)/duration))

	for start := openTime; !start.Add(duration).After(closeTime); start = start.Add(duration) {
		slot := TimeSlot{
			StartTime:   start,
			EndTime:     start.Add(duration),
			IsAvailable: true,
		}
		if now != nil && !slot.StartTime.After(*now) {
			slot.IsAvailable = false
		}
		slots = append(slots, slot)
	}
	return slots
}

// Overlaps はスロットの区間 [StartTime, EndTime) が指定区間と重なるかを返す
// 重なり判定: bookingStart < slotEnd AND bookingEnd > slotStart
func (s TimeSlot) Overlaps(start, end time.Time) bool {
	return start.Before(s.EndTime) && end.After(s.StartTime)
}

// WindowFor は日付と "15:04" 形式の開店・閉店時刻から営業時間帯を組み立てる
func WindowFor(date time.Time, open, close string) (time.Time, time.Time, error) {
	openClock, err := time.Parse("15:04", open)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("開店時刻の解析に失敗: %w", err)
	}
	closeClock, err := time.Parse("15:04", close)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("閉店時刻の解析に失敗: %w", err)
	}
	openAt := time.Date(date.Year(), date.Month(), date.Day(), openClock.Hour(), openClock.Minute(), 0, 0, date.Location())
	closeAt := time.Date(date.Year(), date.Month(), date.Day(), closeClock.Hour(), closeClock.Minute(), 0, 0, date.Location())
	return openAt, closeAt, nil
}
