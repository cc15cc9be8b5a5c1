package station

import "time"

// Kind はステーションの種別を表す
type Kind string

const (
	KindPS5  Kind = "ps5"
	KindPool Kind = "pool"
)

// Station はゲームラウンジのステーションエンティティを表す
// PS5の本体ステーションは複数のコントローラーサブユニットを持つことがある
type Station struct {
	ID               string
	Name             string
	Kind             Kind
	HourlyRate       float64
	IsControllerUnit bool
	ParentStationID  *string
	IsOccupied       bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewStation は新しいステーションを作成する
func NewStation(name string, kind Kind, hourlyRate float64) *Station {
	now := time.Now()
	return &Station{
		Name:       name,
		Kind:       kind,
		HourlyRate: hourlyRate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsConsole は本体ステーション（サブユニットでない）かを返す
func (s *Station) IsConsole() bool {
	return !s.IsControllerUnit
}

// OccupiedWithUnits は本体またはいずれかのサブユニットが使用中かを返す
// all には同一ラウンジの全ステーションを渡す
func (s *Station) OccupiedWithUnits(all []*Station) bool {
	if s.IsOccupied {
		return true
	}
	for _, other := range all {
		if other.ParentStationID != nil && *other.ParentStationID == s.ID && other.IsOccupied {
			return true
		}
	}
	return false
}

// Validate はステーションの検証を行う
func (s *Station) Validate() error {
	if s.Name == "" {
		return ErrStationNameRequired
	}
	if s.Kind != KindPS5 && s.Kind != KindPool {
		return ErrInvalidStationKind
	}
	if s.HourlyRate < 0 {
		return ErrInvalidHourlyRate
	}
	// parentStationID はサブユニットのみ持てる（サイクル禁止）
	if s.ParentStationID != nil && !s.IsControllerUnit {
		return ErrParentOnConsole
	}
	if s.IsControllerUnit && s.ParentStationID == nil {
		return ErrParentRequired
	}
	return nil
}
