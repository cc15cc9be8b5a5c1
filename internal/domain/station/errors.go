package station

import "errors"

// Station ドメインのエラー定義
var (
	ErrStationNotFound     = errors.New("ステーションが見つかりません")
	ErrStationNameRequired = errors.New("ステーション名は必須です")
	ErrInvalidStationKind  = errors.New("ステーション種別が不正です")
	ErrInvalidHourlyRate   = errors.New("時間料金は0以上である必要があります")
	ErrParentOnConsole     = errors.New("本体ステーションは親ステーションを持てません")
	ErrParentRequired      = errors.New("コントローラーユニットには親ステーションが必須です")
)
