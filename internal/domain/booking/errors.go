package booking

import "errors"

// Booking ドメインのエラー定義
// バリデーション系はバックエンド呼び出し前に返す
var (
	ErrStationsRequired       = errors.New("ステーションの選択は必須です")
	ErrDuplicateStations      = errors.New("同じステーションが重複して指定されています")
	ErrDateRequired           = errors.New("予約日は必須です")
	ErrTimeSlotRequired       = errors.New("時間帯の選択は必須です")
	ErrCustomerNameRequired   = errors.New("お名前は必須です")
	ErrCustomerPhoneRequired  = errors.New("電話番号は必須です")
	ErrStationIDRequired      = errors.New("ステーションIDは必須です")
	ErrCustomerIDRequired     = errors.New("顧客IDは必須です")
	ErrInvalidTimeRange       = errors.New("終了時刻は開始時刻より後である必要があります")
	ErrInvalidDiscountPercent = errors.New("割引率は0〜100である必要があります")
	ErrInvalidPrice           = errors.New("価格は0以上である必要があります")
)

// トランザクション系のエラー定義
var (
	ErrBookingNotFound        = errors.New("予約が見つかりません")
	ErrCustomerLookupFailed   = errors.New("顧客情報の取得に失敗しました")
	ErrCustomerCreateFailed   = errors.New("顧客情報の作成に失敗しました")
	ErrBookingInsertFailed    = errors.New("予約の作成に失敗しました")
	ErrNoBookingsCreated      = errors.New("予約が1件も作成されませんでした")
	ErrSlotNoLongerAvailable  = errors.New("この時間帯は埋まってしまいました")
	ErrControllersUnavailable = errors.New("コントローラーの空きが不足しています")
	ErrAccessCodeUnavailable  = errors.New("アクセスコードを発行できませんでした")
	ErrInvalidStateTransition = errors.New("この予約のステータスは変更できません")
	ErrBookingNotFinished     = errors.New("予約はまだ終了していません")
)
