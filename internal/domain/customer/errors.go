package customer

import "errors"

// Customer ドメインのエラー定義
var (
	ErrCustomerNotFound      = errors.New("顧客が見つかりません")
	ErrCustomerNameRequired  = errors.New("顧客名は必須です")
	ErrCustomerPhoneRequired = errors.New("電話番号は必須です")
	ErrPhoneAlreadyExists    = errors.New("同じ電話番号の顧客が既に存在します")
)
