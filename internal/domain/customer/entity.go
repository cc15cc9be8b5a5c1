package customer

import "time"

// Customer は顧客エンティティを表す
// 電話番号が一意の検索キーとなる
type Customer struct {
	ID        string
	Name      string
	Phone     string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCustomer は新しい顧客を作成する
func NewCustomer(name, phone string, email *string) *Customer {
	now := time.Now()
	return &Customer{
		Name:      name,
		Phone:     phone,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate は顧客の検証を行う
func (c *Customer) Validate() error {
	if c.Name == "" {
		return ErrCustomerNameRequired
	}
	if c.Phone == "" {
		return ErrCustomerPhoneRequired
	}
	return nil
}
