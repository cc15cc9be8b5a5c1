package customer

import "context"

// Repository は顧客リポジトリのインターフェース
type Repository interface {
	// Create は新しい顧客を作成する
	Create(ctx context.Context, customer *Customer) error

	// GetByID はIDから顧客を取得する
	GetByID(ctx context.Context, id string) (*Customer, error)

	// GetByPhone は電話番号から顧客を取得する
	GetByPhone(ctx context.Context, phone string) (*Customer, error)
}
