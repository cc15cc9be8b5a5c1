package station

import "context"

// Repository はステーションリポジトリのインターフェース
type Repository interface {
	// GetByID はIDからステーションを取得する
	GetByID(ctx context.Context, id string) (*Station, error)

	// GetByIDs は複数IDからステーション一覧を取得する
	GetByIDs(ctx context.Context, ids []string) ([]*Station, error)

	// GetAll は全ステーションを取得する
	GetAll(ctx context.Context) ([]*Station, error)
}
