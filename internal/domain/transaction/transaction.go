package transaction

import "context"

// Tx はトランザクション境界を表すインターフェース
// ドメイン層・アプリケーション層を具体的なDBドライバ（sqlx等）から切り離す
type Tx interface {
	// Commit はトランザクションを確定する
	Commit() error
	// Rollback はトランザクションを破棄する
	Rollback() error
}

// Manager はトランザクションの開始を担うインターフェース
type Manager interface {
	// Begin は新しいトランザクションを開始する
	Begin(ctx context.Context) (Tx, error)
}
