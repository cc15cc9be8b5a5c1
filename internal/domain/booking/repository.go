package booking

import (
	"context"
	"time"

	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// CreateGroup は同一グループの予約を一括作成する（トランザクション必須）
	// 時間帯の衝突は ErrSlotNoLongerAvailable として返す
	CreateGroup(ctx context.Context, tx transaction.Tx, bookings []*Booking) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Booking, error)

	// GetByGroupID はグループIDから予約一覧を取得する
	GetByGroupID(ctx context.Context, groupID string) ([]*Booking, error)

	// GetConfirmedByDate は指定日の confirmed 予約を取得する
	GetConfirmedByDate(ctx context.Context, date time.Time) ([]*Booking, error)

	// GetByCustomerID は顧客の予約一覧を日時降順で取得する
	GetByCustomerID(ctx context.Context, customerID string) ([]*Booking, error)

	// GetFinishedConfirmed は終了時刻を過ぎた confirmed 予約を取得する
	GetFinishedConfirmed(ctx context.Context, now time.Time) ([]*Booking, error)

	// UpdateStatus は予約のステータスを更新する（トランザクション必須）
	UpdateStatus(ctx context.Context, tx transaction.Tx, b *Booking) error

	// SaveAccessCodes は予約群にアクセスコードを紐付ける
	SaveAccessCodes(ctx context.Context, bookingIDs []string, code string) error

	// GetByAccessCode はアクセスコードから予約を取得し、最終閲覧時刻を更新する
	GetByAccessCode(ctx context.Context, code string) (*Booking, error)
}
