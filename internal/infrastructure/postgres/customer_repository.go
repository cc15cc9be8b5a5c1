package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/customer"
)

type customerRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Phone     string    `db:"phone"`
	Email     *string   `db:"email"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r *customerRow) toEntity() *customer.Customer {
	return &customer.Customer{
		ID: r.ID, Name: r.Name, Phone: r.Phone, Email: r.Email,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type CustomerRepository struct{ db *sqlx.DB }

func NewCustomerRepository(db *sqlx.DB) *CustomerRepository { return &CustomerRepository{db: db} }

func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	query := `INSERT INTO customers (name, phone, email, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, c.Name, c.Phone, c.Email, c.CreatedAt, c.UpdatedAt).Scan(&c.ID); err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return customer.ErrPhoneAlreadyExists
		}
		return fmt.Errorf("顧客作成に失敗: %w", err)
	}
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	var row customerRow
	query := `SELECT id, name, phone, email, created_at, updated_at FROM customers WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customer.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("顧客取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*customer.Customer, error) {
	var row customerRow
	query := `SELECT id, name, phone, email, created_at, updated_at FROM customers WHERE phone = $1`
	if err := r.db.GetContext(ctx, &row, query, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customer.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("顧客取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

var _ customer.Repository = (*CustomerRepository)(nil)
