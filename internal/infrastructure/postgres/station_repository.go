package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Cuephoria/cuephoria-pos-sub001/internal/domain/station"
)

type stationRow struct {
	ID               string    `db:"id"`
	Name             string    `db:"name"`
	Kind             string    `db:"type"`
	HourlyRate       float64   `db:"hourly_rate"`
	IsControllerUnit bool      `db:"is_controller_unit"`
	ParentStationID  *string   `db:"parent_station_id"`
	IsOccupied       bool      `db:"is_occupied"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r *stationRow) toEntity() *station.Station {
	return &station.Station{
		ID: r.ID, Name: r.Name, Kind: station.Kind(r.Kind),
		HourlyRate: r.HourlyRate, IsControllerUnit: r.IsControllerUnit,
		ParentStationID: r.ParentStationID, IsOccupied: r.IsOccupied,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const stationColumns = `id, name, type, hourly_rate, is_controller_unit, parent_station_id, is_occupied, created_at, updated_at`

type StationRepository struct{ db *sqlx.DB }

func NewStationRepository(db *sqlx.DB) *StationRepository { return &StationRepository{db: db} }

func (r *StationRepository) GetByID(ctx context.Context, id string) (*station.Station, error) {
	var row stationRow
	query := `SELECT ` + stationColumns + ` FROM stations WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, station.ErrStationNotFound
		}
		return nil, fmt.Errorf("ステーション取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *StationRepository) GetByIDs(ctx context.Context, ids []string) ([]*station.Station, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []stationRow
	query := `SELECT ` + stationColumns + ` FROM stations WHERE id = ANY($1) ORDER BY name`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("ステーション取得に失敗: %w", err)
	}
	stations := make([]*station.Station, len(rows))
	for i, row := range rows {
		stations[i] = row.toEntity()
	}
	return stations, nil
}

func (r *StationRepository) GetAll(ctx context.Context) ([]*station.Station, error) {
	var rows []stationRow
	query := `SELECT ` + stationColumns + ` FROM stations ORDER BY name`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("ステーション一覧取得に失敗: %w", err)
	}
	stations := make([]*station.Station, len(rows))
	for i, row := range rows {
		stations[i] = row.toEntity()
	}
	return stations, nil
}

var _ station.Repository = (*StationRepository)(nil)
