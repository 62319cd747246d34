package inventory

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer: общий интерфейс pgxpool.Pool и pgx.Tx для записи движений.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Record логирует изменение остатка. Нулевая дельта не пишется.
func Record(ctx context.Context, q Execer, rawMaterialID, delta int64, note string) error {
	if delta == 0 {
		return nil
	}
	qty := delta
	if qty < 0 {
		qty = -qty
	}
	_, err := q.Exec(ctx, `
		INSERT INTO movements (raw_material_id, qty, type, note)
		VALUES ($1,$2,$3,$4)
	`, rawMaterialID, qty, string(TypeOf(delta)), note)
	return err
}

func (r *Repo) ListByMaterial(ctx context.Context, rawMaterialID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, created_at, raw_material_id, qty, type, note
		FROM movements
		WHERE raw_material_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, rawMaterialID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Movement{}
	for rows.Next() {
		var m Movement
		var t string
		if err := rows.Scan(&m.ID, &m.CreatedAt, &m.RawMaterialID, &m.Qty, &t, &m.Note); err != nil {
			return nil, err
		}
		m.Type = MoveType(t)
		out = append(out, m)
	}
	return out, rows.Err()
}
