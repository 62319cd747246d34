package materials

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yasfei/inventory-autoflex/internal/domain/inventory"
	"github.com/yasfei/inventory-autoflex/internal/infra/db"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

/* Raw materials CRUD */

func (r *Repo) List(ctx context.Context) ([]RawMaterial, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, name, quantity_in_stock, created_at
		FROM raw_materials
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RawMaterial{}
	for rows.Next() {
		var m RawMaterial
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.QuantityInStock, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*RawMaterial, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, code, name, quantity_in_stock, created_at
		FROM raw_materials
		WHERE id = $1
	`, id)
	var m RawMaterial
	if err := row.Scan(&m.ID, &m.Code, &m.Name, &m.QuantityInStock, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repo) Create(ctx context.Context, in Input) (*RawMaterial, error) {
	in = in.Normalize()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var m RawMaterial
	err = tx.QueryRow(ctx, `
		INSERT INTO raw_materials (code, name, quantity_in_stock)
		VALUES ($1,$2,$3)
		RETURNING id, code, name, quantity_in_stock, created_at
	`, in.Code, in.Name, in.QuantityInStock).
		Scan(&m.ID, &m.Code, &m.Name, &m.QuantityInStock, &m.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}

	// начальный остаток: как приход
	if err := inventory.Record(ctx, tx, m.ID, m.QuantityInStock, "created"); err != nil {
		return nil, fmt.Errorf("record movement: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &m, nil
}

// Update заменяет code/name/quantity_in_stock и логирует разницу остатка.
func (r *Repo) Update(ctx context.Context, id int64, in Input) (*RawMaterial, error) {
	in = in.Normalize()
	return r.withStockChange(ctx, id, "edit", func(tx pgx.Tx) (*RawMaterial, error) {
		var m RawMaterial
		err := tx.QueryRow(ctx, `
			UPDATE raw_materials SET code=$2, name=$3, quantity_in_stock=$4
			WHERE id=$1
			RETURNING id, code, name, quantity_in_stock, created_at
		`, id, in.Code, in.Name, in.QuantityInStock).
			Scan(&m.ID, &m.Code, &m.Name, &m.QuantityInStock, &m.CreatedAt)
		return &m, err
	})
}

// StockLevel: фактический остаток сырья id.
type StockLevel struct {
	ID  int64
	Qty int64
}

// SetStocks применяет все остатки в одной транзакции (импорт из Excel):
// при ошибке на любой строке не меняется ничего.
func (r *Repo) SetStocks(ctx context.Context, levels []StockLevel, note string) ([]RawMaterial, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([]RawMaterial, 0, len(levels))
	for _, l := range levels {
		if l.Qty < 0 {
			return nil, fmt.Errorf("raw material %d: qty must be >= 0", l.ID)
		}
		m, err := changeStock(ctx, tx, l.ID, note, func(tx pgx.Tx) (*RawMaterial, error) {
			var m RawMaterial
			err := tx.QueryRow(ctx, `
				UPDATE raw_materials SET quantity_in_stock=$2
				WHERE id=$1
				RETURNING id, code, name, quantity_in_stock, created_at
			`, l.ID, l.Qty).
				Scan(&m.ID, &m.Code, &m.Name, &m.QuantityInStock, &m.CreatedAt)
			return &m, err
		})
		if err != nil {
			return nil, fmt.Errorf("raw material %d: %w", l.ID, err)
		}
		out = append(out, *m)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) withStockChange(ctx context.Context, id int64, note string, update func(pgx.Tx) (*RawMaterial, error)) (*RawMaterial, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	m, err := changeStock(ctx, tx, id, note, update)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// changeStock блокирует строку, выполняет update и пишет движение на разницу.
func changeStock(ctx context.Context, tx pgx.Tx, id int64, note string, update func(pgx.Tx) (*RawMaterial, error)) (*RawMaterial, error) {
	var before int64
	err := tx.QueryRow(ctx, `SELECT quantity_in_stock FROM raw_materials WHERE id=$1 FOR UPDATE`, id).Scan(&before)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	m, err := update(tx)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}

	if err := inventory.Record(ctx, tx, id, m.QuantityInStock-before, note); err != nil {
		return nil, fmt.Errorf("record movement: %w", err)
	}
	return m, nil
}

// Delete не проверяет ссылки из BOM: строки BOM удаляются каскадом.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM raw_materials WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
