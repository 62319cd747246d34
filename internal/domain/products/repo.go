package products

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yasfei/inventory-autoflex/internal/infra/db"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

/* Products CRUD */

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, name, value, created_at
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	idx := map[int64]int{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Value, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.RawMaterials = []BOMLine{}
		idx[p.ID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := r.pool.Query(ctx, `
		SELECT product_id, raw_material_id, required_quantity
		FROM product_raw_materials
		ORDER BY product_id, id
	`)
	if err != nil {
		return nil, err
	}
	defer lines.Close()

	for lines.Next() {
		var pid int64
		var l BOMLine
		if err := lines.Scan(&pid, &l.RawMaterialID, &l.RequiredQuantity); err != nil {
			return nil, err
		}
		if i, ok := idx[pid]; ok {
			out[i].RawMaterials = append(out[i].RawMaterials, l)
		}
	}
	return out, lines.Err()
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, name, value, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Code, &p.Name, &p.Value, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	lines, err := r.loadLines(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	p.RawMaterials = lines
	return &p, nil
}

func (r *Repo) Create(ctx context.Context, in Input) (*Product, error) {
	in = in.Normalize()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var p Product
	err = tx.QueryRow(ctx, `
		INSERT INTO products (code, name, value)
		VALUES ($1,$2,$3)
		RETURNING id, code, name, value, created_at
	`, in.Code, in.Name, in.Value).Scan(&p.ID, &p.Code, &p.Name, &p.Value, &p.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}

	if err := insertLines(ctx, tx, p.ID, in.RawMaterials); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	p.RawMaterials = in.RawMaterials
	return &p, nil
}

// Update: полная замена code/name/value и BOM в одной транзакции.
func (r *Repo) Update(ctx context.Context, id int64, in Input) (*Product, error) {
	in = in.Normalize()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var p Product
	err = tx.QueryRow(ctx, `
		UPDATE products SET code=$2, name=$3, value=$4
		WHERE id=$1
		RETURNING id, code, name, value, created_at
	`, id, in.Code, in.Name, in.Value).Scan(&p.ID, &p.Code, &p.Name, &p.Value, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM product_raw_materials WHERE product_id=$1`, id); err != nil {
		return nil, err
	}
	if err := insertLines(ctx, tx, id, in.RawMaterials); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	p.RawMaterials = in.RawMaterials
	return &p, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func insertLines(ctx context.Context, tx pgx.Tx, productID int64, lines []BOMLine) error {
	for _, l := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO product_raw_materials (product_id, raw_material_id, required_quantity)
			VALUES ($1,$2,$3)
		`, productID, l.RawMaterialID, l.RequiredQuantity)
		if err != nil {
			return lineError(err)
		}
	}
	return nil
}

func lineError(err error) error {
	switch {
	case db.IsForeignKeyViolation(err):
		return ErrUnknownReference
	case db.IsUniqueViolation(err):
		return ErrDuplicateLine
	default:
		return err
	}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repo) loadLines(ctx context.Context, q querier, productID int64) ([]BOMLine, error) {
	rows, err := q.Query(ctx, `
		SELECT raw_material_id, required_quantity
		FROM product_raw_materials
		WHERE product_id = $1
		ORDER BY id
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []BOMLine{}
	for rows.Next() {
		var l BOMLine
		if err := rows.Scan(&l.RawMaterialID, &l.RequiredQuantity); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
