package products

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

const associationSelect = `
	SELECT a.id, a.product_id, p.name, a.raw_material_id, m.name, a.required_quantity
	FROM product_raw_materials a
	JOIN products p ON p.id = a.product_id
	JOIN raw_materials m ON m.id = a.raw_material_id
`

// ListAssociations: GET /products/{id}/raw-materials.
func (r *Repo) ListAssociations(ctx context.Context, productID int64) ([]Association, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id=$1)`, productID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return r.queryAssociations(ctx, associationSelect+` WHERE a.product_id = $1 ORDER BY a.id`, productID)
}

func (r *Repo) ListAllAssociations(ctx context.Context) ([]Association, error) {
	return r.queryAssociations(ctx, associationSelect+` ORDER BY a.product_id, a.id`)
}

func (r *Repo) CreateAssociation(ctx context.Context, productID, rawMaterialID, qty int64) (*Association, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO product_raw_materials (product_id, raw_material_id, required_quantity)
		VALUES ($1,$2,$3)
		RETURNING id
	`, productID, rawMaterialID, qty).Scan(&id)
	if err != nil {
		return nil, lineError(err)
	}
	return r.getAssociation(ctx, id)
}

func (r *Repo) UpdateAssociation(ctx context.Context, id, productID, rawMaterialID, qty int64) (*Association, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE product_raw_materials
		SET product_id=$2, raw_material_id=$3, required_quantity=$4
		WHERE id=$1
	`, id, productID, rawMaterialID, qty)
	if err != nil {
		return nil, lineError(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAssociationNotFound
	}
	return r.getAssociation(ctx, id)
}

func (r *Repo) DeleteAssociation(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM product_raw_materials WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAssociationNotFound
	}
	return nil
}

func (r *Repo) getAssociation(ctx context.Context, id int64) (*Association, error) {
	var a Association
	err := r.pool.QueryRow(ctx, associationSelect+` WHERE a.id = $1`, id).
		Scan(&a.ID, &a.ProductID, &a.ProductName, &a.RawMaterialID, &a.RawMaterialName, &a.RequiredQuantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssociationNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repo) queryAssociations(ctx context.Context, q string, args ...any) ([]Association, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Association{}
	for rows.Next() {
		var a Association
		if err := rows.Scan(&a.ID, &a.ProductID, &a.ProductName, &a.RawMaterialID, &a.RawMaterialName, &a.RequiredQuantity); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
