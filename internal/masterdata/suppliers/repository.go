package suppliers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fincontrol/fincontrol/internal/shared"
)

type Repository interface {
	List(ctx context.Context, search string, limit, offset int) ([]Supplier, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
	Update(ctx context.Context, id int64, supplier Supplier) error
	Deactivate(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, tax_id, name, address, email, phone, active, created_at, updated_at`

func (r *repository) List(ctx context.Context, search string, limit, offset int) ([]Supplier, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM suppliers
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR tax_id ILIKE '%' || $1 || '%')
ORDER BY name ASC
LIMIT $2 OFFSET $3`, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.TaxID, &s.Name, &s.Address, &s.Email, &s.Phone, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.db.QueryRow(ctx, `SELECT `+columns+` FROM suppliers WHERE id = $1`, id).
		Scan(&s.ID, &s.TaxID, &s.Name, &s.Address, &s.Email, &s.Phone, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, shared.ErrNotFound
		}
		return Supplier{}, err
	}
	return s, nil
}

func (r *repository) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO suppliers (tax_id, name, address, email, phone, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
RETURNING id, active, created_at, updated_at`,
		supplier.TaxID, supplier.Name, supplier.Address, supplier.Email, supplier.Phone).
		Scan(&supplier.ID, &supplier.Active, &supplier.CreatedAt, &supplier.UpdatedAt)
	if err != nil {
		return Supplier{}, err
	}
	return supplier, nil
}

func (r *repository) Update(ctx context.Context, id int64, supplier Supplier) error {
	tag, err := r.db.Exec(ctx, `UPDATE suppliers
SET tax_id = $1, name = $2, address = $3, email = $4, phone = $5, updated_at = NOW()
WHERE id = $6`, supplier.TaxID, supplier.Name, supplier.Address, supplier.Email, supplier.Phone, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE suppliers SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
