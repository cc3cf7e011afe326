package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the chart of accounts and both analytical dimensions.
type Repository interface {
	ListAccounts(ctx context.Context, query string) ([]Account, error)
	GetAccount(ctx context.Context, number string) (Account, error)
	CreateAccount(ctx context.Context, in AccountInput) (Account, error)
	UpdateAccount(ctx context.Context, number string, name string) (Account, error)
	DeleteAccount(ctx context.Context, number string) error

	ListCostCenters(ctx context.Context, query string) ([]CostCenter, error)
	GetCostCenter(ctx context.Context, number string) (CostCenter, error)
	CreateCostCenter(ctx context.Context, in DimensionInput) (CostCenter, error)
	UpdateCostCenter(ctx context.Context, number string, in DimensionInput) (CostCenter, error)
	DeleteCostCenter(ctx context.Context, number string) error

	ListCostObjects(ctx context.Context, query string) ([]CostObject, error)
	GetCostObject(ctx context.Context, number string) (CostObject, error)
	CreateCostObject(ctx context.Context, in DimensionInput) (CostObject, error)
	UpdateCostObject(ctx context.Context, number string, in DimensionInput) (CostObject, error)
	DeleteCostObject(ctx context.Context, number string) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicate
		case "23503":
			return ErrInUse
		}
	}
	return err
}

func (r *repository) ListAccounts(ctx context.Context, query string) ([]Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, number, name, type, created_at, updated_at
		FROM accounts
		WHERE $1 = '' OR number ILIKE '%'||$1||'%' OR name ILIKE '%'||$1||'%'
		ORDER BY number`, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Number, &a.Name, &a.Type, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) GetAccount(ctx context.Context, number string) (Account, error) {
	var a Account
	err := r.db.QueryRow(ctx, `
		SELECT id, number, name, type, created_at, updated_at
		FROM accounts WHERE number = $1`, number).
		Scan(&a.ID, &a.Number, &a.Name, &a.Type, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Account{}, mapPgError(err)
	}
	return a, nil
}

func (r *repository) CreateAccount(ctx context.Context, in AccountInput) (Account, error) {
	var a Account
	err := r.db.QueryRow(ctx, `
		INSERT INTO accounts (number, name, type, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, number, name, type, created_at, updated_at`,
		in.Number, in.Name, in.Type).
		Scan(&a.ID, &a.Number, &a.Name, &a.Type, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Account{}, mapPgError(err)
	}
	return a, nil
}

func (r *repository) UpdateAccount(ctx context.Context, number string, name string) (Account, error) {
	var a Account
	err := r.db.QueryRow(ctx, `
		UPDATE accounts SET name = $2, updated_at = now()
		WHERE number = $1
		RETURNING id, number, name, type, created_at, updated_at`,
		number, name).
		Scan(&a.ID, &a.Number, &a.Name, &a.Type, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Account{}, mapPgError(err)
	}
	return a, nil
}

func (r *repository) DeleteAccount(ctx context.Context, number string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE number = $1`, number)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListCostCenters(ctx context.Context, query string) ([]CostCenter, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, number, name, description, created_at, updated_at
		FROM cost_centers
		WHERE $1 = '' OR number ILIKE '%'||$1||'%' OR name ILIKE '%'||$1||'%'
		ORDER BY number`, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CostCenter
	for rows.Next() {
		var c CostCenter
		if err := rows.Scan(&c.ID, &c.Number, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) GetCostCenter(ctx context.Context, number string) (CostCenter, error) {
	var c CostCenter
	err := r.db.QueryRow(ctx, `
		SELECT id, number, name, description, created_at, updated_at
		FROM cost_centers WHERE number = $1`, number).
		Scan(&c.ID, &c.Number, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return CostCenter{}, mapPgError(err)
	}
	return c, nil
}

func (r *repository) CreateCostCenter(ctx context.Context, in DimensionInput) (CostCenter, error) {
	var c CostCenter
	err := r.db.QueryRow(ctx, `
		INSERT INTO cost_centers (number, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, number, name, description, created_at, updated_at`,
		in.Number, in.Name, in.Description).
		Scan(&c.ID, &c.Number, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return CostCenter{}, mapPgError(err)
	}
	return c, nil
}

func (r *repository) UpdateCostCenter(ctx context.Context, number string, in DimensionInput) (CostCenter, error) {
	var c CostCenter
	err := r.db.QueryRow(ctx, `
		UPDATE cost_centers SET name = $2, description = $3, updated_at = now()
		WHERE number = $1
		RETURNING id, number, name, description, created_at, updated_at`,
		number, in.Name, in.Description).
		Scan(&c.ID, &c.Number, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return CostCenter{}, mapPgError(err)
	}
	return c, nil
}

func (r *repository) DeleteCostCenter(ctx context.Context, number string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cost_centers WHERE number = $1`, number)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListCostObjects(ctx context.Context, query string) ([]CostObject, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, number, name, description, created_at, updated_at
		FROM cost_objects
		WHERE $1 = '' OR number ILIKE '%'||$1||'%' OR name ILIKE '%'||$1||'%'
		ORDER BY number`, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CostObject
	for rows.Next() {
		var c CostObject
		if err := rows.Scan(&c.ID, &c.Number, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) GetCostObject(ctx context.Context, number string) (CostObject, error) {
	var c CostObject
	err := r.db.QueryRow(ctx, `
		SELECT id, number, name, description, created_at, updated_at
		FROM cost_objects WHERE number = $1`, number).
		Scan(&c.ID, &c.Number, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return CostObject{}, mapPgError(err)
	}
	return c, nil
}

func (r *repository) CreateCostObject(ctx context.Context, in DimensionInput) (CostObject, error) {
	var c CostObject
	err := r.db.QueryRow(ctx, `
		INSERT INTO cost_objects (number, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, number, name, description, created_at, updated_at`,
		in.Number, in.Name, in.Description).
		Scan(&c.ID, &c.Number, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return CostObject{}, mapPgError(err)
	}
	return c, nil
}

func (r *repository) UpdateCostObject(ctx context.Context, number string, in DimensionInput) (CostObject, error) {
	var c CostObject
	err := r.db.QueryRow(ctx, `
		UPDATE cost_objects SET name = $2, description = $3, updated_at = now()
		WHERE number = $1
		RETURNING id, number, name, description, created_at, updated_at`,
		number, in.Name, in.Description).
		Scan(&c.ID, &c.Number, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return CostObject{}, mapPgError(err)
	}
	return c, nil
}

func (r *repository) DeleteCostObject(ctx context.Context, number string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cost_objects WHERE number = $1`, number)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
