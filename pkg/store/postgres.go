package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/samahstore/catalog/pkg/catalog"
)

// PostgreSQL error codes mapped to catalog errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Millisecond precision keeps stored timestamps equal to what validators encode.
const nowMillis = "date_trunc('milliseconds', clock_timestamp())"

// nextCategoryStamp is later than every category row, so a write always
// moves the collection's newest timestamp. Callers hold categoriesLock.
const nextCategoryStamp = "GREATEST(" + nowMillis + ", " +
	"(SELECT COALESCE(max(updated_at), '-infinity') FROM categories) + interval '1 millisecond')"

// categoriesLock is the advisory lock key serializing category writes.
const categoriesLock int64 = 0x636174730001

func lockCategories(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", categoriesLock)
	return err
}

// Postgres implements the category and product repositories on PostgreSQL.
type Postgres struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgres wraps an open pool.
func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) *Postgres {
	if pool == nil {
		panic("postgres pool cannot be nil")
	}
	return &Postgres{
		pool:   pool,
		logger: logger,
	}
}

// OpenPostgres parses databaseURL and opens a pool.
func OpenPostgres(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	return pool, nil
}

// Categories returns the category repository.
func (p *Postgres) Categories() catalog.CategoryRepository {
	return pgCategories{p}
}

// Products returns the product repository.
func (p *Postgres) Products() catalog.ProductRepository {
	return pgProducts{p}
}

// Ping checks the connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// mapError converts driver errors into catalog errors.
func mapError(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, catalog.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation:
			return fmt.Errorf("%s: %s: %w", what, pgErr.ConstraintName, catalog.ErrConflict)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

type pgCategories struct{ p *Postgres }

const categoryColumns = "id, name, slug, active, updated_at"

func scanCategory(row pgx.Row) (catalog.Category, error) {
	var c catalog.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Active, &c.UpdatedAt)
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, err
}

func (r pgCategories) ListActive(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.p.pool.Query(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE active ORDER BY name, id")
	if err != nil {
		return nil, mapError(err, "list categories")
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Category, error) {
		return scanCategory(row)
	})
	if err != nil {
		return nil, mapError(err, "scan categories")
	}
	return list, nil
}

func (r pgCategories) Get(ctx context.Context, id int64) (catalog.Category, error) {
	c, err := scanCategory(r.p.pool.QueryRow(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id = $1", id))
	if err != nil {
		return catalog.Category{}, mapError(err, "category "+strconv.FormatInt(id, 10))
	}
	return c, nil
}

func (r pgCategories) Create(ctx context.Context, in catalog.CategoryInput) (catalog.Category, error) {
	var c catalog.Category
	err := pgx.BeginFunc(ctx, r.p.pool, func(tx pgx.Tx) error {
		if err := lockCategories(ctx, tx); err != nil {
			return err
		}
		var err error
		c, err = scanCategory(tx.QueryRow(ctx,
			"INSERT INTO categories (name, slug, active, created_at, updated_at) "+
				"VALUES ($1, $2, $3, "+nowMillis+", "+nextCategoryStamp+") RETURNING "+categoryColumns,
			in.Name, in.Slug, in.Active))
		return err
	})
	if err != nil {
		return catalog.Category{}, mapError(err, "insert category")
	}
	r.p.logger.Debug().Int64("category_id", c.ID).Msg("Category created")
	return c, nil
}

func (r pgCategories) Update(ctx context.Context, id int64, in catalog.CategoryInput) (catalog.Category, error) {
	var c catalog.Category
	err := pgx.BeginFunc(ctx, r.p.pool, func(tx pgx.Tx) error {
		if err := lockCategories(ctx, tx); err != nil {
			return err
		}
		var err error
		c, err = scanCategory(tx.QueryRow(ctx,
			"UPDATE categories SET name = $2, slug = $3, active = $4, "+
				"updated_at = "+nextCategoryStamp+" "+
				"WHERE id = $1 RETURNING "+categoryColumns,
			id, in.Name, in.Slug, in.Active))
		return err
	})
	if err != nil {
		return catalog.Category{}, mapError(err, "update category "+strconv.FormatInt(id, 10))
	}
	r.p.logger.Debug().Int64("category_id", c.ID).Msg("Category updated")
	return c, nil
}

func (r pgCategories) Delete(ctx context.Context, id int64) error {
	err := pgx.BeginFunc(ctx, r.p.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM categories WHERE id = $1", id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return mapError(err, "delete category "+strconv.FormatInt(id, 10))
	}
	r.p.logger.Debug().Int64("category_id", id).Msg("Category deleted")
	return nil
}

type pgProducts struct{ p *Postgres }

func (r pgProducts) GetBySlug(ctx context.Context, slug string) (catalog.ProductDetail, error) {
	var (
		p    catalog.ProductDetail
		desc *string
	)
	err := r.p.pool.QueryRow(ctx, `
		SELECT p.id, p.category_id, c.slug, p.name, p.slug, p.description, p.price, p.active, p.updated_at
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.slug = $1 AND p.active AND NOT p.deleted`, slug).
		Scan(&p.ID, &p.CategoryID, &p.CategorySlug, &p.Name, &p.Slug, &desc, &p.Price, &p.Active, &p.UpdatedAt)
	if err != nil {
		return catalog.ProductDetail{}, mapError(err, "product "+strconv.Quote(slug))
	}
	if desc != nil {
		p.Description = *desc
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (r pgProducts) Search(ctx context.Context, q catalog.Query) (catalog.Page[catalog.ProductSummary], error) {
	where, args := searchFilter(q)

	var total int
	if err := r.p.pool.QueryRow(ctx, "SELECT count(*) FROM products p WHERE "+where, args...).Scan(&total); err != nil {
		return catalog.Page[catalog.ProductSummary]{}, mapError(err, "count products")
	}

	args = append(args, q.Size, q.Offset())
	rows, err := r.p.pool.Query(ctx,
		"SELECT p.id, p.category_id, p.name, p.slug, p.price FROM products p WHERE "+where+
			" ORDER BY p.created_at DESC, p.id DESC"+
			" LIMIT $"+strconv.Itoa(len(args)-1)+" OFFSET $"+strconv.Itoa(len(args)),
		args...)
	if err != nil {
		return catalog.Page[catalog.ProductSummary]{}, mapError(err, "search products")
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.ProductSummary, error) {
		var s catalog.ProductSummary
		err := row.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Slug, &s.Price)
		return s, err
	})
	if err != nil {
		return catalog.Page[catalog.ProductSummary]{}, mapError(err, "scan products")
	}
	return catalog.NewPage(items, q, total), nil
}

// searchFilter builds the WHERE clause and its positional arguments.
func searchFilter(q catalog.Query) (string, []any) {
	conds := []string{"p.active", "NOT p.deleted"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if needle := strings.TrimSpace(q.Q); needle != "" {
		pattern := arg("%" + escapeLike(needle) + "%")
		conds = append(conds, "(p.name ILIKE "+pattern+" OR p.description ILIKE "+pattern+")")
	}
	if q.CategoryID != 0 {
		conds = append(conds, "p.category_id = "+arg(q.CategoryID))
	}
	if q.MinPrice != nil {
		conds = append(conds, "p.price >= "+arg(*q.MinPrice))
	}
	if q.MaxPrice != nil {
		conds = append(conds, "p.price <= "+arg(*q.MaxPrice))
	}
	return strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
