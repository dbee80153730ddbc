// Package repository implements the URL store on top of database/sql. The
// same code serves a SQLite file and a PostgreSQL database; only the schema
// and the placeholder style differ between them.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/atinyakov/shortlink/internal/errx"
	"github.com/atinyakov/shortlink/internal/models"
)

// Dialect is the database/sql driver name a repository talks to.
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "pgx"
)

// ErrConflict is the cause attached to unique violations on short_code.
var ErrConflict = errors.New("data conflict")

var schema = map[Dialect][]string{
	SQLite: {
		`CREATE TABLE IF NOT EXISTS urls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			short_code TEXT NOT NULL UNIQUE,
			long_url TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_urls_created_at ON urls (created_at)`,
	},
	Postgres: {
		`CREATE TABLE IF NOT EXISTS urls (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			short_code VARCHAR(64) NOT NULL UNIQUE,
			long_url TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_urls_created_at ON urls (created_at)`,
	},
}

const (
	insertQuery = `INSERT INTO urls (short_code, long_url, created_at) VALUES (?, ?, ?) RETURNING id`
	byCodeQuery = `SELECT id, short_code, long_url, created_at FROM urls WHERE short_code = ?`
	byIDQuery   = `SELECT id, short_code, long_url, created_at FROM urls WHERE id = ?`
	listQuery   = `SELECT id, short_code, long_url, created_at FROM urls ORDER BY created_at DESC, id DESC`
	existsQuery = `SELECT EXISTS (SELECT 1 FROM urls WHERE short_code = ?)`
	updateQuery = `UPDATE urls SET short_code = ?, long_url = ? WHERE id = ?`
	deleteQuery = `DELETE FROM urls WHERE id = ?`
)

// InitDB opens the database, checks the connection and creates the schema.
func InitDB(ctx context.Context, dialect Dialect, dsn string, logger *zap.Logger) (*sql.DB, error) {
	stmts, ok := schema[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, err
	}
	if dialect == SQLite {
		// One writer at a time; concurrent writers would fail with SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	logger.Info("database connected and table ready", zap.String("dialect", string(dialect)))
	return db, nil
}

// URLRepository is a Storage backed by a *sql.DB connection pool.
type URLRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
	now     func() time.Time
}

func NewURLRepository(db *sql.DB, dialect Dialect, logger *zap.Logger) *URLRepository {
	return &URLRepository{
		db:      db,
		dialect: dialect,
		logger:  logger,
		now:     time.Now,
	}
}

func (r *URLRepository) Create(ctx context.Context, longURL, shortCode string) (*models.URL, error) {
	const op = "repository.Create"

	record := &models.URL{
		ShortCode: shortCode,
		LongURL:   longURL,
		CreatedAt: r.now().UTC().Truncate(time.Microsecond),
	}

	err := r.db.QueryRowContext(ctx, r.rebind(insertQuery), shortCode, longURL, record.CreatedAt).Scan(&record.ID)
	if isUniqueViolation(err) {
		return nil, errx.E(op, errx.Conflict, fmt.Errorf("short code %q: %w", shortCode, ErrConflict))
	}
	if err != nil {
		r.logger.Error("insert failed", zap.String("code", shortCode), zap.Error(err))
		return nil, errx.E(op, errx.Unavailable, err)
	}

	return record, nil
}

func (r *URLRepository) FindByCode(ctx context.Context, shortCode string) (*models.URL, error) {
	record, err := scanURL(r.db.QueryRowContext(ctx, r.rebind(byCodeQuery), shortCode))
	if err != nil {
		return nil, errx.E("repository.FindByCode", errx.Unavailable, err)
	}
	return record, nil
}

func (r *URLRepository) FindByID(ctx context.Context, id int64) (*models.URL, error) {
	record, err := scanURL(r.db.QueryRowContext(ctx, r.rebind(byIDQuery), id))
	if err != nil {
		return nil, errx.E("repository.FindByID", errx.Unavailable, err)
	}
	return record, nil
}

func (r *URLRepository) List(ctx context.Context) ([]models.URL, error) {
	const op = "repository.List"

	rows, err := r.db.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}
	defer rows.Close()

	records := make([]models.URL, 0)
	for rows.Next() {
		var u models.URL
		if err := rows.Scan(&u.ID, &u.ShortCode, &u.LongURL, &u.CreatedAt); err != nil {
			return nil, errx.E(op, errx.Unavailable, err)
		}
		u.CreatedAt = u.CreatedAt.UTC()
		records = append(records, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}

	return records, nil
}

func (r *URLRepository) ExistsByCode(ctx context.Context, shortCode string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, r.rebind(existsQuery), shortCode).Scan(&exists); err != nil {
		return false, errx.E("repository.ExistsByCode", errx.Unavailable, err)
	}
	return exists, nil
}

// Update changes both columns and reads the row back in one transaction.
// A missing id yields nil with no error.
func (r *URLRepository) Update(ctx context.Context, id int64, shortCode, longURL string) (*models.URL, error) {
	const op = "repository.Update"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, r.rebind(updateQuery), shortCode, longURL, id)
	if isUniqueViolation(err) {
		return nil, errx.E(op, errx.Conflict, fmt.Errorf("short code %q: %w", shortCode, ErrConflict))
	}
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}
	if n == 0 {
		return nil, nil
	}

	record, err := scanURL(tx.QueryRowContext(ctx, r.rebind(byIDQuery), id))
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}

	return record, nil
}

// Delete reports whether a row was actually removed.
func (r *URLRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const op = "repository.Delete"

	res, err := r.db.ExecContext(ctx, r.rebind(deleteQuery), id)
	if err != nil {
		return false, errx.E(op, errx.Unavailable, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errx.E(op, errx.Unavailable, err)
	}
	return n > 0, nil
}

func (r *URLRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// rebind rewrites ? placeholders into $1, $2, ... for PostgreSQL.
func (r *URLRepository) rebind(query string) string {
	if r.dialect != Postgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// scanURL returns nil, nil when the row does not exist.
func scanURL(row *sql.Row) (*models.URL, error) {
	var u models.URL
	err := row.Scan(&u.ID, &u.ShortCode, &u.LongURL, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	return false
}
