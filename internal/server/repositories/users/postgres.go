package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/dmitrijs2005/meetauth/internal/common"
	"github.com/dmitrijs2005/meetauth/internal/dbx"
	"github.com/dmitrijs2005/meetauth/internal/server/models"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
)

const (
	publicColumns = `id, name, email, is_active, is_banned, is_admin, vision_tokens, last_login, created_at, updated_at`

	credentialColumns = publicColumns + `, password_hash, reset_password_token, reset_password_expires`

	emailConstraint = "users_email_key"
)

// mapper matches the `db` struct tags, the same mapping sqlx.DB uses.
var mapper = reflectx.NewMapperFunc("db", strings.ToLower)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPublic(row rowScanner) (*models.PublicUser, error) {
	u := &models.PublicUser{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.IsActive, &u.IsBanned, &u.IsAdmin,
		&u.VisionTokens, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.IsActive, &u.IsBanned, &u.IsAdmin,
		&u.VisionTokens, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
		&u.PasswordHash, &u.ResetPasswordToken, &u.ResetPasswordExpires)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// notFound turns sql.ErrNoRows into common.ErrNotFound and wraps the rest.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, name, email, password_hash, is_active, is_banned, is_admin,
		                    vision_tokens, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 `

	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Name, u.Email, u.PasswordHash, u.IsActive, u.IsBanned, u.IsAdmin,
		u.VisionTokens, u.CreatedAt, u.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err, emailConstraint) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return u, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.PublicUser, error) {
	query := `SELECT ` + publicColumns + ` FROM users WHERE id = $1`

	u, err := scanPublic(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.PublicUser, error) {
	query := `SELECT ` + publicColumns + ` FROM users WHERE email = $1`

	u, err := scanPublic(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *PostgresRepository) GetCredentialByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + credentialColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *PostgresRepository) Save(ctx context.Context, u *models.User) (*models.PublicUser, error) {
	query :=
		`UPDATE users
		 SET name = $2, email = $3, password_hash = $4,
		     is_active = $5, is_banned = $6, is_admin = $7,
		     last_login = $8, reset_password_token = $9, reset_password_expires = $10,
		     updated_at = $11
		 WHERE id = $1
		 RETURNING ` + publicColumns

	p, err := scanPublic(r.db.QueryRowContext(ctx, query,
		u.ID, u.Name, u.Email, u.PasswordHash,
		u.IsActive, u.IsBanned, u.IsAdmin,
		u.LastLogin, u.ResetPasswordToken, u.ResetPasswordExpires,
		u.UpdatedAt))
	if err != nil {
		if dbx.IsUniqueViolation(err, emailConstraint) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, notFound(err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context, f models.ListFilter, s models.Sort) iter.Seq2[*models.PublicUser, error] {
	return func(yield func(*models.PublicUser, error) bool) {
		query, args, err := buildListQuery(f, s)
		if err != nil {
			yield(nil, err)
			return
		}

		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, fmt.Errorf("db error: %w", err))
			return
		}
		defer rows.Close()

		sr := &sqlx.Rows{Rows: rows, Mapper: mapper}
		for sr.Next() {
			u := &models.PublicUser{}
			if err := sr.StructScan(u); err != nil {
				yield(nil, fmt.Errorf("db error: %w", err))
				return
			}
			if !yield(u, nil) {
				return
			}
		}
		if err := sr.Err(); err != nil {
			yield(nil, fmt.Errorf("db error: %w", err))
		}
	}
}

// buildListQuery renders the filter as positional parameters. Column names
// only ever come from models.Sort's closed set.
func buildListQuery(f models.ListFilter, s models.Sort) (string, []any, error) {
	if !s.Valid() {
		return "", nil, fmt.Errorf("%w: unknown sort field %q", common.ErrValidation, s.Field)
	}

	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Admin != nil {
		add("is_admin = $%d", *f.Admin)
	}
	if f.Banned != nil {
		add("is_banned = $%d", *f.Banned)
	}
	if f.Active != nil {
		add("is_active = $%d", *f.Active)
	}
	if f.EmailContains != "" {
		add("email LIKE $%d", "%"+escapeLike(common.NormalizeEmail(f.EmailContains))+"%")
	}

	var b strings.Builder
	b.WriteString("SELECT " + publicColumns + " FROM users")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	field := s.Field
	if field == "" {
		field = models.SortByCreatedAt
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	fmt.Fprintf(&b, " ORDER BY %s %s NULLS LAST, id ASC", field, dir)

	return b.String(), args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *PostgresRepository) SetFlag(ctx context.Context, id string, flag Flag, value bool) (*models.PublicUser, error) {
	if !flag.valid() {
		return nil, fmt.Errorf("%w: unknown flag %q", common.ErrValidation, flag)
	}

	query := `UPDATE users SET ` + string(flag) + ` = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + publicColumns

	u, err := scanPublic(r.db.QueryRowContext(ctx, query, id, value))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE users SET last_login = $2, updated_at = now() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) AddTokens(ctx context.Context, id string, delta int64) (int64, error) {
	query :=
		`UPDATE users SET vision_tokens = vision_tokens + $2, updated_at = now()
		 WHERE id = $1
		 RETURNING vision_tokens`

	var balance int64
	if err := r.db.QueryRowContext(ctx, query, id, delta).Scan(&balance); err != nil {
		if dbx.IsOutOfRange(err) {
			return 0, fmt.Errorf("%w: vision_tokens would overflow", common.ErrValidation)
		}
		return 0, notFound(err)
	}
	return balance, nil
}

func (r *PostgresRepository) DebitTokens(ctx context.Context, id string, amount int64) (int64, error) {
	query :=
		`UPDATE users SET vision_tokens = vision_tokens - $2, updated_at = now()
		 WHERE id = $1 AND vision_tokens >= $2
		 RETURNING vision_tokens`

	var balance int64
	err := r.db.QueryRowContext(ctx, query, id, amount).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("db error: %w", err)
	}

	// Nothing was written; tell a missing user from a short balance.
	if _, err := r.GetTokens(ctx, id); err != nil {
		return 0, err
	}
	return 0, common.ErrInsufficientBalance
}

func (r *PostgresRepository) SetTokens(ctx context.Context, id string, value int64) (*models.PublicUser, error) {
	query :=
		`UPDATE users SET vision_tokens = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + publicColumns

	u, err := scanPublic(r.db.QueryRowContext(ctx, query, id, value))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *PostgresRepository) GetTokens(ctx context.Context, id string) (int64, error) {
	query := `SELECT vision_tokens FROM users WHERE id = $1`

	var balance int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&balance); err != nil {
		return 0, notFound(err)
	}
	return balance, nil
}

func (r *PostgresRepository) SetPasswordHash(ctx context.Context, id string, hash string) (*models.PublicUser, error) {
	query :=
		`UPDATE users
		 SET password_hash = $2, reset_password_token = NULL, reset_password_expires = NULL, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + publicColumns

	u, err := scanPublic(r.db.QueryRowContext(ctx, query, id, hash))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *PostgresRepository) ReplacePasswordHash(ctx context.Context, id string, oldHash, newHash string) (bool, error) {
	query :=
		`UPDATE users SET password_hash = $3, updated_at = now()
		 WHERE id = $1 AND password_hash = $2`

	res, err := r.db.ExecContext(ctx, query, id, oldHash, newHash)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, id string, digest string, expires time.Time) error {
	query :=
		`UPDATE users
		 SET reset_password_token = $2, reset_password_expires = $3, updated_at = now()
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, digest, expires)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) ConsumeResetToken(ctx context.Context, digest string, newHash string, now time.Time) (*models.PublicUser, error) {
	query :=
		`UPDATE users
		 SET password_hash = $2, reset_password_token = NULL, reset_password_expires = NULL, updated_at = now()
		 WHERE reset_password_token = $1 AND reset_password_expires > $3
		 RETURNING ` + publicColumns

	u, err := scanPublic(r.db.QueryRowContext(ctx, query, digest, newHash, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrTokenInvalid
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}
