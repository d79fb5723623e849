package users

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/meetauth/internal/common"
	"github.com/dmitrijs2005/meetauth/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var publicCols = []string{
	"id", "name", "email", "is_active", "is_banned", "is_admin",
	"vision_tokens", "last_login", "created_at", "updated_at",
}

var credentialCols = append(append([]string{}, publicCols...),
	"password_hash", "reset_password_token", "reset_password_expires")

var ts = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func publicRow(id, email string, tokens int64) []driver.Value {
	return []driver.Value{id, "Name " + id, email, true, false, false, tokens, nil, ts, ts}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	u := &models.User{
		ID: "u1", Name: "Ann", Email: "ann@example.com", PasswordHash: "$2a$12$hash",
		IsActive: true, VisionTokens: 10, CreatedAt: ts, UpdatedAt: ts,
	}

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users\b.*VALUES\s*\(\$1,.*\$10\)`).
		WithArgs("u1", "Ann", "ann@example.com", "$2a$12$hash", true, false, false, int64(10), ts, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, u, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users\b`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &models.User{ID: "u1", Email: "a@b.c"})
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users\b`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{ID: "u1"})
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db down`, err.Error())
	assert.NotErrorIs(t, err, common.ErrDuplicateEmail)
}

func TestGetByID(t *testing.T) {
	q := `(?s)^SELECT\s+id,\s*name,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`

	t.Run("found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(q).WithArgs("u1").
			WillReturnRows(sqlmock.NewRows(publicCols).AddRow(publicRow("u1", "a@b.c", 7)...))

		u, err := repo.GetByID(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", u.ID)
		assert.Equal(t, int64(7), u.VisionTokens)
		assert.Nil(t, u.LastLogin)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(q).WithArgs("missing").WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), "missing")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(q).WithArgs("u1").WillReturnError(errors.New("conn reset"))

		_, err := repo.GetByID(context.Background(), "u1")
		require.Error(t, err)
		assert.Regexp(t, `db error: .*conn reset`, err.Error())
	})
}

func TestGetByEmail_DoesNotSelectCredential(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*updated_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`).
		WithArgs("a@b.c").
		WillReturnRows(sqlmock.NewRows(publicCols).AddRow(publicRow("u1", "a@b.c", 10)...))

	u, err := repo.GetByEmail(context.Background(), "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCredentialByEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	digest := "d1"
	exp := ts.Add(time.Hour)
	row := append(publicRow("u1", "a@b.c", 10), "$2a$12$hash", digest, exp)

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*password_hash,\s*reset_password_token,\s*reset_password_expires\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`).
		WithArgs("a@b.c").
		WillReturnRows(sqlmock.NewRows(credentialCols).AddRow(row...))

	u, err := repo.GetCredentialByEmail(context.Background(), "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "$2a$12$hash", u.PasswordHash)
	require.NotNil(t, u.ResetPasswordToken)
	assert.Equal(t, digest, *u.ResetPasswordToken)
	require.NotNil(t, u.ResetPasswordExpires)
	assert.True(t, exp.Equal(*u.ResetPasswordExpires))
}

func TestSave(t *testing.T) {
	// The SET list is matched in full, so vision_tokens cannot slip in.
	q := `(?s)^UPDATE\s+users\s+SET\s+name = \$2, email = \$3, password_hash = \$4,\s+` +
		`is_active = \$5, is_banned = \$6, is_admin = \$7,\s+` +
		`last_login = \$8, reset_password_token = \$9, reset_password_expires = \$10,\s+` +
		`updated_at = \$11\s+WHERE\s+id\s*=\s*\$1\s+RETURNING\s+id,`

	u := &models.User{ID: "u1", Name: "N", Email: "a@b.c", PasswordHash: "h", IsActive: true, UpdatedAt: ts}

	t.Run("ok", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(q).
			WithArgs("u1", "N", "a@b.c", "h", true, false, false, nil, nil, nil, ts).
			WillReturnRows(sqlmock.NewRows(publicCols).AddRow(publicRow("u1", "a@b.c", 3)...))

		p, err := repo.Save(context.Background(), u)
		require.NoError(t, err)
		assert.Equal(t, int64(3), p.VisionTokens)
	})

	t.Run("row gone", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(q).WillReturnError(sql.ErrNoRows)

		_, err := repo.Save(context.Background(), u)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("email taken", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(q).WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

		_, err := repo.Save(context.Background(), u)
		assert.ErrorIs(t, err, common.ErrDuplicateEmail)
	})
}

func TestBuildListQuery(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name     string
		filter   models.ListFilter
		sort     models.Sort
		wantSQL  string
		wantArgs []any
		wantErr  error
	}{
		{
			name:    "default",
			wantSQL: "SELECT " + publicColumns + " FROM users ORDER BY created_at ASC NULLS LAST, id ASC",
		},
		{
			name:     "all filters",
			filter:   models.ListFilter{Admin: &yes, Banned: &no, Active: &yes, EmailContains: " Ex_A%mple "},
			sort:     models.Sort{Field: models.SortByLastLogin, Desc: true},
			wantSQL:  "SELECT " + publicColumns + " FROM users WHERE is_admin = $1 AND is_banned = $2 AND is_active = $3 AND email LIKE $4 ORDER BY last_login DESC NULLS LAST, id ASC",
			wantArgs: []any{true, false, true, `%ex\_a\%mple%`},
		},
		{
			name:     "single filter",
			filter:   models.ListFilter{Banned: &yes},
			sort:     models.Sort{Field: models.SortByVisionTokens},
			wantSQL:  "SELECT " + publicColumns + " FROM users WHERE is_banned = $1 ORDER BY vision_tokens ASC NULLS LAST, id ASC",
			wantArgs: []any{true},
		},
		{
			name:    "injection in sort field",
			sort:    models.Sort{Field: "email; DROP TABLE users"},
			wantErr: common.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args, err := buildListQuery(tt.filter, tt.sort)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, q)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestList_StreamsAndRestarts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,.*FROM\s+users\s+ORDER\s+BY\s+email\s+ASC`
	for range 2 {
		mock.ExpectQuery(q).WillReturnRows(sqlmock.NewRows(publicCols).
			AddRow(publicRow("u1", "a@b.c", 1)...).
			AddRow(publicRow("u2", "b@b.c", 2)...))
	}

	seq := repo.List(context.Background(), models.ListFilter{}, models.Sort{Field: models.SortByEmail})

	for pass := range 2 {
		var ids []string
		for u, err := range seq {
			require.NoError(t, err)
			ids = append(ids, u.ID)
		}
		assert.Equal(t, []string{"u1", "u2"}, ids, "pass %d", pass)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_EarlyBreak(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT`).WillReturnRows(sqlmock.NewRows(publicCols).
		AddRow(publicRow("u1", "a@b.c", 1)...).
		AddRow(publicRow("u2", "b@b.c", 2)...)).
		RowsWillBeClosed()

	n := 0
	for _, err := range repo.List(context.Background(), models.ListFilter{}, models.Sort{}) {
		require.NoError(t, err)
		n++
		break
	}
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_Errors(t *testing.T) {
	t.Run("bad sort", func(t *testing.T) {
		repo, _, db := newRepoWithMock(t)
		defer db.Close()

		for _, err := range repo.List(context.Background(), models.ListFilter{}, models.Sort{Field: "password_hash"}) {
			assert.ErrorIs(t, err, common.ErrValidation)
		}
	})

	t.Run("query error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(`(?s)^SELECT`).WillReturnError(errors.New("boom"))

		var errs []error
		for _, err := range repo.List(context.Background(), models.ListFilter{}, models.Sort{}) {
			errs = append(errs, err)
		}
		require.Len(t, errs, 1)
		assert.Regexp(t, `db error: .*boom`, errs[0].Error())
	})

	t.Run("row error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(`(?s)^SELECT`).WillReturnRows(sqlmock.NewRows(publicCols).
			AddRow(publicRow("u1", "a@b.c", 1)...).
			AddRow(publicRow("u2", "b@b.c", 2)...).
			RowError(1, errors.New("broken pipe")))

		var got []string
		var last error
		for u, err := range repo.List(context.Background(), models.ListFilter{}, models.Sort{}) {
			if err != nil {
				last = err
				continue
			}
			got = append(got, u.ID)
		}
		assert.Equal(t, []string{"u1"}, got)
		require.Error(t, last)
		assert.Regexp(t, `broken pipe`, last.Error())
	})
}

func TestSetFlag(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		row := publicRow("u1", "a@b.c", 1)
		row[5] = true
		mock.ExpectQuery(`(?s)^UPDATE\s+users\s+SET\s+is_admin\s*=\s*\$2,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+RETURNING`).
			WithArgs("u1", true).
			WillReturnRows(sqlmock.NewRows(publicCols).AddRow(row...))

		u, err := repo.SetFlag(context.Background(), "u1", FlagAdmin, true)
		require.NoError(t, err)
		assert.True(t, u.IsAdmin)
	})

	t.Run("unknown flag never reaches the db", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		_, err := repo.SetFlag(context.Background(), "u1", Flag("password_hash"), true)
		assert.ErrorIs(t, err, common.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(`(?s)^UPDATE\s+users\s+SET\s+is_banned`).WillReturnError(sql.ErrNoRows)

		_, err := repo.SetFlag(context.Background(), "u1", FlagBanned, true)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestTouchLastLogin(t *testing.T) {
	q := `(?s)^UPDATE\s+users\s+SET\s+last_login\s*=\s*\$2`

	t.Run("ok", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(q).WithArgs("u1", ts).WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.TouchLastLogin(context.Background(), "u1", ts))
	})

	t.Run("no row", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(q).WithArgs("u1", ts).WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.TouchLastLogin(context.Background(), "u1", ts), common.ErrNotFound)
	})
}

func TestAddTokens(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^UPDATE\s+users\s+SET\s+vision_tokens\s*=\s*vision_tokens\s*\+\s*\$2.*RETURNING\s+vision_tokens$`).
		WithArgs("u1", int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"vision_tokens"}).AddRow(int64(15)))

	got, err := repo.AddTokens(context.Background(), "u1", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(15), got)
}

func TestAddTokens_OutOfRange(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^UPDATE\s+users\s+SET\s+vision_tokens\s*=\s*vision_tokens\s*\+\s*\$2`).
		WithArgs("u1", int64(5)).
		WillReturnError(&pgconn.PgError{Code: "22003", Message: "bigint out of range"})

	_, err := repo.AddTokens(context.Background(), "u1", 5)
	assert.ErrorIs(t, err, common.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitTokens(t *testing.T) {
	debit := `(?s)^UPDATE\s+users\s+SET\s+vision_tokens\s*=\s*vision_tokens\s*-\s*\$2.*WHERE\s+id\s*=\s*\$1\s+AND\s+vision_tokens\s*>=\s*\$2`
	balance := `(?s)^SELECT\s+vision_tokens\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`

	t.Run("covered", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(debit).WithArgs("u1", int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"vision_tokens"}).AddRow(int64(6)))

		got, err := repo.DebitTokens(context.Background(), "u1", 4)
		require.NoError(t, err)
		assert.Equal(t, int64(6), got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(debit).WithArgs("u1", int64(11)).WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(balance).WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"vision_tokens"}).AddRow(int64(10)))

		_, err := repo.DebitTokens(context.Background(), "u1", 11)
		assert.ErrorIs(t, err, common.ErrInsufficientBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(debit).WithArgs("ghost", int64(1)).WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(balance).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

		_, err := repo.DebitTokens(context.Background(), "ghost", 1)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(debit).WillReturnError(errors.New("deadlock"))

		_, err := repo.DebitTokens(context.Background(), "u1", 1)
		require.Error(t, err)
		assert.Regexp(t, `db error: .*deadlock`, err.Error())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSetTokens(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^UPDATE\s+users\s+SET\s+vision_tokens\s*=\s*\$2,`).
		WithArgs("u1", int64(0)).
		WillReturnRows(sqlmock.NewRows(publicCols).AddRow(publicRow("u1", "a@b.c", 0)...))

	u, err := repo.SetTokens(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), u.VisionTokens)
}

func TestSetPasswordHash_ClearsResetPair(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$2,\s*reset_password_token\s*=\s*NULL,\s*reset_password_expires\s*=\s*NULL`).
		WithArgs("u1", "newhash").
		WillReturnRows(sqlmock.NewRows(publicCols).AddRow(publicRow("u1", "a@b.c", 1)...))

	_, err := repo.SetPasswordHash(context.Background(), "u1", "newhash")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacePasswordHash(t *testing.T) {
	q := `(?s)^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$3.*WHERE\s+id\s*=\s*\$1\s+AND\s+password_hash\s*=\s*\$2$`

	for _, tc := range []struct {
		affected int64
		want     bool
	}{{1, true}, {0, false}} {
		repo, mock, db := newRepoWithMock(t)

		mock.ExpectExec(q).WithArgs("u1", "old", "new").WillReturnResult(sqlmock.NewResult(0, tc.affected))

		ok, err := repo.ReplacePasswordHash(context.Background(), "u1", "old", "new")
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok)
		db.Close()
	}
}

func TestSetResetToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	exp := ts.Add(time.Hour)
	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+reset_password_token\s*=\s*\$2,\s*reset_password_expires\s*=\s*\$3`).
		WithArgs("u1", "digest", exp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SetResetToken(context.Background(), "u1", "digest", exp))
}

func TestConsumeResetToken(t *testing.T) {
	q := `(?s)^UPDATE\s+users.*WHERE\s+reset_password_token\s*=\s*\$1\s+AND\s+reset_password_expires\s*>\s*\$3\s+RETURNING`

	t.Run("match", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(q).WithArgs("digest", "newhash", ts).
			WillReturnRows(sqlmock.NewRows(publicCols).AddRow(publicRow("u1", "a@b.c", 1)...))

		u, err := repo.ConsumeResetToken(context.Background(), "digest", "newhash", ts)
		require.NoError(t, err)
		assert.Equal(t, "u1", u.ID)
	})

	t.Run("no match or expired", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(q).WithArgs("digest", "newhash", ts).WillReturnError(sql.ErrNoRows)

		_, err := repo.ConsumeResetToken(context.Background(), "digest", "newhash", ts)
		assert.ErrorIs(t, err, common.ErrTokenInvalid)
	})
}
