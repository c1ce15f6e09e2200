package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"go-tube-auth/internal/model"
)

// SQLiteUserRepository is the credential store for single-node deployments
// and tests. Timestamps are stored as unix milliseconds.
type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	u, err := scanSQLiteUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}

	return r.withHistory(ctx, u)
}

func (r *SQLiteUserRepository) FindByUsernameOrEmail(ctx context.Context, username string, email string) (model.User, error) {
	username, email = normalize(username), normalize(email)
	u, err := scanSQLiteUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE (? <> '' AND username = ?) OR (? <> '' AND email = ?)
		 ORDER BY created_at LIMIT 1`,
		username, username, email, email))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by username or email: %w", err)
	}

	return r.withHistory(ctx, u)
}

func (r *SQLiteUserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	u.Username = normalize(u.Username)
	u.Email = normalize(u.Email)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, full_name, password_hash, avatar, cover_image, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, u.Avatar, u.CoverImage,
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt))
	if isSQLiteUniqueViolation(err) {
		return model.User{}, model.ErrUserAlreadyExists
	}
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	u.RefreshToken = ""
	u.WatchHistory = []model.WatchedItem{}
	return u, nil
}

func (r *SQLiteUserRepository) UpdateFields(ctx context.Context, id string, update model.UserUpdate) (model.User, error) {
	if update.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	sets, args := updateAssignments(update, func(int) string { return "?" })
	args = append(args, toMillis(time.Now()), id)
	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = ? WHERE id = ? RETURNING %s`,
		strings.Join(sets, ", "), userColumns)

	u, err := scanSQLiteUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if isSQLiteUniqueViolation(err) {
		return model.User{}, model.ErrUserAlreadyExists
	}
	if err != nil {
		return model.User{}, fmt.Errorf("update user fields: %w", err)
	}

	return r.withHistory(ctx, u)
}

func (r *SQLiteUserRepository) UnsetField(ctx context.Context, id string, field model.UserField) error {
	value, ok := unsetValues[field]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrUnsupportedField, field)
	}

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s = ?, updated_at = ? WHERE id = ?`, field),
		value, toMillis(time.Now()), id)
	if err != nil {
		return fmt.Errorf("unset %s: %w", field, err)
	}
	return requireAffected(res, model.ErrUserNotFound)
}

func (r *SQLiteUserRepository) SwapRefreshToken(ctx context.Context, id string, expected string, next string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = ?, updated_at = ?
		 WHERE id = ? AND refresh_token = ?`,
		next, toMillis(time.Now()), id, expected)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	return requireAffected(res, model.ErrStaleRefreshToken)
}

func (r *SQLiteUserRepository) AppendWatchHistory(ctx context.Context, userID string, itemID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO watch_history (user_id, item_id, watched_at) VALUES (?, ?, ?)`,
		userID, itemID, toMillis(time.Now()))
	if isSQLiteForeignKeyViolation(err) {
		return model.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("append watch history: %w", err)
	}
	return nil
}

func (r *SQLiteUserRepository) WatchHistory(ctx context.Context, userID string) ([]model.WatchedItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT item_id, watched_at FROM watch_history WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list watch history: %w", err)
	}
	defer rows.Close()

	items := make([]model.WatchedItem, 0)
	for rows.Next() {
		var item model.WatchedItem
		var watchedAt int64
		if err := rows.Scan(&item.ItemID, &watchedAt); err != nil {
			return nil, fmt.Errorf("scan watch history: %w", err)
		}
		item.WatchedAt = fromMillis(watchedAt)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *SQLiteUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res, model.ErrUserNotFound)
}

func (r *SQLiteUserRepository) withHistory(ctx context.Context, u model.User) (model.User, error) {
	history, err := r.WatchHistory(ctx, u.ID)
	if err != nil {
		return model.User{}, err
	}
	u.WatchHistory = history
	return u, nil
}

func scanSQLiteUser(row *sql.Row) (model.User, error) {
	var u model.User
	var refreshToken sql.NullString
	var createdAt, updatedAt int64
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &refreshToken,
		&u.Avatar, &u.CoverImage, &createdAt, &updatedAt)
	if err != nil {
		return model.User{}, err
	}

	u.RefreshToken = refreshToken.String
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func requireAffected(res sql.Result, notAffected error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notAffected
	}
	return nil
}

func isSQLiteUniqueViolation(err error) bool {
	return sqliteConstraint(err, "unique constraint failed",
		sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY)
}

func isSQLiteForeignKeyViolation(err error) bool {
	return sqliteConstraint(err, "foreign key constraint failed", sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY)
}

// sqliteConstraint matches on the extended result code, falling back to the
// message when the driver only reports the primary SQLITE_CONSTRAINT code.
func sqliteConstraint(err error, message string, codes ...int) bool {
	if err == nil {
		return false
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		for _, code := range codes {
			if sqliteErr.Code() == code {
				return true
			}
		}
	}

	return strings.Contains(strings.ToLower(err.Error()), message)
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
