package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-tube-auth/internal/model"
)

const userColumns = `id, username, email, full_name, password_hash, refresh_token, avatar, cover_image, created_at, updated_at`

// unsetValues lists the columns UnsetField may clear and the value they revert to.
var unsetValues = map[model.UserField]any{
	model.FieldRefreshToken: nil,
	model.FieldAvatar:       "",
	model.FieldCoverImage:   "",
}

// UserRepository is the PostgreSQL credential store.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	u, err := scanPgUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}

	return r.withHistory(ctx, u)
}

// FindByUsernameOrEmail matches either field; an empty argument never matches.
func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, username string, email string) (model.User, error) {
	u, err := scanPgUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
		 ORDER BY created_at LIMIT 1`,
		normalize(username), normalize(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by username or email: %w", err)
	}

	return r.withHistory(ctx, u)
}

func (r *UserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	u.Username = normalize(u.Username)
	u.Email = normalize(u.Email)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, full_name, password_hash, avatar, cover_image, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, u.Avatar, u.CoverImage, u.CreatedAt, u.UpdatedAt)
	if isPgCode(err, "23505") {
		return model.User{}, model.ErrUserAlreadyExists
	}
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	u.RefreshToken = ""
	u.WatchHistory = []model.WatchedItem{}
	return u, nil
}

func (r *UserRepository) UpdateFields(ctx context.Context, id string, update model.UserUpdate) (model.User, error) {
	if update.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	sets, args := updateAssignments(update, func(n int) string { return fmt.Sprintf("$%d", n) })
	args = append(args, time.Now().UTC(), id)
	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = $%d WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), userColumns)

	u, err := scanPgUser(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if isPgCode(err, "23505") {
		return model.User{}, model.ErrUserAlreadyExists
	}
	if err != nil {
		return model.User{}, fmt.Errorf("update user fields: %w", err)
	}

	return r.withHistory(ctx, u)
}

func (r *UserRepository) UnsetField(ctx context.Context, id string, field model.UserField) error {
	value, ok := unsetValues[field]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrUnsupportedField, field)
	}

	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE users SET %s = $2, updated_at = $3 WHERE id = $1`, field),
		id, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("unset %s: %w", field, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// SwapRefreshToken replaces the stored refresh token only if it still equals
// expected. The comparison and the write happen in one statement.
func (r *UserRepository) SwapRefreshToken(ctx context.Context, id string, expected string, next string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET refresh_token = $3, updated_at = $4
		 WHERE id = $1 AND refresh_token = $2`,
		id, expected, next, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrStaleRefreshToken
	}
	return nil
}

func (r *UserRepository) AppendWatchHistory(ctx context.Context, userID string, itemID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO watch_history (user_id, item_id, watched_at) VALUES ($1, $2, $3)`,
		userID, itemID, time.Now().UTC())
	if isPgCode(err, "23503") {
		return model.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("append watch history: %w", err)
	}
	return nil
}

func (r *UserRepository) WatchHistory(ctx context.Context, userID string) ([]model.WatchedItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT item_id, watched_at FROM watch_history WHERE user_id = $1 ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list watch history: %w", err)
	}
	defer rows.Close()

	items := make([]model.WatchedItem, 0)
	for rows.Next() {
		var item model.WatchedItem
		if err := rows.Scan(&item.ItemID, &item.WatchedAt); err != nil {
			return nil, fmt.Errorf("scan watch history: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) withHistory(ctx context.Context, u model.User) (model.User, error) {
	history, err := r.WatchHistory(ctx, u.ID)
	if err != nil {
		return model.User{}, err
	}
	u.WatchHistory = history
	return u, nil
}

func scanPgUser(row pgx.Row) (model.User, error) {
	var u model.User
	var refreshToken *string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &refreshToken,
		&u.Avatar, &u.CoverImage, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if refreshToken != nil {
		u.RefreshToken = *refreshToken
	}
	return u, nil
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
