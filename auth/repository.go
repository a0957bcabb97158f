package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobpazar/apperr"
)

var (
	// ErrUserNotFound signals that the user does not exist.
	ErrUserNotFound = apperr.New(apperr.KindNotFound, "auth: user not found", "Kullanıcı bulunamadı.")
	// ErrDuplicateUsername signals that the username or email is already registered.
	ErrDuplicateUsername = apperr.New(apperr.KindConflict, "auth: username or email already exists", "Bu kullanıcı adı veya e-posta zaten kayıtlı.")
)

// Repository handles data access for users.
type Repository interface {
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, userID string) (User, error)
	SetRequestedRole(ctx context.Context, userID string, role Role) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CountUsers(ctx context.Context) (int64, error)
	DeleteUser(ctx context.Context, userID string) error
}

// CreateUserParams contains write parameters for creating users.
type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	Role         Role
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed user repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, role, requested_role, created_at, updated_at`

// CreateUser inserts a new user with hashed password.
func (r *PGRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	const insertSQL = `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, insertSQL, params.Username, params.Email, params.PasswordHash, params.Role))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrDuplicateUsername
		}
		return User{}, fmt.Errorf("auth: create user: %w", err)
	}

	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *PGRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	const selectSQL = `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, selectSQL, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("auth: get user by username: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by ID.
func (r *PGRepository) GetUserByID(ctx context.Context, userID string) (User, error) {
	const selectSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, selectSQL, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("auth: get user by id: %w", err)
	}

	return user, nil
}

// SetRequestedRole records a pending role change for an administrator to review.
func (r *PGRepository) SetRequestedRole(ctx context.Context, userID string, role Role) (User, error) {
	const updateSQL = `
		UPDATE users
		SET requested_role = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, updateSQL, userID, role))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("auth: set requested role: %w", err)
	}
	return user, nil
}

// ListUsers returns every account ordered by creation time.
func (r *PGRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("auth: list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0, 16)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("auth: scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auth: iterate users: %w", err)
	}
	return users, nil
}

// CountUsers returns the number of registered accounts.
func (r *PGRepository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("auth: count users: %w", err)
	}
	return n, nil
}

// DeleteUser removes an account. Jobs, proposals and notifications owned by
// the user cascade.
func (r *PGRepository) DeleteUser(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("auth: delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		user      User
		requested *string
	)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&requested,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}

	if requested != nil {
		role := Role(*requested)
		user.RequestedRole = &role
	}
	return user, nil
}
