package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"barakapos/backend/internal/domain"
	"barakapos/backend/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store persists collection snapshots and user accounts in postgres.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := RunMigrations(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	logger.Info("checking for pending migrations")
	if err := goose.Up(db, "migrations"); err != nil {
		logger.Error("failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("migrations completed")
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM pos_collections WHERE key = $1`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	var head struct {
		Version int `json:"version"`
	}
	// bare arrays carry no version
	_ = json.Unmarshal(payload, &head)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pos_collections (key, version, payload, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (key)
		DO UPDATE SET version = EXCLUDED.version, payload = EXCLUDED.payload, updated_at = now()
	`, key, head.Version, string(payload))
	return err
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	role := user.Role
	if role == "" {
		role = domain.RoleCashier
	}
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pos_users (username, password_hash, role, display_name, active, created_at)
		VALUES ($1, $2, $3, $4, true, $5)
	`, username, user.Password, role, user.Name, createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username already exists", store.ErrValidation)
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password_hash, role, display_name, active, created_at
		FROM pos_users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Name, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}
	res, err := s.db.ExecContext(ctx, `UPDATE pos_users SET password_hash = $2 WHERE username = $1`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: user %s", store.ErrNotFound, username)
	}
	return nil
}

// EnsureUsers inserts the given accounts when the users table is empty.
func (s *Store) EnsureUsers(ctx context.Context, users []domain.UserAccount) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM pos_users`).Scan(&count); err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	for _, u := range users {
		if err := s.CreateUser(ctx, u); err != nil {
			return 0, err
		}
	}
	return len(users), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
