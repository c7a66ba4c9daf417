package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	t "github.com/evanhutnik/aegis-service/internal/types"
)

var (
	ErrDuplicateEmail = errors.New("email already exists")
	ErrNotFound       = errors.New("user not found")
)

const uniqueViolation = "23505"

// Store persists users.
type Store interface {
	Create(ctx context.Context, fullName, email, passwordHash string) (*t.User, error)
	ByEmail(ctx context.Context, email string) (*t.User, error)
	ByID(ctx context.Context, id int64) (*t.User, error)
	Update(ctx context.Context, id int64, fullName, email string) (*t.User, error)
}

// PGStore keeps users in the PostgreSQL users table.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.MaxConns = 10
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *PGStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			full_name VARCHAR(100) NOT NULL,
			email VARCHAR(100) UNIQUE NOT NULL,
			password VARCHAR(200) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PGStore) Close() {
	s.pool.Close()
}

func (s *PGStore) Create(ctx context.Context, fullName, email, passwordHash string) (*t.User, error) {
	u := &t.User{PasswordHash: passwordHash}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (full_name, email, password) VALUES ($1, $2, $3)
		 RETURNING id, full_name, email, created_at`,
		fullName, email, passwordHash,
	).Scan(&u.ID, &u.FullName, &u.Email, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

func (s *PGStore) ByEmail(ctx context.Context, email string) (*t.User, error) {
	return s.queryOne(ctx, `SELECT id, full_name, email, password, created_at FROM users WHERE lower(email) = lower($1)`, email)
}

func (s *PGStore) ByID(ctx context.Context, id int64) (*t.User, error) {
	return s.queryOne(ctx, `SELECT id, full_name, email, password, created_at FROM users WHERE id = $1`, id)
}

func (s *PGStore) Update(ctx context.Context, id int64, fullName, email string) (*t.User, error) {
	u := &t.User{}
	err := s.pool.QueryRow(ctx,
		`UPDATE users SET full_name = $1, email = $2 WHERE id = $3
		 RETURNING id, full_name, email, password, created_at`,
		fullName, email, id,
	).Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

func (s *PGStore) queryOne(ctx context.Context, query string, arg any) (*t.User, error) {
	u := &t.User{}
	err := s.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// MemoryStore keeps users in process memory. It backs the service when no
// database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*t.User
	byEmail map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[int64]*t.User),
		byEmail: make(map[string]int64),
	}
}

func (s *MemoryStore) Create(_ context.Context, fullName, email, passwordHash string) (*t.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, ok := s.byEmail[key]; ok {
		return nil, ErrDuplicateEmail
	}
	s.nextID++
	u := &t.User{
		ID:           s.nextID,
		FullName:     fullName,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.byID[u.ID] = u
	s.byEmail[key] = u.ID
	copied := *u
	return &copied, nil
}

func (s *MemoryStore) ByEmail(_ context.Context, email string) (*t.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *s.byID[id]
	return &copied, nil
}

func (s *MemoryStore) ByID(_ context.Context, id int64) (*t.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *MemoryStore) Update(_ context.Context, id int64, fullName, email string) (*t.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	key := strings.ToLower(email)
	if owner, ok := s.byEmail[key]; ok && owner != id {
		return nil, ErrDuplicateEmail
	}
	delete(s.byEmail, strings.ToLower(u.Email))
	u.FullName = fullName
	u.Email = email
	s.byEmail[key] = id
	copied := *u
	return &copied, nil
}
