package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	t "github.com/evanhutnik/aegis-service/internal/types"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Accounts signs users up and checks their passwords.
type Accounts struct {
	store Store
	cost  int
}

type AccountsOption func(*Accounts)

// CostOption sets the bcrypt cost used for new password hashes.
func CostOption(cost int) AccountsOption {
	return func(a *Accounts) {
		a.cost = cost
	}
}

func NewAccounts(store Store, opts ...AccountsOption) *Accounts {
	a := &Accounts{store: store, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Accounts) Signup(ctx context.Context, fullName, email, password string) (*t.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return a.store.Create(ctx, strings.TrimSpace(fullName), normalizeEmail(email), string(hash))
}

func (a *Accounts) Login(ctx context.Context, email, password string) (*t.User, error) {
	u, err := a.store.ByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (a *Accounts) User(ctx context.Context, id int64) (*t.User, error) {
	return a.store.ByID(ctx, id)
}

// UpdateProfile changes a user's name and email.
func (a *Accounts) UpdateProfile(ctx context.Context, id int64, fullName, email string) (*t.User, error) {
	return a.store.Update(ctx, id, strings.TrimSpace(fullName), normalizeEmail(email))
}

// normalizeEmail makes addresses compare case-insensitively in every store.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
