package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/primeslot/primeslot/pkg/apperr"
	"github.com/primeslot/primeslot/pkg/roster"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

const minPasswordLen = 8

// Admins stores administrator accounts
type Admins struct {
	store storage.Store
	now   func() time.Time
	// cost is lowered in tests
	cost int
}

// NewAdmins creates an admin account store
func NewAdmins(store storage.Store) *Admins {
	return &Admins{store: store, now: time.Now, cost: bcrypt.DefaultCost}
}

// Create registers a new administrator. The email must not be in use.
func (a *Admins) Create(ctx context.Context, email, password string) (*types.Admin, error) {
	email = strings.TrimSpace(email)
	if !roster.ValidEmail(email) {
		return nil, apperr.Validation("invalid email")
	}
	if len(password) < minPasswordLen {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	admin := &types.Admin{
		ID:           storage.NewKey(),
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		CreatedAt:    a.now().UnixMilli(),
	}
	key := roster.EmailKey(email)
	if !storage.ValidKey(key) {
		return nil, apperr.Validation("invalid email")
	}
	err = a.store.Transact(ctx, func(tx storage.Tx) error {
		taken, err := tx.Exists(storage.AdminEmailIndexPath(key))
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("admin %s already exists", admin.Email)
		}
		if err := tx.Set(storage.AdminPath(admin.ID), admin); err != nil {
			return err
		}
		return tx.Set(storage.AdminEmailIndexPath(key), admin.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return admin, nil
}

// Get returns the administrator with id
func (a *Admins) Get(ctx context.Context, id string) (*types.Admin, error) {
	if !storage.ValidKey(id) {
		return nil, apperr.Validation("invalid admin id")
	}
	var admin types.Admin
	ok, err := a.store.Get(ctx, storage.AdminPath(id), &admin)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("admin %s", id)
	}
	return &admin, nil
}

// Authenticate checks email and password. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (a *Admins) Authenticate(ctx context.Context, email, password string) (*types.Admin, error) {
	key := roster.EmailKey(email)
	if key == "" || password == "" || !storage.ValidKey(key) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	var id string
	ok, err := a.store.Get(ctx, storage.AdminEmailIndexPath(key), &id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}
	if !ok {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	admin, err := a.Get(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	err = bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, apperr.Internal("failed to verify password", err)
	}
	return admin, nil
}
