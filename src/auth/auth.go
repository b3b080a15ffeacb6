// Package auth implements user accounts and request authentication.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUnauthorized is returned when credentials or tokens do not check
	// out.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEmailTaken is returned when registering an email that already has
	// an account.
	ErrEmailTaken = errors.New("email already registered")
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Store persists users in the users table of the shared catalog database.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Register creates an account with a bcrypt hashed password.
func (store *Store) Register(ctx context.Context, email, displayName, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return User{}, errors.New("email and password are required")
	}
	if _, err := store.UserByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrUnauthorized) {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	_, err = store.db.ExecContext(ctx, store.db.Rebind(
		`INSERT INTO users (id, email, display_name, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)`),
		user.ID, user.Email, user.DisplayName, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate checks an email and password pair.
func (store *Store) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := store.UserByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if user.PasswordHash == "" {
		// OAuth-only account.
		return User{}, ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, ErrUnauthorized
	}
	return user, nil
}

func (store *Store) UserByID(ctx context.Context, id string) (User, error) {
	var user User
	err := store.db.GetContext(ctx, &user, store.db.Rebind(
		`SELECT * FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUnauthorized
	}
	return user, err
}

func (store *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := store.db.GetContext(ctx, &user, store.db.Rebind(
		`SELECT * FROM users WHERE email = ?`), strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUnauthorized
	}
	return user, err
}

// EnsureUser finds or creates an account for an externally authenticated
// identity. Such accounts have no password and can only sign in through
// their provider.
func (store *Store) EnsureUser(ctx context.Context, email, displayName string) (User, error) {
	user, err := store.UserByEmail(ctx, email)
	if err == nil {
		return user, nil
	} else if !errors.Is(err, ErrUnauthorized) {
		return User{}, err
	}
	user = User{
		ID:          uuid.NewString(),
		Email:       strings.ToLower(strings.TrimSpace(email)),
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	_, err = store.db.ExecContext(ctx, store.db.Rebind(
		`INSERT INTO users (id, email, display_name, password_hash, created_at)
		 VALUES (?, ?, ?, '', ?)`),
		user.ID, user.Email, user.DisplayName, user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}
