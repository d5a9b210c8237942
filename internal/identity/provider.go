package identity

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Provider manages authentication identities. It is deliberately separate
// from the profile store: creating an identity and creating a profile are two
// distinct steps, and a failed profile write is compensated by deleting the
// identity again.
type Provider interface {
	Create(ctx context.Context, email, password string) (string, error)
	Verify(ctx context.Context, email, password string) (string, error)
	UpdateEmail(ctx context.Context, uid, newEmail, currentPassword string) error
	Delete(ctx context.Context, uid string) error
}

// SQLProvider keeps credentials in the service database, bcrypt-hashed.
type SQLProvider struct {
	db *sqlx.DB
}

// NewSQLProvider constructs a SQLProvider.
func NewSQLProvider(db *sqlx.DB) *SQLProvider {
	return &SQLProvider{db: db}
}

// Create registers a new identity and returns its uid.
func (p *SQLProvider) Create(ctx context.Context, email, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	uid := uuid.NewString()
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO credentials (uid, email, password_hash) VALUES ($1, $2, $3)`,
		uid, email, string(hash))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return "", ErrEmailInUse
		}
		return "", err
	}
	return uid, nil
}

// Verify checks email/password and returns the owning uid.
func (p *SQLProvider) Verify(ctx context.Context, email, password string) (string, error) {
	var row struct {
		UID  string `db:"uid"`
		Hash string `db:"password_hash"`
	}
	err := p.db.GetContext(ctx, &row,
		`SELECT uid, password_hash FROM credentials WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(row.Hash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return row.UID, nil
}

// UpdateEmail changes the identity's email. The caller must re-authenticate
// with the current password; a stale password fails the whole operation.
func (p *SQLProvider) UpdateEmail(ctx context.Context, uid, newEmail, currentPassword string) error {
	var hash string
	err := p.db.GetContext(ctx, &hash,
		`SELECT password_hash FROM credentials WHERE uid=$1`, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(currentPassword)) != nil {
		return ErrInvalidCredentials
	}

	_, err = p.db.ExecContext(ctx,
		`UPDATE credentials SET email=$2 WHERE uid=$1`, uid, newEmail)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrEmailInUse
		}
	}
	return err
}

// Delete removes an identity. Used to compensate a failed signup so no
// orphaned account without a profile is left behind.
func (p *SQLProvider) Delete(ctx context.Context, uid string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM credentials WHERE uid=$1`, uid)
	return err
}
