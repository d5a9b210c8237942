package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"aura-talk/internal/models"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrUsernameTaken   = errors.New("username already taken")
)

// ProfileRepository abstracts the profile store and its username reverse
// index. A profile row and its lowercased reverse-index row are always
// created or renamed inside one transaction so the two can never disagree.
type ProfileRepository interface {
	GetProfile(ctx context.Context, uid string) (models.UserProfile, error)
	BulkProfiles(ctx context.Context, uids []string) ([]models.UserProfile, error)
	LookupUsername(ctx context.Context, username string) (string, error)
	ResolveUsernames(ctx context.Context, usernames []string) ([]models.UserProfile, error)
	CreateProfileWithUsername(ctx context.Context, profile models.UserProfile) error
	RenameUsername(ctx context.Context, uid, oldName, newName string) error
	UpdateEmail(ctx context.Context, uid, email string) error
	UpdateProfilePic(ctx context.Context, uid, url string) error
	TouchLastActive(ctx context.Context, uid string) error
}

// ProfileRepo is a sqlx implementation of ProfileRepository.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs a ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// GetProfile fetches a profile by uid.
func (r *ProfileRepo) GetProfile(ctx context.Context, uid string) (models.UserProfile, error) {
	var p models.UserProfile
	err := r.db.GetContext(ctx, &p,
		`SELECT uid, username, email, profile_pic, created_at, last_active FROM profiles WHERE uid=$1`, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserProfile{}, ErrProfileNotFound
	}
	return p, err
}

// BulkProfiles resolves a set of uids to profiles in one query. Missing uids
// are simply absent from the result.
func (r *ProfileRepo) BulkProfiles(ctx context.Context, uids []string) ([]models.UserProfile, error) {
	if len(uids) == 0 {
		return []models.UserProfile{}, nil
	}
	var out []models.UserProfile
	err := r.db.SelectContext(ctx, &out,
		`SELECT uid, username, email, profile_pic, created_at, last_active FROM profiles WHERE uid = ANY($1)`,
		pq.Array(uids))
	return out, err
}

// LookupUsername resolves a username through the reverse index. The lookup
// key is always the lowercased name.
func (r *ProfileRepo) LookupUsername(ctx context.Context, username string) (string, error) {
	var uid string
	err := r.db.GetContext(ctx, &uid,
		`SELECT uid FROM usernames WHERE username=$1`, strings.ToLower(username))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrProfileNotFound
	}
	return uid, err
}

// ResolveUsernames maps candidate usernames to profiles via the reverse
// index. Names absent from the index are dropped silently, never surfaced as
// errors, so unvalidated external suggestions cannot materialize as users.
// Result order follows input order; duplicates are the caller's problem.
func (r *ProfileRepo) ResolveUsernames(ctx context.Context, usernames []string) ([]models.UserProfile, error) {
	profiles := make([]models.UserProfile, 0, len(usernames))
	for _, name := range usernames {
		uid, err := r.LookupUsername(ctx, name)
		if errors.Is(err, ErrProfileNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		p, err := r.GetProfile(ctx, uid)
		if errors.Is(err, ErrProfileNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// CreateProfileWithUsername inserts the profile and its reverse-index entry
// atomically.
func (r *ProfileRepo) CreateProfileWithUsername(ctx context.Context, profile models.UserProfile) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (uid, username, email, profile_pic) VALUES ($1, $2, $3, $4)`,
		profile.UID, profile.Username, profile.Email, profile.ProfilePic); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO usernames (username, uid) VALUES ($1, $2)`,
		strings.ToLower(profile.Username), profile.UID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrUsernameTaken
		}
		return err
	}
	return tx.Commit()
}

// RenameUsername swaps the reverse-index entry and updates the profile in one
// transaction. The old entry is removed and the new one created together so
// there is never a moment with zero or two index entries for the user.
func (r *ProfileRepo) RenameUsername(ctx context.Context, uid, oldName, newName string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM usernames WHERE username=$1 AND uid=$2`,
		strings.ToLower(oldName), uid); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO usernames (username, uid) VALUES ($1, $2)`,
		strings.ToLower(newName), uid); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrUsernameTaken
		}
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE profiles SET username=$2 WHERE uid=$1`, uid, newName); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateEmail stores the new email on the profile record.
func (r *ProfileRepo) UpdateEmail(ctx context.Context, uid, email string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE profiles SET email=$2 WHERE uid=$1`, uid, email)
	return err
}

// UpdateProfilePic stores the avatar reference URL.
func (r *ProfileRepo) UpdateProfilePic(ctx context.Context, uid, url string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE profiles SET profile_pic=$2 WHERE uid=$1`, uid, url)
	return err
}

// TouchLastActive bumps last_active without ever moving it backwards.
func (r *ProfileRepo) TouchLastActive(ctx context.Context, uid string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET last_active=GREATEST(last_active, NOW()) WHERE uid=$1`, uid)
	return err
}
