package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/utils"
)

// IdentityRepo provides data access to the identities table.  Account
// passwords are stored as bcrypt hashes; the repository hashes on
// create and change-password so that plain passwords never travel
// further down the stack.
type IdentityRepo struct{ DB *sql.DB }

// NewIdentityRepo returns a new IdentityRepo bound to the given database.
func NewIdentityRepo(db *sql.DB) *IdentityRepo { return &IdentityRepo{DB: db} }

const identityColumns = `id, authority, username, password_hash, email, is_active, created_at, updated_at`

func scanIdentity(row interface {
	Scan(dest ...interface{}) error
}) (model.Identity, error) {
	var (
		ident model.Identity
		raw   string
	)
	err := row.Scan(&raw, &ident.Authority, &ident.Username, &ident.PasswordHash,
		&ident.Email, &ident.IsActive, &ident.CreatedAt, &ident.UpdatedAt)
	if err != nil {
		return model.Identity{}, err
	}
	ident.ID, err = uuid.Parse(raw)
	return ident, err
}

// Create inserts an identity and returns its generated ID.  The
// password is hashed with the provided bcrypt cost.  Duplicate
// username or email maps to ErrConflict.
func (r *IdentityRepo) Create(ctx context.Context, authority, username, password, email string, isActive bool, cost int) (uuid.UUID, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO identities (id, authority, username, password_hash, email, is_active) VALUES (?,?,?,?,?,?)`,
		id.String(), authority, username, hash, email, isActive)
	if err != nil {
		if isDuplicateEntry(err) {
			return uuid.Nil, ErrConflict
		}
		return uuid.Nil, err
	}
	return id, nil
}

// GetByEmail fetches an identity by normalized email.
func (r *IdentityRepo) GetByEmail(ctx context.Context, email string) (model.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email=? LIMIT 1`, email)
	ident, err := scanIdentity(row)
	if err == sql.ErrNoRows {
		return model.Identity{}, ErrNotFound
	}
	return ident, err
}

// GetByID fetches an identity by id.
func (r *IdentityRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Identity, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id=? LIMIT 1`, id.String())
	ident, err := scanIdentity(row)
	if err == sql.ErrNoRows {
		return model.Identity{}, ErrNotFound
	}
	return ident, err
}

// List returns all identities ordered by username.
func (r *IdentityRepo) List(ctx context.Context) ([]model.Identity, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+identityColumns+` FROM identities ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	idents := make([]model.Identity, 0)
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		idents = append(idents, ident)
	}
	return idents, rows.Err()
}

// ListPage returns one page of identities.  Pages are 1-based.
func (r *IdentityRepo) ListPage(ctx context.Context, page, size int) ([]model.Identity, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+identityColumns+` FROM identities ORDER BY username LIMIT ? OFFSET ?`,
		size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	idents := make([]model.Identity, 0, size)
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		idents = append(idents, ident)
	}
	return idents, rows.Err()
}

// Update overwrites mutable identity fields.  Empty strings retain the
// stored value so that partial updates work the same way as the rest
// of the API.  The password is never touched here; use ChangePassword.
func (r *IdentityRepo) Update(ctx context.Context, id uuid.UUID, authority, username, email string) (bool, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if authority == "" {
		authority = current.Authority
	}
	if username == "" {
		username = current.Username
	}
	if email == "" {
		email = current.Email
	} else {
		email = strings.ToLower(strings.TrimSpace(email))
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE identities SET authority=?, username=?, email=? WHERE id=?`,
		authority, username, email, id.String())
	if err != nil {
		if isDuplicateEntry(err) {
			return false, ErrConflict
		}
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes an identity; dependent rows cascade.
func (r *IdentityRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM identities WHERE id=?`, id.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ChangePassword replaces the stored bcrypt hash.
func (r *IdentityRepo) ChangePassword(ctx context.Context, id uuid.UUID, newPassword string, cost int) (bool, error) {
	hash, err := utils.HashPassword(newPassword, cost)
	if err != nil {
		return false, err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE identities SET password_hash=? WHERE id=?`, hash, id.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetActive flips the is_active flag.
func (r *IdentityRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE identities SET is_active=? WHERE id=?`, active, id.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AttachFiles links uploaded files to an identity.
func (r *IdentityRepo) AttachFiles(ctx context.Context, identityID uuid.UUID, fileIDs []uuid.UUID) error {
	if len(fileIDs) == 0 {
		return nil
	}
	query := `INSERT INTO identity_files (identity_id, file_id) VALUES `
	args := make([]interface{}, 0, len(fileIDs)*2)
	for i, fid := range fileIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, identityID.String(), fid.String())
	}
	_, err := r.DB.ExecContext(ctx, query, args...)
	if isDuplicateEntry(err) {
		return ErrConflict
	}
	return err
}

// DetachFiles unlinks files from an identity.  The file rows
// themselves are removed by FileRepo.Remove.
func (r *IdentityRepo) DetachFiles(ctx context.Context, identityID uuid.UUID, fileIDs []uuid.UUID) error {
	if len(fileIDs) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(fileIDs))
	args := []interface{}{identityID.String()}
	for _, fid := range fileIDs {
		placeholders = append(placeholders, "?")
		args = append(args, fid.String())
	}
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM identity_files WHERE identity_id=? AND file_id IN (`+strings.Join(placeholders, ",")+`)`,
		args...)
	return err
}

// FileIDs lists the ids of files attached to an identity.
func (r *IdentityRepo) FileIDs(ctx context.Context, identityID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT file_id FROM identity_files WHERE identity_id=?`, identityID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// isDuplicateEntry detects MySQL error 1062 (duplicate key).
func isDuplicateEntry(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// TokenRepo persists/validates refresh tokens for identities.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, identityID uuid.UUID, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (identity_id, token_hash, expires_at) VALUES (?,?,?)`,
		identityID.String(), tokenHash, exp)
	return err
}

// ValidateRefresh returns the identity id if a non-revoked, non-expired token exists.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	var (
		raw       string
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT identity_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1`,
		tokenHash).Scan(&raw, &expiresAt, &revokedAt)
	if err != nil {
		return uuid.Nil, err
	}
	if revokedAt.Valid {
		return uuid.Nil, sql.ErrNoRows
	}
	if time.Now().After(expiresAt) {
		return uuid.Nil, sql.ErrNoRows
	}
	return uuid.Parse(raw)
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL`,
		tokenHash)
	return err
}

// RevokeAllForIdentity revokes all of an identity's active tokens.
func (r *TokenRepo) RevokeAllForIdentity(ctx context.Context, identityID uuid.UUID) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at=NOW() WHERE identity_id=? AND revoked_at IS NULL`,
		identityID.String())
	return err
}
