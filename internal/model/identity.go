package model

import (
    "time"

    "github.com/google/uuid"
)

// Authority values stored in the identities.authority column.  ADMIN
// accounts manage other identities; USER accounts are regular clients
// and employees.
const (
    AuthorityAdmin = "ADMIN"
    AuthorityUser  = "USER"
)

// Identity represents an account record as stored in the `identities`
// table.  Each field corresponds to a column.  The json tags are
// omitted here because these structs are used by the repository layer;
// handlers define separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key (uuid, CHAR(36)).
//  Authority    – ADMIN or USER.
//  Username     – unique display name.
//  PasswordHash – bcrypt hashed password.
//  Email        – unique email address used as the login.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Identity struct {
    ID           uuid.UUID // identities.id
    Authority    string    // identities.authority
    Username     string    // identities.username
    PasswordHash string    // identities.password_hash
    Email        string    // identities.email
    IsActive     bool      // identities.is_active
    CreatedAt    time.Time // identities.created_at
    UpdatedAt    time.Time // identities.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to an identity.  The plain token is never
// stored; only its SHA‑256 hash.
//
// Fields:
//  ID         – primary key identifier.
//  IdentityID – owner of the token.
//  TokenHash  – SHA‑256 hex digest of the token value.
//  ExpiresAt  – expiration timestamp of the token.
//  RevokedAt  – when the token was revoked (nil if still active).
//  CreatedAt  – timestamp of creation.
type RefreshToken struct {
    ID         uint64     // refresh_tokens.id
    IdentityID uuid.UUID  // refresh_tokens.identity_id
    TokenHash  string     // refresh_tokens.token_hash
    ExpiresAt  time.Time  // refresh_tokens.expires_at
    RevokedAt  *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt  time.Time  // refresh_tokens.created_at
}
