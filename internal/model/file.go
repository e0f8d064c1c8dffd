package model

import (
    "time"

    "github.com/google/uuid"
)

// StoredFile is an uploaded file kept in the database as a BLOB.
// Files can be attached to identities via the identity_files join
// table (avatars, scanned documents).
type StoredFile struct {
    ID          uuid.UUID // files.id
    Name        string    // files.name
    ContentType string    // files.content_type
    Data        []byte    // files.data (LONGBLOB)
    CreatedAt   time.Time // files.created_at
    UpdatedAt   time.Time // files.updated_at
}

// IdentityFile links an uploaded file to an identity.
type IdentityFile struct {
    IdentityID uuid.UUID // identity_files.identity_id
    FileID     uuid.UUID // identity_files.file_id
}
