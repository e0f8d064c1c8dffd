package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// FileRepo stores uploaded files as BLOBs in the files table.
type FileRepo struct{ DB *sql.DB }

func NewFileRepo(db *sql.DB) *FileRepo { return &FileRepo{DB: db} }

// Create inserts a file and returns its generated id.
func (r *FileRepo) Create(ctx context.Context, name, contentType string, data []byte) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO files (id, name, content_type, data) VALUES (?,?,?,?)`,
		id.String(), name, contentType, data)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// GetByID fetches a file including its payload.
func (r *FileRepo) GetByID(ctx context.Context, id uuid.UUID) (model.StoredFile, error) {
	var (
		f   model.StoredFile
		raw string
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, content_type, data, created_at, updated_at FROM files WHERE id=? LIMIT 1`,
		id.String()).Scan(&raw, &f.Name, &f.ContentType, &f.Data, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.StoredFile{}, ErrNotFound
	}
	if err != nil {
		return model.StoredFile{}, err
	}
	f.ID, err = uuid.Parse(raw)
	return f, err
}

// Remove deletes the given file rows; identity links cascade.
func (r *FileRepo) Remove(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id.String())
	}
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM files WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
