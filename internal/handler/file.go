package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// FileHandler stores and serves binary attachments (avatars, scanned
// documents).  Content lives in MySQL, so no shared filesystem is
// needed between instances.
type FileHandler struct {
	Files      *repository.FileRepo
	Identities *repository.IdentityRepo
}

func NewFileHandler(f *repository.FileRepo, i *repository.IdentityRepo) *FileHandler {
	return &FileHandler{Files: f, Identities: i}
}

const maxUploadBytes = 8 << 20 // 8 MiB per file

// Upload accepts one multipart file under the "file" field and returns
// the stored id.
func (h *FileHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file field required"})
	}
	if fh.Size > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file too large"})
	}
	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "open upload failed"})
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxUploadBytes+1))
	if err != nil || int64(len(data)) > maxUploadBytes {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "read upload failed"})
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	id, err := h.Files.Create(ctx, fh.Filename, contentType, data)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store file failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id.String(), "name": fh.Filename, "size": len(data)})
}

// Download streams a stored file back with its original content type.
func (h *FileHandler) Download(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	f, err := h.Files.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "file not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	c.Response().Header().Set("Content-Disposition", `inline; filename="`+f.Name+`"`)
	return c.Blob(http.StatusOK, f.ContentType, f.Data)
}

type fileIDsReq struct {
	FileIDs []string `json:"file_ids"`
}

func (r fileIDsReq) parse() ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(r.FileIDs))
	for _, s := range r.FileIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Remove deletes the listed files outright.
func (h *FileHandler) Remove(c echo.Context) error {
	var req fileIDsReq
	if err := c.Bind(&req); err != nil || len(req.FileIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file_ids required"})
	}
	ids, err := req.parse()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid file id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	n, err := h.Files.Remove(ctx, ids)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "remove failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": n})
}

// Attach links uploaded files to an identity.
func (h *FileHandler) Attach(c echo.Context) error {
	identityID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req fileIDsReq
	if err := c.Bind(&req); err != nil || len(req.FileIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file_ids required"})
	}
	ids, err := req.parse()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid file id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Identities.AttachFiles(ctx, identityID, ids); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "attach failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Detach unlinks files from an identity without deleting the content.
func (h *FileHandler) Detach(c echo.Context) error {
	identityID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req fileIDsReq
	if err := c.Bind(&req); err != nil || len(req.FileIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file_ids required"})
	}
	ids, err := req.parse()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid file id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Identities.DetachFiles(ctx, identityID, ids); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "detach failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListForIdentity returns the file ids attached to an identity.
func (h *FileHandler) ListForIdentity(c echo.Context) error {
	identityID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ids, err := h.Identities.FileIDs(ctx, identityID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return c.JSON(http.StatusOK, echo.Map{"file_ids": out})
}
