package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/config"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// IdentityHandler exposes the admin-only identity management surface.
type IdentityHandler struct {
	Cfg        config.Config
	Identities *repository.IdentityRepo
}

func NewIdentityHandler(cfg config.Config, i *repository.IdentityRepo) *IdentityHandler {
	return &IdentityHandler{Cfg: cfg, Identities: i}
}

type identityResp struct {
	ID        string    `json:"id"`
	Authority string    `json:"authority"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toIdentityResp(i model.Identity) identityResp {
	return identityResp{
		ID:        i.ID.String(),
		Authority: i.Authority,
		Username:  i.Username,
		Email:     i.Email,
		IsActive:  i.IsActive,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

type createIdentityReq struct {
	Authority string `json:"authority"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	IsActive  *bool  `json:"is_active"`
}

// Create lets an admin provision an identity with any authority.
func (h *IdentityHandler) Create(c echo.Context) error {
	var req createIdentityReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	authority := strings.ToUpper(strings.TrimSpace(req.Authority))
	if authority != model.AuthorityAdmin && authority != model.AuthorityUser {
		authority = model.AuthorityUser
	}
	if req.Email == "" || req.Password == "" || req.Username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/email/password required"})
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Identities.Create(ctx, authority, req.Username, req.Password, req.Email, active, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email or username already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create identity failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id.String()})
}

// List returns identities, paged when ?page= and ?size= are present.
func (h *IdentityHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pageStr, sizeStr := c.QueryParam("page"), c.QueryParam("size")
	var (
		list []model.Identity
		err  error
	)
	if pageStr != "" || sizeStr != "" {
		page, _ := strconv.Atoi(pageStr)
		size, _ := strconv.Atoi(sizeStr)
		if page < 1 {
			page = 1
		}
		if size < 1 || size > 200 {
			size = 50
		}
		list, err = h.Identities.ListPage(ctx, page, size)
	} else {
		list, err = h.Identities.List(ctx)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	out := make([]identityResp, 0, len(list))
	for _, i := range list {
		out = append(out, toIdentityResp(i))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *IdentityHandler) Get(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ident, err := h.Identities.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "identity not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toIdentityResp(ident))
}

type updateIdentityReq struct {
	Authority string `json:"authority"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

// Update changes authority, username or email.  Empty fields keep the
// stored values.
func (h *IdentityHandler) Update(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateIdentityReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	authority := strings.ToUpper(strings.TrimSpace(req.Authority))
	if authority != "" && authority != model.AuthorityAdmin && authority != model.AuthorityUser {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown authority"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Identities.Update(ctx, id, authority, strings.TrimSpace(req.Username), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email or username already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "identity not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *IdentityHandler) Delete(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Identities.Delete(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "identity not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

type changePasswordReq struct {
	Password string `json:"password"`
}

func (h *IdentityHandler) ChangePassword(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Identities.ChangePassword(ctx, id, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "change password failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "identity not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

// SetActive flips the active flag; /activate and /deactivate share it.
func (h *IdentityHandler) SetActive(active bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathUUID(c, "id")
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		ok, err := h.Identities.SetActive(ctx, id, active)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
		if !ok {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "identity not found"})
		}
		return c.NoContent(http.StatusNoContent)
	}
}
