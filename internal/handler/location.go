package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appmw "github.com/iliyamo/restaurant-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// LocationHandler manages the dining rooms of a restaurant at concrete
// addresses.  The address rows are owned by their location: creating a
// location creates its address and deleting the location removes it.
type LocationHandler struct {
	Locations *repository.LocationRepo
	Addresses *repository.AddressRepo
	Employees *repository.EmployeeRepo
}

func NewLocationHandler(l *repository.LocationRepo, a *repository.AddressRepo, e *repository.EmployeeRepo) *LocationHandler {
	return &LocationHandler{Locations: l, Addresses: a, Employees: e}
}

type addressReq struct {
	City      string  `json:"city"`
	Street    string  `json:"street"`
	House     string  `json:"house"`
	Apartment *string `json:"apartment"`
}

type addressResp struct {
	ID        string  `json:"id"`
	City      string  `json:"city"`
	Street    string  `json:"street"`
	House     string  `json:"house"`
	Apartment *string `json:"apartment,omitempty"`
}

type locationResp struct {
	RestaurantID string `json:"restaurant_id"`
	AddressID    string `json:"address_id"`
	Places       int    `json:"places"`
	Open         string `json:"open,omitempty"`
	Close        string `json:"close,omitempty"`
}

func toLocationResp(l model.Location) locationResp {
	out := locationResp{
		RestaurantID: l.RestaurantID.String(),
		AddressID:    l.AddressID.String(),
		Places:       l.Places,
	}
	if l.Open != nil {
		out.Open = l.Open.String()
	}
	if l.Close != nil {
		out.Close = l.Close.String()
	}
	return out
}

// canManageRestaurant allows admins, plus directors and managers
// assigned to the given restaurant.
func (h *LocationHandler) canManageRestaurant(ctx context.Context, c echo.Context, restaurantID uuid.UUID) bool {
	if appmw.Authority(c) == model.AuthorityAdmin {
		return true
	}
	identityID, ok := appmw.IdentityID(c)
	if !ok {
		return false
	}
	emp, err := h.Employees.GetByIdentity(ctx, identityID)
	if err != nil {
		return false
	}
	if emp.Position != model.PositionDirector && emp.Position != model.PositionManager {
		return false
	}
	return emp.LocationRestaurantID != nil && *emp.LocationRestaurantID == restaurantID
}

type createLocationReq struct {
	RestaurantID string     `json:"restaurant_id"`
	Address      addressReq `json:"address"`
	Places       int        `json:"places"`
	Open         string     `json:"open"`
	Close        string     `json:"close"`
}

func (h *LocationHandler) Create(c echo.Context) error {
	var req createLocationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	restaurantID, err := uuid.Parse(req.RestaurantID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant_id"})
	}
	if req.Places < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "places must not be negative"})
	}
	if req.Address.City == "" || req.Address.Street == "" || req.Address.House == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "address city/street/house required"})
	}
	openAt, err := model.ParseTimeOfDay(req.Open)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid open time"})
	}
	closeAt, err := model.ParseTimeOfDay(req.Close)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid close time"})
	}
	if !closeAt.After(openAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "close must be after open"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if !h.canManageRestaurant(ctx, c, restaurantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	addressID, err := h.Addresses.Create(ctx, req.Address.City, req.Address.Street, req.Address.House, req.Address.Apartment)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create address failed"})
	}
	if err := h.Locations.Create(ctx, restaurantID, addressID, req.Places, openAt, closeAt); err != nil {
		// Roll the orphaned address back by hand; there is no FK from
		// addresses to locations.
		_, _ = h.Addresses.Delete(ctx, addressID)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create location failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"restaurant_id": restaurantID.String(), "address_id": addressID.String()})
}

func (h *LocationHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Locations.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]locationResp, 0, len(list))
	for _, l := range list {
		out = append(out, toLocationResp(l))
	}
	return c.JSON(http.StatusOK, out)
}

func locationKeyFromPath(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	restaurantID, err := uuid.Parse(c.Param("restaurantId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	addressID, err := uuid.Parse(c.Param("addressId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return restaurantID, addressID, nil
}

// Get returns one location together with its address.
func (h *LocationHandler) Get(c echo.Context) error {
	restaurantID, addressID, err := locationKeyFromPath(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	loc, err := h.Locations.GetByKey(ctx, restaurantID, addressID)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "location not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	addr, err := h.Addresses.GetByID(ctx, addressID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"location": toLocationResp(loc),
		"address": addressResp{
			ID: addr.ID.String(), City: addr.City, Street: addr.Street,
			House: addr.House, Apartment: addr.Apartment,
		},
	})
}

type updateLocationReq struct {
	Places *int    `json:"places"`
	Open   *string `json:"open"`
	Close  *string `json:"close"`
}

// Update changes places and working hours.  Absent fields keep the
// stored values.
func (h *LocationHandler) Update(c echo.Context) error {
	restaurantID, addressID, err := locationKeyFromPath(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateLocationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Places != nil && *req.Places < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "places must not be negative"})
	}
	var openAt, closeAt *model.TimeOfDay
	if req.Open != nil {
		t, err := model.ParseTimeOfDay(*req.Open)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid open time"})
		}
		openAt = &t
	}
	if req.Close != nil {
		t, err := model.ParseTimeOfDay(*req.Close)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid close time"})
		}
		closeAt = &t
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if !h.canManageRestaurant(ctx, c, restaurantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ok, err := h.Locations.Update(ctx, restaurantID, addressID, req.Places, openAt, closeAt)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "location not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes a location and its owned address.
func (h *LocationHandler) Delete(c echo.Context) error {
	restaurantID, addressID, err := locationKeyFromPath(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if !h.canManageRestaurant(ctx, c, restaurantID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ok, err := h.Locations.Delete(ctx, restaurantID, addressID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "location not found"})
	}
	_, _ = h.Addresses.Delete(ctx, addressID)
	return c.NoContent(http.StatusNoContent)
}

// GetAddress is the direct address lookup used by clients that only
// hold an address id.
func (h *LocationHandler) GetAddress(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	addr, err := h.Addresses.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "address not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, addressResp{
		ID: addr.ID.String(), City: addr.City, Street: addr.Street,
		House: addr.House, Apartment: addr.Apartment,
	})
}
