package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// EmployeeHandler manages restaurant staff records and the
// director/servant reporting links.
type EmployeeHandler struct {
	Employees *repository.EmployeeRepo
	Addresses *repository.AddressRepo
}

func NewEmployeeHandler(e *repository.EmployeeRepo, a *repository.AddressRepo) *EmployeeHandler {
	return &EmployeeHandler{Employees: e, Addresses: a}
}

type createEmployeeReq struct {
	IdentityID           string     `json:"identity_id"`
	Position             string     `json:"position"`
	LocationRestaurantID *string    `json:"location_restaurant_id"`
	LocationAddressID    *string    `json:"location_address_id"`
	Firstname            string     `json:"firstname"`
	Lastname             string     `json:"lastname"`
	Patronymic           string     `json:"patronymic"`
	Age                  int        `json:"age"`
	Birthday             string     `json:"birthday"` // YYYY-MM-DD
	HomeAddress          addressReq `json:"home_address"`
}

type employeeResp struct {
	ID                   string  `json:"id"`
	IdentityID           string  `json:"identity_id"`
	Position             string  `json:"position"`
	LocationRestaurantID *string `json:"location_restaurant_id,omitempty"`
	LocationAddressID    *string `json:"location_address_id,omitempty"`
	Firstname            string  `json:"firstname"`
	Lastname             string  `json:"lastname"`
	Patronymic           string  `json:"patronymic,omitempty"`
	Age                  int     `json:"age"`
	Birthday             string  `json:"birthday"`
	HomeAddressID        string  `json:"home_address_id"`
}

func toEmployeeResp(e model.Employee) employeeResp {
	out := employeeResp{
		ID:            e.ID.String(),
		IdentityID:    e.IdentityID.String(),
		Position:      e.Position,
		Firstname:     e.Firstname,
		Lastname:      e.Lastname,
		Patronymic:    e.Patronymic,
		Age:           e.Age,
		Birthday:      e.Birthday.Format("2006-01-02"),
		HomeAddressID: e.HomeAddressID.String(),
	}
	if e.LocationRestaurantID != nil {
		s := e.LocationRestaurantID.String()
		out.LocationRestaurantID = &s
	}
	if e.LocationAddressID != nil {
		s := e.LocationAddressID.String()
		out.LocationAddressID = &s
	}
	return out
}

func validPosition(p string) bool {
	switch p {
	case model.PositionDirector, model.PositionManager, model.PositionServant:
		return true
	}
	return false
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Create hires an employee.  The home address is created inline so the
// caller never manages address rows directly.
func (h *EmployeeHandler) Create(c echo.Context) error {
	var req createEmployeeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	identityID, err := uuid.Parse(req.IdentityID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid identity_id"})
	}
	position := strings.ToUpper(strings.TrimSpace(req.Position))
	if !validPosition(position) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown position"})
	}
	if req.Firstname == "" || req.Lastname == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "firstname/lastname required"})
	}
	birthday, err := time.ParseInLocation("2006-01-02", req.Birthday, time.Local)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid birthday"})
	}
	locRestaurantID, err := parseOptionalUUID(req.LocationRestaurantID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid location_restaurant_id"})
	}
	locAddressID, err := parseOptionalUUID(req.LocationAddressID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid location_address_id"})
	}
	if (locRestaurantID == nil) != (locAddressID == nil) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "location requires both restaurant and address ids"})
	}
	if req.HomeAddress.City == "" || req.HomeAddress.Street == "" || req.HomeAddress.House == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "home_address city/street/house required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	homeAddressID, err := h.Addresses.Create(ctx, req.HomeAddress.City, req.HomeAddress.Street, req.HomeAddress.House, req.HomeAddress.Apartment)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create address failed"})
	}

	emp := model.Employee{
		IdentityID:           identityID,
		Position:             position,
		LocationRestaurantID: locRestaurantID,
		LocationAddressID:    locAddressID,
		Firstname:            req.Firstname,
		Lastname:             req.Lastname,
		Patronymic:           req.Patronymic,
		Age:                  req.Age,
		Birthday:             birthday,
		HomeAddressID:        homeAddressID,
	}
	if err := h.Employees.Create(ctx, &emp); err != nil {
		_, _ = h.Addresses.Delete(ctx, homeAddressID)
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "identity already has an employee record"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create employee failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": emp.ID.String()})
}

// List returns all employees, or one restaurant's staff with
// ?restaurant_id=.
func (h *EmployeeHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var (
		list []model.Employee
		err  error
	)
	if q := c.QueryParam("restaurant_id"); q != "" {
		restaurantID, perr := uuid.Parse(q)
		if perr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant_id"})
		}
		list, err = h.Employees.ListByRestaurant(ctx, restaurantID)
	} else {
		list, err = h.Employees.List(ctx)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]employeeResp, 0, len(list))
	for _, e := range list {
		out = append(out, toEmployeeResp(e))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *EmployeeHandler) Get(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	emp, err := h.Employees.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toEmployeeResp(emp))
}

type updateEmployeeReq struct {
	Position             string  `json:"position"`
	LocationRestaurantID *string `json:"location_restaurant_id"`
	LocationAddressID    *string `json:"location_address_id"`
	Firstname            string  `json:"firstname"`
	Lastname             string  `json:"lastname"`
	Patronymic           string  `json:"patronymic"`
	Age                  int     `json:"age"`
	Birthday             string  `json:"birthday"`
}

// Update changes position, assignment or personal fields.  Zero values
// keep the stored data.
func (h *EmployeeHandler) Update(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateEmployeeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	position := strings.ToUpper(strings.TrimSpace(req.Position))
	if position != "" && !validPosition(position) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown position"})
	}
	locRestaurantID, err := parseOptionalUUID(req.LocationRestaurantID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid location_restaurant_id"})
	}
	locAddressID, err := parseOptionalUUID(req.LocationAddressID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid location_address_id"})
	}
	var birthday *time.Time
	if req.Birthday != "" {
		d, perr := time.ParseInLocation("2006-01-02", req.Birthday, time.Local)
		if perr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid birthday"})
		}
		birthday = &d
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Employees.Update(ctx, id, position, locRestaurantID, locAddressID, req.Firstname, req.Lastname, req.Patronymic, req.Age, birthday)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *EmployeeHandler) Delete(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Employees.Delete(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

type servantReq struct {
	ServantID string `json:"servant_id"`
}

// AddServant links a subordinate under a director.
func (h *EmployeeHandler) AddServant(c echo.Context) error {
	directorID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req servantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	servantID, err := uuid.Parse(req.ServantID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid servant_id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err = h.Employees.AddServant(ctx, directorID, servantID)
	switch err {
	case nil:
		return c.NoContent(http.StatusNoContent)
	case repository.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusConflict, echo.Map{"error": "link head must be a director"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "link failed"})
	}
}

func (h *EmployeeHandler) RemoveServant(c echo.Context) error {
	directorID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	servantID, err := uuid.Parse(c.Param("servantId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid servant id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Employees.RemoveServant(ctx, directorID, servantID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unlink failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "link not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Servants lists the employees reporting to a director.
func (h *EmployeeHandler) Servants(c echo.Context) error {
	directorID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Employees.Servants(ctx, directorID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]employeeResp, 0, len(list))
	for _, e := range list {
		out = append(out, toEmployeeResp(e))
	}
	return c.JSON(http.StatusOK, out)
}
