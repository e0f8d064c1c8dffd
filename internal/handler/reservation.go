package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appmw "github.com/iliyamo/restaurant-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/queue"
	"github.com/iliyamo/restaurant-reservation/internal/queue_publisher"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/service"
)

// timeLayout is the wire format for reservation timestamps.  Values are
// naive local time; no zone conversion happens anywhere in the service.
const timeLayout = "2006-01-02 15:04:05"

// ReservationHandler is the HTTP face of the admission engine plus the
// staff lifecycle actions.
type ReservationHandler struct {
	Engine       *service.AdmissionEngine
	Reservations *repository.ReservationRepo
	Employees    *repository.EmployeeRepo
}

func NewReservationHandler(e *service.AdmissionEngine, r *repository.ReservationRepo, emp *repository.EmployeeRepo) *ReservationHandler {
	return &ReservationHandler{Engine: e, Reservations: r, Employees: emp}
}

type createReservationReq struct {
	RestaurantID string `json:"restaurant_id"`
	AddressID    string `json:"address_id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Places       int    `json:"places"`
	StartTime    string `json:"start_time"` // "2006-01-02 15:04:05", local
}

type updateReservationReq struct {
	RestaurantID *string `json:"restaurant_id"`
	AddressID    *string `json:"address_id"`
	Name         *string `json:"name"`
	Phone        *string `json:"phone"`
	Places       *int    `json:"places"`
	StartTime    *string `json:"start_time"`
}

type reservationResp struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurant_id"`
	AddressID    string `json:"address_id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Places       int    `json:"places"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time,omitempty"`
	IsStarted    bool   `json:"is_started"`
	IsFinished   bool   `json:"is_finished"`
}

func toReservationResp(r model.Reservation) reservationResp {
	out := reservationResp{
		ID:           r.ID.String(),
		RestaurantID: r.LocationRestaurantID.String(),
		AddressID:    r.LocationAddressID.String(),
		Name:         r.Name,
		Phone:        r.Phone,
		Places:       r.Places,
		StartTime:    r.StartTime.Format(timeLayout),
		IsStarted:    r.IsStarted,
		IsFinished:   r.IsFinished,
	}
	if r.EndTime != nil {
		out.EndTime = r.EndTime.Format(timeLayout)
	}
	return out
}

// admissionHTTPError maps engine errors onto status codes: bad input is
// 400, a missing location 404, a rule rejection 409.
func admissionHTTPError(c echo.Context, err error) error {
	var admission *service.AdmissionError
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.As(err, &admission):
		return c.JSON(http.StatusConflict, echo.Map{"error": admission.Reason})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed"})
	}
}

// publishEvent hands a lifecycle event to the broker off the request
// path; broker trouble never fails a reservation.
func publishEvent(kind string, res model.Reservation) {
	ev := queue.NewReservationEvent(kind, res, time.Now())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = queue_publisher.PublishReservationEvent(ctx, ev)
	}()
}

// Create books a table.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	restaurantID, err := uuid.Parse(req.RestaurantID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant_id"})
	}
	addressID, err := uuid.Parse(req.AddressID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid address_id"})
	}
	startTime, err := time.ParseInLocation(timeLayout, req.StartTime, time.Local)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Engine.Create(ctx, service.CreateReservationRequest{
		LocationRestaurantID: restaurantID,
		LocationAddressID:    addressID,
		Name:                 strings.TrimSpace(req.Name),
		Phone:                strings.TrimSpace(req.Phone),
		Places:               req.Places,
		StartTime:            startTime,
	})
	if err != nil {
		return admissionHTTPError(c, err)
	}
	publishEvent(queue.KindCreated, res)
	return c.JSON(http.StatusCreated, toReservationResp(res))
}

// Update re-admits an existing reservation with changed fields.
func (h *ReservationHandler) Update(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	var upd service.UpdateReservationRequest
	if req.RestaurantID != nil {
		rid, perr := uuid.Parse(*req.RestaurantID)
		if perr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant_id"})
		}
		upd.LocationRestaurantID = &rid
	}
	if req.AddressID != nil {
		aid, perr := uuid.Parse(*req.AddressID)
		if perr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid address_id"})
		}
		upd.LocationAddressID = &aid
	}
	if req.StartTime != nil {
		st, perr := time.ParseInLocation(timeLayout, *req.StartTime, time.Local)
		if perr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time"})
		}
		upd.StartTime = &st
	}
	upd.Name = req.Name
	upd.Phone = req.Phone
	upd.Places = req.Places

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Engine.Update(ctx, id, upd)
	if err != nil {
		return admissionHTTPError(c, err)
	}
	publishEvent(queue.KindUpdated, res)
	return c.JSON(http.StatusOK, toReservationResp(res))
}

// Get returns a reservation joined with restaurant and address info.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	det, err := h.Reservations.GetDetail(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, det)
}

// ByClient lists a client's reservations by exact name and phone.
func (h *ReservationHandler) ByClient(c echo.Context) error {
	name := strings.TrimSpace(c.QueryParam("name"))
	phone := strings.TrimSpace(c.QueryParam("phone"))
	if name == "" || phone == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and phone required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Reservations.FindByClient(ctx, name, phone)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]reservationResp, 0, len(list))
	for _, r := range list {
		out = append(out, toReservationResp(r))
	}
	return c.JSON(http.StatusOK, out)
}

// canServeReservation allows admins and staff assigned to the
// reservation's restaurant.
func (h *ReservationHandler) canServeReservation(ctx context.Context, c echo.Context, res model.Reservation) bool {
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
	return emp.LocationRestaurantID != nil && *emp.LocationRestaurantID == res.LocationRestaurantID
}

// Start marks a reservation as seated.  Staff action.
func (h *ReservationHandler) Start(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !h.canServeReservation(ctx, c, res) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ok, err := h.Reservations.Start(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "start failed"})
	}
	if !ok {
		// Already finished; a finished reservation cannot be seated.
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation already finished"})
	}
	res.IsStarted = true
	publishEvent(queue.KindStarted, res)
	return c.NoContent(http.StatusNoContent)
}

// Finish closes a reservation and stamps its end time.  Staff action;
// idempotent against the sweeper racing it.
func (h *ReservationHandler) Finish(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !h.canServeReservation(ctx, c, res) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	now := time.Now()
	ok, err := h.Reservations.Finish(ctx, id, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "finish failed"})
	}
	if ok {
		res.IsFinished = true
		res.EndTime = &now
		publishEvent(queue.KindFinished, res)
	}
	// Either we finished it just now or it was finished already; both
	// leave the row in the requested state.
	return c.NoContent(http.StatusNoContent)
}
