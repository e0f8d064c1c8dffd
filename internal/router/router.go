package router // route registration for the reservation API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/restaurant-reservation/internal/config"
	"github.com/iliyamo/restaurant-reservation/internal/handler"
	"github.com/iliyamo/restaurant-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// Handlers collects every handler the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Identity    *handler.IdentityHandler
	Employee    *handler.EmployeeHandler
	Restaurant  *handler.RestaurantHandler
	Location    *handler.LocationHandler
	Reservation *handler.ReservationHandler
	File        *handler.FileHandler
}

// Register mounts all routes.  Public browse and booking endpoints take
// the rate limiter; staff and admin surfaces sit behind JWT plus an
// authority gate.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	jwtAuth := middleware.JWTAuth(cfg.JWTSecret)

	// Session endpoints.  Logout needs the bearer to revoke all
	// sessions, so it lives behind JWTAuth.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register, limiter)
	auth.POST("/login", h.Auth.Login, limiter)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout, jwtAuth)
	e.GET("/v1/me", h.Auth.Me, jwtAuth)

	// Public browse: restaurants and their locations.
	e.GET("/v1/restaurants", h.Restaurant.List)
	e.GET("/v1/restaurants/:id", h.Restaurant.Get)
	e.GET("/v1/restaurants/:id/locations", h.Restaurant.LocationsOf)
	e.GET("/v1/locations", h.Location.List)
	e.GET("/v1/locations/:restaurantId/:addressId", h.Location.Get)
	e.GET("/v1/addresses/:id", h.Location.GetAddress)

	// Booking: open to clients, rate limited per identity/IP.
	res := e.Group("/v1/reservations", limiter)
	res.POST("", h.Reservation.Create)
	res.PUT("/:id", h.Reservation.Update)
	res.GET("/:id", h.Reservation.Get)
	res.GET("/by-client", h.Reservation.ByClient)

	// Staff lifecycle actions; the handler checks the employee is
	// assigned to the reservation's restaurant.
	staff := e.Group("/v1/reservations", jwtAuth)
	staff.PUT("/:id/start", h.Reservation.Start)
	staff.PUT("/:id/finish", h.Reservation.Finish)

	// Location management: directors and managers of the restaurant
	// (checked in the handler) or admins.
	loc := e.Group("/v1/locations", jwtAuth)
	loc.POST("", h.Location.Create)
	loc.PUT("/:restaurantId/:addressId", h.Location.Update)
	loc.DELETE("/:restaurantId/:addressId", h.Location.Delete)

	// Admin surface.
	admin := e.Group("/v1/admin", jwtAuth, middleware.RequireAuthority(model.AuthorityAdmin))
	admin.POST("/identities", h.Identity.Create)
	admin.GET("/identities", h.Identity.List)
	admin.GET("/identities/:id", h.Identity.Get)
	admin.PUT("/identities/:id", h.Identity.Update)
	admin.DELETE("/identities/:id", h.Identity.Delete)
	admin.PUT("/identities/:id/password", h.Identity.ChangePassword)
	admin.PUT("/identities/:id/activate", h.Identity.SetActive(true))
	admin.PUT("/identities/:id/deactivate", h.Identity.SetActive(false))
	admin.POST("/identities/:id/files", h.File.Attach)
	admin.DELETE("/identities/:id/files", h.File.Detach)
	admin.GET("/identities/:id/files", h.File.ListForIdentity)

	admin.POST("/restaurants", h.Restaurant.Create)
	admin.PUT("/restaurants/:id", h.Restaurant.Update)
	admin.DELETE("/restaurants/:id", h.Restaurant.Delete)

	admin.POST("/employees", h.Employee.Create)
	admin.GET("/employees", h.Employee.List)
	admin.GET("/employees/:id", h.Employee.Get)
	admin.PUT("/employees/:id", h.Employee.Update)
	admin.DELETE("/employees/:id", h.Employee.Delete)
	admin.GET("/employees/:id/servants", h.Employee.Servants)
	admin.POST("/employees/:id/servants", h.Employee.AddServant)
	admin.DELETE("/employees/:id/servants/:servantId", h.Employee.RemoveServant)

	// File content endpoints: upload/remove need a session, download is
	// open so attachments can be linked.
	e.POST("/v1/files", h.File.Upload, jwtAuth)
	e.GET("/v1/files/:id", h.File.Download)
	e.DELETE("/v1/files", h.File.Remove, jwtAuth, middleware.RequireAuthority(model.AuthorityAdmin))
}
