package router // router defines how HTTP routes are registered

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cocochutney-reservations/internal/handler"
	"github.com/iliyamo/cocochutney-reservations/internal/middleware"
	"github.com/iliyamo/cocochutney-reservations/internal/model"
)

// RegisterRoutes registers routes that need neither a session nor a token.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterReservation registers the browser-facing reservation flow.  Every
// route runs inside the guest session so the payment callback can be tied
// to the browser that started the payment.  limit guards the form post.
func RegisterReservation(e *echo.Echo, r *handler.ReservationHandler, p *handler.PaymentHandler, session, limit echo.MiddlewareFunc) {
	g := e.Group("", session)
	g.POST("/reservation", r.Submit, limit)
	g.POST("/payment/verify", p.Verify)
	g.GET("/thankyou", r.ThankYou)
	g.GET("/payment_failed", r.PaymentFailed)
}

// RegisterWebhooks registers the gateway's server-to-server notifications.
// They carry their own signature and no cookies.
func RegisterWebhooks(e *echo.Echo, p *handler.PaymentHandler) {
	e.POST("/webhooks/razorpay", p.Webhook)
}

// RegisterAccount registers signup, login, the contact form and the
// authenticated customer endpoints under /v1.
func RegisterAccount(e *echo.Echo, a *handler.AccountHandler, addr *handler.AddressHandler, contact *handler.ContactHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	e.POST("/signup", a.Signup, limit)
	e.POST("/login", a.Login, limit)
	e.POST("/contact", contact.Submit, limit)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleCustomer, model.RoleStaff))
	auth.GET("/me", a.Me)
	auth.GET("/addresses", addr.List)
	auth.POST("/addresses", addr.Create)
}

// RegisterAdmin registers the staff booking views.  All routes require a
// valid JWT and the STAFF role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminBookingHandler, jwtSecret string) {
	g := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleStaff))
	g.GET("/bookings", h.List)
	g.GET("/bookings/:ref", h.Get)
}
