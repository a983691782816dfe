package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cocochutney-reservations/internal/utils"
)

// SessionCookieName is the browser session cookie.
const SessionCookieName = "cc_session"

const sessionKey = "session_id"

// GuestSession makes sure every browser carries a signed session cookie
// and exposes its id through SessionID.  A missing, expired or tampered
// cookie is replaced with a fresh session.
func GuestSession(secret string, ttl time.Duration, secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ck, err := c.Cookie(SessionCookieName); err == nil {
				if id, err := utils.ParseGuestSessionToken(secret, ck.Value); err == nil {
					c.Set(sessionKey, id)
					return next(c)
				}
			}

			id := uuid.NewString()
			raw, exp, err := utils.NewGuestSessionToken(secret, id, ttl)
			if err != nil {
				c.Logger().Errorf("session: sign cookie: %v", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session unavailable"})
			}
			c.SetCookie(&http.Cookie{
				Name:     SessionCookieName,
				Value:    raw,
				Path:     "/",
				Expires:  exp,
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(sessionKey, id)
			return next(c)
		}
	}
}

// SessionID returns the browser session id set by GuestSession, or "".
func SessionID(c echo.Context) string {
	id, _ := c.Get(sessionKey).(string)
	return id
}
