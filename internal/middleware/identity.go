package middleware

import "github.com/labstack/echo/v4"

// rateSubject identifies the caller for rate limiting: the account when
// JWTAuth ran, else the browser session, else "anon".
func rateSubject(c echo.Context) string {
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		return "user:" + v
	}
	if id := SessionID(c); id != "" {
		return "session:" + id
	}
	return "anon"
}
