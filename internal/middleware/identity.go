package middleware

// identity.go holds the caller-identity helper shared by the rate
// limiter's key builder.  It understands the claim shapes JWTAuth
// leaves in the context: the "sub" claim arrives as a float64 from
// jwt.MapClaims, but tests and other middleware may store ints or
// strings directly.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID renders the authenticated user's ID for rate-limit
// bucket keys.  Unauthenticated requests share the "anon" bucket.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return "anon"
}
