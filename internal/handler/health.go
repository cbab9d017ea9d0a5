package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health answers liveness probes.  It intentionally touches no
// dependencies: the service should report healthy even while Redis or
// RabbitMQ are degraded, since each of those failures has its own
// fallback path.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
