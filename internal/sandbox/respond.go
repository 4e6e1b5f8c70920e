package sandbox

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Response envelopes mirror the production API: lists carry
// {success, data, meta{total}}, mutations {success, message, data},
// failures a non-2xx status with {message, code}.

func ok(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func paged(c echo.Context, data interface{}, total int64) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
		"meta":    map[string]interface{}{"total": total},
	})
}

func fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, map[string]interface{}{
		"success": false,
		"code":    code,
		"message": message,
	})
}

func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
