package middleware

import (
	"github.com/labstack/echo/v4"
)

// RequestRecorder counts finished requests.
type RequestRecorder interface {
	HTTPRequest(method string, status int)
}

// RequestMetrics returns middleware that records the method and final
// status of every request. It must sit inside RequestLogger so the error
// handler has already written the response.
func RequestMetrics(rec RequestRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			rec.HTTPRequest(c.Request().Method, c.Response().Status)
			return nil
		}
	}
}
