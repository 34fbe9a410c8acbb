// Package recovery turns handler panics into JSON 500 responses correlated by request ID.
package recovery

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/nimburion/requestid/pkg/middleware/requestid"
	"github.com/nimburion/requestid/pkg/observability/logger"
	"github.com/nimburion/requestid/pkg/server/router"
)

// ErrorResponse is the body written after a recovered panic.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// Recovery creates middleware that recovers from panics in downstream handlers.
// The panic is logged with its stack and, if nothing was written yet, the
// client receives a 500 carrying the request ID. http.ErrAbortHandler is re-raised.
func Recovery(log logger.Logger) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if e, ok := r.(error); ok && errors.Is(e, http.ErrAbortHandler) {
					panic(r)
				}

				requestID := requestid.Extract(c).String()
				log.Error("panic recovered",
					"request_id", requestID,
					"panic", r,
					"stack", string(debug.Stack()),
				)

				if c.Response().Written() {
					return
				}
				if jsonErr := c.JSON(http.StatusInternalServerError, ErrorResponse{
					Error:     "internal_server_error",
					Message:   "an unexpected error occurred",
					RequestID: requestID,
				}); jsonErr != nil {
					log.Error("failed to send error response",
						"request_id", requestID,
						"error", jsonErr,
					)
				}
				err = nil
			}()

			return next(c)
		}
	}
}
