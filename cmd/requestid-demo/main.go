// Command requestid-demo serves GET /test behind the request ID middleware stack.
package main

import (
	"net/http"

	"github.com/nimburion/requestid/pkg/cli"
	"github.com/nimburion/requestid/pkg/config"
	"github.com/nimburion/requestid/pkg/middleware/requestid"
	"github.com/nimburion/requestid/pkg/server/router"
)

func main() {
	cli.Execute(cli.NewServiceCommand(cli.ServiceCommandOptions{
		Name:           "requestid-demo",
		Description:    "Request ID middleware demo service",
		EnvPrefix:      "APP",
		RegisterRoutes: registerRoutes,
	}))
}

func registerRoutes(r router.Router, cfg *config.Config) {
	header := cfg.RequestID.Middleware().Header
	if header == "" {
		header = requestid.DefaultHeader
	}
	r.GET("/test", testHandler(header))
}

type testResponse struct {
	RequestID string `json:"request_id"`
	Inbound   string `json:"inbound"`
}

func testHandler(header string) router.HandlerFunc {
	return func(c router.Context) error {
		return c.JSON(http.StatusOK, testResponse{
			RequestID: requestid.Extract(c).String(),
			Inbound:   c.Request().Header.Get(header),
		})
	}
}
