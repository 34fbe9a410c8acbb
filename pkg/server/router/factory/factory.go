// Package factory creates router implementations from configuration.
package factory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nimburion/requestid/pkg/server/router"
	ginadapter "github.com/nimburion/requestid/pkg/server/router/gin"
	gorillaadapter "github.com/nimburion/requestid/pkg/server/router/gorilla"
	nethttpadapter "github.com/nimburion/requestid/pkg/server/router/nethttp"
)

// Router type names accepted by NewRouter.
const (
	TypeNetHTTP = "nethttp"
	TypeGin     = "gin"
	TypeGorilla = "gorilla"
)

var supported = map[string]func() router.Router{
	TypeNetHTTP: func() router.Router { return nethttpadapter.NewRouter() },
	TypeGin:     func() router.Router { return ginadapter.NewRouter() },
	TypeGorilla: func() router.Router { return gorillaadapter.NewRouter() },
}

// NewRouter creates a router from type. An empty type selects nethttp.
func NewRouter(routerType string) (router.Router, error) {
	rt := normalizeType(routerType)
	if create, ok := supported[rt]; ok {
		return create(), nil
	}

	return nil, fmt.Errorf("unsupported router type %q (supported: %s)", routerType, strings.Join(SupportedTypes(), ", "))
}

// IsSupported reports whether NewRouter accepts routerType.
func IsSupported(routerType string) bool {
	_, ok := supported[normalizeType(routerType)]
	return ok
}

// SupportedTypes returns the supported router types.
func SupportedTypes() []string {
	types := make([]string, 0, len(supported))
	for t := range supported {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func normalizeType(routerType string) string {
	rt := strings.TrimSpace(strings.ToLower(routerType))
	if rt == "" {
		return TypeNetHTTP
	}
	return rt
}
