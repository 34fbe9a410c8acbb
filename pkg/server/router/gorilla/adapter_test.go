package gorilla

import (
	"testing"

	"github.com/nimburion/requestid/pkg/server/router"
	"github.com/nimburion/requestid/pkg/server/router/contract"
)

func TestRouterContract(t *testing.T) {
	contract.TestRouterContract(t, func() router.Router {
		return NewRouter()
	})
}
