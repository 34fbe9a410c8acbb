// Package requestid attaches a correlation identifier to every HTTP request.
//
// The middleware resolves exactly one ID per request before any downstream
// handler runs. A value supplied by the caller in the configured header is adopted
// when the trust policy admits the caller and the value passes validation;
// otherwise a fresh ID is produced by the configured generator. The ID is stored
// in the request context and in the router extension store, and is echoed in the
// response header unless echoing is disabled.
//
// # Usage
//
//	mw, err := requestid.New(requestid.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	r := nethttp.NewRouter()
//	r.Use(mw.Handler())
//	r.GET("/hello", func(c router.Context) error {
//		return c.String(http.StatusOK, "request "+requestid.Extract(c).String())
//	})
//
// Plain net/http stacks use mw.HTTP(next) instead of mw.Handler().
//
// # Log lines
//
// LogFormat returns an access log template containing the ${request_id}
// placeholder understood by the logging middleware. Install the request ID
// middleware before the logging middleware so the placeholder resolves.
//
// # Trust
//
// TrustAlways adopts any valid inbound value, TrustNever always generates, and
// TrustNetworks adopts inbound values only from peers inside TrustedNetworks.
package requestid
