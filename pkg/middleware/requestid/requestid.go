package requestid

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"regexp"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/nimburion/requestid/pkg/middleware"
	"github.com/nimburion/requestid/pkg/server/router"
)

const (
	// DefaultHeader is the header read from requests and written to responses.
	DefaultHeader = "X-Request-ID"

	// LogPlaceholder is substituted with the request ID by the logging middleware.
	LogPlaceholder = "${request_id}"
)

// Source describes how a request obtained its ID.
type Source string

const (
	// SourceGenerated means no inbound value was present.
	SourceGenerated Source = "generated"
	// SourceInbound means the inbound header value was adopted.
	SourceInbound Source = "inbound"
	// SourceReplaced means an inbound value was present but rejected.
	SourceReplaced Source = "replaced"
	// SourceExisting means the request already carried an ID in its context.
	SourceExisting Source = "existing"
)

// Observer is notified once per request with the resolved ID.
type Observer func(id ID, source Source)

// Config configures the request ID middleware. Start from DefaultConfig:
// an empty Header or Generator is replaced by its default, booleans are taken as given.
type Config struct {
	// Header is the inbound and outbound header name.
	Header string

	// EchoHeader writes the resolved ID to the response header.
	EchoHeader bool

	// Trust decides when an inbound value may be adopted.
	Trust TrustPolicy

	// TrustedNetworks lists CIDRs or addresses admitted under TrustNetworks.
	TrustedNetworks []string

	// Generator names a registered generator (uuid, uuidv7, alphanumeric).
	Generator string

	// GeneratorFunc overrides Generator when set.
	GeneratorFunc Generator

	// MaxLength bounds adopted inbound values. Zero means unbounded.
	MaxLength int

	// AllowedPattern is a regular expression adopted inbound values must match.
	// Empty admits any valid header value.
	AllowedPattern string

	// Observer is called after the ID is resolved and before the next handler runs.
	Observer Observer
}

// DefaultConfig returns the reference behavior: X-Request-ID, echoed, caller values trusted, UUIDv4.
func DefaultConfig() Config {
	return Config{
		Header:     DefaultHeader,
		EchoHeader: true,
		Trust:      TrustAlways,
		Generator:  GeneratorUUID,
	}
}

// Middleware is a compiled, immutable request ID middleware. It is safe for concurrent use.
type Middleware struct {
	header    string
	echo      bool
	trust     TrustPolicy
	networks  []netip.Prefix
	generate  Generator
	maxLength int
	pattern   *regexp.Regexp
	observer  Observer
}

// New validates cfg and compiles it into a Middleware.
func New(cfg Config) (*Middleware, error) {
	header := strings.TrimSpace(cfg.Header)
	if header == "" {
		header = DefaultHeader
	}

	var errs []error
	if !httpguts.ValidHeaderFieldName(header) {
		errs = append(errs, fmt.Errorf("invalid header name %q", cfg.Header))
	}

	trust, err := ParseTrustPolicy(string(cfg.Trust))
	if err != nil {
		errs = append(errs, err)
	}

	networks, err := parseNetworks(cfg.TrustedNetworks)
	if err != nil {
		errs = append(errs, err)
	} else if trust == TrustNetworks && len(networks) == 0 {
		errs = append(errs, errors.New("trust policy trusted_networks requires at least one trusted network"))
	}

	generate := cfg.GeneratorFunc
	if generate == nil {
		generate, err = LookupGenerator(cfg.Generator)
		if err != nil {
			errs = append(errs, err)
		}
	}

	maxLength := cfg.MaxLength
	if maxLength < 0 {
		errs = append(errs, fmt.Errorf("max length must not be negative, got %d", maxLength))
	}

	var pattern *regexp.Regexp
	if cfg.AllowedPattern != "" {
		pattern, err = regexp.Compile(cfg.AllowedPattern)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid allowed pattern: %w", err))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("requestid: %w", errors.Join(errs...))
	}

	return &Middleware{
		header:    header,
		echo:      cfg.EchoHeader,
		trust:     trust,
		networks:  networks,
		generate:  generate,
		maxLength: maxLength,
		pattern:   pattern,
		observer:  cfg.Observer,
	}, nil
}

// Validate reports the problems New would reject cfg for.
func Validate(cfg Config) error {
	_, err := New(cfg)
	return err
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(cfg Config) *Middleware {
	m, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return m
}

// RequestID creates middleware with DefaultConfig.
func RequestID() router.MiddlewareFunc {
	return MustNew(DefaultConfig()).Handler()
}

// WithConfig creates middleware from cfg and panics if cfg is invalid.
func WithConfig(cfg Config) router.MiddlewareFunc {
	return MustNew(cfg).Handler()
}

// Header returns the configured header name.
func (m *Middleware) Header() string {
	return m.header
}

// LogFormat returns an access log template that includes the request ID.
func (m *Middleware) LogFormat() string {
	return `${remote_addr} "${request_method} ${request_uri} ${server_protocol}" ${status} ${duration_ms}ms "${http_user_agent}" ` +
		m.header + "=" + LogPlaceholder
}

// Handler returns the middleware for router.Router implementations.
func (m *Middleware) Handler() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			id, source := m.resolve(req)

			c.Set(middleware.RequestIDStoreKey, id)
			if source != SourceExisting {
				c.SetRequest(req.WithContext(WithRequestID(req.Context(), id)))
			}

			// Headers are frozen once next writes the status line, so echo first.
			if m.echo {
				c.Response().Header().Set(m.header, id.String())
			}
			m.notify(id, source)

			return next(c)
		}
	}
}

// HTTP wraps a plain net/http handler with the same behavior as Handler.
func (m *Middleware) HTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, source := m.resolve(r)
		if source != SourceExisting {
			r = r.WithContext(WithRequestID(r.Context(), id))
		}
		if m.echo {
			w.Header().Set(m.header, id.String())
		}
		m.notify(id, source)

		next.ServeHTTP(w, r)
	})
}

// Generate returns a new ID from the configured generator.
func (m *Middleware) Generate() ID {
	return m.generate()
}

func (m *Middleware) resolve(r *http.Request) (ID, Source) {
	if id, ok := assigned(r.Context()); ok {
		return id, SourceExisting
	}

	inbound := r.Header.Get(m.header)
	if inbound == "" {
		return m.generate(), SourceGenerated
	}
	if m.admits(r) && m.valid(inbound) {
		return ID(inbound), SourceInbound
	}
	return m.generate(), SourceReplaced
}

func (m *Middleware) admits(r *http.Request) bool {
	switch m.trust {
	case TrustNever:
		return false
	case TrustNetworks:
		addr, ok := peerAddr(r)
		return ok && containsAddr(m.networks, addr)
	default:
		return true
	}
}

func (m *Middleware) valid(value string) bool {
	if m.maxLength > 0 && len(value) > m.maxLength {
		return false
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return false
	}
	return m.pattern == nil || m.pattern.MatchString(value)
}

func (m *Middleware) notify(id ID, source Source) {
	if m.observer != nil {
		m.observer(id, source)
	}
}
