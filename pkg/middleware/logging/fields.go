package logging

import (
	"net"
	"strings"
)

// Log field names. The nginx-style names can also be used as ${name} placeholders.
const (
	FieldRequestID     = "request_id"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatus        = "status"
	FieldDurationMS    = "duration_ms"
	FieldError         = "error"
	FieldRemoteAddr    = "remote_addr"
	FieldRemotePort    = "remote_port"
	FieldRequestMethod = "request_method"
	FieldRequestURI    = "request_uri"
	FieldURI           = "uri"
	FieldArgs          = "args"
	FieldQueryString   = "query_string"
	FieldRequestTime   = "request_time"
	FieldTimeLocal     = "time_local"
	FieldHost          = "host"
	FieldServerProto   = "server_protocol"
	FieldScheme        = "scheme"
	FieldHTTPReferer   = "http_referer"
	FieldHTTPUserAgent = "http_user_agent"
	FieldXForwardedFor = "x_forwarded_for"
	FieldRemoteUser    = "remote_user"
	FieldRequestLength = "request_length"

	// FieldLine carries the rendered Format template.
	FieldLine = "line"
)

var defaultFields = []string{
	FieldRequestID,
	FieldMethod,
	FieldPath,
	FieldStatus,
	FieldDurationMS,
	FieldRemoteAddr,
	FieldError,
}

var fieldAliases = map[string]string{
	"referer":    FieldHTTPReferer,
	"user_agent": FieldHTTPUserAgent,
	"protocol":   FieldServerProto,
	"uri_path":   FieldURI,
	"query":      FieldQueryString,
}

// resolver extracts one field from a request snapshot. ok is false when the
// field has no value for this event and must be omitted.
type resolver func(ev *event) (value any, ok bool)

var resolvers = map[string]resolver{
	FieldRequestID:     func(ev *event) (any, bool) { return ev.requestID, true },
	FieldMethod:        method,
	FieldRequestMethod: method,
	FieldPath:          path,
	FieldURI:           path,
	FieldStatus:        completed(func(ev *event) (any, bool) { return ev.status, true }),
	FieldDurationMS:    completed(func(ev *event) (any, bool) { return ev.duration.Milliseconds(), true }),
	FieldRequestTime:   completed(func(ev *event) (any, bool) { return ev.duration.Seconds(), true }),
	FieldError: func(ev *event) (any, bool) {
		return ev.err, ev.err != nil
	},
	FieldRemoteAddr: func(ev *event) (any, bool) { return ev.req.RemoteAddr, true },
	FieldRemotePort: func(ev *event) (any, bool) {
		_, port, err := net.SplitHostPort(ev.req.RemoteAddr)
		return port, err == nil
	},
	FieldRequestURI: func(ev *event) (any, bool) {
		if ev.req.URL.RawQuery == "" {
			return ev.req.URL.Path, true
		}
		return ev.req.URL.Path + "?" + ev.req.URL.RawQuery, true
	},
	FieldArgs:        query,
	FieldQueryString: query,
	FieldTimeLocal: func(ev *event) (any, bool) {
		return ev.start.Format("02/Jan/2006:15:04:05 -0700"), true
	},
	FieldHost:        func(ev *event) (any, bool) { return ev.req.Host, true },
	FieldServerProto: func(ev *event) (any, bool) { return ev.req.Proto, true },
	FieldScheme: func(ev *event) (any, bool) {
		if ev.req.TLS != nil {
			return "https", true
		}
		if proto := strings.TrimSpace(ev.req.Header.Get("X-Forwarded-Proto")); proto != "" {
			return proto, true
		}
		return "http", true
	},
	FieldHTTPReferer:   func(ev *event) (any, bool) { return ev.req.Referer(), true },
	FieldHTTPUserAgent: func(ev *event) (any, bool) { return ev.req.UserAgent(), true },
	FieldXForwardedFor: func(ev *event) (any, bool) { return ev.req.Header.Get("X-Forwarded-For"), true },
	FieldRemoteUser: func(ev *event) (any, bool) {
		if ev.req.URL.User == nil {
			return "", true
		}
		return ev.req.URL.User.Username(), true
	},
	FieldRequestLength: func(ev *event) (any, bool) {
		return max(ev.req.ContentLength, 0), true
	},
}

func method(ev *event) (any, bool) { return ev.req.Method, true }
func path(ev *event) (any, bool)   { return ev.req.URL.Path, true }
func query(ev *event) (any, bool)  { return ev.req.URL.RawQuery, true }

// completed omits fn on the start event, before a response exists.
func completed(fn resolver) resolver {
	return func(ev *event) (any, bool) {
		if ev.isStart {
			return nil, false
		}
		return fn(ev)
	}
}

// ValidField reports whether name, or one of its aliases, is a known log field.
func ValidField(name string) bool {
	_, ok := resolvers[canonicalField(name)]
	return ok
}

func canonicalField(field string) string {
	name := strings.ToLower(strings.TrimSpace(field))
	if alias, ok := fieldAliases[name]; ok {
		return alias
	}
	return name
}

// normalizeFields canonicalizes and deduplicates fields, dropping unknown names.
// An empty result falls back to the default field set.
func normalizeFields(fields []string) []string {
	normalized := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		name := canonicalField(field)
		if _, ok := resolvers[name]; !ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		normalized = append(normalized, name)
	}
	if len(normalized) == 0 {
		return append([]string{}, defaultFields...)
	}
	return normalized
}
