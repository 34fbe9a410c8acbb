package logging

import (
	"fmt"
	"strings"
)

const (
	headerPrefix         = "header:"
	responseHeaderPrefix = "resp_header:"
)

// lineTemplate is a Format string split into literal text and placeholders.
type lineTemplate []segment

type segment struct {
	literal string
	value   func(ev *event) string
}

// compileTemplate parses ${...} placeholders once so rendering a line does no parsing.
// A "${" without a closing brace is kept as literal text.
func compileTemplate(format string) lineTemplate {
	if format == "" {
		return nil
	}

	var tpl lineTemplate
	rest := format
	for {
		open := strings.Index(rest, "${")
		if open < 0 {
			break
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			break
		}
		closing += open

		if open > 0 {
			tpl = append(tpl, segment{literal: rest[:open]})
		}
		tpl = append(tpl, segment{value: placeholder(rest[open+2 : closing])})
		rest = rest[closing+1:]
	}
	if rest != "" {
		tpl = append(tpl, segment{literal: rest})
	}
	return tpl
}

func placeholder(name string) func(ev *event) string {
	switch {
	case strings.HasPrefix(name, headerPrefix):
		header := strings.TrimPrefix(name, headerPrefix)
		return func(ev *event) string {
			return dashIfEmpty(ev.req.Header.Get(header))
		}
	case strings.HasPrefix(name, responseHeaderPrefix):
		header := strings.TrimPrefix(name, responseHeaderPrefix)
		return func(ev *event) string {
			if ev.respHdr == nil {
				return "-"
			}
			return dashIfEmpty(ev.respHdr.Get(header))
		}
	}

	resolve, ok := resolvers[canonicalField(name)]
	if !ok {
		return func(*event) string { return "-" }
	}
	return func(ev *event) string {
		value, ok := resolve(ev)
		if !ok || value == nil {
			return "-"
		}
		return dashIfEmpty(fmt.Sprint(value))
	}
}

func (t lineTemplate) render(ev *event) string {
	var b strings.Builder
	for _, seg := range t {
		if seg.value == nil {
			b.WriteString(seg.literal)
			continue
		}
		b.WriteString(seg.value(ev))
	}
	return b.String()
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
