package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
)

// MaskValue replaces sensitive values in log output.
const MaskValue = "***"

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"password":            true,
	"passwd":              true,
	"secret":              true,
	"token":               true,
	"api_key":             true,
	"apikey":              true,
	"access_token":        true,
	"session":             true,
	"session_id":          true,
}

// sensitiveKeywords mask any key containing them ("proxy_password", "auth_header").
var sensitiveKeywords = []string{"password", "passwd", "secret", "token", "auth", "credential", "cookie"}

// sensitiveQueryParams are query parameter names whose values are masked
// inside URL-valued attributes.
var sensitiveQueryParams = map[string]bool{
	"token":            true,
	"access_token":     true,
	"auth":             true,
	"key":              true,
	"api_key":          true,
	"apikey":           true,
	"sig":              true,
	"signature":        true,
	"x-amz-signature":  true,
	"x-amz-credential": true,
	"session":          true,
	"sessionid":        true,
	"password":         true,
	"preview_id":       true,
	"_wpnonce":         true,
}

// SanitizingHandler wraps an slog.Handler and strips credentials from
// attribute values before handing records on.
type SanitizingHandler struct {
	handler slog.Handler
}

// NewSanitizingHandler wraps handler. A nil handler falls back to the
// default logger's handler.
func NewSanitizingHandler(handler slog.Handler) *SanitizingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SanitizingHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's attributes and passes it on.
func (h *SanitizingHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a handler whose preset attributes are already sanitized.
func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = sanitizeAttr(a)
	}
	return &SanitizingHandler{handler: h.handler.WithAttrs(clean)}
}

// WithGroup returns a handler that nests subsequent attributes under name.
func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{handler: h.handler.WithGroup(name)}
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		clean := make([]slog.Attr, len(group))
		for i, ga := range group {
			clean[i] = sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, SanitizeURL(a.Value.String()))
	case slog.KindAny:
		if u, ok := a.Value.Any().(*url.URL); ok && u != nil {
			return slog.String(a.Key, SanitizeURL(u.String()))
		}
	}
	return a
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if sensitiveKeys[lower] {
		return true
	}
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// SanitizeURL removes userinfo and masks sensitive query parameters.
// Strings that are not absolute URLs are returned unchanged.
func SanitizeURL(raw string) string {
	if !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	changed := false
	if u.User != nil {
		u.User = nil
		changed = true
	}
	if u.RawQuery != "" {
		if q, masked := maskQuery(u.RawQuery); masked {
			u.RawQuery = q
			changed = true
		}
	}
	if !changed {
		return raw
	}
	return u.String()
}

// maskQuery rewrites sensitive parameter values in place, keeping the
// original encoding of everything else.
func maskQuery(rawQuery string) (string, bool) {
	parts := strings.Split(rawQuery, "&")
	masked := false
	for i, part := range parts {
		name, _, hasValue := strings.Cut(part, "=")
		if !hasValue {
			continue
		}
		decoded, err := url.QueryUnescape(name)
		if err != nil {
			decoded = name
		}
		if sensitiveQueryParams[strings.ToLower(decoded)] {
			parts[i] = name + "=" + MaskValue
			masked = true
		}
	}
	return strings.Join(parts, "&"), masked
}

// NewLogger returns a text logger writing to w. verbose selects Debug
// level, otherwise Warn.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSanitizingHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewJSONLogger returns a JSON-lines logger writing to w.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSanitizingHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
