package handler

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

// locale picks the response locale: the locale query parameter, then the
// highest weighted Accept-Language tag, then the configured default.
func (h *Handler) locale(r *http.Request) string {
	if v := strings.TrimSpace(r.URL.Query().Get("locale")); v != "" {
		return v
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		tags, _, err := language.ParseAcceptLanguage(header)
		if err == nil && len(tags) > 0 {
			return tags[0].String()
		}
	}
	return h.defaultLocale
}
