// Package private decides which URLs are kept out of the index. Pages from
// mail clients, chat apps, and browser-internal surfaces are rejected before
// any content is processed or persisted.
package private

import (
	"net/url"
	"strings"
)

// defaultRules lists host substrings, optionally with a path prefix, that
// mark a page as private. A rule of the form "host/path" matches when the
// hostname contains host and the path starts with /path.
var defaultRules = []string{
	"mail.google.com",
	"gmail.com",
	"web.whatsapp.com",
	"facebook.com/messages",
	"linkedin.com/messaging",
	"outlook.live.com",
	"outlook.office.com",
	"office.com",
	"slack.com",
	"teams.microsoft.com",
	"teams.live.com",
}

// privateSchemes are URL schemes that never reach the index.
var privateSchemes = map[string]bool{
	"chrome":           true,
	"chrome-extension": true,
	"about":            true,
	"edge":             true,
	"brave":            true,
	"file":             true,
}

// Filter classifies URLs as indexable or private.
type Filter struct {
	rules []rule
}

type rule struct {
	host string
	path string
}

// NewFilter builds a filter from the built-in rules plus any extra domains.
// Extra entries use the same "host" or "host/path" form as the defaults.
func NewFilter(extra ...string) *Filter {
	f := &Filter{}
	for _, r := range defaultRules {
		f.add(r)
	}
	for _, r := range extra {
		f.add(r)
	}
	return f
}

func (f *Filter) add(raw string) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return
	}
	host, path, _ := strings.Cut(raw, "/")
	r := rule{host: host}
	if path != "" {
		r.path = "/" + path
	}
	f.rules = append(f.rules, r)
}

// Indexable reports whether the URL may be ingested. Unparseable URLs are
// treated as private.
func (f *Filter) Indexable(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	if privateSchemes[strings.ToLower(u.Scheme)] {
		return false
	}

	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)
	for _, r := range f.rules {
		if !strings.Contains(host, r.host) {
			continue
		}
		if r.path == "" || strings.HasPrefix(path, r.path) {
			return false
		}
	}
	return true
}
