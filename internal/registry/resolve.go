package registry

import (
	"net"
	"strings"

	"github.com/DoVri/Topps/internal/domain"
)

// ResolveByHost picks the server a request's Host header refers to: first an
// entry whose domain equals the host, then an entry whose name contains the
// host's first label (both ignoring case), and otherwise the fallback
// default. It always returns an entry.
func (r *Registry) ResolveByHost(host string) domain.ServerEntry {
	host = normalizeHost(host)
	if host == "" {
		return r.fallback
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.Domain != "" && e.Domain == host {
			return e
		}
	}

	label, _, _ := strings.Cut(host, ".")
	if label != "" {
		for _, e := range r.entries {
			if strings.Contains(strings.ToLower(e.Name), label) {
				return e
			}
		}
	}

	return r.fallback
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	return strings.TrimSuffix(strings.ToLower(host), ".")
}
