package registry

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/DoVri/Topps/internal/domain"
)

// ParseEntries reads a comma-separated list of "Name=domain:port" items.
// The domain may be left out ("Name=:17091").
func ParseEntries(s string) ([]domain.ServerEntry, error) {
	var entries []domain.ServerEntry
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		name, addr, ok := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("server %q: expected Name=domain:port", item)
		}

		host, portStr, err := net.SplitHostPort(strings.TrimSpace(addr))
		if err != nil {
			return nil, fmt.Errorf("server %q: %w", item, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil || !domain.ValidPort(port) {
			return nil, fmt.Errorf("server %q: %w", item, domain.ErrInvalidPort)
		}

		entries = append(entries, domain.ServerEntry{
			Name:   name,
			Port:   uint16(port),
			Domain: strings.ToLower(host),
		})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no servers in %q", s)
	}
	return entries, nil
}
