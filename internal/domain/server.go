package domain

import (
	"context"
	"fmt"
)

const (
	MinPort = 1
	MaxPort = 65535
)

// ServerEntry is one game server the login flow can hand a player to.
type ServerEntry struct {
	Name   string `json:"name"`
	Port   uint16 `json:"port"`
	Domain string `json:"domain,omitempty"`
}

func (e ServerEntry) String() string {
	if e.Domain == "" {
		return fmt.Sprintf("%s (port %d)", e.Name, e.Port)
	}
	return fmt.Sprintf("%s (%s, port %d)", e.Name, e.Domain, e.Port)
}

// ValidPort reports whether port fits in [MinPort, MaxPort].
func ValidPort(port int) bool {
	return port >= MinPort && port <= MaxPort
}

// Matcher selects registry entries. Empty fields (zero Port) are ignored; the
// rest must all match.
type Matcher struct {
	Domain string
	Name   string
	Port   int
}

func (m Matcher) IsEmpty() bool {
	return m.Domain == "" && m.Name == "" && m.Port == 0
}

// ServerRepository persists full registry snapshots.
type ServerRepository interface {
	Load(ctx context.Context) ([]ServerEntry, error)
	Save(ctx context.Context, entries []ServerEntry) error
}
