package registry

import (
	"fmt"
	"strings"
)

// Policy decides which field must be unique across the registry.
type Policy int

const (
	// UniquePort rejects an entry whose port is already listed.
	UniquePort Policy = iota
	// UniqueName rejects an entry whose name is already listed, ignoring case.
	UniqueName
)

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "port":
		return UniquePort, nil
	case "name":
		return UniqueName, nil
	default:
		return 0, fmt.Errorf("unknown registry policy %q", s)
	}
}

func (p Policy) String() string {
	if p == UniqueName {
		return "name"
	}
	return "port"
}
