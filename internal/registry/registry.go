package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/DoVri/Topps/internal/domain"
)

// Metrics receives registry events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	SetSize(n int)
	ObserveMutation(op, result string)
	ObservePersistFailure()
}

type noopMetrics struct{}

func (noopMetrics) SetSize(int)                    {}
func (noopMetrics) ObserveMutation(string, string) {}
func (noopMetrics) ObservePersistFailure()         {}

type Option func(*Registry)

func WithPolicy(p Policy) Option {
	return func(r *Registry) { r.policy = p }
}

// WithRepository enables persistence: Load reads from repo and every
// mutation writes the full snapshot back.
func WithRepository(repo domain.ServerRepository) Option {
	return func(r *Registry) { r.repo = repo }
}

func WithMetrics(m Metrics) Option {
	return func(r *Registry) {
		if m != nil {
			r.metrics = m
		}
	}
}

// Registry is safe for concurrent use. entries[:numDefaults] are the
// protected defaults and never move.
type Registry struct {
	mu          sync.RWMutex
	entries     []domain.ServerEntry
	numDefaults int
	fallback    domain.ServerEntry
	version     uint64

	policy  Policy
	repo    domain.ServerRepository
	metrics Metrics

	// flushMu serialises writes to repo; flushed is the version last written.
	flushMu sync.Mutex
	flushed uint64
}

func New(defaults []domain.ServerEntry, opts ...Option) (*Registry, error) {
	r := &Registry{
		policy:  UniquePort,
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}

	if len(defaults) == 0 {
		return nil, errors.New("registry needs at least one default server")
	}
	for _, e := range defaults {
		e.Name = strings.TrimSpace(e.Name)
		e.Domain = strings.ToLower(strings.TrimSpace(e.Domain))
		if e.Name == "" {
			return nil, fmt.Errorf("default server on port %d: %w", e.Port, domain.ErrInvalidName)
		}
		if e.Port == 0 {
			return nil, fmt.Errorf("default server %s: %w", e.Name, domain.ErrInvalidPort)
		}
		if err := r.checkUniqueLocked(e.Name, int(e.Port)); err != nil {
			return nil, fmt.Errorf("default server %s: %w", e.Name, err)
		}
		r.entries = append(r.entries, e)
	}
	r.numDefaults = len(r.entries)
	r.fallback = r.entries[0]
	r.metrics.SetSize(len(r.entries))

	return r, nil
}

func (r *Registry) Policy() Policy {
	return r.policy
}

// Fallback returns the first default entry.
func (r *Registry) Fallback() domain.ServerEntry {
	return r.fallback
}

// Load appends the persisted non-default entries after the defaults, in
// stored order. Entries that clash with the uniqueness policy are skipped.
func (r *Registry) Load(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}

	stored, err := r.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load server registry: %w", err)
	}

	r.mu.Lock()
	restored := 0
	for _, e := range stored {
		e.Name = strings.TrimSpace(e.Name)
		e.Domain = strings.ToLower(strings.TrimSpace(e.Domain))
		if r.isDefaultLocked(e) {
			continue
		}
		if e.Name == "" || e.Port == 0 {
			slog.WarnContext(ctx, "Skipping invalid persisted server", "name", e.Name, "port", e.Port)
			continue
		}
		if err := r.checkUniqueLocked(e.Name, int(e.Port)); err != nil {
			slog.WarnContext(ctx, "Skipping conflicting persisted server", "server", e.String(), "error", err)
			continue
		}
		r.entries = append(r.entries, e)
		restored++
	}
	total := len(r.entries)
	r.metrics.SetSize(total)
	r.mu.Unlock()

	slog.InfoContext(ctx, "Server registry loaded", "restored", restored, "total", total, "policy", r.policy.String())
	return nil
}

// Add appends a server after validating the port range and the uniqueness policy.
func (r *Registry) Add(ctx context.Context, name string, port int, serverDomain string) (domain.ServerEntry, error) {
	name = strings.TrimSpace(name)
	serverDomain = strings.ToLower(strings.TrimSpace(serverDomain))

	if !domain.ValidPort(port) {
		r.metrics.ObserveMutation("add", "invalid")
		return domain.ServerEntry{}, fmt.Errorf("%w: %d", domain.ErrInvalidPort, port)
	}
	if name == "" {
		r.metrics.ObserveMutation("add", "invalid")
		return domain.ServerEntry{}, domain.ErrInvalidName
	}

	entry := domain.ServerEntry{Name: name, Port: uint16(port), Domain: serverDomain}

	r.mu.Lock()
	if err := r.checkUniqueLocked(name, port); err != nil {
		r.mu.Unlock()
		r.metrics.ObserveMutation("add", "conflict")
		return domain.ServerEntry{}, err
	}
	r.entries = append(r.entries, entry)
	r.version++
	r.metrics.SetSize(len(r.entries))
	r.mu.Unlock()

	r.metrics.ObserveMutation("add", "ok")
	r.flush(ctx)
	return entry, nil
}

// Remove deletes the first non-default entry matching every non-empty
// matcher field. Defaults are skipped; when only defaults match the call
// fails with ErrProtectedDefault.
func (r *Registry) Remove(ctx context.Context, m domain.Matcher) (domain.ServerEntry, error) {
	if m.IsEmpty() {
		r.metrics.ObserveMutation("remove", "invalid")
		return domain.ServerEntry{}, domain.ErrEmptyMatcher
	}

	match := func(e domain.ServerEntry) bool { return matches(e, m) }

	r.mu.Lock()
	idx := slices.IndexFunc(r.entries[r.numDefaults:], match)
	if idx < 0 {
		protected := slices.IndexFunc(r.entries[:r.numDefaults], match)
		var name string
		if protected >= 0 {
			name = r.entries[protected].Name
		}
		r.mu.Unlock()
		if protected >= 0 {
			r.metrics.ObserveMutation("remove", "protected")
			return domain.ServerEntry{}, fmt.Errorf("%w: %s", domain.ErrProtectedDefault, name)
		}
		r.metrics.ObserveMutation("remove", "not_found")
		return domain.ServerEntry{}, domain.ErrServerNotFound
	}
	idx += r.numDefaults
	removed := r.entries[idx]
	r.entries = slices.Delete(r.entries, idx, idx+1)
	r.version++
	r.metrics.SetSize(len(r.entries))
	r.mu.Unlock()

	r.metrics.ObserveMutation("remove", "ok")
	r.flush(ctx)
	return removed, nil
}

// List returns a snapshot in insertion order.
func (r *Registry) List() []domain.ServerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entries)
}

// IsDefault reports whether e is one of the protected startup entries.
func (r *Registry) IsDefault(e domain.ServerEntry) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isDefaultLocked(e)
}

func (r *Registry) isDefaultLocked(e domain.ServerEntry) bool {
	for _, d := range r.entries[:r.numDefaults] {
		if d.Name == e.Name && d.Port == e.Port {
			return true
		}
	}
	return false
}

func (r *Registry) checkUniqueLocked(name string, port int) error {
	for _, e := range r.entries {
		switch r.policy {
		case UniqueName:
			if strings.EqualFold(e.Name, name) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateName, e.Name)
			}
		default:
			if int(e.Port) == port {
				return fmt.Errorf("%w: %d is used by %s", domain.ErrPortInUse, port, e.Name)
			}
		}
	}
	return nil
}

func matches(e domain.ServerEntry, m domain.Matcher) bool {
	if m.Domain != "" && !strings.EqualFold(e.Domain, strings.TrimSpace(m.Domain)) {
		return false
	}
	if m.Name != "" && e.Name != strings.TrimSpace(m.Name) {
		return false
	}
	if m.Port != 0 && int(e.Port) != m.Port {
		return false
	}
	return true
}

// flush writes the newest snapshot. A snapshot older than the one already
// written is dropped, so concurrent mutations cannot leave a stale file.
func (r *Registry) flush(ctx context.Context) {
	if r.repo == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.mu.RLock()
	snapshot := slices.Clone(r.entries)
	version := r.version
	r.mu.RUnlock()

	if version <= r.flushed {
		return
	}
	if err := r.repo.Save(ctx, snapshot); err != nil {
		r.metrics.ObservePersistFailure()
		slog.ErrorContext(ctx, "Failed to persist server registry", "entries", len(snapshot), "version", version, "error", err)
		return
	}
	r.flushed = version
}
