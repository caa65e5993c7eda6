// Package session owns the single process-wide browser session.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ReviewScanner/internal/domain"
	"ReviewScanner/internal/ports"
)

// Options tunes the manager.
type Options struct {
	HomeURL        string
	NavigateSettle time.Duration
	ScrollSettle   time.Duration
	Logger         *slog.Logger
	Metrics        ports.Metrics
}

// Manager opens, checks and releases the browser session.
// At most one session exists at a time; Open on an active session reuses it.
type Manager struct {
	launcher       ports.SessionLauncher
	homeURL        string
	navigateSettle time.Duration
	scrollSettle   time.Duration
	logger         *slog.Logger
	metrics        ports.Metrics
	now            func() time.Time

	mu      sync.Mutex
	current ports.Session
	handle  domain.SessionHandle
	state   domain.SessionState
}

var _ ports.Browser = (*Manager)(nil)

// NewManager wires a launcher with settle delays.
func NewManager(launcher ports.SessionLauncher, opts Options) *Manager {
	return &Manager{
		launcher:       launcher,
		homeURL:        opts.HomeURL,
		navigateSettle: opts.NavigateSettle,
		scrollSettle:   opts.ScrollSettle,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		now:            time.Now,
		state:          domain.SessionAbsent,
	}
}

// Open starts a session or returns the active one.
func (m *Manager) Open(ctx context.Context) (domain.SessionHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == domain.SessionActive && m.current != nil {
		m.debug("reusing active session", "session_id", m.handle.ID)
		return m.handle, nil
	}
	if m.state == domain.SessionUnusable {
		m.releaseLocked()
	}

	if m.launcher == nil {
		return domain.SessionHandle{}, domain.WrapError(domain.ErrSessionInit, "open session", errNoLauncher)
	}

	sess, err := m.launcher.Launch(ctx, m.homeURL)
	if err != nil {
		return domain.SessionHandle{}, domain.WrapError(domain.ErrSessionInit, "open session", err)
	}

	m.current = sess
	m.state = domain.SessionActive
	m.handle = domain.SessionHandle{
		ID:       uuid.NewString(),
		HomeURL:  m.homeURL,
		OpenedAt: m.now().UTC(),
	}
	if m.metrics != nil {
		m.metrics.ObserveSessionOpened()
	}
	m.info("session opened", "session_id", m.handle.ID, "home", m.homeURL)
	return m.handle, nil
}

// IsAlive checks the session. A failed check marks it unusable and returns false.
func (m *Manager) IsAlive(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.state != domain.SessionActive {
		return false
	}
	if _, err := m.current.Location(ctx); err != nil {
		m.state = domain.SessionUnusable
		m.warn("session liveness check failed", "session_id", m.handle.ID, "error", err)
		return false
	}
	return true
}

// State reports the lifecycle stage without touching the browser.
func (m *Manager) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Handle returns the active handle, if any.
func (m *Manager) Handle() (domain.SessionHandle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle, m.state == domain.SessionActive
}

// Navigate loads url and then blocks for the navigate settle delay.
func (m *Manager) Navigate(ctx context.Context, url string) error {
	sess, err := m.active()
	if err != nil {
		return err
	}
	if err := sess.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return Wait(ctx, m.navigateSettle)
}

// ScrollToBottom triggers lazy-loaded content and blocks for the scroll settle delay.
func (m *Manager) ScrollToBottom(ctx context.Context) error {
	sess, err := m.active()
	if err != nil {
		return err
	}
	if err := sess.ScrollToBottom(ctx); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return Wait(ctx, m.scrollSettle)
}

// PageHTML returns the rendered document of the current page.
func (m *Manager) PageHTML(ctx context.Context) (string, error) {
	sess, err := m.active()
	if err != nil {
		return "", err
	}
	html, err := sess.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return html, nil
}

// VisibleTexts returns the rendered text of every element matching selector on the current page.
func (m *Manager) VisibleTexts(ctx context.Context, selector string) ([]string, error) {
	sess, err := m.active()
	if err != nil {
		return nil, err
	}
	texts, err := sess.Texts(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("read visible text: %w", err)
	}
	return texts, nil
}

// Close releases the session. It is a no-op when no session exists.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseLocked()
}

func (m *Manager) releaseLocked() error {
	if m.current == nil {
		m.state = domain.SessionAbsent
		return nil
	}

	err := m.current.Close()
	m.info("session closed", "session_id", m.handle.ID)
	m.current = nil
	m.handle = domain.SessionHandle{}
	m.state = domain.SessionAbsent
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func (m *Manager) active() (ports.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.state != domain.SessionActive {
		return nil, domain.ErrSessionUnavailable
	}
	return m.current, nil
}

func (m *Manager) debug(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}

func (m *Manager) info(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Info(msg, args...)
	}
}

func (m *Manager) warn(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}
