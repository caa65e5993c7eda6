// Package browser launches Chromium through rod for the session manager.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"ReviewScanner/internal/config"
	"ReviewScanner/internal/ports"
)

const scrollScript = `() => window.scrollTo(0, document.body.scrollHeight)`

// Launcher starts a maximized, stealth-patched browser.
type Launcher struct {
	cfg    config.BrowserConfig
	logger *slog.Logger
}

var _ ports.SessionLauncher = (*Launcher)(nil)

// NewLauncher wires browser settings.
func NewLauncher(cfg config.BrowserConfig, logger *slog.Logger) *Launcher {
	return &Launcher{cfg: cfg, logger: logger}
}

// Launch starts the browser, opens a stealth tab and loads homeURL.
func (l *Launcher) Launch(ctx context.Context, homeURL string) (ports.Session, error) {
	proc := newProcess(ctx, l.cfg)
	// rod generates a throwaway profile unless one is configured; it is removed on close.
	ephemeral := l.cfg.UserDataDir == ""

	controlURL, err := proc.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().Context(ctx).ControlURL(controlURL).NoDefaultDevice()
	if err := browser.Connect(); err != nil {
		stopProcess(proc, ephemeral)
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		_ = browser.Close()
		stopProcess(proc, ephemeral)
		return nil, fmt.Errorf("open stealth page: %w", err)
	}

	// Later calls bind their own contexts; the session must outlive the Open request.
	sess := &Session{
		browser:   browser.Context(context.Background()),
		page:      page.Context(context.Background()),
		proc:      proc,
		ephemeral: ephemeral,
	}
	if homeURL != "" {
		if err := sess.Navigate(ctx, homeURL); err != nil {
			_ = sess.Close()
			return nil, err
		}
	}

	if l.logger != nil {
		l.logger.Info("browser started", "headless", l.cfg.Headless, "home", homeURL)
	}
	return sess, nil
}

func newProcess(ctx context.Context, cfg config.BrowserConfig) *launcher.Launcher {
	proc := launcher.New().
		Context(ctx).
		Delete("enable-automation").
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Set("start-maximized").
		Set("disable-blink-features", "AutomationControlled")

	if cfg.Bin != "" {
		proc = proc.Bin(cfg.Bin)
	}
	if cfg.UserDataDir != "" {
		proc = proc.UserDataDir(cfg.UserDataDir)
	}
	return proc
}

func stopProcess(proc *launcher.Launcher, ephemeral bool) {
	proc.Kill()
	if ephemeral {
		proc.Cleanup()
	}
}

// Session is a single rod tab plus the browser process behind it.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
	proc    *launcher.Launcher
	// ephemeral marks a generated profile directory to delete on Close.
	ephemeral bool
}

var _ ports.Session = (*Session)(nil)

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	return nil
}

// Location reads the current URL of the tab.
func (s *Session) Location(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

// ScrollToBottom scrolls the document to its end.
func (s *Session) ScrollToBottom(ctx context.Context) error {
	if _, err := s.page.Context(ctx).Eval(scrollScript); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

// HTML returns the rendered document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("page html: %w", err)
	}
	return html, nil
}

// Texts reads innerText of every element matching selector, so line breaks are kept
// and hidden nodes, scripts and styles are left out, as a user would see the page.
func (s *Session) Texts(ctx context.Context, selector string) ([]string, error) {
	elements, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", selector, err)
	}

	texts := make([]string, 0, len(elements))
	for _, el := range elements {
		text, err := el.Text()
		if err != nil {
			return nil, fmt.Errorf("read %q text: %w", selector, err)
		}
		texts = append(texts, strings.TrimSpace(text))
	}
	return texts, nil
}

// Close shuts the browser down and removes a generated profile directory.
func (s *Session) Close() error {
	err := s.browser.Close()
	if s.proc != nil {
		stopProcess(s.proc, s.ephemeral)
	}
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
