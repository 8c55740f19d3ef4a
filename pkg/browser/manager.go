package browser

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// ErrManagerClosed is returned for any operation after Close has begun.
var ErrManagerClosed = errors.New("browser manager is closed")

// defaultUserAgent masks headless automation from naive bot detection.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/146.0.0.0 Safari/537.36"

const (
	// submitGrace is added on top of the per-operation timeout when a
	// caller blocks on the loop, covering scheduling hand-off overhead.
	submitGrace = 10 * time.Second
	// loopJoinTimeout bounds how long Close waits for the loop goroutine.
	loopJoinTimeout = 5 * time.Second
)

type managerState int

const (
	stateUninitialized managerState = iota
	stateInitializing
	stateReady
	stateClosing
	stateClosed
)

// Manager owns a single Playwright browser and a URL-keyed page cache.
// All browser work runs on one background goroutine (the loop); public
// methods submit tasks and block for the result with a bounded wait.
// Initialization is lazy: the first operation launches the browser.
type Manager struct {
	mu    sync.Mutex
	state managerState
	loop  *loop

	// Touched only from the loop goroutine after init.
	pw      *playwright.Playwright
	browser playwright.Browser
	pages   map[string]*pageEntry

	headless  bool
	opTimeout time.Duration
	settle    time.Duration
}

type pageEntry struct {
	context  playwright.BrowserContext
	page     playwright.Page
	lastUsed time.Time
}

// NewManager returns an idle Manager. No browser process is started until
// the first page operation.
func NewManager(headless bool, opTimeout, settle time.Duration) *Manager {
	if opTimeout <= 0 {
		opTimeout = 30 * time.Second
	}
	return &Manager{
		headless:  headless,
		opTimeout: opTimeout,
		settle:    settle,
		pages:     make(map[string]*pageEntry),
	}
}

// ensureReady lazily launches Playwright under the manager mutex, so exactly
// one caller performs initialization and the rest wait for its outcome.
func (m *Manager) ensureReady() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case stateReady:
		return nil
	case stateClosing, stateClosed:
		return ErrManagerClosed
	}

	m.state = stateInitializing
	if m.loop == nil {
		m.loop = newLoop(16)
	}

	_, err := m.loop.submit(m.initBrowser, m.opTimeout+submitGrace)
	if err != nil {
		// Failed startup is retryable on the next call.
		m.state = stateUninitialized
		return fmt.Errorf("browser startup failed: %w", err)
	}

	m.state = stateReady
	return nil
}

// initBrowser runs on the loop goroutine.
func (m *Manager) initBrowser() (any, error) {
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	m.pw = pw
	m.browser = browser
	slog.Info("Browser manager ready", "headless", m.headless)
	return nil, nil
}

// resolvePage runs on the loop goroutine. It returns the cached live page
// for the URL or provisions a fresh context+page, navigates it, and waits
// for late capability registration to settle.
func (m *Manager) resolvePage(url string, forceNew bool) (playwright.Page, error) {
	if entry, ok := m.pages[url]; ok {
		if !forceNew && !entry.page.IsClosed() {
			entry.lastUsed = time.Now()
			return entry.page, nil
		}
		m.dropPage(url, entry)
	}

	context, err := m.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(defaultUserAgent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(m.opTimeout.Milliseconds()))

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(m.opTimeout.Milliseconds())),
	}); err != nil {
		page.Close()
		context.Close()
		return nil, fmt.Errorf("failed to load %s: %w", url, err)
	}

	if m.settle > 0 {
		// Scripts often register page capabilities after DOMContentLoaded.
		page.WaitForTimeout(float64(m.settle.Milliseconds()))
	}

	m.pages[url] = &pageEntry{context: context, page: page, lastUsed: time.Now()}
	slog.Debug("Page provisioned", "url", url)
	return m.pages[url].page, nil
}

func (m *Manager) dropPage(url string, entry *pageEntry) {
	if err := entry.page.Close(); err != nil {
		slog.Debug("Page close failed", "url", url, "error", err)
	}
	if err := entry.context.Close(); err != nil {
		slog.Debug("Context close failed", "url", url, "error", err)
	}
	delete(m.pages, url)
}

// Page loads the URL into the cache (or reuses the cached page). With
// forceNew the existing page is discarded and reloaded fresh.
func (m *Manager) Page(url string, forceNew bool) error {
	if err := m.ensureReady(); err != nil {
		return err
	}
	_, err := m.loop.submit(func() (any, error) {
		return m.resolvePage(url, forceNew)
	}, m.opTimeout+submitGrace)
	return err
}

// Eval evaluates a script against the page for the URL, loading the page
// first if it is not cached. arg, when non-nil, is passed to the script.
// Page handles never leave the loop goroutine; only the JSON-compatible
// evaluation result crosses back to the caller.
func (m *Manager) Eval(url string, script string, arg any) (any, error) {
	if err := m.ensureReady(); err != nil {
		return nil, err
	}
	return m.loop.submit(func() (any, error) {
		page, err := m.resolvePage(url, false)
		if err != nil {
			return nil, err
		}
		if arg != nil {
			return page.Evaluate(script, arg)
		}
		return page.Evaluate(script)
	}, m.opTimeout+submitGrace)
}

// ClosePage evicts one URL from the cache and releases its page and
// context. Unknown URLs and an uninitialized manager are no-ops; a closed
// manager fails like every other operation.
func (m *Manager) ClosePage(url string) error {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	switch state {
	case stateClosing, stateClosed:
		return ErrManagerClosed
	case stateUninitialized, stateInitializing:
		return nil
	}

	_, err := m.loop.submit(func() (any, error) {
		if entry, ok := m.pages[url]; ok {
			m.dropPage(url, entry)
		}
		return nil, nil
	}, m.opTimeout+submitGrace)
	return err
}

// Close shuts the manager down: drains the page cache, closes the browser,
// stops Playwright and joins the loop goroutine with a bounded wait.
// Close is idempotent, and every operation after it fails fast.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case stateClosed:
		return nil
	case stateUninitialized:
		m.state = stateClosed
		if m.loop != nil {
			return m.loop.stop(loopJoinTimeout)
		}
		return nil
	}

	m.state = stateClosing

	_, err := m.loop.submit(func() (any, error) {
		for url, entry := range m.pages {
			m.dropPage(url, entry)
		}
		if m.browser != nil {
			if cerr := m.browser.Close(); cerr != nil {
				slog.Warn("Browser close failed", "error", cerr)
			}
			m.browser = nil
		}
		if m.pw != nil {
			if serr := m.pw.Stop(); serr != nil {
				slog.Warn("Playwright stop failed", "error", serr)
			}
			m.pw = nil
		}
		return nil, nil
	}, m.opTimeout+submitGrace)

	if jerr := m.loop.stop(loopJoinTimeout); err == nil {
		err = jerr
	}

	m.state = stateClosed
	slog.Info("Browser manager closed")
	return err
}
