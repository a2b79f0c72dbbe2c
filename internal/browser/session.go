// internal/browser/session.go
// Package browser drives a headless Chrome tab through chromedp and exposes
// it behind the schemas.BrowserDriver interface. One Session is one tab; a
// Session is not safe for concurrent use.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scout-cli/api/schemas"
	"github.com/xkilldash9x/scout-cli/internal/config"
)

// Session wraps one chromedp browser tab. All pointer and keyboard input goes
// through the humanizer so the tab's event stream paces like a person.
type Session struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
	human  *humanizer

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// NewSession launches a browser and opens a fresh tab. Close must be called
// to release the browser process.
func NewSession(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	human := newHumanizer(time.Now().UnixNano())
	// Park the virtual cursor around the upper third of the viewport, where a
	// real cursor tends to rest after page load.
	human.pos = vec2{
		x: float64(cfg.ViewportWidth) * (0.35 + human.rng.Float64()*0.3),
		y: float64(cfg.ViewportHeight) * (0.2 + human.rng.Float64()*0.2),
	}

	s := &Session{
		cfg:         cfg,
		logger:      logger.Named("browser"),
		human:       human,
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
	}

	// Start the browser eagerly so launch failures surface here, not on the
	// first navigation.
	startCtx, startCancel := context.WithTimeout(tabCtx, 30*time.Second)
	defer startCancel()
	if err := chromedp.Run(startCtx); err != nil {
		s.cancel()
		s.allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	s.logger.Debug("Browser session started",
		zap.Bool("headless", cfg.Headless),
		zap.Int("viewport_width", cfg.ViewportWidth),
		zap.Int("viewport_height", cfg.ViewportHeight),
	)
	return s, nil
}

// combineContext derives a context cancelled when either input is done, so
// actions respect both the session lifetime and the caller's deadline.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

// runActions executes chromedp actions under both the session and request
// contexts.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads the URL and waits for the page to settle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", zap.String("url", url))

	opCtx, opCancel := combineContext(s.ctx, ctx)
	defer opCancel()

	navTimeout := s.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 45 * time.Second
	}
	navCtx, navCancel := context.WithTimeout(opCtx, navTimeout)
	defer navCancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation timed out after %s: %w", navTimeout, err)
		}
		if opCtx.Err() != nil {
			return fmt.Errorf("navigation canceled: %w", opCtx.Err())
		}
		return fmt.Errorf("navigation failed: %w", err)
	}

	if err := s.WaitReady(opCtx); err != nil {
		if opCtx.Err() != nil {
			return opCtx.Err()
		}
		s.logger.Warn("Page settle failed after navigation", zap.Error(err))
	}
	return nil
}

// Capture snapshots the current page: serialized DOM, rendered text, and a
// screenshot. Partial failures degrade the snapshot instead of failing it;
// only a completely unreadable tab returns an error.
func (s *Session) Capture(ctx context.Context) (schemas.RawSignals, error) {
	capCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var signals schemas.RawSignals

	if err := s.runActions(capCtx, chromedp.Location(&signals.URL)); err != nil {
		return schemas.RawSignals{}, fmt.Errorf("failed to read page location: %w", err)
	}
	if err := s.runActions(capCtx, chromedp.OuterHTML("html", &signals.DOM, chromedp.ByQuery)); err != nil {
		s.logger.Warn("DOM capture failed", zap.String("url", signals.URL), zap.Error(err))
	}
	if err := s.runActions(capCtx, chromedp.Text("body", &signals.OCRText, chromedp.ByQuery)); err != nil {
		s.logger.Debug("Rendered text capture failed", zap.Error(err))
	}
	if err := s.runActions(capCtx, chromedp.CaptureScreenshot(&signals.Screenshot)); err != nil {
		s.logger.Debug("Screenshot capture failed", zap.Error(err))
	}

	if signals.DOM == "" && signals.OCRText == "" {
		return schemas.RawSignals{}, fmt.Errorf("capture produced no readable signals for %s", signals.URL)
	}
	return signals, nil
}

// elementRect reads the bounding box of the first element matching selector,
// in viewport coordinates.
type elementRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (s *Session) queryRect(ctx context.Context, selector string) (elementRect, error) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return null;
		const r = el.getBoundingClientRect();
		return {x: r.x, y: r.y, w: r.width, h: r.height};
	})()`, selector)

	var rect elementRect
	if err := s.runActions(ctx, chromedp.Evaluate(script, &rect)); err != nil {
		return elementRect{}, fmt.Errorf("failed to measure element %q: %w", selector, err)
	}
	if rect.W <= 0 || rect.H <= 0 {
		return elementRect{}, fmt.Errorf("element %q has no visible box", selector)
	}
	return rect, nil
}

// moveCursor walks the virtual cursor to target along a humanized trajectory,
// dispatching a mouseMoved event per waypoint. The total movement time comes
// from Fitts's law and is spread evenly over the waypoints.
func (s *Session) moveCursor(ctx context.Context, target vec2) error {
	dist := s.human.pos.dist(target)
	path := s.human.pathTo(target)
	pause := s.human.moveDuration(dist) / time.Duration(len(path))

	return s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		for _, p := range path {
			if err := input.DispatchMouseEvent(input.MouseMoved, p.x, p.y).Do(c); err != nil {
				return err
			}
			if err := chromedp.Sleep(pause).Do(c); err != nil {
				return err
			}
		}
		return nil
	}))
}

// pressAndRelease performs a left click at the given point with a realistic
// hold time between press and release.
func (s *Session) pressAndRelease(ctx context.Context, at vec2) error {
	return s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		press := input.DispatchMouseEvent(input.MousePressed, at.x, at.y).
			WithButton(input.MouseButton("left")).
			WithButtons(1).
			WithClickCount(1)
		if err := press.Do(c); err != nil {
			return err
		}
		if err := chromedp.Sleep(s.human.holdDuration()).Do(c); err != nil {
			return err
		}
		release := input.DispatchMouseEvent(input.MouseReleased, at.x, at.y).
			WithButton(input.MouseButton("left")).
			WithClickCount(1)
		return release.Do(c)
	}))
}

// Click scrolls the element into view, moves the cursor to a point inside it,
// and clicks.
func (s *Session) Click(ctx context.Context, selector string) error {
	s.logger.Debug("Clicking element", zap.String("selector", selector))

	clickCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.runActions(clickCtx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("element not clickable %q: %w", selector, err)
	}

	rect, err := s.queryRect(clickCtx, selector)
	if err != nil {
		return err
	}
	target := s.human.targetWithin(rect.X, rect.Y, rect.W, rect.H)

	if err := s.moveCursor(clickCtx, target); err != nil {
		return fmt.Errorf("cursor move failed for selector %q: %w", selector, err)
	}
	if err := s.pressAndRelease(clickCtx, target); err != nil {
		return fmt.Errorf("click failed for selector %q: %w", selector, err)
	}
	return nil
}

// ClickAt clicks at viewport coordinates, for targets that have no usable
// selector.
func (s *Session) ClickAt(ctx context.Context, x, y float64) error {
	s.logger.Debug("Clicking at coordinates", zap.Float64("x", x), zap.Float64("y", y))

	clickCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	target := vec2{x: x, y: y}
	if err := s.moveCursor(clickCtx, target); err != nil {
		return fmt.Errorf("cursor move to (%.0f, %.0f) failed: %w", x, y, err)
	}
	if err := s.pressAndRelease(clickCtx, target); err != nil {
		return fmt.Errorf("click at (%.0f, %.0f) failed: %w", x, y, err)
	}
	return nil
}

// TypeText focuses the field with a click, clears it, and types the text one
// key at a time with human cadence. When submit is set, Enter follows.
func (s *Session) TypeText(ctx context.Context, selector, text string, submit bool) error {
	s.logger.Debug("Typing into element",
		zap.String("selector", selector),
		zap.Int("text_length", len(text)),
		zap.Bool("submit", submit),
	)

	typeCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if err := s.Click(typeCtx, selector); err != nil {
		return fmt.Errorf("failed to focus element %q: %w", selector, err)
	}

	if err := s.runActions(typeCtx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.ActionFunc(func(c context.Context) error {
			prev := ' '
			for _, r := range text {
				if err := chromedp.Sleep(s.human.keyDelay(prev, r)).Do(c); err != nil {
					return err
				}
				if err := chromedp.SendKeys("document.activeElement", string(r), chromedp.ByJSPath).Do(c); err != nil {
					return err
				}
				prev = r
			}
			if submit {
				if err := chromedp.Sleep(s.human.keyDelay(prev, '\r')).Do(c); err != nil {
					return err
				}
				return chromedp.SendKeys("document.activeElement", "\r", chromedp.ByJSPath).Do(c)
			}
			return nil
		}),
	); err != nil {
		return fmt.Errorf("type failed for selector %q: %w", selector, err)
	}
	return nil
}

// Scroll scrolls the viewport vertically by deltaY pixels, delivered as a
// burst of wheel events that taper off.
func (s *Session) Scroll(ctx context.Context, deltaY float64) error {
	s.logger.Debug("Scrolling", zap.Float64("delta_y", deltaY))

	scrollCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	pos := s.human.pos
	if err := s.runActions(scrollCtx, chromedp.ActionFunc(func(c context.Context) error {
		for _, seg := range s.human.scrollSegments(deltaY) {
			wheel := input.DispatchMouseEvent(input.MouseWheel, pos.x, pos.y).
				WithDeltaX(0).
				WithDeltaY(seg)
			if err := wheel.Do(c); err != nil {
				return err
			}
			if err := chromedp.Sleep(s.human.scrollPause()).Do(c); err != nil {
				return err
			}
		}
		// Let lazy-loaded content react before the next capture.
		return chromedp.Sleep(200 * time.Millisecond).Do(c)
	})); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

// WaitReady waits for the DOM to be ready and gives late-loading content a
// short settle window.
func (s *Session) WaitReady(ctx context.Context) error {
	settle := s.cfg.SettleTimeout
	if settle <= 0 {
		settle = 10 * time.Second
	}
	settleCtx, cancel := context.WithTimeout(ctx, settle)
	defer cancel()

	if err := s.runActions(settleCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("page never became ready: %w", err)
	}

	if s.cfg.PostLoadWait > 0 {
		if err := s.runActions(ctx, chromedp.Sleep(s.cfg.PostLoadWait)); err != nil {
			return err
		}
	}
	return nil
}

// Close tears down the tab and the browser process.
func (s *Session) Close(ctx context.Context) error {
	s.logger.Debug("Closing browser session")

	// Best effort: ask the page to stop any in-flight loads before teardown.
	opCtx, opCancel := combineContext(s.ctx, ctx)
	stopCtx, stopCancel := context.WithTimeout(opCtx, 2*time.Second)
	_ = chromedp.Run(stopCtx, page.StopLoading())
	stopCancel()
	opCancel()

	s.cancel()
	s.allocCancel()
	return nil
}

var _ schemas.BrowserDriver = (*Session)(nil)
