package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/alertdigest/alertdigest/internal/article"
	"github.com/alertdigest/alertdigest/internal/config"
)

// ErrHeadlessDisabled indicates the headless tier is switched off in
// configuration.
var ErrHeadlessDisabled = errors.New("headless tier disabled")

// HeadlessStrategy is the optional last-resort tier: it drives a shared
// headless Chrome through chromedp and snapshots the DOM after scripts run.
// Expensive, so it sits behind a concurrency semaphore and its own per-domain
// rate budget.
type HeadlessStrategy struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
	slots           chan struct{}
	navTimeout      time.Duration
	domainQPS       float64
	domainLimiters  sync.Map
	userAgent       string
}

// NewHeadlessStrategy launches the shared browser. It returns
// ErrHeadlessDisabled when the tier is off in configuration.
func NewHeadlessStrategy(cfg config.HeadlessConfig, userAgent string, logger *zap.Logger) (*HeadlessStrategy, error) {
	if !cfg.Enabled || cfg.MaxParallel <= 0 {
		return nil, ErrHeadlessDisabled
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(userAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		allocatorCancel()
		browserCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &HeadlessStrategy{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
		slots:           make(chan struct{}, cfg.MaxParallel),
		navTimeout:      cfg.Timeout(),
		domainQPS:       cfg.DomainQPS,
		userAgent:       userAgent,
	}, nil
}

// Close waits for the browser to exit, up to the caller's deadline, then
// tears down the allocator. Past the deadline the browser context is
// cancelled hard.
func (s *HeadlessStrategy) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		_ = chromedp.Cancel(s.browserCtx)
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("headless browser did not exit before deadline, cancelling hard")
		s.browserCancel()
	}
	s.allocatorCancel()
	return nil
}

// ID identifies this tier in reports and logs.
func (s *HeadlessStrategy) ID() string { return StrategyHeadless }

// Format reports the content format this tier produces.
func (s *HeadlessStrategy) Format() article.Format { return article.FormatHTML }

// Fetch renders the page with JavaScript enabled and returns the DOM
// snapshot.
func (s *HeadlessStrategy) Fetch(ctx context.Context, rawURL string) (string, error) {
	if s == nil {
		return "", ErrHeadlessDisabled
	}

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		return "", fmt.Errorf("acquire render slot: %w", ctx.Err())
	}

	if err := s.waitDomainBudget(ctx, rawURL); err != nil {
		return "", fmt.Errorf("render rate limit: %w", err)
	}

	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, s.navTimeout)
	defer cancelTask()

	// The tab only sees taskCtx; propagate the caller's cancellation into it.
	stop := context.AfterFunc(ctx, cancelTask)
	defer stop()

	meta := newDocumentMeta()
	chromedp.ListenTarget(tabCtx, meta.captureEvent)

	var html string
	err := chromedp.Run(taskCtx,
		network.Enable(),
		emulation.SetUserAgentOverride(s.userAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	if code := meta.status(); code >= http.StatusBadRequest {
		return "", &StatusError{Code: code}
	}
	s.logger.Debug("headless render complete",
		zap.String("url", rawURL),
		zap.Int("bytes", len(html)))
	return html, nil
}

// documentMeta holds the HTTP status of the first document response a tab
// receives, so a rendered bot-wall page still surfaces its 403.
type documentMeta struct {
	once       sync.Once
	statusCode int
}

func newDocumentMeta() *documentMeta {
	return &documentMeta{}
}

// captureEvent is a chromedp target listener. Subresource responses are
// ignored; the first document response wins.
func (m *documentMeta) captureEvent(ev interface{}) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.once.Do(func() {
		m.statusCode = int(resp.Response.Status)
	})
}

func (m *documentMeta) status() int {
	return m.statusCode
}

func (s *HeadlessStrategy) waitDomainBudget(ctx context.Context, rawURL string) error {
	if s.domainQPS <= 0 {
		return nil
	}
	val, _ := s.domainLimiters.LoadOrStore(domainOf(rawURL), rate.NewLimiter(rate.Limit(s.domainQPS), 1))
	if err := val.(*rate.Limiter).Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}
