package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const disposeTimeout = 5 * time.Second

const navigationStatusJS = `() => {
	const entry = performance.getEntriesByType('navigation')[0];
	return entry && entry.responseStatus ? entry.responseStatus : 0;
}`

// RodNavigator drives a remote Chrome over the DevTools protocol. Each
// navigation gets its own incognito context and tab.
type RodNavigator struct {
	browser    *rod.Browser
	disconnect context.CancelFunc
}

// ConnectBrowser attaches to the browser at controlURL. The connection is
// not bound to the run context so in-flight pages survive cancellation;
// call Close when done.
func ConnectBrowser(controlURL string) (*RodNavigator, error) {
	ctx, disconnect := context.WithCancel(context.Background())

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		disconnect()
		return nil, fmt.Errorf("%w: connect to chrome: %v", ErrEndpointUnavailable, err)
	}

	if version, err := browser.Version(); err == nil {
		slog.Info("connected to browser", "product", version.Product)
	}

	return &RodNavigator{browser: browser, disconnect: disconnect}, nil
}

// Navigate opens url in a fresh tab and captures the loaded document.
// Session setup and navigation are both bounded by ctx.
func (n *RodNavigator) Navigate(ctx context.Context, url string) (*Page, error) {
	incognito, err := n.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, sessionError(ctx, "incognito context", err)
	}
	defer n.dispose(incognito)

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, sessionError(ctx, "create page", err)
	}

	if err := page.Navigate(url); err != nil {
		return nil, navigationError(ctx, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, navigationError(ctx, err)
	}

	info, err := page.Info()
	if err != nil {
		return nil, navigationError(ctx, err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, navigationError(ctx, err)
	}

	status := 0
	if res, err := page.Eval(navigationStatusJS); err == nil {
		status = res.Value.Int()
	}

	return &Page{
		FinalURL:   info.URL,
		Title:      info.Title,
		HTML:       html,
		StatusCode: status,
	}, nil
}

// dispose closes the incognito context and its tabs on a context of its
// own, since the attempt context may already be done.
func (n *RodNavigator) dispose(incognito *rod.Browser) {
	ctx, cancel := context.WithTimeout(context.Background(), disposeTimeout)
	defer cancel()
	if err := incognito.Context(ctx).Close(); err != nil {
		slog.Debug("failed to close incognito context", "error", err)
	}
}

// Close drops the connection. The remote browser keeps running; it is
// shared and its lifecycle is managed elsewhere.
func (n *RodNavigator) Close() error {
	n.disconnect()
	return nil
}

// sessionError maps a failure to open a tab. Outside a deadline the
// browser itself is not answering.
func sessionError(ctx context.Context, op string, err error) error {
	if isDeadline(ctx, err) {
		return fmt.Errorf("%w: %s: %v", ErrNavigationTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrEndpointUnavailable, op, err)
}

func navigationError(ctx context.Context, err error) error {
	switch {
	case isDeadline(ctx, err), strings.Contains(err.Error(), "net::ERR_TIMED_OUT"):
		return fmt.Errorf("%w: %v", ErrNavigationTimeout, err)
	case connectionLost(err):
		return fmt.Errorf("%w: %v", ErrEndpointUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
}

func isDeadline(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// connectionLost reports failures of the DevTools socket itself, as
// opposed to errors Chrome reports for the page.
func connectionLost(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}
