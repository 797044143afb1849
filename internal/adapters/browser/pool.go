// Package browser loads live pages in headless Chrome and turns them into
// dom.Document snapshots, mirroring snapshot edits back into the tab.
package browser

import (
	"context"
	"errors"
	"sync"

	"github.com/chromedp/chromedp"

	"replykit/pkg/log"
)

// ErrPoolClosed is returned by WithTab after Close.
var ErrPoolClosed = errors.New("browser pool is closed")

// PoolConfig selects how Chrome is reached. RemoteURL, when set, attaches
// to an existing DevTools endpoint instead of launching a process.
type PoolConfig struct {
	ChromePath string
	RemoteURL  string
	Options    []chromedp.ExecAllocatorOption
}

// BrowserPool manages a single Chrome process and serializes tab usage
// (one tab at a time).
type BrowserPool struct {
	cfg  PoolConfig
	opts []chromedp.ExecAllocatorOption

	mu          sync.Mutex
	ctx         context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc
	closed      bool

	tabSem chan struct{}
}

// NewBrowserPool starts Chrome and returns a pool allowing one tab at a
// time.
func NewBrowserPool(cfg PoolConfig) (*BrowserPool, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		// Core
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),

		// Memory / CPU reduction
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-component-update", true),
		chromedp.Flag("disable-features", "Translate,BackForwardCache"),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
	)
	opts = append(opts, cfg.Options...)

	if cfg.ChromePath != "" {
		log.GlobalInfo("browser pool using custom chrome path", "path", cfg.ChromePath)
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}

	bp := &BrowserPool{
		cfg:    cfg,
		opts:   opts,
		tabSem: make(chan struct{}, 1),
	}
	if err := bp.start(); err != nil {
		return nil, err
	}
	return bp, nil
}

// start initializes or restarts the browser connection.
func (bp *BrowserPool) start() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return ErrPoolClosed
	}
	bp.stopLocked()

	var (
		allocCtx    context.Context
		cancelAlloc context.CancelFunc
	)
	if bp.cfg.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(context.Background(), bp.cfg.RemoteURL)
	} else {
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(context.Background(), bp.opts...)
	}
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	// Force Chrome startup
	if err := chromedp.Run(ctx); err != nil {
		cancelCtx()
		cancelAlloc()
		return err
	}

	bp.ctx = ctx
	bp.cancelAlloc = cancelAlloc
	bp.cancelCtx = cancelCtx

	log.GlobalInfo("browser pool chrome started", "remote", bp.cfg.RemoteURL != "")
	return nil
}

func (bp *BrowserPool) stopLocked() {
	if bp.cancelCtx != nil {
		bp.cancelCtx()
	}
	if bp.cancelAlloc != nil {
		bp.cancelAlloc()
	}
	bp.ctx, bp.cancelCtx, bp.cancelAlloc = nil, nil, nil
}

// WithTab runs fn with exclusive access to a fresh tab.
func (bp *BrowserPool) WithTab(fn func(ctx context.Context) error) error {
	return bp.WithTabCtx(context.Background(), fn)
}

// WithTabCtx is like WithTab but gives up waiting for the tab slot when ctx
// is done, and closes the tab when ctx is cancelled mid-run.
func (bp *BrowserPool) WithTabCtx(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case bp.tabSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-bp.tabSem }()

	tabCtx, tabCancel, err := bp.acquireTab()
	if err != nil {
		return err
	}
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	if err := fn(tabCtx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// acquireTab opens a tab and health-checks it, restarting Chrome once if
// the check fails.
func (bp *BrowserPool) acquireTab() (context.Context, context.CancelFunc, error) {
	tabCtx, tabCancel, err := bp.newTab()
	if err != nil {
		return nil, nil, err
	}

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		log.GlobalWarn("browser pool tab failed, restarting chrome", "error", err)

		if restartErr := bp.start(); restartErr != nil {
			return nil, nil, restartErr
		}
		return bp.newTab()
	}
	return tabCtx, tabCancel, nil
}

func (bp *BrowserPool) newTab() (context.Context, context.CancelFunc, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if bp.closed || bp.ctx == nil {
		return nil, nil, ErrPoolClosed
	}
	tabCtx, tabCancel := chromedp.NewContext(bp.ctx)
	return tabCtx, tabCancel, nil
}

// Close shuts the browser down. Later WithTab calls fail with
// ErrPoolClosed.
func (bp *BrowserPool) Close() {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return
	}
	bp.closed = true
	bp.stopLocked()
	log.GlobalInfo("browser pool chrome stopped")
}
