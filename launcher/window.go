package launcher

import (
	"github.com/pkg/browser"
)

// Window is the surface an authorization URL is presented on. The default
// implementation opens the system browser; embedders with an actual window
// handle (or tests) supply their own to get manual-closure detection.
type Window interface {
	// Open presents the authorization URL. An error means the window could
	// not be created at all (the popup-blocked case).
	Open(url string) error

	// Closed reports whether the user dismissed the window. Polled while a
	// callback is awaited; implementations without closure visibility
	// return false.
	Closed() bool

	// Close force-dismisses the window, if the implementation can.
	Close()
}

// BrowserWindow opens URLs in the system browser. The browser's lifetime is
// not observable, so Closed always reports false and Close is a no-op;
// abandoned flows end via the launcher deadline or context cancellation.
type BrowserWindow struct{}

// NewBrowserWindow returns the default system-browser window.
func NewBrowserWindow() *BrowserWindow {
	return &BrowserWindow{}
}

func (*BrowserWindow) Open(url string) error {
	return browser.OpenURL(url)
}

func (*BrowserWindow) Closed() bool {
	return false
}

func (*BrowserWindow) Close() {}
