package fetcher

import (
	"errors"
	"fmt"
)

var (
	// ErrBrowserLaunch is returned when Chrome cannot be started.
	// It is fatal for a crawl run.
	ErrBrowserLaunch = errors.New("failed to launch browser")

	// ErrBrowserClosed is returned by FetchRenderedPage after Close.
	ErrBrowserClosed = errors.New("browser is closed")

	// ErrTooLarge is returned when a download exceeds the size cap.
	ErrTooLarge = errors.New("response exceeds size limit")

	// ErrUnsupportedProxy is returned for proxy URLs whose scheme is not
	// http, https or socks5.
	ErrUnsupportedProxy = errors.New("unsupported proxy scheme")
)

// NavigationError reports a page that could not be rendered: a timeout,
// a network failure or an error status on the main document.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// DownloadError reports a media file that could not be saved.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download of %s failed: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// StatusError is an HTTP error status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}
