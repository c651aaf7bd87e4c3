package fetcher

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"
)

// DefaultMaxDownloadBytes caps a single media file.
const DefaultMaxDownloadBytes = 100 << 20

// Downloader streams media files to disk.
// It is safe for concurrent use.
type Downloader struct {
	client   *http.Client
	limiter  *rate.Limiter
	maxBytes int64
	logger   *slog.Logger
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithRateLimit limits downloads to perSecond requests per second.
// 0 or less disables the limit.
func WithRateLimit(perSecond float64) DownloaderOption {
	return func(d *Downloader) {
		if perSecond <= 0 {
			d.limiter = nil
			return
		}
		burst := max(1, int(perSecond))
		d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMaxBytes caps the size of one file.
func WithMaxBytes(n int64) DownloaderOption {
	return func(d *Downloader) {
		if n > 0 {
			d.maxBytes = n
		}
	}
}

// WithDownloadLogger sets a custom logger.
func WithDownloadLogger(logger *slog.Logger) DownloaderOption {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// NewDownloader creates a Downloader using client.
func NewDownloader(client *http.Client, opts ...DownloaderOption) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	d := &Downloader{
		client:   client,
		maxBytes: DefaultMaxDownloadBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// DownloadBinary saves the body of a GET to rawURL at dest, creating parent
// directories as needed. The file is written under a temporary name and
// renamed once complete, so dest never holds a partial file. Failures are
// *DownloadError.
func (d *Downloader) DownloadBinary(ctx context.Context, rawURL, dest string) (string, error) {
	if err := d.download(ctx, rawURL, dest); err != nil {
		d.logger.Debug("download failed", "url", rawURL, "error", err)
		return "", &DownloadError{URL: rawURL, Err: err}
	}
	d.logger.Debug("downloaded", "url", rawURL, "path", dest)
	return dest, nil
}

func (d *Downloader) download(ctx context.Context, rawURL, dest string) error {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &StatusError{Code: resp.StatusCode}
	}

	body, closeBody, err := decodeBody(resp)
	if err != nil {
		return err
	}
	defer closeBody()

	return d.writeFile(body, dest)
}

// writeFile copies r to dest through a temporary file.
func (d *Downloader) writeFile(r io.Reader, dest string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp) //nolint:gosec // dest is built from a sanitized media file name
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	n, err := io.Copy(f, io.LimitReader(r, d.maxBytes+1))
	if err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if n > d.maxBytes {
		return fmt.Errorf("%w: more than %d bytes", ErrTooLarge, d.maxBytes)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

// decodeBody wraps the response body according to its Content-Encoding.
// The returned func closes the decoders; resp.Body is left to the caller.
func decodeBody(resp *http.Response) (io.Reader, func(), error) {
	if resp.Body == nil {
		return nil, nil, errors.New("empty response body")
	}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip decode: %w", err)
		}
		return gz, func() { _ = gz.Close() }, nil
	case "br":
		return brotli.NewReader(resp.Body), func() {}, nil
	case "deflate":
		return inflate(resp.Body)
	default:
		return resp.Body, func() {}, nil
	}
}

// inflate decodes an HTTP deflate body: zlib-wrapped as the protocol says,
// or raw DEFLATE as some servers send it.
func inflate(body io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(body)
	header, err := br.Peek(2)
	if err == nil && header[0]&0x0f == 8 && (uint16(header[0])<<8|uint16(header[1]))%31 == 0 {
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("deflate decode: %w", err)
		}
		return zr, func() { _ = zr.Close() }, nil
	}
	fl := flate.NewReader(br)
	return fl, func() { _ = fl.Close() }, nil
}
