package seqplay

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	// Frame codecs.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Fetcher opens the raw bytes of a frame.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, rawURL string) (io.ReadCloser, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return f(ctx, rawURL)
}

// DefaultFetcher reads http(s) URLs with Client and everything else
// (file:// URLs and bare paths) from the local filesystem.
type DefaultFetcher struct {
	Client *http.Client
}

// Fetch implements Fetcher.
func (f *DefaultFetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return f.fetchHTTP(ctx, rawURL)
	}

	path := rawURL
	if strings.HasPrefix(rawURL, "file://") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, err
		}
		path = u.Path
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (f *DefaultFetcher) fetchHTTP(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

func decodeFrame(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	return img, err
}
