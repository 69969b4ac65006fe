package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps the small amount of direct HTTP the application does.
//
// All audio transfers go through yt-dlp; this client only fetches small
// resources such as album cover images.
//
// Example usage:
//
//	client := NewClient()
//	imageData, err := client.DownloadBytes(ctx, coverURL)
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new HTTP client.
//
// The client is configured with:
//   - 60 second timeout
//   - "sptfydl" User-Agent header
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		userAgent: "sptfydl",
	}
}

// Get performs a GET request and returns the response body as bytes.
//
// The request includes the configured User-Agent header.
//
// Returns an error if:
//   - The request fails
//   - The response status is not 200 OK
//   - Reading the body fails
//
// Example:
//
//	data, err := client.Get(ctx, "https://example.com/image.jpg")
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// DownloadBytes downloads a file and returns the bytes in memory.
//
// Use this for small files like cover art images.
//
// Example:
//
//	imageData, err := client.DownloadBytes(ctx, coverURL)
func (c *Client) DownloadBytes(ctx context.Context, url string) ([]byte, error) {
	return c.Get(ctx, url)
}
