package translation

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/pkg/file"
)

// Fetcher downloads translation files.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

func NewHTTPFetcher(client *http.Client, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{client: client, userAgent: userAgent}
}

// Fetch returns the body as text without any leading BOM.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindInvalid, "invalid translation url").WithContext("url", url)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindNetwork, "download failed").WithContext("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperror.New(apperror.KindNetwork, fmt.Sprintf("download failed with status %s", resp.Status)).
			WithContext("url", url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindNetwork, "read response").WithContext("url", url)
	}
	return string(file.StripBOM(body)), nil
}
