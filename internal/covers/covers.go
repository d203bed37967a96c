package covers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/viper"
)

const defaultMaxWidth = 500

// Fetcher downloads cover images and stores resized local copies,
// one JPEG per ISBN.
type Fetcher struct {
	httpClient *http.Client
	dir        string
	maxWidth   int
}

// NewFetcher creates a Fetcher using the configured cover directory
// and maximum width.
func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		dir:        viper.GetString("covers.dir"),
		maxWidth:   viper.GetInt("covers.maxwidth"),
	}
}

// Save downloads the image at url, resizes it down to the maximum
// width when needed and writes it as <dir>/<isbn>.jpg. It returns the
// path of the saved file. An already existing cover is left alone.
func (f *Fetcher) Save(ctx context.Context, isbn, url string) (string, error) {
	savePath := filepath.Join(f.dir, isbn+".jpg")
	if _, err := os.Stat(savePath); err == nil {
		return savePath, nil
	}

	maxWidth := f.maxWidth
	if maxWidth <= 0 {
		maxWidth = defaultMaxWidth
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d downloading cover", resp.StatusCode)
	}

	img, err := imaging.Decode(resp.Body, imaging.AutoOrientation(true))
	if err != nil {
		return "", err
	}

	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", err
	}

	if err := imaging.Save(img, savePath, imaging.JPEGQuality(85)); err != nil {
		return "", err
	}
	return savePath, nil
}
