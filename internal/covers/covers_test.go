package covers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestFetcher(t *testing.T, maxWidth int) *Fetcher {
	t.Helper()
	return &Fetcher{
		httpClient: http.DefaultClient,
		dir:        t.TempDir(),
		maxWidth:   maxWidth,
	}
}

func TestSaveResizesWideCovers(t *testing.T) {
	payload := testImage(t, 1200, 1800)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	f := newTestFetcher(t, 500)
	path, err := f.Save(context.Background(), "9784061530194", server.URL+"/cover.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.dir, "9784061530194.jpg"), path)

	saved, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 500, saved.Bounds().Dx())
}

func TestSaveKeepsSmallCovers(t *testing.T) {
	payload := testImage(t, 300, 450)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	f := newTestFetcher(t, 500)
	path, err := f.Save(context.Background(), "9784061530194", server.URL+"/cover.png")
	require.NoError(t, err)

	saved, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 300, saved.Bounds().Dx())
}

func TestSaveSkipsExistingCover(t *testing.T) {
	f := newTestFetcher(t, 500)
	existing := filepath.Join(f.dir, "9784061530194.jpg")
	require.NoError(t, os.WriteFile(existing, []byte("placeholder"), 0o644))

	// no server needed, an existing file short-circuits the download
	path, err := f.Save(context.Background(), "9784061530194", "http://unreachable.invalid/cover.jpg")
	require.NoError(t, err)
	assert.Equal(t, existing, path)
}

func TestSaveRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := newTestFetcher(t, 500)
	_, err := f.Save(context.Background(), "9784061530194", server.URL+"/missing.png")
	assert.Error(t, err)
}
