package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/csvupload/internal/model"
)

// maxImageSize caps the size of a single downloaded image.
const maxImageSize = 32 * 1024 * 1024

var (
	// ErrNoFileName is returned when a path has no usable base name, e.g. "/".
	ErrNoFileName = errors.New("image path has no file name")

	// ErrUnexpectedStatus is returned when the server does not answer 200.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Image is the outcome of one download.
type Image struct {
	// Kind is "histogram" or "heatmap".
	Kind string

	// URL is the absolute URL that was requested.
	URL string

	// Path is the local file, empty when the download failed.
	Path string

	// Size is the number of bytes written.
	Size int64

	// Err is the download error, if any.
	Err error
}

// Fetcher downloads chart images from the analysis server.
type Fetcher struct {
	client    *http.Client
	serverURL string
	dir       string
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher storing images in dir.
// A nil client uses http.DefaultClient and a nil logger slog.Default().
func NewFetcher(client *http.Client, serverURL, dir string, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:    client,
		serverURL: serverURL,
		dir:       dir,
		logger:    logger,
	}
}

// FetchAll downloads the histogram and heatmap of d concurrently.
// Both downloads always run to completion. The returned slice holds one
// entry per image in that order; the error joins all per-image errors.
func (f *Fetcher) FetchAll(ctx context.Context, d model.Display) ([]Image, error) {
	if err := os.MkdirAll(f.dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	images := []Image{
		{Kind: "histogram"},
		{Kind: "heatmap"},
	}
	paths := []string{d.HistogramPath, d.HeatmapPath}
	names := make([]string, len(images))
	for i := range images {
		images[i].URL, names[i], images[i].Err = f.locate(paths[i])
	}
	// Charts sharing a base name would overwrite each other.
	if names[0] != "" && names[0] == names[1] {
		for i := range names {
			names[i] = images[i].Kind + "-" + names[i]
		}
	}

	var g errgroup.Group
	for i := range images {
		if images[i].Err != nil {
			continue
		}
		g.Go(func() error {
			images[i] = f.fetch(ctx, images[i], names[i])
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // Per-image errors are carried in the results

	var errs []error
	for _, img := range images {
		if img.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", img.Kind, img.Err))
			continue
		}
		f.logger.Debug("image saved", "kind", img.Kind, "path", img.Path, "bytes", img.Size)
	}
	return images, errors.Join(errs...)
}

// locate resolves a site path to its absolute URL and local file name.
func (f *Fetcher) locate(sitePath string) (string, string, error) {
	absURL, err := model.ResolveSitePath(f.serverURL, sitePath)
	if err != nil {
		return "", "", err
	}
	name, err := fileName(absURL)
	if err != nil {
		return absURL, "", err
	}
	return absURL, name, nil
}

// fetch downloads img.URL into the image directory as name.
func (f *Fetcher) fetch(ctx context.Context, img Image, name string) Image {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		img.Err = fmt.Errorf("failed to create request: %w", err)
		return img
	}

	resp, err := f.client.Do(req)
	if err != nil {
		img.Err = fmt.Errorf("request failed: %w", err)
		return img
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		img.Err = fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
		return img
	}

	target := filepath.Join(f.dir, name)
	n, err := writeFile(target, io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		img.Err = err
		return img
	}

	img.Path = target
	img.Size = n
	return img
}

// fileName returns the last element of the URL path.
func fileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("%w: %s", ErrNoFileName, rawURL)
	}
	return name, nil
}

func writeFile(target string, r io.Reader) (int64, error) {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304 -- name is a cleaned base name
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", target, err)
	}

	n, err := io.Copy(out, r)
	if err != nil {
		_ = out.Close() //nolint:errcheck // The copy error is more useful
		return n, fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return n, fmt.Errorf("failed to close %s: %w", target, err)
	}
	return n, nil
}
