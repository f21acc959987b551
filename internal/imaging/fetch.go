package imaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ironsheep/annotation-consensus/internal/model"
)

// ErrNotFound is returned when the imagery server has no image for an id.
var ErrNotFound = errors.New("source image not found")

// Fetcher downloads source imagery on demand and keeps it on disk.
//
// Files live under <CacheDir>/<campaign>/<phase>/<id>.png and are never
// downloaded twice. URLPattern may use the placeholders {Campaign}
// (capitalised campaign name), {Surf} ("Surf" in the surface phase, empty
// in the click phase) and {id}.
type Fetcher struct {
	CacheDir   string
	URLPattern string
	Campaign   model.Campaign
	Client     *http.Client
}

// NewFetcher returns a fetcher with a 30 second HTTP timeout.
func NewFetcher(cacheDir, urlPattern string, campaign model.Campaign) *Fetcher {
	return &Fetcher{
		CacheDir:   cacheDir,
		URLPattern: urlPattern,
		Campaign:   campaign,
		Client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Path returns where the image id of phase is cached. Ids that could
// resolve outside CacheDir are rejected with ErrUnsafeID.
func (f *Fetcher) Path(phase model.Phase, id model.ID) (string, error) {
	name, err := fileName(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.CacheDir, string(f.Campaign), string(phase), name), nil
}

// URL returns the download location of the image id of phase.
func (f *Fetcher) URL(phase model.Phase, id model.ID) string {
	surf := ""
	if phase == model.PhaseSurface {
		surf = "Surf"
	}
	campaign := string(f.Campaign)
	if campaign != "" {
		campaign = strings.ToUpper(campaign[:1]) + campaign[1:]
	}
	return strings.NewReplacer(
		"{Campaign}", campaign,
		"{Surf}", surf,
		"{id}", string(id),
	).Replace(f.URLPattern)
}

// Fetch returns the local path of the image id of phase, downloading it
// first when it is not cached yet.
func (f *Fetcher) Fetch(ctx context.Context, phase model.Phase, id model.ID) (string, error) {
	path, err := f.Path(phase, id)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	url := f.URL(phase, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("failed to download %s: %s", url, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	// Concurrent fetches of the same id each write their own temp file; the
	// last rename wins with identical content.
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+string(id)+"-*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create cache file: %w", err)
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save %s: %w", url, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save %s: %w", url, err)
	}

	slog.Debug("source image downloaded", "image_id", id, "phase", phase, "size", humanize.Bytes(uint64(n)))
	return path, nil
}
