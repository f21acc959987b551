package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"

	"github.com/ironsheep/annotation-consensus/internal/model"
)

// EncodedImage is a PNG render ready for a JSON response.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Encode returns img as a base64 PNG.
func Encode(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// ErrUnsafeID is returned for image ids that cannot name a file inside a
// render or cache directory.
var ErrUnsafeID = errors.New("image id is not a safe file name")

// fileName returns the PNG file name of id. Ids come from untrusted JSON,
// so anything that could leave the directory is rejected.
func fileName(id model.ID) (string, error) {
	s := string(id)
	if s == "" || s == "." || strings.Contains(s, "..") || strings.ContainsAny(s, "/\\\x00") {
		return "", fmt.Errorf("%w: %q", ErrUnsafeID, s)
	}
	return s + ".png", nil
}

// Save writes img to <dir>/<id>.png, creating dir when needed, and returns
// the file path.
func Save(dir string, id model.ID, img image.Image) (string, error) {
	name, err := fileName(id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
