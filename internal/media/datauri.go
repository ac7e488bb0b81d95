// Package media handles image payloads: encoding camera frames and imports
// into data URIs small enough to persist, and resolving deferred image
// references embedded in chat messages.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"strings"

	xdraw "golang.org/x/image/draw"
)

const (
	// MaxDimension caps the longer image side before encoding. Resolution
	// is traded for storage size, local persistence is small.
	MaxDimension = 800
	// JPEGQuality matches the front-end's 0.7 canvas export quality.
	JPEGQuality = 70

	jpegPrefix = "data:image/jpeg;base64,"
)

// EncodeDataURI downscales img to MaxDimension and returns it as a JPEG
// data URI.
func EncodeDataURI(img image.Image) (string, error) {
	img = downscale(img, MaxDimension)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return "", fmt.Errorf("media: encode failed: %w", err)
	}
	return jpegPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURI parses a data URI back into an image.
func DecodeDataURI(uri string) (image.Image, error) {
	_, b64, found := strings.Cut(uri, ";base64,")
	if !found {
		return nil, fmt.Errorf("media: not a base64 data URI")
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("media: bad base64 payload: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("media: decode failed: %w", err)
	}
	return img, nil
}

// IsDataURI reports whether content is an inline image payload.
func IsDataURI(content string) bool {
	return strings.HasPrefix(content, "data:image/")
}

// ImportFile reads an image file and returns it as a downscaled data URI.
func ImportFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("media: open %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("media: decode %s: %w", path, err)
	}
	return EncodeDataURI(img)
}

// downscale scales img so its longer side is at most max, preserving the
// aspect ratio. Images already within bounds pass through untouched.
func downscale(img image.Image, max int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= max && h <= max {
		return img
	}

	if w > h {
		h = h * max / w
		w = max
	} else {
		w = w * max / h
		h = max
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
