// Package pdfops implements the whole-document PDF utilities (merge, split,
// rotate, reorder, compress, protect, unlock and image import) on top of
// pdfcpu. Every operation takes PDF bytes and returns new PDF bytes.
package pdfops

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	// ErrInvalidArgument is returned for malformed options.
	ErrInvalidArgument = errors.New("pdfops: invalid argument")

	// ErrPassword is returned when a document needs a password that was not
	// supplied or did not match.
	ErrPassword = errors.New("pdfops: password missing or incorrect")

	// ErrUnsupportedImage is returned by ImagesToPDF for non JPEG/PNG input.
	ErrUnsupportedImage = errors.New("pdfops: unsupported image format")
)

// aesKeyLength is the key size used by Protect.
const aesKeyLength = 256

// Part is one output document of Split.
type Part struct {
	From int
	Thru int
	Data []byte
}

var configOnce sync.Once

// newConfig returns a fresh pdfcpu configuration. pdfcpu's on-disk config
// directory is disabled so the process never writes to the user's home.
func newConfig() *model.Configuration {
	configOnce.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// transform runs fn over data and returns what it wrote.
func transform(data []byte, conf *model.Configuration, fn func(io.ReadSeeker, io.Writer, *model.Configuration) error) ([]byte, error) {
	var out bytes.Buffer
	if err := fn(bytes.NewReader(data), &out, conf); err != nil {
		return nil, classify(err)
	}
	return out.Bytes(), nil
}

// classify maps pdfcpu password failures onto ErrPassword.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "password") {
		return fmt.Errorf("%w: %v", ErrPassword, err)
	}
	return err
}

// PageCount returns the number of pages in data.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), newConfig())
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

// Merge concatenates documents in the given order.
func Merge(docs [][]byte) ([]byte, error) {
	if len(docs) < 2 {
		return nil, fmt.Errorf("%w: merge needs at least 2 documents, got %d", ErrInvalidArgument, len(docs))
	}
	readers := make([]io.ReadSeeker, len(docs))
	for i, d := range docs {
		readers[i] = bytes.NewReader(d)
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, newConfig()); err != nil {
		return nil, classify(fmt.Errorf("merging: %w", err))
	}
	return out.Bytes(), nil
}

// Split cuts data into consecutive parts of span pages each; the last part
// may be shorter.
func Split(data []byte, span int) ([]Part, error) {
	if span < 1 {
		return nil, fmt.Errorf("%w: split span must be positive, got %d", ErrInvalidArgument, span)
	}
	spans, err := api.SplitRaw(bytes.NewReader(data), span, newConfig())
	if err != nil {
		return nil, classify(fmt.Errorf("splitting: %w", err))
	}

	parts := make([]Part, 0, len(spans))
	for _, s := range spans {
		b, err := io.ReadAll(s.Reader)
		if err != nil {
			return nil, fmt.Errorf("reading pages %d-%d: %w", s.From, s.Thru, err)
		}
		parts = append(parts, Part{From: s.From, Thru: s.Thru, Data: b})
	}
	return parts, nil
}

// Rotate turns the selected pages clockwise by degrees, which must be a
// multiple of 90. An empty selection rotates every page.
func Rotate(data []byte, degrees int, pages []string) ([]byte, error) {
	if degrees%90 != 0 {
		return nil, fmt.Errorf("%w: rotation must be a multiple of 90, got %d", ErrInvalidArgument, degrees)
	}
	degrees = ((degrees % 360) + 360) % 360
	if degrees == 0 {
		return data, nil
	}
	if err := validateSelection(data, pages); err != nil {
		return nil, err
	}
	return transform(data, newConfig(), func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		return api.Rotate(rs, w, degrees, pages, conf)
	})
}

// Reorder writes the pages of data in the order given by pages. Page
// numbers may repeat.
func Reorder(data []byte, pages []string) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: reorder needs a page order", ErrInvalidArgument)
	}
	if err := validateSelection(data, pages); err != nil {
		return nil, err
	}
	return transform(data, newConfig(), func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		return api.Collect(rs, w, pages, conf)
	})
}

// Compress rewrites data with duplicate objects and unused resources
// removed.
func Compress(data []byte) ([]byte, error) {
	return transform(data, newConfig(), api.Optimize)
}

// Protect encrypts data with AES-256. ownerPW defaults to userPW.
func Protect(data []byte, userPW, ownerPW string) ([]byte, error) {
	if userPW == "" {
		return nil, fmt.Errorf("%w: a password is required", ErrInvalidArgument)
	}
	if ownerPW == "" {
		ownerPW = userPW
	}
	configOnce.Do(api.DisableConfigDir)
	conf := model.NewAESConfiguration(userPW, ownerPW, aesKeyLength)
	conf.ValidationMode = model.ValidationRelaxed
	return transform(data, conf, api.Encrypt)
}

// Unlock removes encryption from data using password.
func Unlock(data []byte, password string) ([]byte, error) {
	conf := newConfig()
	conf.UserPW = password
	conf.OwnerPW = password
	return transform(data, conf, api.Decrypt)
}

// ImagesToPDF creates a document with one page per JPEG or PNG image.
func ImagesToPDF(images [][]byte) ([]byte, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: no images", ErrInvalidArgument)
	}
	readers := make([]io.Reader, len(images))
	for i, img := range images {
		if ImageFormat(img) == "" {
			return nil, fmt.Errorf("%w: image %d", ErrUnsupportedImage, i+1)
		}
		readers[i] = bytes.NewReader(img)
	}

	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, readers, pdfcpu.DefaultImportConfig(), newConfig()); err != nil {
		return nil, fmt.Errorf("importing images: %w", err)
	}
	return out.Bytes(), nil
}

// ImageFormat sniffs JPEG and PNG signatures and returns "jpeg", "png" or "".
func ImageFormat(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "jpeg"
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "png"
	default:
		return ""
	}
}

// checkSelection rejects page selections pdfcpu would silently ignore.
// Entries are page numbers or inclusive ranges such as "2-5", all within
// 1..total.
func checkSelection(pages []string, total int) error {
	inRange := func(s string) bool {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		return err == nil && n >= 1 && n <= total
	}
	for _, p := range pages {
		lo, hi, isRange := strings.Cut(p, "-")
		if !inRange(lo) || (isRange && !inRange(hi)) {
			return fmt.Errorf("%w: bad page selection %q for %d pages", ErrInvalidArgument, p, total)
		}
	}
	return nil
}

// validateSelection checks pages against the page count of data.
func validateSelection(data []byte, pages []string) error {
	if len(pages) == 0 {
		return nil
	}
	total, err := PageCount(data)
	if err != nil {
		return err
	}
	return checkSelection(pages, total)
}

// ParseSelection splits a comma separated page list such as "3,1,4-6".
func ParseSelection(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
