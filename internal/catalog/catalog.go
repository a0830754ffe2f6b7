// Package catalog builds content service download locations for a book.
package catalog

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/vertextoedge/aaxfetch/internal/domain"
)

const (
	// DownloadEndpoint is the content service download endpoint
	DownloadEndpoint = "https://cds.audible.com/download"

	// DefaultCodec is the AAX codec requested when none is configured
	DefaultCodec = "LC_128_44100_Stereo"

	// FileExtension is the extension of downloaded books
	FileExtension = ".aax"
)

// Book identifies a title in a customer's library
type Book struct {
	CustomerID string
	SKU        string
	Codec      string
}

// Validate checks the identifiers are present and free of separators
func (b Book) Validate() error {
	if strings.TrimSpace(b.CustomerID) == "" {
		return fmt.Errorf("%w: customer id is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(b.SKU) == "" {
		return fmt.Errorf("%w: sku is required", domain.ErrInvalidInput)
	}
	if strings.ContainsAny(b.SKU, `/\`) {
		return fmt.Errorf("%w: sku %q contains a path separator", domain.ErrInvalidInput, b.SKU)
	}
	return nil
}

// DownloadURL returns the download URL for the book
func (b Book) DownloadURL() (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}

	codec := b.Codec
	if codec == "" {
		codec = DefaultCodec
	}

	// Parameter order matches what the desktop download manager sends
	q := []string{
		"user_id=" + url.QueryEscape(b.CustomerID),
		"product_id=" + url.QueryEscape(b.SKU),
		"codec=" + url.QueryEscape(codec),
		"awtype=AAX",
		"cust_id=" + url.QueryEscape(b.CustomerID),
	}
	return DownloadEndpoint + "?" + strings.Join(q, "&"), nil
}

// Locator returns the transfer locator for the book
func (b Book) Locator(authorization string) (domain.Locator, error) {
	u, err := b.DownloadURL()
	if err != nil {
		return domain.Locator{}, err
	}
	return domain.Locator{URL: u, Authorization: authorization}, nil
}

// DefaultFilename returns "<sku>.aax"
func DefaultFilename(sku string) string {
	return sku + FileExtension
}
