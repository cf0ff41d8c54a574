// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gaply/gaply-worker/internal/httputil"
	"github.com/gaply/gaply-worker/pkg/types"
)

// IdentifierType classifies an input identifier.
type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypeArxiv
	TypeDOI
	TypeURL
	TypePath
)

func (t IdentifierType) String() string {
	switch t {
	case TypeArxiv:
		return "arxiv"
	case TypeDOI:
		return "doi"
	case TypeURL:
		return "url"
	case TypePath:
		return "path"
	default:
		return "unknown"
	}
}

// Base URLs for identifier resolution. Declared as vars so tests can
// substitute httptest servers.
var (
	arxivPDFBase = "https://arxiv.org/pdf/"
	doiBase      = "https://doi.org/"
)

// arxivPattern matches arXiv IDs: "2301.07041", "arXiv:2301.07041", "2301.07041v2".
var arxivPattern = regexp.MustCompile(`^(?:arXiv:)?(\d{4}\.\d{4,5}(?:v\d+)?)$`)

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/[^\s]+$`)

// Classify determines the identifier type and returns the normalized
// form. For arXiv, it strips the optional "arXiv:" prefix. Identifiers
// that are none of the recognized kinds but name an existing file are
// treated as local paths.
func Classify(identifier string) (IdentifierType, string) {
	identifier = strings.TrimSpace(identifier)

	if m := arxivPattern.FindStringSubmatch(identifier); m != nil {
		return TypeArxiv, m[1]
	}

	if doiPattern.MatchString(identifier) {
		return TypeDOI, identifier
	}

	if u, err := url.Parse(identifier); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return TypeURL, identifier
	}

	if _, err := os.Stat(identifier); err == nil {
		return TypePath, identifier
	}

	return TypeUnknown, identifier
}

// Slug returns a stable paper id stem for the identifier.
func Slug(idType IdentifierType, normalized string) string {
	switch idType {
	case TypeArxiv:
		return normalized
	case TypeDOI:
		return strings.NewReplacer("/", "-", ":", "-").Replace(normalized)
	case TypeURL:
		u, err := url.Parse(normalized)
		if err != nil {
			return urlHashSlug(normalized)
		}
		base := strings.TrimSuffix(filepath.Base(u.Path), filepath.Ext(u.Path))
		if base == "" || base == "." || base == "/" {
			return urlHashSlug(normalized)
		}
		return base
	case TypePath:
		return strings.TrimSuffix(filepath.Base(normalized), filepath.Ext(normalized))
	default:
		return "unknown"
	}
}

// PDFURL returns the download URL for the identifier. For DOI this is
// the doi.org resolver; the HTTP client follows redirects.
func PDFURL(idType IdentifierType, normalized string) string {
	switch idType {
	case TypeArxiv:
		return arxivPDFBase + normalized
	case TypeDOI:
		return doiBase + normalized
	case TypeURL:
		return normalized
	default:
		return ""
	}
}

func urlHashSlug(rawURL string) string {
	h := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf("url-%x", h[:8])
}

// Fetcher resolves an identifier to PDF bytes. Satisfied by HTTPFetcher;
// tests supply a stub.
type Fetcher interface {
	Fetch(ctx context.Context, identifier string) (Fetched, error)
}

// Fetched is a resolved paper download.
type Fetched struct {
	PaperID   string
	Filename  string
	SourceURL string
	PDF       []byte
}

// HTTPFetcher downloads PDFs over HTTP and reads local files directly.
type HTTPFetcher struct {
	userAgent  string
	maxRetries int
	client     *http.Client
}

// NewHTTPFetcher builds a fetcher from config.
func NewHTTPFetcher(cfg types.HTTPConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPFetcher{
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: timeout},
	}
}

// Fetch classifies the identifier, resolves it to a PDF location, and
// returns the bytes. Unrecognized identifiers are a validation error.
func (f *HTTPFetcher) Fetch(ctx context.Context, identifier string) (Fetched, error) {
	idType, normalized := Classify(identifier)
	if idType == TypeUnknown {
		return Fetched{}, fmt.Errorf("%w: unrecognized identifier %q", types.ErrValidation, identifier)
	}

	slug := Slug(idType, normalized)
	result := Fetched{PaperID: slug, Filename: slug + ".pdf"}

	if idType == TypePath {
		pdf, err := os.ReadFile(normalized)
		if err != nil {
			return Fetched{}, fmt.Errorf("reading %s: %w", normalized, err)
		}
		result.PDF = pdf
		return result, nil
	}

	pdfURL := PDFURL(idType, normalized)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return Fetched{}, fmt.Errorf("creating download request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, f.client, req, f.maxRetries)
	if err != nil {
		return Fetched{}, fmt.Errorf("%w: downloading %s: %v", types.ErrUpstreamUnavailable, pdfURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Fetched{}, fmt.Errorf("%w: HTTP %d from %s", types.ErrUpstreamUnavailable, resp.StatusCode, pdfURL)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return Fetched{}, fmt.Errorf("reading download: %w", err)
	}
	if len(pdf) == 0 {
		return Fetched{}, fmt.Errorf("%w: empty download from %s", types.ErrUpstreamUnavailable, pdfURL)
	}

	result.SourceURL = pdfURL
	result.PDF = pdf
	return result, nil
}
