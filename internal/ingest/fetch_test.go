// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gaply/gaply-worker/pkg/types"
)

func TestClassify(t *testing.T) {
	tmpPDF := filepath.Join(t.TempDir(), "local.pdf")
	if err := os.WriteFile(tmpPDF, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		input    string
		wantType IdentifierType
		wantNorm string
	}{
		{"2301.07041", TypeArxiv, "2301.07041"},
		{"arXiv:2301.07041", TypeArxiv, "2301.07041"},
		{"2301.07041v2", TypeArxiv, "2301.07041v2"},
		{"10.1145/1234567.1234568", TypeDOI, "10.1145/1234567.1234568"},
		{"https://example.org/paper.pdf", TypeURL, "https://example.org/paper.pdf"},
		{tmpPDF, TypePath, tmpPDF},
		{"not-an-identifier", TypeUnknown, "not-an-identifier"},
		{"", TypeUnknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			gotType, gotNorm := Classify(tt.input)
			if gotType != tt.wantType || gotNorm != tt.wantNorm {
				t.Errorf("Classify(%q) = (%v, %q), want (%v, %q)",
					tt.input, gotType, gotNorm, tt.wantType, tt.wantNorm)
			}
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		idType IdentifierType
		norm   string
		want   string
	}{
		{TypeArxiv, "2301.07041", "2301.07041"},
		{TypeDOI, "10.1145/123.456", "10.1145-123.456"},
		{TypeURL, "https://example.org/papers/attention.pdf", "attention"},
		{TypePath, "/data/papers/local.pdf", "local"},
	}
	for _, tt := range tests {
		if got := Slug(tt.idType, tt.norm); got != tt.want {
			t.Errorf("Slug(%v, %q) = %q, want %q", tt.idType, tt.norm, got, tt.want)
		}
	}
}

func TestPDFURL(t *testing.T) {
	if got := PDFURL(TypeArxiv, "2301.07041"); got != "https://arxiv.org/pdf/2301.07041" {
		t.Errorf("arxiv URL = %q", got)
	}
	if got := PDFURL(TypeDOI, "10.1/x"); got != "https://doi.org/10.1/x" {
		t.Errorf("doi URL = %q", got)
	}
	if got := PDFURL(TypeURL, "https://e.org/p.pdf"); got != "https://e.org/p.pdf" {
		t.Errorf("direct URL = %q", got)
	}
}

func TestHTTPFetcherDownload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/pdf" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Write([]byte("%PDF-content"))
	}))
	defer ts.Close()

	f := NewHTTPFetcher(types.HTTPConfig{Timeout: 2 * time.Second})
	got, err := f.Fetch(context.Background(), ts.URL+"/papers/sample.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if got.PaperID != "sample" {
		t.Errorf("PaperID = %q, want sample", got.PaperID)
	}
	if string(got.PDF) != "%PDF-content" {
		t.Errorf("PDF = %q", got.PDF)
	}
	if got.SourceURL == "" {
		t.Error("SourceURL must record where the PDF came from")
	}
}

func TestHTTPFetcherLocalPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.pdf")
	if err := os.WriteFile(path, []byte("%PDF-local"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewHTTPFetcher(types.HTTPConfig{})
	got, err := f.Fetch(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if got.PaperID != "paper" || string(got.PDF) != "%PDF-local" {
		t.Errorf("Fetch(local) = %+v", got)
	}
	if got.SourceURL != "" {
		t.Errorf("local fetch has SourceURL %q", got.SourceURL)
	}
}

func TestHTTPFetcherUnknownIdentifier(t *testing.T) {
	f := NewHTTPFetcher(types.HTTPConfig{})
	_, err := f.Fetch(context.Background(), "definitely not a paper")
	if !errors.Is(err, types.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestHTTPFetcherUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	f := NewHTTPFetcher(types.HTTPConfig{Timeout: 2 * time.Second})
	_, err := f.Fetch(context.Background(), ts.URL+"/missing.pdf")
	if !errors.Is(err, types.ErrUpstreamUnavailable) {
		t.Errorf("error = %v, want ErrUpstreamUnavailable", err)
	}
}
