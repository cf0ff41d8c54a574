// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Paper holds document metadata returned by the structure extractor,
// keyed by the worker-assigned paper id. The paper itself is an implicit
// aggregate: the set of chunks sharing its id.
type Paper struct {
	// ID is a slug derived from the paper identifier (e.g. a DOI slug or
	// arXiv id), or a generated uuid when no identifier is known.
	ID string `json:"id" yaml:"id"`

	// DOI is the paper's DOI, empty when unknown.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Date is the publication or preprint date.
	Date time.Time `json:"date,omitempty" yaml:"date,omitempty"`

	// SourceURL is the URL the PDF was downloaded from, empty for uploads.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`
}
