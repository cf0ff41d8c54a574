// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"

	"github.com/gaply/gaply-worker/pkg/types"
)

// ChunkDocument flattens a document into sentence chunks. Chunk ids
// encode position (paper:page:paragraph:sentence), so the same document
// always produces the same ids and re-ingestion overwrites in place.
func ChunkDocument(paperID string, doc Document) []types.Chunk {
	var chunks []types.Chunk
	for _, para := range doc.Paragraphs {
		for si, sentence := range para.Sentences {
			chunks = append(chunks, types.Chunk{
				ChunkID:        fmt.Sprintf("%s:%d:%d:%d", paperID, para.Page, para.Index, si),
				PaperID:        paperID,
				Text:           sentence,
				Section:        para.Section,
				Page:           para.Page,
				ParagraphIndex: para.Index,
				SentenceIndex:  si,
				DOI:            doc.Paper.DOI,
				Title:          doc.Paper.Title,
			})
		}
	}
	return chunks
}
