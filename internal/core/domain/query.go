package domain

// EnhancedQuery is the structured form of a raw user question. It is built
// once by the enhancer and consumed read-only by the retriever.
type EnhancedQuery struct {
	Intent     string   `json:"intent"`
	Entities   []string `json:"entities"`
	Keywords   []string `json:"keywords,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
	// RawQuery always equals the original question verbatim.
	RawQuery string `json:"raw_query"`
}

// FallbackQuery is the degenerate enhancement used when the model output
// cannot be parsed or validated. It keeps the retriever usable.
func FallbackQuery(raw string) EnhancedQuery {
	return EnhancedQuery{
		Intent:   "general_query",
		Entities: []string{raw},
		RawQuery: raw,
	}
}

// RetrievedChunk is one scored passage returned by the vector index.
type RetrievedChunk struct {
	ID           string   `json:"id"`
	Score        float64  `json:"score"`
	Text         string   `json:"text_content"`
	DocumentName string   `json:"document_name"`
	SectionPath  []string `json:"section_hierarchy,omitempty"`
}

// SparseVector is a term-index to weight mapping in parallel-slice form.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// HybridEmbedding carries the dense and sparse representations of one text.
type HybridEmbedding struct {
	Dense  []float32
	Sparse SparseVector
}

// IndexQuery is a single weighted hybrid query against the vector index.
type IndexQuery struct {
	Dense     []float32
	Sparse    SparseVector
	TopK      int
	Namespace string
}

// IndexMatch is one raw match from the vector index, scored by the index's
// own hybrid-similarity metric.
type IndexMatch struct {
	ID       string
	Score    float64
	Metadata map[string]any
}
