package grpc

// IndexKind selects which of the module's index implementations a request
// targets. A namespace may hold at most one live index per kind.
type IndexKind string

const (
	KindHKMeans IndexKind = "hkmeans"
	KindALSH    IndexKind = "alsh"
	KindSubPQ   IndexKind = "subpq"
	KindIVFFlat IndexKind = "ivfflat"
)

// BuildRequest trains a fresh index of Kind over Vectors, replacing
// whatever previously lived at (Namespace, Kind).
type BuildRequest struct {
	Namespace string      `json:"namespace"`
	Kind      IndexKind   `json:"kind"`
	Vectors   [][]float32 `json:"vectors"`
}

type BuildResponse struct {
	VectorCount int     `json:"vector_count"`
	DurationMs  float64 `json:"duration_ms"`
}

// AddRequest inserts Vectors into an already-built index without
// retraining it.
type AddRequest struct {
	Namespace string      `json:"namespace"`
	Kind      IndexKind   `json:"kind"`
	Vectors   [][]float32 `json:"vectors"`
}

type AddResponse struct {
	VectorCount int `json:"vector_count"`
}

// SearchRequest asks for the K highest inner-product neighbors of each row
// of Queries. Nprobe is only consulted when Kind is KindIVFFlat, where zero
// selects the server's configured default; it is ignored otherwise.
type SearchRequest struct {
	Namespace string      `json:"namespace"`
	Kind      IndexKind   `json:"kind"`
	Queries   [][]float32 `json:"queries"`
	K         int         `json:"k"`
	Nprobe    int         `json:"nprobe,omitempty"`
}

// SearchResult carries one query's neighbor ids and the raw, unaugmented
// inner-product distance to each, padded with -1 ids and -Inf distances
// when fewer than K candidates survive.
type SearchResult struct {
	Ids       []int     `json:"ids"`
	Distances []float32 `json:"distances"`
}

type SearchResponse struct {
	Results    []SearchResult `json:"results"`
	DurationMs float64        `json:"duration_ms"`
}

// ResetRequest discards the index at (Namespace, Kind), if any.
type ResetRequest struct {
	Namespace string    `json:"namespace"`
	Kind      IndexKind `json:"kind"`
}

type ResetResponse struct{}
