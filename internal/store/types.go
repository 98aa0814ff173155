package store

import "time"

// Document is one ingested source file.
type Document struct {
	ID           string
	FilePath     string
	FileName     string
	FileHash     string
	FileSize     int64
	FileType     string
	Status       string
	PageCount    *int
	DocTitle     *string
	DocAuthor    *string
	DocSubject   *string
	ErrorMessage *string
	ProvenanceID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusComplete   = "complete"
	DocumentStatusFailed     = "failed"
)

// OCRResult is the extracted-text payload for one document.
type OCRResult struct {
	ID               string
	DocumentID       string
	ExtractedText    string
	TextLength       int
	PageCount        *int
	QualityScore     *float64
	PageOffsetsJSON  string
	Processor        string
	ProcessorVersion string
	RequestID        *string
	DurationMS       *int64
	Cost             *float64
	ContentHash      string
	ProvenanceID     string
	CreatedAt        time.Time
}

// Chunk is a sub-range of an OCR result's text.
type Chunk struct {
	ID                  string
	OCRResultID         string
	Text                string
	TextHash            string
	ChunkIndex          int
	CharStart           int
	CharEnd             int
	PageNumber          *int
	PageRange           *string
	OverlapPrev         *int
	OverlapNext         *int
	HeadingContext      *string
	HeadingLevel        *int
	SectionPath         *string
	ContentTypeTagsJSON string
	IsAtomic            bool
	ChunkingStrategy    *string
	EmbeddingStatus     string
	ProvenanceID        string
	CreatedAt           time.Time
}

// Image is a visual region extracted from a document.
type Image struct {
	ID                string
	OCRResultID       string
	PageNumber        int
	BBoxJSON          *string
	ImageIndex        int
	Format            *string
	Width             *int
	Height            *int
	ExtractedFilePath *string
	FileSize          *int64
	VLMStatus         string
	VLMDescription    *string
	VLMConfidence     *float64
	VLMModel          *string
	VLMEmbeddingID    *string
	VLMProvenanceID   *string
	ContentHash       string
	BlockType         *string
	IsHeaderFooter    bool
	ProvenanceID      string
	CreatedAt         time.Time
}

const (
	VLMStatusPending = "pending"
	VLMStatusDone    = "done"
	VLMStatusFailed  = "failed"
)

// Extraction is structured JSON extracted per a schema.
type Extraction struct {
	ID             string
	OCRResultID    string
	SchemaJSON     string
	ExtractionJSON string
	ContentHash    string
	ProvenanceID   string
	CreatedAt      time.Time
}

// Embedding is a dense vector derived from exactly one of
// {chunk, image, extraction}.
type Embedding struct {
	ID                 string
	ChunkID            *string
	ImageID            *string
	ExtractionID       *string
	Vector             []float32
	Dimension          int
	ModelName          string
	ModelVersion       string
	TaskType           *string
	InferenceMode      *string
	SourceFileMetadata *string
	ContentHash        string
	ProvenanceID       string
	CreatedAt          time.Time
}

// Cluster is a named grouping over documents.
type Cluster struct {
	ID             string
	Name           string
	Algorithm      string
	ParametersJSON *string
	DocumentCount  int
	TopTermsJSON   *string
	ContentHash    string
	ProvenanceID   string
	CreatedAt      time.Time
}

// Tag is a user-defined named tag.
type Tag struct {
	ID          string
	Name        string
	Color       *string
	Description *string
	CreatedAt   time.Time
}

// EntityTag is a polymorphic (tag, entity) association.
type EntityTag struct {
	TagID      string
	EntityID   string
	EntityType string
}

const (
	EntityTypeDocument   = "document"
	EntityTypeChunk      = "chunk"
	EntityTypeImage      = "image"
	EntityTypeExtraction = "extraction"
	EntityTypeCluster    = "cluster"
)

// ListFilter narrows a paginated list operation. Offset-based and
// cursor-based pagination are mutually exclusive: when Cursor is set it
// takes precedence as the keyset predicate.
type ListFilter struct {
	Status   string
	FileType string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
	Cursor   *Cursor
}
