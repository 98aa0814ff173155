// Package errtax provides the structured error taxonomy shared across the
// provenance engine: a closed category enum, a typed error carrying a
// recovery hint, and error-lifting helpers that convert unknown or
// third-party errors into the taxonomy without losing their detail.
package errtax

// Category is a closed enum of error classes. Every error surfaced at the
// API boundary carries exactly one of these.
type Category string

const (
	CategoryValidation              Category = "VALIDATION_ERROR"
	CategoryDatabaseNotFound        Category = "DATABASE_NOT_FOUND"
	CategoryDatabaseNotSelected     Category = "DATABASE_NOT_SELECTED"
	CategoryDatabaseAlreadyExists   Category = "DATABASE_ALREADY_EXISTS"
	CategoryDocumentNotFound        Category = "DOCUMENT_NOT_FOUND"
	CategoryProvenanceNotFound      Category = "PROVENANCE_NOT_FOUND"
	CategoryProvenanceChainBroken   Category = "PROVENANCE_CHAIN_BROKEN"
	CategoryIntegrityVerification   Category = "INTEGRITY_VERIFICATION_FAILED"
	CategoryOCRAPIError             Category = "OCR_API_ERROR"
	CategoryOCRRateLimit            Category = "OCR_RATE_LIMIT"
	CategoryOCRTimeout              Category = "OCR_TIMEOUT"
	CategoryEmbeddingFailed         Category = "EMBEDDING_FAILED"
	CategoryVLMAPIError             Category = "VLM_API_ERROR"
	CategoryVLMRateLimit            Category = "VLM_RATE_LIMIT"
	CategoryImageExtractionFailed   Category = "IMAGE_EXTRACTION_FAILED"
	CategoryClusteringError         Category = "CLUSTERING_ERROR"
	CategoryGPUNotAvailable         Category = "GPU_NOT_AVAILABLE"
	CategoryGPUOutOfMemory          Category = "GPU_OUT_OF_MEMORY"
	CategoryPathNotFound            Category = "PATH_NOT_FOUND"
	CategoryPathNotDirectory        Category = "PATH_NOT_DIRECTORY"
	CategoryPermissionDenied        Category = "PERMISSION_DENIED"
	CategoryConfiguration           Category = "CONFIGURATION_ERROR"
	CategoryInternal                Category = "INTERNAL_ERROR"
)

// knownCategories backs IsKnownCategory without repeating the list.
var knownCategories = map[Category]bool{
	CategoryValidation:            true,
	CategoryDatabaseNotFound:      true,
	CategoryDatabaseNotSelected:   true,
	CategoryDatabaseAlreadyExists: true,
	CategoryDocumentNotFound:      true,
	CategoryProvenanceNotFound:    true,
	CategoryProvenanceChainBroken: true,
	CategoryIntegrityVerification: true,
	CategoryOCRAPIError:           true,
	CategoryOCRRateLimit:          true,
	CategoryOCRTimeout:            true,
	CategoryEmbeddingFailed:       true,
	CategoryVLMAPIError:           true,
	CategoryVLMRateLimit:          true,
	CategoryImageExtractionFailed: true,
	CategoryClusteringError:       true,
	CategoryGPUNotAvailable:       true,
	CategoryGPUOutOfMemory:        true,
	CategoryPathNotFound:          true,
	CategoryPathNotDirectory:      true,
	CategoryPermissionDenied:      true,
	CategoryConfiguration:         true,
	CategoryInternal:              true,
}

// IsKnownCategory reports whether c is a member of the closed category set.
func IsKnownCategory(c Category) bool {
	return knownCategories[c]
}

// Recovery is a suggested next operation plus a human-readable hint,
// returned alongside every error at the API boundary.
type Recovery struct {
	Tool string `json:"tool"`
	Hint string `json:"hint"`
}

// recoveryHints maps each category to its recovery suggestion. Categories
// not present here get the generic internal-error hint.
var recoveryHints = map[Category]Recovery{
	CategoryValidation:            {Tool: "fix_input", Hint: "Check the request fields against the documented schema and retry."},
	CategoryDatabaseNotFound:      {Tool: "create_database", Hint: "Create the database before selecting it."},
	CategoryDatabaseNotSelected:   {Tool: "select_database", Hint: "Select a database before performing this operation."},
	CategoryDatabaseAlreadyExists: {Tool: "select_database", Hint: "A database with this name already exists; select it instead of creating it."},
	CategoryDocumentNotFound:      {Tool: "list_documents", Hint: "Verify the document ID; it may have been deleted."},
	CategoryProvenanceNotFound:    {Tool: "get_provenance_chain", Hint: "Verify the provenance ID exists and belongs to this database."},
	CategoryProvenanceChainBroken: {Tool: "verify_chain", Hint: "Inspect the reported link; the chain may need re-derivation from that point."},
	CategoryIntegrityVerification: {Tool: "verify_content_hash", Hint: "The stored content hash no longer matches recomputed content; re-ingest the entity."},
	CategoryOCRAPIError:           {Tool: "retry_ocr", Hint: "The OCR worker returned an error; retry or inspect worker logs."},
	CategoryOCRRateLimit:          {Tool: "retry_ocr", Hint: "Back off and retry the OCR request after the rate limit window."},
	CategoryOCRTimeout:            {Tool: "retry_ocr", Hint: "The OCR worker did not respond in time; retry with a longer timeout."},
	CategoryEmbeddingFailed:       {Tool: "retry_embedding", Hint: "Embedding generation failed for this input; retry or skip it as a warning."},
	CategoryVLMAPIError:           {Tool: "retry_vlm", Hint: "The VLM worker returned an error; retry or inspect worker logs."},
	CategoryVLMRateLimit:          {Tool: "retry_vlm", Hint: "Back off and retry the VLM request after the rate limit window."},
	CategoryImageExtractionFailed: {Tool: "retry_image_extraction", Hint: "Image extraction failed; verify the source document renders correctly."},
	CategoryClusteringError:       {Tool: "retry_clustering", Hint: "Clustering failed; verify inputs have embeddings and retry."},
	CategoryGPUNotAvailable:       {Tool: "configure_embedding_device", Hint: "No GPU device is available; fall back to CPU inference."},
	CategoryGPUOutOfMemory:        {Tool: "configure_embedding_device", Hint: "Reduce batch size or switch to CPU inference."},
	CategoryPathNotFound:          {Tool: "fix_input", Hint: "The supplied path does not exist."},
	CategoryPathNotDirectory:      {Tool: "fix_input", Hint: "The supplied path exists but is not a directory."},
	CategoryPermissionDenied:      {Tool: "fix_input", Hint: "The supplied path is outside the allowed directories; use an allowed path or update OCR_PROVENANCE_ALLOWED_DIRS."},
	CategoryConfiguration:         {Tool: "fix_config", Hint: "Check the engine configuration and environment variables."},
	CategoryInternal:              {Tool: "report_bug", Hint: "An unexpected internal error occurred; please report it with the error details."},
}

// RecoveryFor returns the recovery hint for category c, defaulting to the
// internal-error hint for unmapped categories.
func RecoveryFor(c Category) Recovery {
	if r, ok := recoveryHints[c]; ok {
		return r
	}
	return recoveryHints[CategoryInternal]
}
