package constants

// FileStatus tracks an uploaded receipt file through the ingestion workflow.
type FileStatus string

// Stable values (stored/printed as these exact strings).
const (
	StatusPendingValidation FileStatus = "PENDING_VALIDATION" // uploaded, not yet validated
	StatusPendingProcessing FileStatus = "PENDING_PROCESSING" // validated, not yet processed
	StatusProcessed         FileStatus = "PROCESSED"          // pipeline produced a stored receipt
	StatusDuplicate         FileStatus = "DUPLICATE"          // matched an existing receipt, not stored
	StatusInvalid           FileStatus = "INVALID"            // validation or extraction failed
)
