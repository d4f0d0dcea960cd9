package constants

// RunStatus is the canonical status for rows in extract_runs.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusOK      RunStatus = "OK"
	RunStatusFailed  RunStatus = "FAILED"
)

// Page extraction methods, as reported in logs and the XLSX export.
const (
	MethodPDFText = "pdf-text"
	MethodPDFOCR  = "pdf-ocr"
)
