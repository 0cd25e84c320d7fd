package models

// Outcome classifies the result of fetching one identifier.
type Outcome string

const (
	OutcomeOK             Outcome = "ok"
	OutcomeDownloadFailed Outcome = "download_failed"
	OutcomeNotFound       Outcome = "not_found"
)

// Access describes a single identifier fetch as seen by the document fetcher.
type Access struct {
	Identifier string
	URL        string
	Outcome    Outcome
	StatusCode int // 0 when no HTTP response was received
	Attempts   int
	Text       string // extracted text, empty unless Outcome is OutcomeOK
}
