package db

import "github.com/dtnitsch/abstract-enricher/models"

// Recorder writes every access of one run to the ledger.
type Recorder struct {
	db       *DB
	runID    int64
	language func(text string) string
}

// Recorder returns a recorder bound to runID. language, if non-nil, tags the
// text of successful accesses with an ISO 639-1 code.
func (db *DB) Recorder(runID int64, language func(text string) string) *Recorder {
	return &Recorder{db: db, runID: runID, language: language}
}

func (r *Recorder) RecordAccess(access models.Access) error {
	var lang string
	if r.language != nil && access.Outcome == models.OutcomeOK {
		lang = r.language(access.Text)
	}
	return r.db.RecordAccess(r.runID, access, lang)
}
