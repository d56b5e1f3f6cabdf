package indexer

import "media-catalog/internal/database"

// Plan is the set of catalog changes for one user.
type Plan struct {
	Inserts   []database.PhotoDraft
	Deletions []int64
}

// Reconcile compares what a scan found with the owner's catalog rows.
// Drafts whose full name is not catalogued become inserts; rows whose file
// is gone (per exists) become deletions. Rows belonging to other owners are
// ignored. Existing rows are never updated.
func Reconcile(outcome ScanOutcome, existing []database.Photo, exists func(database.Photo) bool) Plan {
	var plan Plan

	known := make(map[string]struct{}, len(existing))
	for i := range existing {
		p := &existing[i]
		if p.Owner != outcome.User.ID {
			continue
		}
		known[p.FullName()] = struct{}{}
		if !exists(*p) {
			plan.Deletions = append(plan.Deletions, p.ID)
		}
	}

	for _, d := range outcome.Drafts {
		if _, ok := known[d.FullName()]; !ok {
			plan.Inserts = append(plan.Inserts, d)
		}
	}
	return plan
}
