package dhb

import (
	"os"

	"dhb-go/internal/catalog"
	"dhb-go/internal/checksum"
	"dhb-go/internal/model"
)

// validateSnapshot checks every record of one snapshot against the bytes on
// disk. A record whose stored path is gone (or cannot be read at all) is
// Missing; one whose bytes hash to a different digest is ChecksumMismatch.
func validateSnapshot(cat *catalog.Catalog, snap *model.Snapshot) []model.Issue {
	var issues []model.Issue
	for i := range snap.Files {
		rec := &snap.Files[i]
		path := cat.FilePath(snap.Name, rec)

		if _, err := os.Stat(path); err != nil {
			issues = append(issues, model.Issue{
				SnapshotName: snap.Name,
				RelativePath: rec.RelativePath,
				Kind:         model.IssueMissing,
			})
			continue
		}

		sum, err := checksum.File(path)
		if err != nil {
			issues = append(issues, model.Issue{
				SnapshotName: snap.Name,
				RelativePath: rec.RelativePath,
				Kind:         model.IssueMissing,
			})
			continue
		}
		if sum != rec.Checksum {
			issues = append(issues, model.Issue{
				SnapshotName: snap.Name,
				RelativePath: rec.RelativePath,
				Kind:         model.IssueChecksumMismatch,
			})
		}
	}
	return issues
}
