package api

import (
	"github.com/spotaudit/spotaudit/internal/export"
	"github.com/spotaudit/spotaudit/internal/model"
)

// previewLimit caps the rows embedded in API responses; full data is fetched
// through the download endpoints.
const previewLimit = 200

// preview is the truncated table view embedded in JSON responses.
type preview struct {
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"totalRows"`
}

func spotsPreview(spots []model.ScheduledSpot) preview {
	p := preview{Columns: export.ScheduleHeaders, TotalRows: len(spots)}
	for i, s := range spots {
		if i >= previewLimit {
			break
		}
		p.Rows = append(p.Rows, export.SpotRow(s))
	}
	return p
}

func unmatchedPreview(records []model.UnmatchedRecord) preview {
	columns := append(append([]string(nil), export.ScheduleHeaders...), "Unmatched_Reason")
	p := preview{Columns: columns, TotalRows: len(records)}
	for i, rec := range records {
		if i >= previewLimit {
			break
		}
		p.Rows = append(p.Rows, append(export.SpotRow(rec.Spot), rec.Reason))
	}
	return p
}

func tablePreview(t *model.Table) preview {
	p := preview{Columns: t.Columns, TotalRows: len(t.Rows)}
	limit := len(t.Rows)
	if limit > previewLimit {
		limit = previewLimit
	}
	width := len(t.Columns)
	for i := 0; i < limit; i++ {
		row := make([]string, width)
		for c := 0; c < width; c++ {
			row[c] = t.Cell(i, c)
		}
		p.Rows = append(p.Rows, row)
	}
	return p
}
