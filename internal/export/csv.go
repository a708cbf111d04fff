package export

import (
	"bytes"
	"encoding/csv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/spotaudit/spotaudit/internal/model"
)

// utf8BOM prefixes CSV downloads so Excel opens them as UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// unmatchedRow is the flat CSV shape of one unmatched spot.
type unmatchedRow struct {
	Program        string `csv:"Program"`
	Time           string `csv:"Time"`
	Language       string `csv:"Language"`
	Dur            string `csv:"Dur"`
	RateCardRate   string `csv:"Rate Card Rate"`
	NegotiatedRate string `csv:"Negotiated Rate"`
	Date           string `csv:"Date"`
	CommercialName string `csv:"Commercial Name"`
	Channel        string `csv:"Channel"`
	Advertiser     string `csv:"Advertiser"`
	Reason         string `csv:"Unmatched_Reason"`
}

// scheduleRow is the flat CSV shape of one extracted spot.
type scheduleRow struct {
	Program        string `csv:"Program"`
	Time           string `csv:"Time"`
	Language       string `csv:"Language"`
	Dur            string `csv:"Dur"`
	RateCardRate   string `csv:"Rate Card Rate"`
	NegotiatedRate string `csv:"Negotiated Rate"`
	Date           string `csv:"Date"`
	CommercialName string `csv:"Commercial Name"`
	Channel        string `csv:"Channel"`
	Advertiser     string `csv:"Advertiser"`
}

// ScheduleCSV serializes extracted spots as CSV.
func ScheduleCSV(spots []model.ScheduledSpot) ([]byte, error) {
	rows := make([]scheduleRow, len(spots))
	for i, s := range spots {
		rows[i] = scheduleRow{
			Program:        s.Program,
			Time:           s.TimeLabel,
			Language:       s.Language,
			Dur:            s.Duration,
			RateCardRate:   FormatRate(s.RateCardRate),
			NegotiatedRate: FormatRate(s.NegotiatedRate),
			Date:           SpotDisplayDate(s),
			CommercialName: s.CommercialName,
			Channel:        s.Channel,
			Advertiser:     s.Advertiser,
		}
	}

	data, err := csvutil.Marshal(rows)
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal schedule csv")
	}
	return append(append([]byte(nil), utf8BOM...), data...), nil
}

// UnmatchedCSV serializes unmatched records for download.
func UnmatchedCSV(records []model.UnmatchedRecord) ([]byte, error) {
	rows := make([]unmatchedRow, len(records))
	for i, rec := range records {
		s := rec.Spot
		rows[i] = unmatchedRow{
			Program:        s.Program,
			Time:           s.TimeLabel,
			Language:       s.Language,
			Dur:            s.Duration,
			RateCardRate:   FormatRate(s.RateCardRate),
			NegotiatedRate: FormatRate(s.NegotiatedRate),
			Date:           SpotDisplayDate(s),
			CommercialName: s.CommercialName,
			Channel:        s.Channel,
			Advertiser:     s.Advertiser,
			Reason:         rec.Reason,
		}
	}

	data, err := csvutil.Marshal(rows)
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal unmatched csv")
	}
	return append(append([]byte(nil), utf8BOM...), data...), nil
}

// TableCSV serializes an arbitrary-width table (the annotated log) for
// download. Ragged rows are padded to the header width.
func TableCSV(t *model.Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, eris.Wrap(err, "export: write csv header")
	}
	width := len(t.Columns)
	for i := range t.Rows {
		row := make([]string, width)
		for c := 0; c < width; c++ {
			row[c] = t.Cell(i, c)
		}
		if err := w.Write(row); err != nil {
			return nil, eris.Wrap(err, "export: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "export: flush csv")
	}
	return buf.Bytes(), nil
}
