// Package reconcile matches scheduled spots against broadcast-log records.
//
// Matching is a single ordered pass: per-spot candidates are found by exact
// key equality, narrowed by theme for Tag spots, tested against a derived
// time-of-day window, and claimed greedily. Claims are first-seen-wins and a
// log record satisfies at most one spot, so the same inputs in a different
// spot order can legitimately partition differently. The pass must stay
// sequential: quota accounting and the claim set are order-dependent.
package reconcile

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spotaudit/spotaudit/internal/model"
	"github.com/spotaudit/spotaudit/internal/normalize"
)

// Broadcast-log column names, resolved case-insensitively. The log's date is
// either a single Date column or separate day/month/year components.
const (
	advertiserColumn = "Advertiser"
	channelColumn    = "Channel"
	durationColumn   = "Dur"
	progTimeColumn   = "Prog_time"
	themeColumn      = "Advt_Theme"
	dateColumn       = "Date"
	dayColumn        = "Dd"
	monthColumn      = "Mn"
	yearColumn       = "Yr"

	// ReferenceColumn is added to the annotated log; claimed rows carry the
	// caller's reference number, all others stay empty.
	ReferenceColumn = "Reference Number"
)

// tagThemes are the log themes accepted as Tag corroboration. The set is
// compared against trimmed log values; kept verbatim from the operational
// rule book, leading spaces included.
var tagThemes = map[string]struct{}{
	"Tag":         {},
	"-Tr":         {},
	"-BB":         {},
	" Com Break":  {},
	"-Extro":      {},
	"-Intro":      {},
	" Time Check": {},
}

// SchemaError reports scheduled-spot data missing required fields. It is
// fatal to the reconciliation call.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "reconcile: schedule data missing required field(s): " + strings.Join(e.Missing, ", ")
}

// Options tunes the engine. Zero tolerances fall back to the defaults
// (7 minutes early, 5 minutes late).
type Options struct {
	EarlyTolerance time.Duration
	LateTolerance  time.Duration
}

// Engine reconciles scheduled spots against a broadcast log.
type Engine struct {
	opts Options
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.EarlyTolerance == 0 {
		opts.EarlyTolerance = defaultEarlyTolerance
	}
	if opts.LateTolerance == 0 {
		opts.LateTolerance = defaultLateTolerance
	}
	return &Engine{opts: opts}
}

// Result is the outcome of one reconciliation run.
type Result struct {
	// Unmatched lists the spots lacking sufficient corroboration, in input
	// order, each with its reason.
	Unmatched []model.UnmatchedRecord
	// Log is the annotated copy of the broadcast log; ReferenceColumn is set
	// on every claimed row.
	Log *model.Table
	// Matched is the number of log rows claimed in this run.
	Matched int
}

// spotState carries a spot plus its derived matching values.
type spotState struct {
	spot     model.ScheduledSpot
	progTime normalize.Clock
	endTime  normalize.Clock
	key      model.MatchKey
}

// logRow carries one broadcast-log row's derived matching values plus its
// claim state for this run.
type logRow struct {
	index      int
	advertiser string
	channel    string
	duration   string
	theme      string
	hasTheme   bool
	dateKey    string
	progTime   normalize.Clock
	claimed    bool
}

// Reconcile matches spots against the log and stamps claimed rows with the
// reference number. The caller's log table is cloned, never mutated.
func (e *Engine) Reconcile(spots []model.ScheduledSpot, logTable *model.Table, reference string) (*Result, error) {
	if err := validateSchema(spots); err != nil {
		return nil, err
	}

	annotated := logTable.Clone()
	refCol := annotated.EnsureColumn(ReferenceColumn)
	for i := range annotated.Rows {
		annotated.SetCell(i, refCol, "")
	}

	rows := parseLogRows(annotated)
	states := deriveSpotStates(spots)

	// Quota: spots sharing a key collectively need as many distinct claims as
	// there are spots under that key.
	required := make(map[model.MatchKey]int, len(states))
	for i := range states {
		required[states[i].key]++
	}
	satisfied := make(map[model.MatchKey]int, len(required))

	res := &Result{Log: annotated}

	for i := range states {
		st := &states[i]

		window, ok := e.windowFor(st)
		if !ok {
			if st.spot.Kind() == model.ProgramTag {
				res.addUnmatched(st.spot, "Tag program outside allowed time ranges (6AM-6PM or 6PM-10:59PM)")
			} else {
				res.addUnmatched(st.spot, "Program time missing or unparsable")
			}
			continue
		}

		candidates := filterCandidates(rows, st)
		if len(candidates) == 0 {
			res.addUnmatched(st.spot, diagnoseMiss(rows, st))
			continue
		}

		if st.spot.Kind() == model.ProgramTag {
			candidates = filterTagThemes(candidates)
			if len(candidates) == 0 {
				res.addUnmatched(st.spot, "No matching Tag theme found")
				continue
			}
		}

		var inWindow []*logRow
		for _, lr := range candidates {
			if window.Contains(lr.progTime) {
				inWindow = append(inWindow, lr)
			}
		}
		if len(inWindow) == 0 {
			res.addUnmatched(st.spot, fmt.Sprintf(
				"No matching program time found in range %s to %s", window.Start, window.End))
			continue
		}

		// Claim the first unclaimed in-window candidate. One claim per spot:
		// each of the N expanded spots under a key needs its own log row.
		claimed := false
		for _, lr := range inWindow {
			if lr.claimed {
				continue
			}
			lr.claimed = true
			annotated.SetCell(lr.index, refCol, reference)
			satisfied[st.key]++
			res.Matched++
			claimed = true
			break
		}
		if !claimed {
			needed := required[st.key] - satisfied[st.key]
			res.addUnmatched(st.spot, fmt.Sprintf(
				"Found only %d matches, needed %d more", len(inWindow), needed))
		}
	}

	zap.L().Info("reconciliation complete",
		zap.String("reference", reference),
		zap.Int("spots", len(spots)),
		zap.Int("unmatched", len(res.Unmatched)),
		zap.Int("matched_log_rows", res.Matched),
	)

	return res, nil
}

func (r *Result) addUnmatched(spot model.ScheduledSpot, reason string) {
	r.Unmatched = append(r.Unmatched, model.UnmatchedRecord{Spot: spot, Reason: reason})
}

// validateSchema rejects spot batches whose required fields are absent. With
// record-shaped input a column can only go missing wholesale, so "missing"
// means empty on every record of a non-empty batch.
func validateSchema(spots []model.ScheduledSpot) error {
	if len(spots) == 0 {
		return nil
	}
	required := []struct {
		name string
		get  func(model.ScheduledSpot) string
	}{
		{"Advertiser", func(s model.ScheduledSpot) string { return s.Advertiser }},
		{"Channel", func(s model.ScheduledSpot) string { return s.Channel }},
		{"Program", func(s model.ScheduledSpot) string { return s.Program }},
		{"Dur", func(s model.ScheduledSpot) string { return s.Duration }},
	}

	var missing []string
	for _, field := range required {
		present := false
		for _, s := range spots {
			if strings.TrimSpace(field.get(s)) != "" {
				present = true
				break
			}
		}
		if !present {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// deriveSpotStates splits each spot's time label into start/end clocks and
// precomputes its match key.
func deriveSpotStates(spots []model.ScheduledSpot) []spotState {
	states := make([]spotState, len(spots))
	for i, s := range spots {
		st := spotState{spot: s, progTime: normalize.ClockUnset, endTime: normalize.ClockUnset, key: s.Key()}

		start, end, found := strings.Cut(s.TimeLabel, "-")
		st.progTime = normalize.ParseClock(start)
		if found {
			st.endTime = normalize.ParseClock(end)
		}
		states[i] = st
	}
	return states
}

// parseLogRows derives matching values for every log row. Values are trimmed;
// dates come from Dd/Mn/Yr components when all three columns exist, otherwise
// from the Date column. Unparsable dates and times stay unset and match
// nothing.
func parseLogRows(t *model.Table) []logRow {
	advCol := t.ColumnIndex(advertiserColumn)
	chCol := t.ColumnIndex(channelColumn)
	durCol := t.ColumnIndex(durationColumn)
	if durCol < 0 {
		durCol = t.ColumnIndex("Duration")
	}
	timeCol := t.ColumnIndex(progTimeColumn)
	themeCol := t.ColumnIndex(themeColumn)
	dateCol := t.ColumnIndex(dateColumn)
	ddCol := t.ColumnIndex(dayColumn)
	mnCol := t.ColumnIndex(monthColumn)
	yrCol := t.ColumnIndex(yearColumn)
	useComponents := ddCol >= 0 && mnCol >= 0 && yrCol >= 0

	rows := make([]logRow, len(t.Rows))
	for i := range t.Rows {
		lr := logRow{
			index:      i,
			advertiser: strings.TrimSpace(t.Cell(i, advCol)),
			channel:    strings.TrimSpace(t.Cell(i, chCol)),
			duration:   strings.TrimSpace(t.Cell(i, durCol)),
			progTime:   normalize.ParseClock(t.Cell(i, timeCol)),
		}
		if themeCol >= 0 {
			lr.hasTheme = true
			lr.theme = strings.TrimSpace(t.Cell(i, themeCol))
		}

		if useComponents {
			if d, ok := normalize.CombineDMY(t.Cell(i, ddCol), t.Cell(i, mnCol), t.Cell(i, yrCol)); ok {
				lr.dateKey = normalize.DateKey(d)
			}
		} else if dateCol >= 0 {
			if d, ok := normalize.ParseDate(t.Cell(i, dateCol)); ok {
				lr.dateKey = normalize.DateKey(d)
			}
		}
		rows[i] = lr
	}
	return rows
}

// filterCandidates applies the exact match key: advertiser, channel, dateKey
// and duration, no tolerance. Empty date keys match nothing.
func filterCandidates(rows []logRow, st *spotState) []*logRow {
	var out []*logRow
	for i := range rows {
		lr := &rows[i]
		if lr.advertiser == st.spot.Advertiser &&
			lr.channel == st.spot.Channel &&
			lr.duration == st.spot.Duration &&
			st.key.DateKey != "" && lr.dateKey == st.key.DateKey {
			out = append(out, lr)
		}
	}
	return out
}

// filterTagThemes narrows Tag candidates to the accepted theme set. Rows
// without a theme column never qualify.
func filterTagThemes(candidates []*logRow) []*logRow {
	var out []*logRow
	for _, lr := range candidates {
		if !lr.hasTheme {
			continue
		}
		if _, ok := tagThemes[lr.theme]; ok {
			out = append(out, lr)
		}
	}
	return out
}

// diagnoseMiss attributes a zero-candidate result to the specific key fields
// with no match anywhere in the log.
func diagnoseMiss(rows []logRow, st *spotState) string {
	var parts []string

	found := func(pred func(logRow) bool) bool {
		for _, lr := range rows {
			if pred(lr) {
				return true
			}
		}
		return false
	}

	if !found(func(lr logRow) bool { return lr.advertiser == st.spot.Advertiser }) {
		parts = append(parts, "Advertiser not found")
	}
	if !found(func(lr logRow) bool { return lr.channel == st.spot.Channel }) {
		parts = append(parts, "Channel not found")
	}
	if st.key.DateKey == "" || !found(func(lr logRow) bool { return lr.dateKey == st.key.DateKey }) {
		parts = append(parts, "Date not found")
	}
	if !found(func(lr logRow) bool { return lr.duration == st.spot.Duration }) {
		parts = append(parts, "Duration not found")
	}

	if len(parts) == 0 {
		return "No match"
	}
	return strings.Join(parts, " & ")
}
