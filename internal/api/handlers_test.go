package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/spotaudit/spotaudit/internal/reconcile"
	"github.com/spotaudit/spotaudit/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := New(store.NewMemory(store.Options{}), reconcile.New(reconcile.Options{}))
	ts := httptest.NewServer(srv.Router([]string{"*"}))
	t.Cleanup(ts.Close)
	return ts
}

// planWorkbook builds a plan upload with one dated column (21 Jan 2026) and a
// single spot row scheduling two News spots.
func planWorkbook(t *testing.T) []byte {
	t.Helper()

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Plan")
	require.NoError(t, err)

	addCells := func(values ...string) {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().SetString(v)
		}
	}
	pad := func(tail ...string) []string {
		return append(make([]string, 18), tail...)
	}

	addCells("Media Plan Q1") // banner
	addCells()
	addCells()
	addCells(pad("Jan - 2026")...) // month labels
	addCells()
	addCells(pad("21")...) // day numbers
	addCells("Program", "Com Name", "Duration", "Language", "", "Time", "", "NRate", "NCost")
	addCells(append([]string{
		"News at Nine", "Winter Promo", "30", "EN", "", "21:00:00-21:30:00", "", "1200", "1500",
		"", "", "", "", "", "", "", "", ""},
		"2")...)

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

// multipartBody assembles a multipart form with one file part plus fields.
func multipartBody(t *testing.T, fileField, filename string, fileData []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(fileField, filename)
	require.NoError(t, err)
	_, err = part.Write(fileData)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postMultipart(t *testing.T, url, fileField, filename string, fileData []byte, fields map[string]string) *http.Response {
	t.Helper()

	body, contentType := multipartBody(t, fileField, filename, fileData, fields)
	resp, err := http.Post(url, contentType, body)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

const logCSV = "Advertiser,Channel,Dur,Prog_time,Date,Advt_Theme\n" +
	"Acme,TV One,30,21:02:00,2026-01-21,\n" +
	"Acme,TV One,30,21:10:00,2026-01-21,\n"

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]bool
	decodeJSON(t, resp, &body)
	assert.True(t, body["ok"])
}

func TestListSheets(t *testing.T) {
	ts := newTestServer(t)

	resp := postMultipart(t, ts.URL+"/api/schedule/sheets", "file", "plan.xlsx", planWorkbook(t), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string][]string
	decodeJSON(t, resp, &body)
	assert.Equal(t, []string{"Plan"}, body["sheets"])
}

func TestExtractThenMonitorFlow(t *testing.T) {
	ts := newTestServer(t)

	// Extract.
	resp := postMultipart(t, ts.URL+"/api/extract", "file", "plan.xlsx", planWorkbook(t), map[string]string{
		"sheet":      "Plan",
		"channel":    "TV One",
		"advertiser": "Acme",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var extractBody struct {
		Token   string `json:"token"`
		Preview struct {
			Columns   []string   `json:"columns"`
			Rows      [][]string `json:"rows"`
			TotalRows int        `json:"totalRows"`
		} `json:"preview"`
	}
	decodeJSON(t, resp, &extractBody)
	require.NotEmpty(t, extractBody.Token)
	assert.Equal(t, 2, extractBody.Preview.TotalRows)
	require.Len(t, extractBody.Preview.Rows, 2)
	assert.Equal(t, "News at Nine", extractBody.Preview.Rows[0][0])
	assert.Equal(t, "21/01/2026", extractBody.Preview.Rows[0][6])

	// Extraction download is a workbook attachment.
	resp, err := http.Get(ts.URL + "/api/extract/download/" + extractBody.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "extracted_schedule.xlsx")
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	_, err = xlsx.OpenBinary(data)
	assert.NoError(t, err)

	// Monitor: both scheduled spots find in-window log rows.
	resp = postMultipart(t, ts.URL+"/api/monitor", "log", "log.csv", []byte(logCSV), map[string]string{
		"token":     extractBody.Token,
		"reference": "RO-7",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var monitorBody struct {
		JobID   string        `json:"job_id"`
		Summary store.Summary `json:"summary"`
	}
	decodeJSON(t, resp, &monitorBody)
	require.NotEmpty(t, monitorBody.JobID)
	assert.Equal(t, store.Summary{TotalScheduleSpots: 2, TotalUnmatched: 0, TotalMatchedInLog: 2}, monitorBody.Summary)

	// Annotated log download carries the reference number.
	resp, err = http.Get(ts.URL + "/api/monitor/download/" + monitorBody.JobID + "/log")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "annotated_log.csv")
	data, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(data), "Reference Number")
	assert.Contains(t, string(data), "RO-7")

	// Unmatched download is empty but well-formed.
	resp, err = http.Get(ts.URL + "/api/monitor/download/" + monitorBody.JobID + "/unmatched")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "unmatched_data.csv")
	resp.Body.Close()
}

func TestMonitor_UnmatchedPreview(t *testing.T) {
	ts := newTestServer(t)

	resp := postMultipart(t, ts.URL+"/api/extract", "file", "plan.xlsx", planWorkbook(t), map[string]string{
		"sheet":      "Plan",
		"channel":    "TV One",
		"advertiser": "Acme",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var extractBody struct {
		Token string `json:"token"`
	}
	decodeJSON(t, resp, &extractBody)

	// Empty log: every spot misses on all key fields.
	emptyLog := "Advertiser,Channel,Dur,Prog_time,Date,Advt_Theme\n"
	resp = postMultipart(t, ts.URL+"/api/monitor", "log", "log.csv", []byte(emptyLog), map[string]string{
		"token":     extractBody.Token,
		"reference": "RO-7",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var monitorBody struct {
		Summary          store.Summary `json:"summary"`
		UnmatchedPreview struct {
			Columns []string   `json:"columns"`
			Rows    [][]string `json:"rows"`
		} `json:"unmatchedPreview"`
	}
	decodeJSON(t, resp, &monitorBody)
	assert.Equal(t, 2, monitorBody.Summary.TotalUnmatched)
	require.Len(t, monitorBody.UnmatchedPreview.Rows, 2)
	last := len(monitorBody.UnmatchedPreview.Columns) - 1
	assert.Equal(t, "Unmatched_Reason", monitorBody.UnmatchedPreview.Columns[last])
	assert.Equal(t,
		"Advertiser not found & Channel not found & Date not found & Duration not found",
		monitorBody.UnmatchedPreview.Rows[0][last])
}

func TestExtract_MissingSheetField(t *testing.T) {
	ts := newTestServer(t)

	resp := postMultipart(t, ts.URL+"/api/extract", "file", "plan.xlsx", planWorkbook(t), nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExtract_LayoutError(t *testing.T) {
	ts := newTestServer(t)

	// A workbook with no recognizable header row.
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Plan")
	require.NoError(t, err)
	for i := 0; i < 30; i++ {
		sheet.AddRow().AddCell().SetString("banner")
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	resp := postMultipart(t, ts.URL+"/api/extract", "file", "plan.xlsx", buf.Bytes(), map[string]string{"sheet": "Plan"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	decodeJSON(t, resp, &body)
	assert.Contains(t, body["error"], "header not found")
}

func TestMonitor_SchemaError(t *testing.T) {
	ts := newTestServer(t)

	// Extracting without channel or advertiser leaves those fields empty on
	// every spot, which the engine rejects.
	resp := postMultipart(t, ts.URL+"/api/extract", "file", "plan.xlsx", planWorkbook(t), map[string]string{"sheet": "Plan"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var extractBody struct {
		Token string `json:"token"`
	}
	decodeJSON(t, resp, &extractBody)

	resp = postMultipart(t, ts.URL+"/api/monitor", "log", "log.csv", []byte(logCSV), map[string]string{
		"token":     extractBody.Token,
		"reference": "RO-7",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body map[string]string
	decodeJSON(t, resp, &body)
	assert.Contains(t, body["error"], "Advertiser")
}

func TestDownload_UnknownTokens(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/extract/download/extract:nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/monitor/download/result:nope/log")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMonitorDownload_BadWhich(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/monitor/download/result:nope/everything")
	require.NoError(t, err)
	defer resp.Body.Close()
	// Unknown job is checked first; a live job with a bad selector returns 400.
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMonitor_XLSXLog(t *testing.T) {
	ts := newTestServer(t)

	resp := postMultipart(t, ts.URL+"/api/extract", "file", "plan.xlsx", planWorkbook(t), map[string]string{
		"sheet":      "Plan",
		"channel":    "TV One",
		"advertiser": "Acme",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var extractBody struct {
		Token string `json:"token"`
	}
	decodeJSON(t, resp, &extractBody)

	// The same log rows as a workbook instead of CSV.
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Log")
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(logCSV), "\n") {
		row := sheet.AddRow()
		for _, v := range strings.Split(line, ",") {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	resp = postMultipart(t, ts.URL+"/api/monitor", "log", "log.xlsx", buf.Bytes(), map[string]string{
		"token":     extractBody.Token,
		"reference": "RO-7",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var monitorBody struct {
		Summary store.Summary `json:"summary"`
	}
	decodeJSON(t, resp, &monitorBody)
	assert.Equal(t, 2, monitorBody.Summary.TotalMatchedInLog)
}
