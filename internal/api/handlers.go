package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/spotaudit/spotaudit/internal/export"
	"github.com/spotaudit/spotaudit/internal/fetcher"
	"github.com/spotaudit/spotaudit/internal/model"
	"github.com/spotaudit/spotaudit/internal/reconcile"
	"github.com/spotaudit/spotaudit/internal/schedule"
	"github.com/spotaudit/spotaudit/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleListSheets returns the selectable sheet names of an uploaded plan
// workbook.
func (s *Server) handleListSheets(w http.ResponseWriter, r *http.Request) {
	data, _, ok := readUpload(w, r, "file")
	if !ok {
		return
	}

	f, err := xlsx.OpenBinary(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read workbook: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"sheets": schedule.ListSheets(f)})
}

// handleExtract runs the grid extractor on an uploaded plan workbook and
// parks the spots behind a token.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	data, _, ok := readUpload(w, r, "file")
	if !ok {
		return
	}
	sheet := r.FormValue("sheet")
	if sheet == "" {
		writeError(w, http.StatusBadRequest, "sheet is required")
		return
	}
	channel := r.FormValue("channel")
	advertiser := r.FormValue("advertiser")

	f, err := xlsx.OpenBinary(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read workbook: "+err.Error())
		return
	}

	spots, err := schedule.Extract(f, sheet, channel, advertiser)
	if err != nil {
		var layoutErr *schedule.LayoutError
		if errors.As(err, &layoutErr) {
			writeError(w, http.StatusBadRequest, layoutErr.Error())
			return
		}
		s.internalError(w, "extract", err)
		return
	}

	token, err := s.store.PutExtraction(r.Context(), &store.Extraction{
		Spots:     spots,
		Meta:      store.ExtractMeta{Sheet: sheet, Channel: channel, Advertiser: advertiser},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.internalError(w, "store extraction", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":   token,
		"preview": spotsPreview(spots),
	})
}

// handleExtractDownload serializes a stored extraction as a workbook.
func (s *Server) handleExtractDownload(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	extraction, err := s.store.GetExtraction(r.Context(), token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "invalid or expired token")
			return
		}
		s.internalError(w, "load extraction", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteScheduleXLSX(&buf, extraction.Spots); err != nil {
		s.internalError(w, "write workbook", err)
		return
	}
	writeAttachment(w, "extracted_schedule.xlsx", xlsxContentType, buf.Bytes())
}

// handleMonitor reconciles a stored extraction against an uploaded broadcast
// log and parks the result behind a job id.
func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	logData, logName, ok := readUpload(w, r, "log")
	if !ok {
		return
	}
	token := r.FormValue("token")
	reference := r.FormValue("reference")
	if token == "" || reference == "" {
		writeError(w, http.StatusBadRequest, "token and reference are required")
		return
	}

	extraction, err := s.store.GetExtraction(r.Context(), token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "invalid or expired token")
			return
		}
		s.internalError(w, "load extraction", err)
		return
	}

	logTable, err := readLogTable(logData, logName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read log file: "+err.Error())
		return
	}

	res, err := s.engine.Reconcile(extraction.Spots, logTable, reference)
	if err != nil {
		var schemaErr *reconcile.SchemaError
		if errors.As(err, &schemaErr) {
			writeError(w, http.StatusUnprocessableEntity, schemaErr.Error())
			return
		}
		s.internalError(w, "reconcile", err)
		return
	}

	summary := store.Summary{
		TotalScheduleSpots: len(extraction.Spots),
		TotalUnmatched:     len(res.Unmatched),
		TotalMatchedInLog:  res.Matched,
	}

	jobID, err := s.store.PutResult(r.Context(), &store.ReconcileResult{
		Unmatched: res.Unmatched,
		Log:       res.Log,
		Summary:   summary,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.internalError(w, "store result", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":           jobID,
		"summary":          summary,
		"unmatchedPreview": unmatchedPreview(res.Unmatched),
		"logPreview":       tablePreview(res.Log),
	})
}

// handleMonitorDownload serializes one half of a stored reconciliation
// result as CSV.
func (s *Server) handleMonitorDownload(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	which := chi.URLParam(r, "which")

	res, err := s.store.GetResult(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "invalid or expired job")
			return
		}
		s.internalError(w, "load result", err)
		return
	}

	var (
		body []byte
		name string
	)
	switch which {
	case "unmatched":
		body, err = export.UnmatchedCSV(res.Unmatched)
		name = "unmatched_data.csv"
	case "log":
		body, err = export.TableCSV(res.Log)
		name = "annotated_log.csv"
	default:
		writeError(w, http.StatusBadRequest, "which must be unmatched or log")
		return
	}
	if err != nil {
		s.internalError(w, "serialize csv", err)
		return
	}

	writeAttachment(w, name, "text/csv", body)
}

// readUpload pulls one multipart file field, writing the error response
// itself on failure.
func readUpload(w http.ResponseWriter, r *http.Request, field string) (data []byte, filename string, ok bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, "", false
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		writeError(w, http.StatusBadRequest, field+" file is required")
		return nil, "", false
	}
	defer file.Close() //nolint:errcheck

	data, err = io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read "+field+" file")
		return nil, "", false
	}
	return data, header.Filename, true
}

// readLogTable parses an uploaded broadcast log, CSV or workbook, by file
// extension.
func readLogTable(data []byte, filename string) (*model.Table, error) {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return fetcher.ReadCSVBytes(data)
	}
	return fetcher.ReadXLSXBytes(data, fetcher.XLSXOptions{})
}

func (s *Server) internalError(w http.ResponseWriter, action string, err error) {
	zap.L().Error("api: "+action, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
