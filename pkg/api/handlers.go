package api

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"

	"github.com/ssargent/fitfix/pkg/journal"
	"github.com/ssargent/fitfix/pkg/logging"
	"github.com/ssargent/fitfix/pkg/metrics"
	"github.com/ssargent/fitfix/pkg/repair"
)

// Server holds the API server state
type Server struct {
	config  ServerConfig
	metrics *metrics.Metrics
	journal JournalWriter
	log     logrus.FieldLogger
}

// NewServer creates a new API server. metrics, journal and log may be nil.
func NewServer(config ServerConfig, m *metrics.Metrics, j JournalWriter, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	if config.Bounds == (repair.Bounds{}) {
		config.Bounds = repair.DefaultBounds()
	}
	return &Server{
		config:  config,
		metrics: m,
		journal: j,
		log:     log,
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleFix godoc
//
//	@Summary		Repair a capture
//	@Description	Run a repair plan over the request body and return the result
//	@Tags			repair
//	@Accept			octet-stream
//	@Produce		json,octet-stream
//	@Param			body			body		[]byte	true	"Capture bytes"
//	@Param			drop			query		bool	false	"Search for and drop corrupt spans"
//	@Param			slices			query		string	false	"Byte ranges to keep, e.g. :14,28:"
//	@Param			fix_header		query		bool	false	"Rewrite the header"
//	@Param			fix_checksum	query		bool	false	"Rewrite the checksum"
//	@Param			format			query		string	false	"json (default) or raw"
//	@Success		200				{object}	APIResponse
//	@Failure		400				{object}	APIResponse
//	@Failure		422				{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/fix [post]
func (s *Server) handleFix(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		sendRepairError(w, err)
		return
	}

	q := r.URL.Query()
	opts, err := s.optionsFromQuery(q)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	plan, err := repair.NewPlan(opts)
	if err != nil {
		sendRepairError(w, err)
		return
	}

	runID := ksuid.New().String()
	name := q.Get("name")
	log := s.log.WithFields(logrus.Fields{"run": runID, "path": name})

	started := time.Now()
	res, err := repair.Fix(body, plan, log)
	elapsed := time.Since(started)

	s.metrics.RecordFile(metrics.ModeFix, res, err, elapsed)
	s.record(runID, metrics.ModeFix, repair.FileResult{Path: name, Result: res, Err: err, Duration: elapsed})

	if err != nil {
		sendRepairError(w, err)
		return
	}

	if wantsRaw(r) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("X-Fitfix-Run", runID)
		w.Header().Set("X-Fitfix-Drops", strconv.Itoa(len(res.Report.Drops)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(res.Data)
		return
	}

	resp := FixResponse{
		RunID:   runID,
		Size:    len(res.Data),
		Drops:   res.Report.Drops,
		Dropped: res.Report.Dropped(),
		Records: res.Report.Records,
		Data:    res.Data,
	}
	if res.Verdict != nil {
		resp.Records = len(res.Verdict.Records)
		resp.Warnings = res.Verdict.Warnings
	}
	sendSuccess(w, resp)
}

// handleCheck godoc
//
//	@Summary		Check a capture
//	@Description	Validate the request body as-is without repairing it
//	@Tags			repair
//	@Accept			octet-stream
//	@Produce		json
//	@Param			body	body		[]byte	true	"Capture bytes"
//	@Param			force	query		bool	false	"Strict validation"
//	@Success		200		{object}	APIResponse
//	@Failure		400		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/check [post]
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		sendRepairError(w, err)
		return
	}

	q := r.URL.Query()
	force, err := parseBool(q, "force", false)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	plan, err := repair.NewPlan(repair.Options{
		Check:    true,
		Validate: true,
		Force:    force,
		Bounds:   s.config.Bounds,
	})
	if err != nil {
		sendRepairError(w, err)
		return
	}

	name := q.Get("name")
	started := time.Now()
	c, err := repair.Classify(r.Context(), []repair.Capture{{Name: name, Data: body}}, plan)
	if err != nil {
		sendRepairError(w, err)
		return
	}

	reason := c.Reasons[name]
	s.metrics.RecordFile(metrics.ModeCheck, nil, reason, time.Since(started))
	s.record(ksuid.New().String(), metrics.ModeCheck, repair.FileResult{Path: name, Err: reason, Duration: time.Since(started)})

	resp := CheckResponse{Name: name, Good: len(c.Good) == 1}
	if reason != nil {
		resp.Reason = reason.Error()
	}
	sendSuccess(w, resp)
}

// handleHistory godoc
//
//	@Summary		Repair history
//	@Description	List the most recent journal entries, newest first
//	@Tags			journal
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum number of entries"
//	@Success		200		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/history [get]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		sendError(w, "Journal is disabled", http.StatusNotFound)
		return
	}
	limit, err := parseInt(r.URL.Query(), "limit", 50)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	entries, err := s.journal.List(limit)
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to read journal: %v", err), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	sendSuccess(w, entries)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	reader := io.Reader(r.Body)
	if s.config.MaxBodySize > 0 {
		reader = http.MaxBytesReader(w, r.Body, s.config.MaxBodySize)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &repair.Error{Kind: repair.KindRead, Err: err}
	}
	return body, nil
}

// record appends a journal entry; failures are logged, not returned
func (s *Server) record(runID, mode string, r repair.FileResult) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Append(journal.FromFileResult(runID, mode, r)); err != nil {
		s.log.WithError(err).Warn("failed to write journal entry")
	}
}

func wantsRaw(r *http.Request) bool {
	if f := r.URL.Query().Get("format"); f != "" {
		return f == "raw"
	}
	return r.Header.Get("Accept") == "application/octet-stream"
}

// optionsFromQuery builds repair options from the server defaults
// overridden by query parameters
func (s *Server) optionsFromQuery(q url.Values) (repair.Options, error) {
	opts := repair.Options{
		Validate: true,
		Bounds:   s.config.Bounds,
		Header:   s.config.Header,
	}

	var err error
	set := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	set(func() (e error) { opts.Drop, e = parseBool(q, "drop", false); return })
	set(func() (e error) { opts.AddHeader, e = parseBool(q, "add_header", false); return })
	set(func() (e error) { opts.FixHeader, e = parseBool(q, "fix_header", false); return })
	set(func() (e error) { opts.FixChecksum, e = parseBool(q, "fix_checksum", false); return })
	set(func() (e error) { opts.Force, e = parseBool(q, "force", false); return })
	set(func() (e error) { opts.Validate, e = parseBool(q, "validate", opts.Validate); return })
	set(func() (e error) { opts.Start, e = parseInt(q, "start", 0); return })
	set(func() (e error) { opts.Slices, e = repair.ParseSlices(q.Get("slices")); return })

	b := &opts.Bounds
	set(func() (e error) { b.MinSyncCnt, e = parseInt(q, "min_sync_cnt", b.MinSyncCnt); return })
	set(func() (e error) { b.MaxRecordLen, e = parseInt(q, "max_record_len", b.MaxRecordLen); return })
	set(func() (e error) { b.MaxDropCnt, e = parseInt(q, "max_drop_cnt", b.MaxDropCnt); return })
	set(func() (e error) { b.MaxBackCnt, e = parseInt(q, "max_back_cnt", b.MaxBackCnt); return })
	set(func() (e error) { b.MaxFwdLen, e = parseInt(q, "max_fwd_len", b.MaxFwdLen); return })
	set(func() (e error) { b.MaxDeltaT, e = parseFloat(q, "max_delta_t", b.MaxDeltaT); return })

	h := &opts.Header
	set(func() (e error) { h.Size, e = parseUint8(q, "header_size", h.Size); return })
	set(func() (e error) { h.ProtocolVersion, e = parseUint8(q, "protocol_version", h.ProtocolVersion); return })
	set(func() (e error) { h.ProfileVersion, e = parseUint16(q, "profile_version", h.ProfileVersion); return })

	return opts, err
}

func paramError(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("invalid %s: %w", name, err)
}

func parseBool(q url.Values, name string, def bool) (bool, error) {
	s := q.Get(name)
	if s == "" {
		if _, ok := q[name]; ok {
			return true, nil
		}
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	return v, paramError(name, err)
}

func parseInt(q url.Values, name string, def int) (int, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	return v, paramError(name, err)
}

func parseFloat(q url.Values, name string, def float64) (float64, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, paramError(name, err)
}

func parseUint8(q url.Values, name string, def uint8) (uint8, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(s, 10, 8)
	return uint8(v), paramError(name, err)
}

func parseUint16(q url.Values, name string, def uint16) (uint16, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(s, 10, 16)
	return uint16(v), paramError(name, err)
}
