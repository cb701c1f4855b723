package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/joseph-ayodele/notescan/constants"
	"github.com/joseph-ayodele/notescan/internal/async"
	"github.com/joseph-ayodele/notescan/internal/common"
	"github.com/joseph-ayodele/notescan/internal/entity"
	"github.com/joseph-ayodele/notescan/internal/extract"
	"github.com/joseph-ayodele/notescan/internal/pipeline"
)

type ScanRequest struct {
	Photos   []entity.CapturedPhoto `json:"photos"`
	Accuracy string                 `json:"accuracy,omitempty"`
	Language string                 `json:"language,omitempty"`
	Provider string                 `json:"provider,omitempty"`
}

type ScanResponse struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type ExtractRequest struct {
	ImageData    string `json:"image_data"`
	MimeType     string `json:"mime_type,omitempty"`
	Engine       int    `json:"engine,omitempty"`
	Language     string `json:"language,omitempty"`
	Provider     string `json:"provider,omitempty"`
	Retries      int    `json:"retries,omitempty"`
	RetryDelayMs int    `json:"retry_delay_ms,omitempty"`
}

type TextResponse struct {
	Text string `json:"text"`
}

type RefineRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

func (s *ScanService) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateScan runs a full session over the posted photos.
func (s *ScanService) CreateScan(w http.ResponseWriter, r *http.Request) {
	photos, opts, err := s.decodeScan(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	sid := uuid.New().String()
	ctx := common.WithSessionID(r.Context(), sid)
	text, err := s.runner.RunSession(ctx, photos, opts)
	if err != nil {
		s.logger.Warn("server.scan.failed", "session_id", sid, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ScanResponse{SessionID: sid, Text: text})
}

// SubmitScanJob queues a session and answers right away with its id.
func (s *ScanService) SubmitScanJob(w http.ResponseWriter, r *http.Request) {
	photos, opts, err := s.decodeScan(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	job := async.Job{ID: uuid.New().String(), Photos: photos, Options: opts, SubmittedAt: time.Now()}
	if err := s.jobs.Enqueue(r.Context(), job); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/scan-jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, async.Result{ID: job.ID, Status: async.StatusQueued, SubmittedAt: job.SubmittedAt})
}

// GetScanJob reports the state of a queued session.
func (s *ScanService) GetScanJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	res, ok := s.jobs.Result(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "scan job not found"})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *ScanService) decodeScan(w http.ResponseWriter, r *http.Request) ([]entity.CapturedPhoto, pipeline.SessionOptions, error) {
	var req ScanRequest
	if err := decodeBody(w, r, &req); err != nil {
		return nil, pipeline.SessionOptions{}, err
	}
	if len(req.Photos) == 0 {
		return nil, pipeline.SessionOptions{}, badRequest("photos is required")
	}
	for i, p := range req.Photos {
		// server-side paths are never read on behalf of a caller
		if p.Base64 == "" {
			return nil, pipeline.SessionOptions{}, badRequest("photos[%d].base64 is required", i)
		}
		req.Photos[i].URI = ""
	}
	accuracy, err := constants.ParseAccuracy(req.Accuracy)
	if err != nil {
		return nil, pipeline.SessionOptions{}, badRequest("%v", err)
	}
	provider, err := constants.ParseProvider(req.Provider)
	if err != nil {
		return nil, pipeline.SessionOptions{}, badRequest("%v", err)
	}
	return req.Photos, pipeline.SessionOptions{
		Accuracy: accuracy,
		Language: strings.TrimSpace(req.Language),
		Provider: provider,
	}, nil
}

// Extract returns the raw provider text of a single image.
func (s *ScanService) Extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	provider, err := constants.ParseProvider(req.Provider)
	if err != nil {
		writeError(w, badRequest("%v", err))
		return
	}
	if req.Engine != 0 && req.Engine != 1 && req.Engine != 2 {
		writeError(w, badRequest("engine must be 1 or 2"))
		return
	}
	mime := req.MimeType
	if mime == "" {
		mime = constants.DefaultMimeType
	}
	text, err := s.extractor.Extract(r.Context(), extract.Request{
		ImageData:  req.ImageData,
		MimeType:   mime,
		Engine:     req.Engine,
		Language:   req.Language,
		Provider:   provider,
		Retries:    min(maxRetries, max(0, req.Retries)),
		RetryDelay: time.Duration(max(0, req.RetryDelayMs)) * time.Millisecond,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TextResponse{Text: text})
}

// Refine proofreads text; it answers with the input unchanged when refinement is unavailable.
func (s *ScanService) Refine(w http.ResponseWriter, r *http.Request) {
	var req RefineRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TextResponse{Text: s.extractor.Refine(r.Context(), req.Text, req.Language)})
}
