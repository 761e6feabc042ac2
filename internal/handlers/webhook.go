package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/nahidhasan98/perfbudget/internal/errors"
	"github.com/nahidhasan98/perfbudget/internal/models"
	"github.com/nahidhasan98/perfbudget/internal/storage"
)

// maxUploadSize bounds a run upload body
const maxUploadSize = 10 << 20

// IngestRun handles POST /webhook/runs, a signed run upload from CI
func (h *Handler) IngestRun(w http.ResponseWriter, r *http.Request) {
	if h.ingestSecret == "" {
		h.log.Warn("Run upload received but no ingest secret is configured")
		h.writeAppError(w, errors.New(errors.ErrCodeForbidden, "Run ingestion is disabled"))
		return
	}

	// Get signature from header
	headerSignature := r.Header.Get(models.SignatureHeader)
	if headerSignature == "" {
		h.log.Warn("Run upload received without signature header")
		h.writeAppError(w, errors.Unauthorized(fmt.Sprintf("Missing %s header", models.SignatureHeader)))
		return
	}

	// Read the raw body for signature verification
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		h.writeAppError(w, errors.InvalidRequest("Failed to read request body: "+err.Error()))
		return
	}

	if !VerifySignature(body, headerSignature, h.ingestSecret) {
		h.log.Warn("Invalid run upload signature")
		h.writeAppError(w, errors.Unauthorized("Invalid webhook signature"))
		return
	}

	var run storage.Run
	if err := json.Unmarshal(body, &run); err != nil {
		h.writeAppError(w, errors.InvalidRequest("Invalid run payload: "+err.Error()))
		return
	}

	if appErr := h.validator.ValidateRunUpload(&run); appErr != nil {
		h.writeAppError(w, appErr)
		return
	}
	run.ChunkCount = len(run.Chunks)

	if err := h.store.SaveRun(r.Context(), &run); err != nil {
		h.writeAppError(w, errors.DatabaseError(err))
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRun(run.Branch, run.Status, run.Score, run.TotalSize)
	}
	if h.live != nil {
		h.live.Broadcast(models.LiveEvent{Type: "run", Run: models.NewRunSummary(&run)})
	}

	h.log.With("run_id", run.ID).Infof("Run ingested for branch %s (score %d, %s)", run.Branch, run.Score, run.Status)
	h.writeJSON(w, &models.IngestResponse{Status: "stored", RunID: run.ID}, http.StatusCreated)
}

// Sign returns the signature header value for a payload
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return models.SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies the HMAC SHA256 signature of the payload
func VerifySignature(payload []byte, headerSignature, secret string) bool {
	if !strings.HasPrefix(headerSignature, models.SignaturePrefix) {
		return false
	}

	// Compare signatures using constant time comparison to prevent timing attacks
	return hmac.Equal([]byte(headerSignature), []byte(Sign(payload, secret)))
}
