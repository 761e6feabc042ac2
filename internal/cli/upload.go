package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"

	"github.com/nahidhasan98/perfbudget/internal/handlers"
	"github.com/nahidhasan98/perfbudget/internal/logger"
	"github.com/nahidhasan98/perfbudget/internal/models"
	"github.com/nahidhasan98/perfbudget/internal/storage"
)

const (
	ingestPath       = "/webhook/runs"
	uploadMaxRetries = 3
)

// uploader sends signed runs to a dashboard
type uploader struct {
	httpClient *http.Client
	log        *logger.Logger
	newBackOff func() backoff.BackOff
}

func newUploader(log *logger.Logger) *uploader {
	return &uploader{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

// ingestURL accepts a dashboard base URL or the full ingest endpoint
func ingestURL(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, ingestPath) {
		return base
	}
	return base + ingestPath
}

// Upload posts the run, retrying network errors and 5xx responses
func (u *uploader) Upload(ctx context.Context, dashboard, secret string, run *storage.Run) (*models.IngestResponse, error) {
	if secret == "" {
		return nil, errors.New("PERFBUDGET_INGEST_SECRET is required to upload runs")
	}

	payload, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run: %w", err)
	}
	signature := handlers.Sign(payload, secret)
	target := ingestURL(dashboard)

	var result models.IngestResponse
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(models.SignatureHeader, signature)

		resp, err := u.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			msg := http.StatusText(resp.StatusCode)
			var apiErr models.ErrorResponse
			if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
				msg = apiErr.Error
			}
			err := fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, msg)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return err
			}
			return backoff.Permanent(err)
		}

		if err := json.Unmarshal(data, &result); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode upload response: %w", err))
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(u.newBackOff(), uploadMaxRetries), ctx)
	if err := backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		u.log.Warnf("Upload attempt %d failed, retrying in %s: %v", attempt, wait, err)
	}); err != nil {
		return nil, err
	}
	return &result, nil
}
