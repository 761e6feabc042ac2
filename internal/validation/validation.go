package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/nahidhasan98/perfbudget/internal/errors"
	"github.com/nahidhasan98/perfbudget/internal/storage"
	"github.com/nahidhasan98/perfbudget/internal/threshold"
)

const (
	maxBranchLength = 255
	maxChunks       = 10000
	maxPages        = 50
)

var (
	// Run IDs are UUIDs or other URL-safe tokens
	runIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

	// Hex commit SHA, short or full
	commitPattern = regexp.MustCompile(`^[0-9a-f]{7,64}$`)
)

// Validator provides validation methods
type Validator struct{}

// New creates a new validator instance
func New() *Validator {
	return &Validator{}
}

// ValidateRunUpload validates an uploaded run
func (v *Validator) ValidateRunUpload(run *storage.Run) *errors.AppError {
	if run == nil {
		return errors.InvalidRequest("Request body is required")
	}

	if strings.TrimSpace(run.Branch) == "" {
		return errors.ValidationError("'branch' field is required")
	}
	if len(run.Branch) > maxBranchLength {
		return errors.ValidationError(fmt.Sprintf("Branch too long (maximum %d characters)", maxBranchLength))
	}

	if run.ID != "" && !v.IsValidRunID(run.ID) {
		return errors.ValidationError("Invalid run id")
	}
	if run.Commit != "" && !commitPattern.MatchString(run.Commit) {
		return errors.ValidationError("Invalid commit: must be a hex SHA")
	}
	if run.PRNumber < 0 {
		return errors.ValidationError("Invalid prNumber: must be non-negative")
	}

	switch threshold.Status(run.Status) {
	case threshold.StatusPass, threshold.StatusWarn, threshold.StatusFail:
	default:
		return errors.ValidationError("Invalid status: must be one of pass, warn, fail")
	}
	if run.Score < 0 || run.Score > 100 {
		return errors.ValidationError("Invalid score: must be between 0 and 100")
	}

	if len(run.Chunks) == 0 {
		return errors.ValidationError("Run must contain at least one chunk")
	}
	if len(run.Chunks) > maxChunks {
		return errors.ValidationError(fmt.Sprintf("Too many chunks (maximum %d)", maxChunks))
	}
	var total int64
	for i, c := range run.Chunks {
		if c.ID == "" {
			return errors.ValidationError(fmt.Sprintf("chunks[%d].id is required", i))
		}
		if c.Size < 0 {
			return errors.ValidationError(fmt.Sprintf("chunks[%d].size must be non-negative", i))
		}
		total += c.Size
	}
	if run.TotalSize != total {
		return errors.ValidationError(fmt.Sprintf("totalSize %d does not match chunk sizes %d", run.TotalSize, total))
	}

	if len(run.Pages) > maxPages {
		return errors.ValidationError(fmt.Sprintf("Too many pages (maximum %d)", maxPages))
	}
	for i, p := range run.Pages {
		if strings.TrimSpace(p.URL) == "" {
			return errors.ValidationError(fmt.Sprintf("pages[%d].url is required", i))
		}
	}

	return nil
}

// IsValidRunID checks the shape of a run identifier
func (v *Validator) IsValidRunID(id string) bool {
	return runIDPattern.MatchString(id)
}

// ValidateMetric checks a trend metric name
func (v *Validator) ValidateMetric(metric string) *errors.AppError {
	if metric == "" {
		return errors.ValidationError("'metric' parameter is required")
	}
	if !slices.Contains(storage.TrendMetrics(), metric) {
		return errors.ValidationError(fmt.Sprintf("Invalid metric %q (valid: %s)", metric, strings.Join(storage.TrendMetrics(), ", ")))
	}
	return nil
}

// ValidateQueryParams validates common query parameters
func (v *Validator) ValidateQueryParams(params map[string]string) *errors.AppError {
	for key, value := range params {
		switch key {
		case "limit":
			if err := v.validateLimit(value); err != nil {
				return err
			}
		case "offset":
			if err := v.validateOffset(value); err != nil {
				return err
			}
		case "metric":
			if err := v.ValidateMetric(value); err != nil {
				return err
			}
		case "branch":
			if len(value) > maxBranchLength {
				return errors.ValidationError("Invalid branch parameter: too long")
			}
		}
	}
	return nil
}

// IntParam parses an already validated integer parameter, returning def when empty
func IntParam(value string, def int) int {
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return n
}

// validateLimit validates the limit parameter
func (v *Validator) validateLimit(limit string) *errors.AppError {
	if limit == "" {
		return nil
	}

	limitInt, err := strconv.Atoi(limit)
	if err != nil {
		return errors.ValidationError("Invalid limit parameter: must be a number")
	}

	if limitInt < 1 || limitInt > 1000 {
		return errors.ValidationError("Invalid limit parameter: must be between 1 and 1000")
	}

	return nil
}

// validateOffset validates the offset parameter
func (v *Validator) validateOffset(offset string) *errors.AppError {
	if offset == "" {
		return nil
	}

	offsetInt, err := strconv.Atoi(offset)
	if err != nil {
		return errors.ValidationError("Invalid offset parameter: must be a number")
	}

	if offsetInt < 0 {
		return errors.ValidationError("Invalid offset parameter: must be non-negative")
	}

	return nil
}
