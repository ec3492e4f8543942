package internal

import (
	"fmt"
	"strings"
)

// ErrorCategory represents the type of failure while reading a file's
// hashes or metadata.
type ErrorCategory string

const (
	ErrorCategoryIO       ErrorCategory = "io_error"       // filesystem, permissions, disk
	ErrorCategoryDecode   ErrorCategory = "decode_error"   // unreadable image data
	ErrorCategoryMetadata ErrorCategory = "metadata_error" // EXIF extraction failed
	ErrorCategoryUnknown  ErrorCategory = "unknown_error"
)

// ErrorSeverity indicates how critical the failure is for the batch.
type ErrorSeverity string

const (
	ErrorSeverityCritical ErrorSeverity = "critical" // systemic, abort the run
	ErrorSeverityError    ErrorSeverity = "error"    // file excluded from grouping
	ErrorSeverityWarning  ErrorSeverity = "warning"  // degraded data, file still usable
)

// ProcessError is a categorized per-file failure. Files carrying one are
// flagged and skipped by the grouping passes while the rest of the batch
// completes normally.
type ProcessError struct {
	FilePath    string
	Category    ErrorCategory
	Severity    ErrorSeverity
	OriginalErr error
	Suggestion  string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("[%s/%s] %s: %v", e.Severity, e.Category, e.FilePath, e.OriginalErr)
}

func (e *ProcessError) Unwrap() error {
	return e.OriginalErr
}

// CategorizeError analyzes a per-file failure and attaches a category,
// a severity and a user-facing suggestion.
func CategorizeError(filePath string, err error) *ProcessError {
	if err == nil {
		return nil
	}

	procErr := &ProcessError{FilePath: filePath, OriginalErr: err}
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "no space left"),
		strings.Contains(errStr, "permission denied"),
		strings.Contains(errStr, "too many open files"):
		procErr.Category = ErrorCategoryIO
		procErr.Severity = ErrorSeverityCritical
		procErr.Suggestion = "Check disk space and permissions before retrying the import"

	case strings.Contains(errStr, "input/output error"),
		strings.Contains(errStr, "no such file"):
		procErr.Category = ErrorCategoryIO
		procErr.Severity = ErrorSeverityError
		procErr.Suggestion = "Verify the source media is connected and healthy"

	case strings.Contains(errStr, "cannot decode"),
		strings.Contains(errStr, "unknown format"),
		strings.Contains(errStr, "unsupported"):
		procErr.Category = ErrorCategoryDecode
		procErr.Severity = ErrorSeverityWarning
		procErr.Suggestion = "File will be grouped by content hash only"

	case strings.Contains(errStr, "exif"), strings.Contains(errStr, "metadata"):
		procErr.Category = ErrorCategoryMetadata
		procErr.Severity = ErrorSeverityWarning
		procErr.Suggestion = "Retry with --exiftool for wider format support"

	default:
		procErr.Category = ErrorCategoryUnknown
		procErr.Severity = ErrorSeverityError
		procErr.Suggestion = "Unexpected error - check the log for details"
	}

	return procErr
}

// ErrorStats aggregates per-file failures across an import run.
type ErrorStats struct {
	Total      int
	Critical   int
	Errors     int
	Warnings   int
	ByCategory map[ErrorCategory]int
	LastErrors []*ProcessError // most recent few, for the report
}

func NewErrorStats() *ErrorStats {
	return &ErrorStats{
		ByCategory: make(map[ErrorCategory]int),
	}
}

func (s *ErrorStats) Add(err *ProcessError) {
	s.Total++
	s.ByCategory[err.Category]++

	switch err.Severity {
	case ErrorSeverityCritical:
		s.Critical++
	case ErrorSeverityError:
		s.Errors++
	case ErrorSeverityWarning:
		s.Warnings++
	}

	if len(s.LastErrors) >= 5 {
		s.LastErrors = s.LastErrors[1:]
	}
	s.LastErrors = append(s.LastErrors, err)
}

// ShouldAbort reports whether the run hit a systemic failure that makes
// continuing pointless, with the reason.
func (s *ErrorStats) ShouldAbort() (bool, string) {
	if s.Critical > 0 {
		return true, "critical system error detected - aborting to prevent data loss"
	}
	return false, ""
}

// Report renders a human-readable failure summary for the end of a run.
func (s *ErrorStats) Report() string {
	if s.Total == 0 {
		return ""
	}

	var report strings.Builder
	fmt.Fprintf(&report, "%d files had problems during import:\n", s.Total)
	for cat, count := range s.ByCategory {
		fmt.Fprintf(&report, "  %s: %d\n", cat, count)
	}
	report.WriteString("Recent errors:\n")
	for _, err := range s.LastErrors {
		fmt.Fprintf(&report, "  %s\n", err.Error())
		if err.Suggestion != "" {
			fmt.Fprintf(&report, "    suggestion: %s\n", err.Suggestion)
		}
	}
	return report.String()
}
