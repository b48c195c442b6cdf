package doclink

import (
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/benjaminschreck/doclink/pkg/doclink/xml"
)

// Validation stages called from the session orchestrator.
const (
	StagePreProcessing    = "pre-processing"
	StageInitial          = "initial"
	StagePostCleanup      = "post-cleanup"
	StagePostHyperlinks   = "post-hyperlinks"
	StagePostReplacements = "post-replacements"
	StagePreSave          = "pre-save"
	StagePreSaveFinal     = "pre-save-final"
	StagePostSave         = "post-save"
)

// lockedFileRetries and lockedFileBackoffStep shape the retry loop for
// "file in use" errors: up to 3 retries with linear backoff (100ms, 200ms,
// 300ms).
const (
	lockedFileRetries     = 3
	lockedFileBackoffStep = 100 * time.Millisecond
)

// lockedFileMarkers are OS-error message substrings that identify a file
// locked by another process.
var lockedFileMarkers = []string{
	"being used by another process",
	"file in use",
	"resource temporarily unavailable",
	"sharing violation",
	"text file busy",
}

// IntegrityValidator performs structural checks over an open package and,
// after save, over the file on disk. Configured ignorable-error
// descriptions are filtered out before a stage is judged, matching the
// attribute-not-declared noise the consuming word processor accepts.
type IntegrityValidator struct {
	ignorable []string
	logger    *Logger
}

// NewIntegrityValidator creates a validator with the given ignorable-error
// substrings.
func NewIntegrityValidator(ignorable []string, logger *Logger) *IntegrityValidator {
	if logger == nil {
		logger = NopLogger()
	}
	return &IntegrityValidator{ignorable: ignorable, logger: logger}
}

// ValidateSession runs the in-session structural checks at the given
// stage. Remaining (non-ignorable) issues fail the stage.
func (v *IntegrityValidator) ValidateSession(pkg *Package, stage string) error {
	issues := v.structuralIssues(pkg)
	issues = v.filterIgnorable(issues, stage)
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Stage: stage, Issues: issues}
}

func (v *IntegrityValidator) structuralIssues(pkg *Package) []ValidationIssue {
	var issues []ValidationIssue

	if pkg.Document() == nil || pkg.Document().Body == nil {
		issues = append(issues, ValidationIssue{Field: "document", Message: "document has no body"})
		return issues
	}

	// No relationship id may be shared by two hyperlink elements. A
	// pre-existing dangling reference is not an error here: extraction
	// warns about it and the sweeper removes the empty-text ones, the way
	// the consuming word processor itself tolerates them.
	seenRel := make(map[string]int)
	for _, ref := range pkg.Hyperlinks() {
		seenRel[ref.RelID]++
	}
	for relID, refs := range seenRel {
		if refs > 1 {
			issues = append(issues, ValidationIssue{
				Field:   "relationship",
				Message: fmt.Sprintf("relationship %q referenced by %d hyperlink elements", relID, refs),
			})
		}
	}

	// Relationship entries must be unique by id and carry a target.
	seenID := make(map[string]bool)
	for _, rel := range pkg.Relationships() {
		if seenID[rel.ID] {
			issues = append(issues, ValidationIssue{
				Field:   "relationship",
				Message: fmt.Sprintf("duplicate relationship id %q", rel.ID),
			})
		}
		seenID[rel.ID] = true
		if rel.Type == xml.HyperlinkRelationshipType && strings.TrimSpace(rel.Target) == "" {
			issues = append(issues, ValidationIssue{
				Field:   "relationship",
				Message: fmt.Sprintf("hyperlink relationship %q has empty target", rel.ID),
			})
		}
	}

	// No text node may sit in a field-instruction or drawing run.
	for _, para := range pkg.Paragraphs() {
		for _, run := range paragraphRuns(para) {
			if run.Text != nil && (run.InstrText != nil || run.HasDrawing()) {
				issues = append(issues, ValidationIssue{
					Field:   "run",
					Message: "text node under field-code or drawing run",
				})
			}
		}
	}

	return issues
}

func (v *IntegrityValidator) filterIgnorable(issues []ValidationIssue, stage string) []ValidationIssue {
	var remaining []ValidationIssue
	for _, issue := range issues {
		if v.isIgnorable(issue.Message) {
			v.logger.Debug("ignoring validation issue at %s: %s", stage, issue.Message)
			continue
		}
		remaining = append(remaining, issue)
	}
	return remaining
}

func (v *IntegrityValidator) isIgnorable(message string) bool {
	lower := strings.ToLower(message)
	for _, pattern := range v.ignorable {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// ValidateOnDisk re-opens the saved file read-only and forces the main
// body to parse. "File in use" errors are retried up to 3 times with
// linear backoff before failing.
func (v *IntegrityValidator) ValidateOnDisk(path string) error {
	attempt := 0
	operation := func() error {
		attempt++
		pkg, err := OpenPackage(path, false)
		if err != nil {
			if isLockedFileError(err) {
				v.logger.Warn("file %s in use (attempt %d), retrying", path, attempt)
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		defer pkg.Close()

		// Touch the body text to force lazy parsing all the way down.
		for _, para := range pkg.Paragraphs() {
			_ = para.GetText()
		}
		return nil
	}

	policy := backoff.WithMaxRetries(newLinearBackOff(lockedFileBackoffStep), lockedFileRetries)
	if err := backoff.Retry(operation, policy); err != nil {
		if isLockedFileError(err) {
			return &LockedFileError{Path: path, Attempts: attempt, Cause: err}
		}
		return err
	}
	return nil
}

func isLockedFileError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range lockedFileMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// linearBackOff waits step, 2*step, 3*step, ... between attempts.
type linearBackOff struct {
	step    time.Duration
	attempt int
}

func newLinearBackOff(step time.Duration) *linearBackOff {
	return &linearBackOff{step: step}
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.step
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}
