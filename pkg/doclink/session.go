package doclink

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentStatus is the final disposition of one document session.
type DocumentStatus int

const (
	StatusProcessed DocumentStatus = iota
	StatusRecovered
	StatusFailed
)

func (s DocumentStatus) String() string {
	switch s {
	case StatusProcessed:
		return "Processed"
	case StatusRecovered:
		return "Recovered"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// DocumentResult is what a session returns to the caller. The orchestrator
// always produces one; it never panics or errors past the session boundary,
// and cancellation is reported through Err.
type DocumentResult struct {
	Path       string
	Status     DocumentStatus
	BackupPath string
	Metadata   DocumentMetadata
	Hyperlinks []HyperlinkRecord
	Changes    []ChangeEntry
	// Err is the error that failed or rolled back the session, nil on
	// clean success.
	Err error
	// Warning carries the rollback explanation for recovered documents.
	Warning string
}

// Processor orchestrates document sessions. One processor is shared across
// the whole batch; all per-document state lives in the session.
type Processor struct {
	cfg       *Config
	logger    *Logger
	client    *LookupClient
	cache     *LookupCache
	validator *IntegrityValidator
	backups   *BackupMaker
	clock     func() time.Time
}

// NewProcessor wires a processor from its collaborators. The lookup cache is
// always built here from cfg.Cache.Expiry; a nil logger is replaced with a
// no-op logger.
func NewProcessor(cfg *Config, logger *Logger, client *LookupClient) *Processor {
	if logger == nil {
		logger = NopLogger()
	}
	clock := time.Now
	return &Processor{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		cache:     NewLookupCache(cfg.Cache.Expiry, clock),
		validator: NewIntegrityValidator(cfg.Validation.IgnorableErrors, logger),
		backups:   NewBackupMaker(clock),
		clock:     clock,
	}
}

// SetClock replaces the processor's clock (for tests). Backup names, cache
// expiry, and change-log timestamps all follow it.
func (p *Processor) SetClock(clock func() time.Time) {
	p.clock = clock
	p.cache = NewLookupCache(p.cfg.Cache.Expiry, clock)
	p.backups = NewBackupMaker(clock)
}

// ProcessDocument runs the full session pipeline for one document.
func (p *Processor) ProcessDocument(ctx context.Context, path string) *DocumentResult {
	return p.ProcessDocumentWithProgress(ctx, path, NopSink{})
}

// ProcessDocumentWithProgress is ProcessDocument with per-stage progress
// events.
func (p *Processor) ProcessDocumentWithProgress(ctx context.Context, path string, sink ProgressSink) *DocumentResult {
	if sink == nil {
		sink = NopSink{}
	}
	logger := p.logger.WithField("document", path)
	changeLog := NewChangeLog(p.clock)
	result := &DocumentResult{Path: path}

	fail := func(err error) *DocumentResult {
		result.Status = StatusFailed
		result.Err = err
		result.Changes = changeLog.Entries()
		logger.Error("session failed: %v", err)
		return result
	}

	// Step 1: backup.
	sink.Stage(path, "backup")
	backupPath, err := p.backups.Create(path)
	if err != nil {
		return fail(err)
	}
	result.BackupPath = backupPath

	// Step 2: pre-check the file on disk.
	sink.Stage(path, StagePreProcessing)
	if err := p.validator.ValidateOnDisk(path); err != nil {
		return fail(err)
	}

	// Step 3: open writable. Open failures are input errors: nothing was
	// mutated, so no restore is needed.
	pkg, err := OpenPackage(path, true)
	if err != nil {
		return fail(err)
	}
	defer pkg.Close()

	// Everything from here on mutates the tree; any failure rolls the
	// file back from the backup.
	err = p.runSession(ctx, pkg, path, sink, logger, changeLog, result)
	result.Changes = changeLog.Entries()
	if err == nil {
		result.Status = StatusProcessed
		return result
	}

	logger.Warn("session error, restoring backup: %v", err)
	if restoreErr := p.backups.Restore(backupPath, path); restoreErr != nil {
		result.Status = StatusFailed
		result.Err = &RollbackError{Trigger: err, Restore: restoreErr}
		return result
	}
	if validateErr := p.validator.ValidateOnDisk(path); validateErr != nil {
		result.Status = StatusFailed
		result.Err = &RollbackError{Trigger: err, Restore: validateErr}
		return result
	}

	result.Status = StatusRecovered
	result.Err = err
	result.Warning = "document restored from backup: " + err.Error()
	return result
}

// runSession executes steps 4-14 of the pipeline against an open package.
// Any returned error triggers rollback in the caller.
func (p *Processor) runSession(ctx context.Context, pkg *Package, path string, sink ProgressSink, logger *Logger, changeLog *ChangeLog, result *DocumentResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Step 4: snapshot the relationship mapping for rollback diagnostics.
	snapshot := make(map[string]string)
	for _, rel := range pkg.Relationships() {
		snapshot[rel.ID] = rel.Target
	}
	logger.Debug("session opened with %d relationships", len(snapshot))

	sink.Stage(path, StageInitial)
	if err := p.validator.ValidateSession(pkg, StageInitial); err != nil {
		return err
	}

	// Step 5: extract metadata and hyperlink records.
	sink.Stage(path, "extract")
	result.Metadata = pkg.Metadata()
	records, recordsByRel := p.extractHyperlinks(pkg, changeLog, logger)

	if err := ctx.Err(); err != nil {
		return err
	}

	// Step 6: sweep invisible hyperlinks.
	sink.Stage(path, StagePostCleanup)
	swept := SweepInvisibleHyperlinks(pkg, changeLog, logger)
	if swept > 0 {
		logger.Info("removed %d invisible hyperlinks", swept)
	}
	if err := p.validator.ValidateSession(pkg, StagePostCleanup); err != nil {
		return err
	}

	// Step 7: resolve lookup ids.
	sink.Stage(path, "resolve")
	dict, err := p.resolveRecords(ctx, records, changeLog, logger)
	if err != nil {
		return err
	}

	// Step 8: rewrite hyperlinks. Individual hyperlink failures are
	// isolated; only structural damage fails the session.
	sink.Stage(path, StagePostHyperlinks)
	mutator := NewHyperlinkMutator(pkg, p.cfg, changeLog, logger)
	for _, ref := range pkg.Hyperlinks() {
		if ref.BrokenRel {
			continue
		}
		record, ok := recordsByRel[ref.RelID]
		if !ok || !record.RequiresUpdate {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := mutator.Apply(record, ref, dict); err != nil {
			logger.Warn("hyperlink %s failed: %v", record.ID, err)
			changeLog.Record(ChangeError, record.ID, "", "", err.Error())
		}
	}
	if err := p.validator.ValidateSession(pkg, StagePostHyperlinks); err != nil {
		return err
	}

	// Step 9: user text replacements.
	sink.Stage(path, StagePostReplacements)
	replacer := NewTextReplacer(p.cfg.EnabledRules(), changeLog, logger)
	if p.cfg.Processing.TrackChanges {
		replacer.EnableTrackChanges(p.cfg.Processing.RevisionAuthor, p.clock().UTC().Format(time.RFC3339))
	}
	replacer.Apply(pkg)
	if err := p.validator.ValidateSession(pkg, StagePostReplacements); err != nil {
		return err
	}

	// Step 10: text optimization.
	if p.cfg.Processing.OptimizeText {
		sink.Stage(path, "optimize")
		optimizer := NewTextOptimizer(p.cfg.Text, changeLog, logger)
		optimizer.Apply(pkg)
		if err := p.validator.ValidateSession(pkg, StagePreSave); err != nil {
			return err
		}
	}

	// Step 11: mark recomputable fields dirty so the consuming word
	// processor re-renders them.
	marked := pkg.MarkFieldsDirty(isRecomputableField)
	if marked > 0 {
		changeLog.Record(ChangeInformation, "", "", "", "marked fields dirty for recomputation")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// Steps 12-13: final validation, save, close.
	sink.Stage(path, StagePreSaveFinal)
	if err := p.validator.ValidateSession(pkg, StagePreSaveFinal); err != nil {
		return err
	}
	if err := pkg.Save(); err != nil {
		return err
	}
	if err := pkg.Close(); err != nil {
		return err
	}

	// Step 14: post-save validation with retry.
	sink.Stage(path, StagePostSave)
	if err := p.validator.ValidateOnDisk(path); err != nil {
		return err
	}

	result.Hyperlinks = dereferenceRecords(records)
	return nil
}

// extractHyperlinks builds one record per resolvable hyperlink element.
// Elements with a broken relationship are reported and left to the
// sweeper.
func (p *Processor) extractHyperlinks(pkg *Package, changeLog *ChangeLog, logger *Logger) ([]*HyperlinkRecord, map[string]*HyperlinkRecord) {
	var records []*HyperlinkRecord
	byRel := make(map[string]*HyperlinkRecord)

	for _, ref := range pkg.Hyperlinks() {
		if ref.BrokenRel {
			logger.Warn("skipping hyperlink with missing relationship %q", ref.RelID)
			changeLog.Record(ChangeInformation, ref.RelID, "", "", "hyperlink references missing relationship")
			continue
		}

		address, subAddress := SplitHyperlinkTarget(ref.Target)
		lookupID := ExtractLookupID(address, subAddress)
		record := &HyperlinkRecord{
			ID:             uuid.NewString(),
			OriginalURL:    ref.Target,
			DisplayText:    ref.DisplayText(),
			LookupID:       lookupID,
			RequiresUpdate: lookupID != "",
		}
		records = append(records, record)
		byRel[ref.RelID] = record
	}
	return records, byRel
}

// resolveRecords calls the lookup client (through the shared cache) with
// the document's unique canonical ids.
func (p *Processor) resolveRecords(ctx context.Context, records []*HyperlinkRecord, changeLog *ChangeLog, logger *Logger) (*RecordDictionary, error) {
	var ids []string
	for _, record := range records {
		if record.RequiresUpdate {
			ids = append(ids, record.LookupID)
		}
	}
	if len(ids) == 0 {
		return NewRecordDictionary(), nil
	}

	key := CacheKey(ids)
	result, dict, err := p.cache.GetOrSet(ctx, key, func(ctx context.Context) (*ApiProcessingResult, *RecordDictionary, error) {
		return p.client.Resolve(ctx, ids)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("resolved %d ids: %d found, %d expired, %d missing",
		len(ids), len(result.Found), len(result.Expired), len(result.Missing))
	if result.Error != "" {
		changeLog.Record(ChangeInformation, "", "", "", "resolver degraded: "+result.Error)
	}
	return dict, nil
}

// isRecomputableField matches the field instructions whose cached results
// go stale when hyperlinks or text change.
func isRecomputableField(instruction string) bool {
	fields := strings.Fields(strings.ToUpper(instruction))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "TOC", "PAGE", "PAGEREF", "REF", "HYPERLINK":
		return true
	}
	return false
}

func dereferenceRecords(records []*HyperlinkRecord) []HyperlinkRecord {
	out := make([]HyperlinkRecord, 0, len(records))
	for _, record := range records {
		out = append(out, *record)
	}
	return out
}
