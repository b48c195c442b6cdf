// Package doclink is a batch processor for OOXML word-processing documents.
//
// For each document it enumerates hyperlinks, resolves them through a remote
// lookup service, rewrites URLs and display text, applies user-configured
// replacement rules, and runs conservative text-cleanup passes. All mutations
// for one document happen inside a single open/save session protected by a
// pre-image backup and structural validation; any failure restores the
// original file.
//
// Basic usage:
//
//	cfg := doclink.DefaultConfig()
//	logger := doclink.NewLogger(os.Stderr, doclink.LogInfo)
//	client := doclink.NewLookupClient(cfg.Api.BaseURL, logger)
//	proc := doclink.NewProcessor(cfg, logger, client)
//	result := proc.ProcessDocument(ctx, "report.docx")
//
// Batch processing over many documents with bounded concurrency:
//
//	driver := doclink.NewBatchDriver(proc, cfg.Processing.MaxConcurrentDocuments, sink)
//	results := driver.Run(ctx, paths)
//
// The document package model (paragraphs, runs, hyperlinks, relationships)
// lives in the xml subpackage.
package doclink
