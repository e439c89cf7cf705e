// Package sheet reads the practice sheet from its public CSV export.
//
// # Overview
//
// The sheet is the remote source of truth but it is an uncontrolled document:
// export URLs behave differently across sheet configurations, rows may be
// ragged, and quoting is whatever the export produced. Every step here
// degrades instead of failing where it can.
//
//	Fetcher.Fetch(documentID)     → raw CSV text  (candidate URLs in order)
//	ParseCSV(text)                → [][]string    (lenient tokenizer)
//	MapRows(rows)                 → []Question    (positional, header skipped)
//
// # Layout
//
// Columns are positional and fixed:
//
//	name, platform, link, topic, status, pinned
//
// Row 0 is a header and is skipped by position. Status defaults to
// "Pending"; pinned is true only for a case-insensitive "true".
//
// # Errors
//
// Fetch returns *FetchError (matching ErrFetch) only after every candidate
// failed. ParseQuestions returns ErrNoData for an export without data rows.
// Individually malformed rows are never errors; rows without a name,
// platform or link are dropped.
package sheet
