// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"

	"github.com/pdiddy/docman/internal/citation"
	"github.com/pdiddy/docman/internal/report"
	"github.com/pdiddy/docman/internal/scan"
)

// Exit codes, one per failure kind.
const (
	ExitSuccess         = 0 // Success
	ExitError           = 1 // General error (I/O, configuration)
	ExitUsage           = 2 // Bad command-line shape
	ExitDatabaseError   = 3 // Malformed citation database or duplicate id
	ExitDocumentError   = 4 // Unbalanced brackets or no citations in the document
	ExitUnknownCitation = 5 // Document cites an id missing from the database
	ExitLookupError     = 6 // Remote lookup failed
	ExitFormatError     = 7 // Citation lacks a field needed to render it
)

// errUsage marks command-line shape errors.
var errUsage = errors.New("usage error")

// exitCode maps err to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errUsage):
		return ExitUsage
	case errors.Is(err, citation.ErrLoad):
		return ExitDatabaseError
	case errors.Is(err, scan.ErrUnbalanced), errors.Is(err, scan.ErrNoCitations):
		return ExitDocumentError
	case errors.Is(err, report.ErrUnknownCitation):
		return ExitUnknownCitation
	case errors.Is(err, citation.ErrRemoteLookup):
		return ExitLookupError
	case errors.Is(err, citation.ErrFormat):
		return ExitFormatError
	}
	return ExitError
}
