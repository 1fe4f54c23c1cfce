package vscpu

import (
	"regexp"
	"strings"
)

// Comment stripping and label/block-ref matching, adapted from GVM's
// trailing-colon label grammar to VSCPU's leading `.`/`!` block grammar.
var (
	lineComment = regexp.MustCompile(`//.*`)
	blockHeader = regexp.MustCompile(`^(\.|!)[^:]*:`)
	blockRef    = regexp.MustCompile(`^(\.|!).*`)
)

// isBlockHeader reports whether line is a block header: a line beginning
// with '.' or '!' followed by a label name and a ':' (text after the colon
// is not checked).
func isBlockHeader(line string) bool {
	return blockHeader.MatchString(line)
}

// isBlockRefToken reports whether a single whitespace-delimited token is a
// block reference (begins with '.' or '!').
func isBlockRefToken(tok string) bool {
	return blockRef.MatchString(tok)
}

// blockName extracts the label name from a block header, stripping the
// trailing colon (and anything after it, mirroring the original cleaner's
// `re.search("^(\\.|!)[^:]*", line)`).
func blockName(line string) string {
	m := regexp.MustCompile(`^(\.|!)[^:]*`).FindString(line)
	return m
}

// lexLine strips comments and leading/trailing whitespace, then splits on
// whitespace. Returns nil for a blank line.
func lexLine(raw string) []string {
	line := lineComment.ReplaceAllString(raw, "")
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	return strings.Fields(line)
}
