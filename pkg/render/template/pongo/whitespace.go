package pongo

import (
	"bytes"
	"regexp"
)

var statementPattern = regexp.MustCompile(`(?s)\{%.*?%\}|\{#.*?#\}`)

// blockWhitespace rewrites template source the way trim_blocks and
// lstrip_blocks behave: the newline after a statement or comment is dropped,
// and spaces or tabs before a statement that starts a line are removed.
// Expressions ({{ }}) are left alone. The rewrite runs once when a source is
// loaded, so compiled templates never change between renders.
func blockWhitespace(src []byte, trim, lstrip bool) []byte {
	if !trim && !lstrip {
		return src
	}

	var out bytes.Buffer
	out.Grow(len(src))
	last := 0
	for _, m := range statementPattern.FindAllIndex(src, -1) {
		start, end := m[0], m[1]
		chunk := src[last:start]
		if lstrip {
			chunk = stripIndent(src, last, chunk)
		}
		out.Write(chunk)
		out.Write(src[start:end])
		last = end
		if trim {
			switch {
			case bytes.HasPrefix(src[last:], []byte("\r\n")):
				last += 2
			case bytes.HasPrefix(src[last:], []byte("\n")):
				last++
			}
		}
	}
	out.Write(src[last:])
	return out.Bytes()
}

// stripIndent drops trailing spaces and tabs from chunk when they are the
// only thing between the start of a line and the next statement.
func stripIndent(src []byte, offset int, chunk []byte) []byte {
	lineStart := bytes.LastIndexByte(chunk, '\n') + 1
	if lineStart == 0 && offset > 0 && src[offset-1] != '\n' {
		return chunk
	}
	for _, c := range chunk[lineStart:] {
		if c != ' ' && c != '\t' {
			return chunk
		}
	}
	return chunk[:lineStart]
}
