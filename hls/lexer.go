package hls

import (
	"bufio"
	"io"
	"strings"
)

// Line is one lexed line of an M3U8 document: either a tag (name + raw
// value after the colon) or a plain URI line.
type Line struct {
	Raw      string
	Number   int
	IsTag    bool
	IsURI    bool
	TagName  string
	TagValue string
}

// Lex splits raw M3U8 content into a sequence of Lines, requiring the
// first non-blank line to be #EXTM3U.
func Lex(r io.Reader) ([]Line, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []Line
	lineNo := 0
	sawHeader := false

	for scanner.Scan() {
		lineNo++
		raw := strings.TrimRight(scanner.Text(), "\r\n")
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}

		if !sawHeader {
			if trimmed != "#EXTM3U" {
				return nil, NewStreamError("", ErrCodeInvalidFormat,
					"manifest does not start with #EXTM3U", nil)
			}
			sawHeader = true
			continue
		}

		l := parseTagNameValue(trimmed, lineNo)
		lines = append(lines, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, NewStreamError("", ErrCodeMalformedManifest, "failed reading manifest", err)
	}
	if !sawHeader {
		return nil, NewStreamError("", ErrCodeInvalidFormat,
			"manifest does not start with #EXTM3U", nil)
	}
	return lines, nil
}

// parseTagNameValue splits one trimmed, non-empty line into a tag
// (name before the first ':', value after it) or a bare URI line when it
// doesn't start with '#'.
func parseTagNameValue(line string, lineNo int) Line {
	if !strings.HasPrefix(line, "#") {
		return Line{Raw: line, Number: lineNo, IsURI: true}
	}

	colon := strings.IndexByte(line, ':')
	var name, value string
	if colon == -1 {
		name = line
	} else {
		name = line[:colon]
		value = line[colon+1:]
	}
	return Line{Raw: line, Number: lineNo, IsTag: true, TagName: name, TagValue: value}
}
