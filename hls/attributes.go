package hls

import "strings"

// ParseAttributes parses an HLS tag's attribute-list value (the part
// after the tag's colon) into a name -> value map, stripping one layer of
// surrounding quotes from quoted values. The scanner walks to each '=',
// then scans forward tracking whether it is inside a quoted value so that
// commas inside quotes don't split early.
func ParseAttributes(tagValue string) map[string]string {
	attribs := make(map[string]string)
	offset := 0

	for offset < len(tagValue) {
		eq := strings.IndexByte(tagValue[offset:], '=')
		if eq == -1 {
			break
		}
		eq += offset

		for offset < len(tagValue) && tagValue[offset] == ' ' {
			offset++
		}

		end := eq
		inValue := 0
		for {
			end++
			if end >= len(tagValue) {
				break
			}
			if inValue&1 != 0 {
				// inside a quoted value, keep scanning regardless of comma
			} else if tagValue[end] == ',' {
				break
			}
			if tagValue[end] == '"' {
				inValue++
			}
		}

		name := strings.TrimRight(tagValue[offset:eq], " \t")

		var valStart, valEnd int
		if inValue != 0 {
			valStart = eq + 2
			valEnd = end - 1
		} else {
			valStart = eq + 1
			valEnd = end
		}
		if valStart > len(tagValue) {
			valStart = len(tagValue)
		}
		if valEnd > len(tagValue) {
			valEnd = len(tagValue)
		}
		if valEnd < valStart {
			valEnd = valStart
		}
		value := strings.TrimSpace(tagValue[valStart:valEnd])

		attribs[name] = value
		offset = end + 1
	}
	return attribs
}

// ParseResolution parses a "WIDTHxHEIGHT" attribute value (the
// RESOLUTION attribute on EXT-X-STREAM-INF).
func ParseResolution(val string) (width, height int) {
	idx := strings.IndexByte(val, 'x')
	if idx == -1 {
		return 0, 0
	}
	width = atoiSafe(val[:idx])
	height = atoiSafe(val[idx+1:])
	return width, height
}

// ParseRangeValues parses a BYTERANGE attribute value of the form
// "length[@offset]" into (length, offset). When the offset is omitted
// the caller chains it off the previous segment's end.
func ParseRangeValues(val string) (length uint64, offset uint64, hasOffset bool) {
	at := strings.IndexByte(val, '@')
	if at == -1 {
		return uint64(atoiSafe(val)), 0, false
	}
	length = uint64(atoiSafe(val[:at]))
	offset = uint64(atoiSafe(val[at+1:]))
	return length, offset, true
}

func atoiSafe(s string) int {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		return -n
	}
	return n
}

func atoui64Safe(s string) uint64 {
	s = strings.TrimSpace(s)
	var n uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + uint64(c-'0')
	}
	return n
}
