package httpsource

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseContentRange parses a Content-Range header value.
// Formats: "bytes start-end/total", "bytes start-end/*" and "bytes */total".
// Total is -1 when unknown; start and end are -1 for the unsatisfied form.
func ParseContentRange(header string) (start, end, total int64, err error) {
	value := strings.TrimSpace(header)
	if !strings.HasPrefix(value, "bytes ") {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %q", header)
	}
	value = strings.TrimSpace(strings.TrimPrefix(value, "bytes "))

	rangePart, totalPart, ok := strings.Cut(value, "/")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %q", header)
	}

	if totalPart == "*" {
		total = -1
	} else {
		total, err = strconv.ParseInt(totalPart, 10, 64)
		if err != nil || total < 0 {
			return 0, 0, 0, fmt.Errorf("invalid total bytes: %q", totalPart)
		}
	}

	if rangePart == "*" {
		if total < 0 {
			return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %q", header)
		}
		return -1, -1, total, nil
	}

	first, last, ok := strings.Cut(rangePart, "-")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %q", header)
	}

	start, err = strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, 0, fmt.Errorf("invalid start byte: %q", first)
	}
	end, err = strconv.ParseInt(last, 10, 64)
	if err != nil || end < start {
		return 0, 0, 0, fmt.Errorf("invalid end byte: %q", last)
	}
	if total >= 0 && end >= total {
		return 0, 0, 0, fmt.Errorf("end byte %d outside total %d", end, total)
	}

	return start, end, total, nil
}
