package migrator

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var sectionMarker = regexp.MustCompile(`^\s*--\s*\+migrate\b(.*)$`)

// parseSQLSections splits SQL migration data into sections keyed by the name
// in their marker line. Sections without statements map to an empty string.
func parseSQLSections(data []byte) (map[string]string, error) {
	var (
		sections = map[string]string{}
		current  string
		body     strings.Builder
		inBody   bool
	)

	flush := func() {
		if inBody {
			sections[current] = cleanSQL(body.String())
		}
		body.Reset()
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if match := sectionMarker.FindStringSubmatch(line); match != nil {
			name := strings.TrimSpace(match[1])
			if name == "" || strings.ContainsAny(name, " \t") {
				return nil, fmt.Errorf("invalid section marker on line %d", lineNum)
			}
			if _, ok := sections[name]; ok || (inBody && name == current) {
				return nil, fmt.Errorf("duplicate section '%s' on line %d", name, lineNum)
			}
			flush()
			current, inBody = name, true
			continue
		}

		if !inBody {
			if cleanSQL(line) != "" {
				return nil, fmt.Errorf("statement outside of a section on line %d", lineNum)
			}
			continue
		}

		body.WriteString(line)
		body.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading SQL: %w", err)
	}
	flush()

	if len(sections) == 0 {
		return nil, errors.New("no migration sections found")
	}

	return sections, nil
}

// cleanSQL trims the SQL text, and returns an empty string if it only consists
// of whitespace and line comments.
func cleanSQL(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return strings.TrimSpace(s)
		}
	}

	return ""
}
