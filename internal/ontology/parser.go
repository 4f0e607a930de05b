package ontology

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const (
	stanzaTerm = "Term"

	maxLineBytes = 4 * 1024 * 1024
)

// termRecord is one [Term] stanza before linking.
type termRecord struct {
	id       string
	name     string
	altIDs   []string
	parents  []string
	obsolete bool
	line     int
}

type header struct {
	formatVersion string
	dataVersion   string
}

// parseOBO splits an OBO document into its header and [Term] records.
// Stanzas of other types and unknown tags are skipped.
func parseOBO(r io.Reader) (header, []termRecord, error) {
	var (
		hdr     header
		records []termRecord
		cur     *termRecord
		stanza  string
		inHead  = true
		lineNo  int
	)

	flush := func() {
		if cur != nil {
			records = append(records, *cur)
			cur = nil
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			flush()
			inHead = false
			stanza = strings.TrimSpace(line[1 : len(line)-1])
			if stanza == stanzaTerm {
				cur = &termRecord{line: lineNo}
			}
			continue
		}

		tag, value, ok := splitTag(line)
		if !ok {
			continue
		}

		if inHead {
			switch tag {
			case "format-version":
				hdr.formatVersion = value
			case "data-version":
				hdr.dataVersion = value
			}
			continue
		}
		if cur == nil {
			continue
		}

		switch tag {
		case "id":
			cur.id = firstToken(value)
		case "name":
			cur.name = stripQualifiers(value)
		case "alt_id":
			cur.altIDs = append(cur.altIDs, firstToken(value))
		case "is_a":
			cur.parents = append(cur.parents, firstToken(value))
		case "is_obsolete":
			cur.obsolete = strings.EqualFold(value, "true")
		}
	}
	if err := sc.Err(); err != nil {
		return hdr, nil, fmt.Errorf("read obo: %w", err)
	}
	flush()

	return hdr, records, nil
}

// splitTag splits "tag: value". Lines without a tag separator are not
// tag-value pairs and are ignored by the caller.
func splitTag(line string) (string, string, bool) {
	i := strings.Index(line, ":")
	if i <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

// stripQualifiers drops a trailing {...} modifier block from a name.
func stripQualifiers(v string) string {
	if i := strings.Index(v, "{"); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

// firstToken returns the identifier part of a reference value such as
// "HP:0000118 {source=x} ! Phenotypic abnormality".
func firstToken(v string) string {
	if i := strings.Index(v, "!"); i >= 0 {
		v = v[:i]
	}
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
