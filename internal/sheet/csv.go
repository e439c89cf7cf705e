package sheet

import "strings"

// ParseCSV splits exported sheet text into records of trimmed fields.
//
// The tokenizer is lenient by construction since the input is an uncontrolled
// export: it never returns an error. Records are separated by line breaks
// outside quotes, blank records are skipped, and every emitted record has at
// least one field. A doubled quote inside a quoted field is a literal quote.
//
// If the text ends inside an open quote, the record that opened it and
// everything after are re-read one line at a time, so a stray quote damages
// only its own line instead of swallowing the rest of the sheet.
func ParseCSV(text string) [][]string {
	rows, openAt, balanced := scanRecords(text, false)
	if balanced {
		return rows
	}

	for _, line := range strings.Split(text[openAt:], "\n") {
		lineRows, _, _ := scanRecords(strings.TrimSuffix(line, "\r"), true)
		rows = append(rows, lineRows...)
	}
	return rows
}

// scanRecords tokenizes text. When the scan ends inside quotes and closeOpen
// is false it returns the records completed before the unterminated one, the
// byte offset where that record began, and balanced=false. With closeOpen the
// unterminated record is emitted as read.
func scanRecords(text string, closeOpen bool) (rows [][]string, openAt int, balanced bool) {
	var (
		row      []string
		field    strings.Builder
		inQuotes bool
		blank    = true
		start    int
	)

	endField := func() {
		row = append(row, strings.TrimSpace(field.String()))
		field.Reset()
	}
	endRecord := func(next int) {
		endField()
		if !blank {
			rows = append(rows, row)
		}
		row = nil
		blank = true
		start = next
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '"':
			blank = false
			if inQuotes && i+1 < len(text) && text[i+1] == '"' {
				field.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			blank = false
			endField()
		case (c == '\n' || c == '\r') && !inQuotes:
			if c == '\r' && i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			endRecord(i + 1)
		default:
			if !isSpace(c) {
				blank = false
			}
			field.WriteByte(c)
		}
	}

	if inQuotes && !closeOpen {
		return rows, start, false
	}
	endRecord(len(text))
	return rows, len(text), true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\v' || c == '\f'
}

// FormatCSV is the inverse of ParseCSV for fields without surrounding
// whitespace. Fields containing a comma, quote or line break are quoted with
// inner quotes doubled; records are joined with "\n".
func FormatCSV(rows [][]string) string {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		if len(row) == 1 && row[0] == "" {
			// A lone empty field would otherwise read back as a blank line.
			b.WriteString(`""`)
			continue
		}
		for j, cell := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quoteField(cell))
		}
	}
	return b.String()
}

func quoteField(cell string) string {
	if !strings.ContainsAny(cell, ",\"\n\r") {
		return cell
	}
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}
