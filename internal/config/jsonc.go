package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// normalizeJSONC blanks comments and trailing commas with spaces so decoder offsets still point at
// the original text.
func normalizeJSONC(content string) (string, error) {
	buf := []byte(content)
	if err := blankComments(buf); err != nil {
		return "", err
	}
	blankTrailingCommas(buf)
	return string(buf), nil
}

func blankComments(buf []byte) error {
	for i := 0; i < len(buf); i++ {
		switch buf[i] {
		case '"':
			i = closingQuote(buf, i)
		case '/':
			if i+1 >= len(buf) {
				continue
			}
			switch buf[i+1] {
			case '/':
				for i < len(buf) && buf[i] != '\n' && buf[i] != '\r' {
					buf[i] = ' '
					i++
				}
			case '*':
				end := bytes.Index(buf[i+2:], []byte("*/"))
				if end < 0 {
					return errors.New("unterminated block comment in JSONC")
				}
				stop := i + 2 + end + 2
				for ; i < stop; i++ {
					if !isJSONWhitespace(buf[i]) {
						buf[i] = ' '
					}
				}
				i--
			}
		}
	}
	return nil
}

func blankTrailingCommas(buf []byte) {
	for i := 0; i < len(buf); i++ {
		switch buf[i] {
		case '"':
			i = closingQuote(buf, i)
		case ',':
			j := i + 1
			for j < len(buf) && isJSONWhitespace(buf[j]) {
				j++
			}
			if j < len(buf) && (buf[j] == '}' || buf[j] == ']') {
				buf[i] = ' '
			}
		}
	}
}

// closingQuote returns the index of the quote ending the string opened at start.
func closingQuote(buf []byte, start int) int {
	for i := start + 1; i < len(buf); i++ {
		switch buf[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return len(buf)
}

func isJSONWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t'
}

// decodeStrict decodes exactly one JSON object into out, rejecting unknown fields.
func decodeStrict(normalized string, out any) error {
	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return withPosition(normalized, err)
	}

	var extra json.RawMessage
	switch err := decoder.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return errors.New("multiple JSON values are not allowed")
	default:
		return withPosition(normalized, err)
	}
}

func withPosition(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := lineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

func lineCol(content string, offset int64) (int, int) {
	limit := int(min(max(offset-1, 0), int64(len(content))))
	prefix := content[:limit]
	line := strings.Count(prefix, "\n") + 1
	col := limit - strings.LastIndexByte(prefix, '\n')
	return line, col
}
