// Package dealers reads dealer records, derives their postal codes and
// produces the coordinate-annotated output collection.
//
// Records are handled as raw JSON: only the postal code attribute is ever
// inspected, everything else is carried through untouched, including key order.
package dealers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/UnknownOlympus/dealer-geocoder/internal/models"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// DefaultPostalCodeField is the attribute that carries a dealer's postal code.
const DefaultPostalCodeField = "postalCode"

// CoordinatesField is the attribute attached to every output record.
const CoordinatesField = "coordinates"

// Common errors for dealer collections.
var (
	ErrInvalidJSON = errors.New("dealer collection is not valid JSON")
	ErrNotArray    = errors.New("dealer collection must be a JSON array")
	ErrNotObject   = errors.New("dealer record must be a JSON object")
)

// Record is a single dealer exactly as it appeared in the input.
type Record struct {
	raw []byte
}

// NewRecord wraps raw JSON as a Record. The caller must not modify raw afterwards.
func NewRecord(raw []byte) Record {
	return Record{raw: raw}
}

// Raw returns the record JSON.
func (r Record) Raw() []byte {
	return r.raw
}

// PostalCode returns the record's postal code. Absent, null, boolean, empty
// and zero values report false. Numeric codes are returned in their literal form.
// When the attribute is repeated the last occurrence wins. Invalid UTF-8 bytes
// are replaced with U+FFFD, the same way the cache file encodes them.
func (r Record) PostalCode(field string) (string, bool) {
	var value gjson.Result
	gjson.ParseBytes(r.raw).ForEach(func(key, v gjson.Result) bool {
		if key.String() == field {
			value = v
		}
		return true
	})

	switch value.Type {
	case gjson.String:
		return toValidUTF8(value.Str), value.Str != ""
	case gjson.Number:
		if value.Num == 0 {
			return "", false
		}
		return value.Raw, true
	default:
		return "", false
	}
}

// toValidUTF8 replaces every invalid byte with U+FFFD, matching encoding/json.
func toValidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}

	return b.String()
}

// Parse splits a JSON array of dealer objects into records.
func Parse(data []byte) ([]Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}

	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, ErrNotArray
	}

	records := make([]Record, 0)
	var parseErr error
	root.ForEach(func(_, value gjson.Result) bool {
		if !value.IsObject() {
			parseErr = fmt.Errorf("%w: element %d is %s", ErrNotObject, len(records), value.Type)
			return false
		}
		records = append(records, Record{raw: []byte(value.Raw)})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return records, nil
}

// PostalCodes returns the distinct postal codes of records in order of first appearance.
func PostalCodes(records []Record, field string) []string {
	seen := make(map[string]bool)
	codes := []string{}

	for _, record := range records {
		code, ok := record.PostalCode(field)
		if !ok || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}

	return codes
}

// Lookup reports the resolved coordinates of a postal code.
type Lookup func(postalCode string) (models.Coordinates, bool)

// Annotate derives the output collection: every record, in input order, with a
// coordinates attribute set to its resolved pair or null. Input records are not modified.
func Annotate(records []Record, field string, lookup Lookup) ([]Record, error) {
	annotated := make([]Record, 0, len(records))

	for idx, record := range records {
		value := []byte("null")
		if code, ok := record.PostalCode(field); ok {
			if coords, found := lookup(code); found {
				encoded, err := json.Marshal(coords)
				if err != nil {
					return nil, fmt.Errorf("failed to encode coordinates for record %d: %w", idx, err)
				}
				value = encoded
			}
		}

		raw, err := sjson.SetRawBytes(record.raw, CoordinatesField, value)
		if err != nil {
			return nil, fmt.Errorf("failed to annotate record %d: %w", idx, err)
		}
		annotated = append(annotated, Record{raw: raw})
	}

	return annotated, nil
}

// Encode renders records as an indented JSON array.
func Encode(records []Record) []byte {
	buf := []byte{'['}
	for idx, record := range records {
		if idx > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, record.raw...)
	}
	buf = append(buf, ']')

	return pretty.Pretty(buf)
}
