// Package snapshot persists the last seen open interest and price per strike
// and upgrades older document shapes when they are read.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical field names of a persisted entry.
const (
	fieldCallOI  = "ce"
	fieldPutOI   = "pe"
	fieldCallLTP = "ce_ltp"
	fieldPutLTP  = "pe_ltp"
)

// legacy names accepted on read, in lookup order after the canonical name.
var fieldAliases = map[string][]string{
	fieldCallOI:  {"ce_oi", "call_oi"},
	fieldPutOI:   {"pe_oi", "put_oi"},
	fieldCallLTP: {"ce_ltp_num", "call_ltp"},
	fieldPutLTP:  {"pe_ltp_num", "put_ltp"},
}

var canonicalFields = []string{fieldCallOI, fieldPutOI, fieldCallLTP, fieldPutLTP}

var (
	maxCount = decimal.NewFromInt(math.MaxInt64)
	minCount = decimal.NewFromInt(math.MinInt64)
)

// Entry is the last recorded state of one strike.
type Entry struct {
	CallOI  int64
	PutOI   int64
	CallLTP decimal.Decimal
	PutLTP  decimal.Decimal
}

// Snapshot maps a strike identifier to its entry.
type Snapshot map[string]Entry

type wireEntry struct {
	CallOI  json.Number `json:"ce"`
	PutOI   json.Number `json:"pe"`
	CallLTP json.Number `json:"ce_ltp"`
	PutLTP  json.Number `json:"pe_ltp"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEntry{
		CallOI:  json.Number(decimal.NewFromInt(e.CallOI).String()),
		PutOI:   json.Number(decimal.NewFromInt(e.PutOI).String()),
		CallLTP: json.Number(e.CallLTP.String()),
		PutLTP:  json.Number(e.PutLTP.String()),
	})
}

// Equal compares entries by value.
func (e Entry) Equal(o Entry) bool {
	return e.CallOI == o.CallOI && e.PutOI == o.PutOI &&
		e.CallLTP.Equal(o.CallLTP) && e.PutLTP.Equal(o.PutLTP)
}

// Encode renders the snapshot in the canonical document shape.
func (s Snapshot) Encode() ([]byte, error) {
	if s == nil {
		s = Snapshot{}
	}
	return json.Marshal(map[string]Entry(s))
}

// Decode parses a persisted document. Every entry is normalized and
// migrated reports whether any entry differed from the canonical shape.
// An error means the document is not a JSON object.
func Decode(data []byte) (snap Snapshot, migrated bool, err error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("decode snapshot: %w", err)
	}

	snap = make(Snapshot, len(raw))
	for strike, msg := range raw {
		entry, changed := NormalizeEntry(msg)
		snap[strike] = entry
		migrated = migrated || changed
	}
	return snap, migrated, nil
}

// NormalizeEntry converts one persisted entry to an Entry. Legacy field names
// are read when the canonical one is absent, missing or null fields become
// zero, and numeric strings are accepted. Anything that is not an object, or
// holds a non-numeric field, becomes a zero entry. changed is false only when
// the input already has exactly the four canonical numeric fields.
func NormalizeEntry(msg json.RawMessage) (Entry, bool) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return Entry{}, true
	}

	changed := len(obj) != len(canonicalFields)
	values := make(map[string]decimal.Decimal, len(canonicalFields))
	for _, name := range canonicalFields {
		v, key, ok := lookup(obj, name)
		if key != name {
			changed = true
		}
		if !ok {
			continue
		}
		d, exact, valid := toDecimal(v)
		if !valid {
			return Entry{}, true
		}
		if !exact {
			changed = true
		}
		values[name] = d
	}

	callOI, callExact := toCount(values[fieldCallOI])
	putOI, putExact := toCount(values[fieldPutOI])
	if !callExact || !putExact {
		changed = true
	}

	return Entry{
		CallOI:  callOI,
		PutOI:   putOI,
		CallLTP: values[fieldCallLTP],
		PutLTP:  values[fieldPutLTP],
	}, changed
}

// lookup returns the value stored under name or its first present alias and
// the key it was found under. ok is false when no key is present.
func lookup(obj map[string]interface{}, name string) (interface{}, string, bool) {
	if v, ok := obj[name]; ok {
		return v, name, true
	}
	for _, alias := range fieldAliases[name] {
		if v, ok := obj[alias]; ok {
			return v, alias, true
		}
	}
	return nil, "", false
}

// toDecimal reads a JSON scalar. exact is false when the value was not
// already a JSON number.
func toDecimal(v interface{}) (d decimal.Decimal, exact bool, valid bool) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, false, true
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.Zero, false, false
		}
		return d, true, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Zero, false, false
		}
		return d, false, true
	default:
		return decimal.Zero, false, false
	}
}

// toCount truncates d to an int64. exact reports whether d was already a
// whole number in range; out of range values become 0.
func toCount(d decimal.Decimal) (int64, bool) {
	exact := d.IsInteger()
	d = d.Truncate(0)
	if d.GreaterThan(maxCount) || d.LessThan(minCount) {
		return 0, false
	}
	return d.IntPart(), exact
}
