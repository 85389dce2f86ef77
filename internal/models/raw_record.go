package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RawRosterRecord is one untyped row of the external roster export: a flat
// bag of string keys to loosely-typed values. It carries no invariants and
// may be missing any field. It exists only at the ingestion boundary; the
// normalizer converts it to a MemberProfile and nothing downstream ever sees
// the raw shape again.
type RawRosterRecord map[string]any

// String returns the first non-empty value among the given keys, coerced to
// a trimmed string. Numbers are rendered without a trailing ".0" because
// spreadsheet exports routinely turn membership numbers into floats.
func (r RawRosterRecord) String(keys ...string) string {
	for _, key := range keys {
		value, ok := r[key]
		if !ok || value == nil {
			continue
		}
		s := coerceString(value)
		if s != "" {
			return s
		}
	}
	return ""
}

func coerceString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// RecordsFromPayload extracts the records array from a raw import payload.
// The payload's only structural requirement is that "records" exists and is
// a sequence; everything per-record is tolerated and left to the normalizer.
func RecordsFromPayload(payload map[string]any) ([]RawRosterRecord, bool) {
	raw, ok := payload["records"]
	if !ok {
		return nil, false
	}
	list, ok := raw.([]any)
	if !ok {
		// Already-typed callers (the import CLI) hand us the records
		// directly.
		if typed, isTyped := raw.([]RawRosterRecord); isTyped {
			return typed, true
		}
		if maps, isMaps := raw.([]map[string]any); isMaps {
			records := make([]RawRosterRecord, 0, len(maps))
			for _, m := range maps {
				records = append(records, RawRosterRecord(m))
			}
			return records, true
		}
		return nil, false
	}
	records := make([]RawRosterRecord, 0, len(list))
	for _, item := range list {
		if m, isMap := item.(map[string]any); isMap {
			records = append(records, RawRosterRecord(m))
		} else {
			// A non-object row still becomes a record; the normalizer
			// defaults every field and the row surfaces in the
			// verification report instead of aborting the batch.
			records = append(records, RawRosterRecord{})
		}
	}
	return records, true
}
