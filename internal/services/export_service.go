package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aeroclub/membership-backend/internal/models"
)

// ExportService renders the member collection in the two read-only export
// formats: direct JSON serialization, and a delimited tabular form with the
// header row derived from the first record's keys.
type ExportService struct {
	store MemberStore
}

// NewExportService creates a new ExportService
func NewExportService(store MemberStore) *ExportService {
	return &ExportService{store: store}
}

// ExportJSON serializes the whole collection as indented JSON.
func (e *ExportService) ExportJSON() ([]byte, error) {
	members, err := e.store.ListAll()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(members, "", "  ")
}

// ExportCSV renders the whole collection as CSV.
func (e *ExportService) ExportCSV() ([]byte, error) {
	members, err := e.store.ListAll()
	if err != nil {
		return nil, err
	}
	return MarshalProfilesCSV(members)
}

// MarshalProfilesCSV renders profiles as CSV. The header row comes from the
// first record's keys (sorted, so the column order is stable run to run);
// values containing the delimiter or quote character are escaped by the
// standard quoting rules.
func MarshalProfilesCSV(members []*models.MemberProfile) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if len(members) == 0 {
		writer.Flush()
		return buf.Bytes(), writer.Error()
	}

	first, err := profileFields(members[0])
	if err != nil {
		return nil, err
	}
	header := make([]string, 0, len(first))
	for key := range first {
		header = append(header, key)
	}
	sort.Strings(header)
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	for _, m := range members {
		fields, err := profileFields(m)
		if err != nil {
			return nil, err
		}
		row := make([]string, len(header))
		for i, key := range header {
			row[i] = cellValue(fields[key])
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}

// profileFields flattens a profile to its serialized key set via the JSON
// tags, so the CSV columns match the JSON export field for field.
func profileFields(m *models.MemberProfile) (map[string]any, error) {
	encoded, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func cellValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		// Nested values (the sponsors array) stay JSON-encoded in one
		// cell.
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
