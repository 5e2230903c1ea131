package store

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/seenimoa/smartreviewer/pkg/models"
)

// Record is one stored article as returned by List. Fields keeps every
// key the store sent, known or not; the embedded article is a typed
// best-effort view of the same data with ID taken from "_id".
type Record struct {
	models.AnalyzedArticle
	Fields map[string]json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	r.Fields = fields

	// Type mismatches on individual fields leave them zeroed.
	var typed struct {
		models.AnalyzedArticle
		AnalyzedAt json.RawMessage `json:"analyzed_at"`
	}
	_ = json.Unmarshal(data, &typed)
	r.AnalyzedArticle = typed.AnalyzedArticle
	r.AnalyzedAt = parseTime(typed.AnalyzedAt)
	r.ID = rawID(fields["_id"])
	return nil
}

// MarshalJSON emits all original fields plus "id".
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	if r.ID != "" {
		id, err := json.Marshal(r.ID)
		if err != nil {
			return nil, err
		}
		out["id"] = id
	}
	return json.Marshal(out)
}

// rawID turns an _id value into a string. Strings are unquoted; any
// other JSON value is kept as its literal text.
func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func parseTime(raw json.RawMessage) time.Time {
	var s string
	if json.Unmarshal(raw, &s) != nil || strings.TrimSpace(s) == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
