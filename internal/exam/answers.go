package exam

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ParseAnswers reads a raw {"<question id>": [indices]} payload. Only the
// top-level shape is fatal; a bad value for one question marks that question
// malformed and leaves the rest of the sheet intact. Keys that are not
// canonical decimal ids ("7", never "07" or "+7") are ignored so that no two
// keys can name the same question.
func ParseAnswers(raw json.RawMessage) (AnswerSheet, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, invalid("answers must be an object")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, invalid("answers must be an object")
	}

	sheet := make(AnswerSheet, len(fields))
	for k, v := range fields {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil || strconv.FormatInt(id, 10) != k {
			continue
		}
		sheet[id] = parseSelection(v)
	}
	return sheet, nil
}

func parseSelection(raw json.RawMessage) Selection {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Selection{Malformed: true}
	}

	switch t := v.(type) {
	case nil:
		return Selection{}
	case json.Number:
		idx, ok := indexFromNumber(t)
		if !ok {
			return Selection{Malformed: true}
		}
		return Selection{Indices: []int{idx}}
	case []any:
		out := make([]int, 0, len(t))
		for _, item := range t {
			n, isNum := item.(json.Number)
			if !isNum {
				return Selection{Malformed: true}
			}
			idx, ok := indexFromNumber(n)
			if !ok {
				return Selection{Malformed: true}
			}
			out = append(out, idx)
		}
		return Selection{Indices: out}
	default:
		return Selection{Malformed: true}
	}
}

func indexFromNumber(n json.Number) (int, bool) {
	v, err := strconv.ParseInt(n.String(), 10, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}
