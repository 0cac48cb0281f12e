package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	jsonrepair "github.com/RealAlexandreAI/json-repair"

	"payroll-auditor/core/utils"
)

// parseStructured extracts rows from a structured-object export. The input is
// expected to be a top-level list of flat records; a top-level object holding
// exactly one list value is also accepted. Nested objects are flattened by
// dot-joining keys. Malformed input gets one repair attempt before failing.
func parseStructured(data []byte) ([]Row, []Warning, error) {
	var warnings []Warning

	doc, err := decodeJSON(data)
	if err != nil {
		// Loosely formed exports (trailing commas, single quotes) are common
		// enough that one repair pass is worth the attempt.
		repaired, rerr := jsonrepair.RepairJSON(string(data))
		if rerr != nil {
			return nil, nil, &ParseError{Format: FormatStructured, Cause: fmt.Sprintf("invalid JSON: %v", err)}
		}
		doc, err = decodeJSON([]byte(repaired))
		if err != nil {
			return nil, nil, &ParseError{Format: FormatStructured, Cause: fmt.Sprintf("invalid JSON: %v", err)}
		}
		warnings = append(warnings, Warning{Message: "input was not valid JSON and was repaired before parsing"})
	}

	list, err := recordList(doc)
	if err != nil {
		return nil, nil, &ParseError{Format: FormatStructured, Cause: err.Error()}
	}

	rows := make([]Row, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, nil, &ParseError{
				Format: FormatStructured,
				Row:    i + 1,
				Cause:  fmt.Sprintf("record %d is %T, expected an object", i+1, item),
			}
		}
		fields := make(map[string]any)
		flattenObject("", obj, fields)
		rows = append(rows, Row{Index: i + 1, Fields: fields, Confidence: 1.0})
	}

	return rows, warnings, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// recordList locates the record list in the decoded document.
func recordList(doc any) ([]any, error) {
	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var lists []string
		for _, k := range keys {
			if _, ok := v[k].([]any); ok {
				lists = append(lists, k)
			}
		}
		if len(lists) == 1 {
			return v[lists[0]].([]any), nil
		}
		if len(lists) == 0 {
			return nil, fmt.Errorf("top-level object contains no record list")
		}
		return nil, fmt.Errorf("top-level object contains %d lists, expected exactly one", len(lists))
	default:
		return nil, fmt.Errorf("top-level value is %T, expected a list of records", doc)
	}
}

// flattenObject copies obj into out, dot-joining nested object keys.
// Scalars keep their decoded type (string or json.Number); other values are
// stringified.
func flattenObject(prefix string, obj map[string]any, out map[string]any) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flattenObject(key, val, out)
		case string, json.Number:
			out[key] = val
		case nil:
			// Absent value; the normalizer treats missing and null alike.
		default:
			out[key] = utils.ToString(val)
		}
	}
}
