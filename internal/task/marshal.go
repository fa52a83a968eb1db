package task

import "encoding/json"

// knownFields are the JSON keys consumed by the shadow struct in
// UnmarshalJSON; anything else falls through to Payload.
var knownFields = map[string]struct{}{
	"name":          {},
	"type":          {},
	"depends_on":    {},
	"depends_order": {},
	"concurrency":   {},
	"save_buffers":  {},
}

// UnmarshalJSON decodes the core fields normally and collects every other
// top-level key into Payload, so kind-specific fields (command, cwd, env,
// ...) survive without the core ever needing to know their shape.
func (t *Task) UnmarshalJSON(data []byte) error {
	type shadow Task
	var s shadow
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	payload := make(map[string]any, len(raw))
	for k, v := range raw {
		if _, known := knownFields[k]; known {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		payload[k] = val
	}

	*t = Task(s)
	if len(payload) > 0 {
		t.Payload = payload
	}
	return nil
}

// MarshalJSON re-flattens Payload alongside the core fields.
func (t Task) MarshalJSON() ([]byte, error) {
	type shadow Task
	base, err := json.Marshal(shadow(t))
	if err != nil {
		return nil, err
	}
	if len(t.Payload) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range t.Payload {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = b
	}
	return json.Marshal(merged)
}
