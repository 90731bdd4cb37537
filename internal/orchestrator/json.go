package orchestrator

import "encoding/json"

func unmarshalInto(raw json.RawMessage, v any) error {
	return json.Unmarshal(raw, v)
}
