package authclient

import "encoding/json"

// envelope matches the optional {message, data} wrapper some auth service
// deployments put around their payloads.
type envelope struct {
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// unwrap decodes body into out, unwrapping the {data: ...} envelope when
// present and otherwise treating the body as the bare payload.
func unwrap(body []byte, out interface{}) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		return json.Unmarshal(env.Data, out)
	}
	return json.Unmarshal(body, out)
}
