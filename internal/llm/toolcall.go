package llm

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/edstats/schema-chat/internal/errors"
)

// NormalizeToolCall converts a raw tool-call object into a ToolCall. Backends
// differ in shape: most nest name and arguments under a "function" object,
// some emit them flat, and argument payloads appear under "arguments", "args",
// or "input" as either a string or an object. Anything unrecognized produces
// an error that names the keys actually present.
func NormalizeToolCall(raw json.RawMessage) (ToolCall, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ToolCall{}, errors.Wrap(err, errors.ErrTypeLLM, "tool call is not a JSON object")
	}

	call := ToolCall{
		ID: stringField(obj, "id"),
	}

	if fnRaw, ok := obj["function"]; ok {
		var fn map[string]json.RawMessage
		if err := json.Unmarshal(fnRaw, &fn); err != nil {
			return ToolCall{}, errors.Wrap(err, errors.ErrTypeLLM, "tool call function is not a JSON object")
		}

		call.Name = stringField(fn, "name")
		call.Arguments = argumentsField(fn)
	} else {
		call.Name = stringField(obj, "name")
		call.Arguments = argumentsField(obj)
	}

	if call.Name == "" {
		return ToolCall{}, errors.Newf(errors.ErrTypeLLM,
			"unrecognized tool call shape (keys: %s)", strings.Join(sortedKeys(obj), ", "))
	}

	if call.Arguments == "" {
		call.Arguments = "{}"
	}

	return call, nil
}

// argumentsField extracts the argument payload, accepting the key aliases
// and both string and object encodings seen across backends
func argumentsField(obj map[string]json.RawMessage) string {
	for _, key := range []string{"arguments", "args", "input"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}

		// A string payload is already serialized JSON arguments
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}

		return string(raw)
	}

	return ""
}

func stringField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}

	return s
}

func sortedKeys(obj map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
