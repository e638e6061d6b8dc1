// Package reasoning provides adapters to the external reasoning capability
// behind types.ReasoningPort: a Gemini-backed adapter for live runs, a
// deterministic fake for offline runs and tests, and a middleware chain for
// retry, caching, logging and audit. Everything that crosses this boundary
// is treated as untrusted; adapters return raw JSON and callers parse it
// defensively.
package reasoning

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidJSON reports that the capability answered but no JSON object
// could be recovered from the response.
var ErrInvalidJSON = errors.New("reasoning: invalid JSON from model")

// ErrNoAPIKey reports that the Gemini adapter was constructed without a key.
var ErrNoAPIKey = errors.New("reasoning: GEMINI_API_KEY or GOOGLE_API_KEY not set")

// extractJSON finds the first balanced JSON value in a model response,
// tolerating markdown fences and prose around it. Returns "" when no
// balanced object or array exists.
func extractJSON(response string) string {
	objStart := strings.IndexByte(response, '{')
	arrStart := strings.IndexByte(response, '[')
	start := objStart
	opener, closer := byte('{'), byte('}')
	if start == -1 || (arrStart != -1 && arrStart < start) {
		start = arrStart
		opener, closer = '[', ']'
	}
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}

// buildPayload renders the prompt plus the serialized input block the way
// the adapters send it over the wire.
func buildPayload(prompt string, input any) (string, error) {
	if input == nil {
		return prompt, nil
	}
	in, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", err
	}
	return prompt + "\n\n[INPUT JSON]\n" + string(in), nil
}
