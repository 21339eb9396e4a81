// Package toolcall detects tool-call requests embedded in free-text model
// replies.
//
// The wire contract with the model is a marker line followed by a JSON
// argument block:
//
//	Sure, let me check.
//	[TOOL] get_weather
//	{"location": "Tokyo"}
//
// Parse is pure: no I/O, no logging, no panics on any input.
package toolcall

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Marker is the sentinel token that introduces a tool call.
const Marker = "[TOOL]"

// Kind classifies a parsed reply.
type Kind int

const (
	// KindNone means the reply carries no tool call and is final text.
	KindNone Kind = iota
	// KindPartial means a marker and tool name were found but no argument block.
	KindPartial
	// KindMalformed means the argument block is not valid JSON.
	KindMalformed
	// KindWellFormed means the request can be dispatched.
	KindWellFormed
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindPartial:
		return "partial"
	case KindMalformed:
		return "malformed"
	case KindWellFormed:
		return "well-formed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrArgumentsNotObject is returned by ArgumentMap when the arguments decode
// to something other than a JSON object.
var ErrArgumentsNotObject = errors.New("tool arguments must be a JSON object")

// Result is the outcome of parsing one model reply. It only lives for one
// message-processing cycle.
type Result struct {
	Kind Kind

	// Text is the full reply, unchanged.
	Text string

	// Prose is everything before the marker, verbatim.
	Prose string

	ToolName     string
	RawArguments string

	// Arguments is the decoded JSON value; only set for KindWellFormed.
	Arguments any

	// Err holds the JSON decode error for KindMalformed.
	Err error
}

// HasToolCall reports whether the reply contained the marker at all.
func (r Result) HasToolCall() bool {
	return r.Kind != KindNone
}

// ArgumentMap returns the arguments in the shape MCP tools/call expects.
// A JSON null becomes an empty map.
func (r Result) ArgumentMap() (map[string]any, error) {
	switch v := r.Arguments.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("%w, got %T", ErrArgumentsNotObject, v)
	}
}

// Parse splits a model reply into prose, tool name and argument block.
//
// Only the first marker is honoured; text from a second marker onwards is not
// part of the argument block.
func Parse(text string) Result {
	idx := strings.Index(text, Marker)
	if idx < 0 {
		return Result{Kind: KindNone, Text: text}
	}

	res := Result{
		Text:  text,
		Prose: text[:idx],
	}

	rest := text[idx+len(Marker):]
	if next := strings.Index(rest, Marker); next >= 0 {
		rest = rest[:next]
	}

	name, block := splitNameLine(rest)
	res.ToolName = name
	res.RawArguments = stripCodeFence(block)

	if res.RawArguments == "" {
		res.Kind = KindPartial
		return res
	}

	var args any
	if err := json.Unmarshal([]byte(res.RawArguments), &args); err != nil {
		res.Kind = KindMalformed
		res.Err = err
		return res
	}

	res.Kind = KindWellFormed
	res.Arguments = args
	return res
}

// splitNameLine takes the first non-blank line as the tool name. Anything
// after the first whitespace on that line is treated as the start of the
// argument block, so "[TOOL] get_now {}" still parses.
func splitNameLine(rest string) (string, string) {
	rest = strings.TrimLeft(rest, " \t\r\n")

	line, remainder := rest, ""
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		line, remainder = rest[:nl], rest[nl+1:]
	}
	line = strings.TrimSpace(line)

	if sp := strings.IndexAny(line, " \t"); sp >= 0 {
		remainder = line[sp+1:] + "\n" + remainder
		line = line[:sp]
	}

	return line, strings.TrimSpace(remainder)
}

// stripCodeFence removes a surrounding ``` fence, with or without a language tag.
func stripCodeFence(block string) string {
	if !strings.HasPrefix(block, "```") {
		return block
	}

	body := strings.TrimPrefix(block, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}
