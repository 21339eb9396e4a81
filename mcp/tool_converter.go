package mcp

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ConvertTools converts MCP tools from a tools/list result into descriptors
// tagged with the server that owns them. Listing order is preserved.
func ConvertTools(server string, mcpTools []mcptypes.Tool) []ToolDescriptor {
	descriptors := make([]ToolDescriptor, 0, len(mcpTools))

	for _, tool := range mcpTools {
		descriptors = append(descriptors, ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			Server:      server,
			InputSchema: inputSchemaJSON(tool),
		})
	}

	return descriptors
}

// inputSchemaJSON prefers the raw schema a server sent and falls back to the
// structured one.
func inputSchemaJSON(tool mcptypes.Tool) json.RawMessage {
	if len(tool.RawInputSchema) > 0 {
		return tool.RawInputSchema
	}

	raw, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil
	}
	return raw
}

// schemaArgs is the subset of a JSON Schema object used to describe arguments.
type schemaArgs struct {
	Properties map[string]struct {
		Type        any    `json:"type"`
		Description string `json:"description"`
	} `json:"properties"`
	Required []string `json:"required"`
}

// FormatForLLM renders a tool the way the system prompt lists it:
//
//	Tool: get_weather
//	Description: Get current weather
//	Arguments:
//	- location: City name (required)
func FormatForLLM(d ToolDescriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tool: %s\n", d.Name)
	fmt.Fprintf(&sb, "Description: %s\n", d.Description)
	sb.WriteString("Arguments:\n")

	var schema schemaArgs
	if len(d.InputSchema) > 0 {
		_ = json.Unmarshal(d.InputSchema, &schema)
	}

	if len(schema.Properties) == 0 {
		sb.WriteString("- none\n")
		return sb.String()
	}

	required := make(map[string]bool, len(schema.Required))
	for _, r := range schema.Required {
		required[r] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop := schema.Properties[name]
		desc := prop.Description
		if desc == "" {
			desc = "No description"
		}
		line := fmt.Sprintf("- %s: %s", name, desc)
		if required[name] {
			line += " (required)"
		}
		sb.WriteString(line + "\n")
	}

	return sb.String()
}
