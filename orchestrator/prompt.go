package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"slackmcp/mcp"
	"slackmcp/model"
)

// DefaultSystemIntro opens the system prompt.
const DefaultSystemIntro = "You are a helpful assistant with access to the following tools:"

const callingConvention = `When you need to use a tool, you MUST format your response exactly like this:
[TOOL] tool_name
{"param1": "value1", "param2": "value2"}

Make sure to include both the tool name AND the JSON arguments.
Never leave out the JSON arguments.

After receiving tool results, interpret them for the user in a helpful way.`

const narrationSystemPrompt = "You are a helpful assistant. You've just used a tool and received results. " +
	"Interpret these results for the user in a clear, helpful way."

const (
	partialTemplate        = "I tried to use the tool '%s', but the request was incomplete. Here's my response without the tool:\n\n%s"
	partialUnnamedTemplate = "I tried to use a tool, but the request did not name one. Here's my response without the tool:\n\n%s"
	malformedTemplate      = "I tried to use the tool '%s', but the arguments were not properly formatted. Here's my response without the tool:\n\n%s"
	notAvailableTemplate   = "I tried to use the tool '%s', but it's not available. Here's my response without the tool:\n\n%s"
	executionTemplate      = "I tried to use the tool '%s', but encountered an error: %v\n\nHere's my response without the tool:\n\n%s"
	suggestionTemplate     = "\n\n(Did you mean '%s'?)"
	genericTemplate        = "I'm sorry, I encountered an error: %v"
	toolResultTemplate     = "Tool result for %s:\n%s"
	narrationTemplate      = "I used the tool %s with arguments %s and got this result:\n\n%s\n\nPlease interpret this result for me."
	fallbackTemplate       = "I used the %s tool and got these results:\n\n```\n%s\n```"
)

// BuildSystemPrompt lists every tool and the [TOOL] calling convention.
func BuildSystemPrompt(intro string, tools []mcp.ToolDescriptor) string {
	if strings.TrimSpace(intro) == "" {
		intro = DefaultSystemIntro
	}

	descriptions := make([]string, len(tools))
	for i, tool := range tools {
		descriptions[i] = mcp.FormatForLLM(tool)
	}

	var sb strings.Builder
	sb.WriteString(intro)
	sb.WriteString("\n\n")
	sb.WriteString(strings.Join(descriptions, "\n"))
	sb.WriteString("\n")
	sb.WriteString(callingConvention)
	return sb.String()
}

// narrationMessages builds the stateless request that asks the model to
// explain a tool result.
func narrationMessages(tool, rawArgs, result string) []model.Message {
	if strings.TrimSpace(rawArgs) == "" {
		rawArgs = "{}"
	}
	return []model.Message{
		model.NewMessage(model.RoleSystem, narrationSystemPrompt),
		model.NewMessage(model.RoleUser, fmt.Sprintf(narrationTemplate, tool, rawArgs, result)),
	}
}

// fallbackText formats a tool result without the model. Structured results
// are pretty-printed JSON.
func fallbackText(tool string, result *mcp.ToolResult) string {
	body := result.Text
	if result.Structured != nil {
		if pretty, err := json.MarshalIndent(result.Structured, "", "  "); err == nil {
			body = string(pretty)
		}
	}
	return fmt.Sprintf(fallbackTemplate, tool, body)
}

// resultText is what the history entry and narration prompt show for a result.
func resultText(result *mcp.ToolResult) string {
	if result.Text != "" || result.Structured == nil {
		return result.Text
	}
	raw, err := json.Marshal(result.Structured)
	if err != nil {
		return fmt.Sprint(result.Structured)
	}
	return string(raw)
}

// GenericApology is the reply sent when processing fails unexpectedly.
func GenericApology(err error) string {
	return fmt.Sprintf(genericTemplate, err)
}
