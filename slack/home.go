package slack

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/slack-go/slack"

	"slackmcp/mcp"
)

const (
	homeTitle = "Welcome to MCP Assistant!"
	homeIntro = "I'm an AI assistant with access to tools and resources through the Model Context Protocol."
	homeUsage = "*How to Use:*\n• Send me a direct message\n• Mention me in a channel with @MCP Assistant"

	// maxDescriptionWidth keeps one tool per line on a typical Home tab.
	maxDescriptionWidth = 150

	// Slack rejects views with more than 100 blocks.
	maxHomeBlocks = 100
)

// HomeView builds the App Home tab listing every registered tool.
func HomeView(tools []mcp.ToolDescriptor) slack.HomeTabViewRequest {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, homeTitle, false, false)),
		markdownSection(homeIntro),
		markdownSection("*Available Tools:*"),
	}

	// five fixed blocks plus one for the overflow note
	room := maxHomeBlocks - 6
	for i, tool := range tools {
		if i == room {
			blocks = append(blocks, markdownSection(fmt.Sprintf("_…and %d more_", len(tools)-room)))
			break
		}
		blocks = append(blocks, markdownSection(toolLine(tool)))
	}
	if len(tools) == 0 {
		blocks = append(blocks, markdownSection("_No tools are connected right now._"))
	}

	blocks = append(blocks, slack.NewDividerBlock(), markdownSection(homeUsage))

	return slack.HomeTabViewRequest{
		Type:   slack.VTHomeTab,
		Blocks: slack.Blocks{BlockSet: blocks},
	}
}

func toolLine(tool mcp.ToolDescriptor) string {
	desc := strings.Join(strings.Fields(tool.Description), " ")
	if desc == "" {
		desc = "No description"
	}
	if runewidth.StringWidth(desc) > maxDescriptionWidth {
		desc = runewidth.Truncate(desc, maxDescriptionWidth, "...")
	}
	return fmt.Sprintf("- *%s*: %s", tool.Name, mrkdwnEscaper.Replace(desc))
}

func markdownSection(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
}
