package slack

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// ToMrkdwn converts model Markdown into Slack mrkdwn.
//
// Plain URLs are left alone so Slack can unfurl them; autolinking is off.
func ToMrkdwn(md string) string {
	if strings.TrimSpace(md) == "" {
		return md
	}

	ext := parser.CommonExtensions &^ parser.Autolink
	p := parser.NewWithExtensions(ext)
	doc := p.Parse([]byte(md))

	out := gomarkdown.Render(doc, &mrkdwnRenderer{})
	return strings.TrimRight(string(out), "\n")
}

// mrkdwnRenderer implements gomarkdown.Renderer for Slack's mrkdwn dialect.
type mrkdwnRenderer struct {
	lists []*listState
}

type listState struct {
	ordered bool
	index   int
}

func (r *mrkdwnRenderer) RenderHeader(w io.Writer, node ast.Node) {}

func (r *mrkdwnRenderer) RenderFooter(w io.Writer, node ast.Node) {}

func (r *mrkdwnRenderer) RenderNode(w io.Writer, node ast.Node, entering bool) ast.WalkStatus {
	switch n := node.(type) {
	case *ast.Text:
		w.Write(escape(n.Literal))

	case *ast.Softbreak:
		io.WriteString(w, "\n")

	case *ast.Hardbreak:
		io.WriteString(w, "\n")

	case *ast.Strong:
		io.WriteString(w, "*")

	case *ast.Emph:
		io.WriteString(w, "_")

	case *ast.Del:
		io.WriteString(w, "~")

	case *ast.Code:
		io.WriteString(w, "`")
		w.Write(n.Literal)
		io.WriteString(w, "`")

	case *ast.CodeBlock:
		io.WriteString(w, "```\n")
		w.Write(bytes.TrimRight(n.Literal, "\n"))
		io.WriteString(w, "\n```\n\n")

	case *ast.Heading:
		switch {
		case entering:
			io.WriteString(w, "*")
		default:
			io.WriteString(w, "*\n\n")
		}

	case *ast.Paragraph:
		if !entering {
			switch node.GetParent().(type) {
			case *ast.ListItem:
				io.WriteString(w, "\n")
			default:
				io.WriteString(w, "\n\n")
			}
		}

	case *ast.List:
		if entering {
			r.lists = append(r.lists, &listState{ordered: n.ListFlags&ast.ListTypeOrdered != 0})
			return ast.GoToNext
		}
		r.lists = r.lists[:len(r.lists)-1]
		if len(r.lists) == 0 {
			io.WriteString(w, "\n")
		}

	case *ast.ListItem:
		if entering && len(r.lists) > 0 {
			state := r.lists[len(r.lists)-1]
			io.WriteString(w, strings.Repeat("    ", len(r.lists)-1))
			switch {
			case state.ordered:
				state.index++
				fmt.Fprintf(w, "%d. ", state.index)
			default:
				io.WriteString(w, "• ")
			}
		}

	case *ast.Link:
		if entering {
			fmt.Fprintf(w, "<%s|", n.Destination)
			return ast.GoToNext
		}
		io.WriteString(w, ">")

	case *ast.Image:
		if entering {
			fmt.Fprintf(w, "<%s>", n.Destination)
		}
		return ast.SkipChildren

	case *ast.BlockQuote:
		if entering {
			io.WriteString(w, "> ")
		}

	case *ast.HorizontalRule:
		io.WriteString(w, "───\n\n")

	case *ast.HTMLSpan:
		w.Write(escape(n.Literal))

	case *ast.HTMLBlock:
		w.Write(escape(n.Literal))
		io.WriteString(w, "\n\n")
	}

	return ast.GoToNext
}

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escape applies the three entity escapes Slack requires in message text.
func escape(b []byte) []byte {
	return []byte(mrkdwnEscaper.Replace(string(b)))
}
