package render

import (
	"fmt"
	"strings"

	"studio-cli/internal/chat"

	"github.com/charmbracelet/lipgloss"
)

var (
	userPrefixStyle      = lipgloss.NewStyle().Faint(true).Bold(true)
	userIndentStyle      = lipgloss.NewStyle().Faint(true)
	assistantPrefixStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	fileStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	toolStyle            = lipgloss.NewStyle().Faint(true)
	toolWaitStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB454"))
	toolDeniedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
)

// RenderMessages 将转录渲染为可直接塞进 viewport 的行。
func RenderMessages(msgs []chat.Message, width int) []string {
	if width <= 0 {
		width = 80
	}
	var lines []string
	for _, msg := range msgs {
		lines = append(lines, renderMessage(msg, width)...)
	}
	return lines
}

func renderMessage(msg chat.Message, width int) []string {
	wrapWidth := width - 2
	if wrapWidth < 1 {
		wrapWidth = width
	}
	var lines []string
	switch msg.Role {
	case chat.RoleUser:
		lines = append(lines, "")
		for _, part := range msg.Parts {
			lines = append(lines, renderPart(part, wrapWidth, "› ", "  ", userPrefixStyle, userIndentStyle)...)
		}
		lines = append(lines, "")
	default:
		rendered := []string{}
		for _, part := range msg.Parts {
			rendered = append(rendered, renderPart(part, wrapWidth, "• ", "  ", assistantPrefixStyle, assistantPrefixStyle)...)
		}
		if len(rendered) == 0 {
			rendered = []string{assistantPrefixStyle.Render("• ")}
		}
		lines = append(lines, rendered...)
	}
	return lines
}

func renderPart(part chat.Part, width int, prefix, indent string, prefixStyle, indentStyle lipgloss.Style) []string {
	switch part.Kind {
	case chat.PartText:
		body := wrapText(strings.TrimRight(part.Text, "\n"), width)
		out := make([]string, 0, len(body))
		for i, l := range body {
			if i == 0 {
				out = append(out, prefixStyle.Render(prefix)+l)
				continue
			}
			out = append(out, indentStyle.Render(indent)+l)
		}
		return out
	case chat.PartFile:
		if part.File == nil {
			return nil
		}
		label := part.File.Name
		if label == "" {
			label = part.File.ImageID
		}
		line := fmt.Sprintf("🖼 %s → %s", label, part.File.URL)
		out := []string{}
		for _, l := range wrapText(line, width) {
			out = append(out, fileStyle.Render(l))
		}
		return out
	case chat.PartTool:
		return renderToolPart(part.Tool, width)
	}
	return nil
}

func renderToolPart(inv *chat.ToolInvocation, width int) []string {
	if inv == nil {
		return nil
	}
	glyph := "▸"
	style := toolStyle
	switch inv.State {
	case chat.ToolApprovalRequested:
		glyph = "?"
		style = toolWaitStyle
	case chat.ToolOutputAvailable:
		glyph = "✓"
	case chat.ToolDenied:
		glyph = "✗"
		style = toolDeniedStyle
	}
	line := fmt.Sprintf("%s %s %s", glyph, inv.ToolName, stateLabel(inv.State))
	if len(inv.Output) > 0 && inv.State == chat.ToolOutputAvailable {
		line += " " + compactJSON(inv.Output, width/2)
	}
	out := []string{}
	for _, l := range wrapText(line, width) {
		out = append(out, style.Render(l))
	}
	return out
}

func stateLabel(state chat.ToolState) string {
	switch state {
	case chat.ToolInputStreaming:
		return "(receiving input…)"
	case chat.ToolInputAvailable:
		return "(input ready)"
	case chat.ToolApprovalRequested:
		return "(waiting for approval)"
	case chat.ToolApproved:
		return "(approved)"
	case chat.ToolExecuting:
		return "(running…)"
	case chat.ToolOutputAvailable:
		return "(done)"
	case chat.ToolDenied:
		return "(denied)"
	default:
		return string(state)
	}
}

func compactJSON(raw []byte, limit int) string {
	s := strings.Join(strings.Fields(string(raw)), " ")
	if limit > 3 && len(s) > limit {
		return s[:limit-1] + "…"
	}
	return s
}
