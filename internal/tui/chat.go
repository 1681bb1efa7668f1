package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

type advisorReplyMsg struct {
	reply string
	err   error
}

type chatLine struct {
	role    string
	content string
}

// chatModel is the advisor tab: a scrollback viewport over a text input.
type chatModel struct {
	advisor AdvisorQuerier
	chatID  int64

	input    textinput.Model
	scroll    viewport.Model
	lines    []chatLine
	waiting  bool
	hasFocus bool
	width    int
	height   int
}

func newChatModel(advisor AdvisorQuerier, chatID int64) chatModel {
	ti := textinput.New()
	ti.Placeholder = "ask about a forecast..."
	ti.CharLimit = 500
	return chatModel{
		advisor: advisor,
		chatID:  chatID,
		input:   ti,
		scroll:   viewport.New(80, 20),
	}
}

func (c *chatModel) setSize(width, height int) {
	c.width = width
	c.height = height
	c.input.Width = width - 4
	c.scroll.Width = width
	if height > 3 {
		c.scroll.Height = height - 3
	}
	c.refreshContent()
}

func (c *chatModel) focused() bool { return c.hasFocus }

func (c *chatModel) focus() {
	c.hasFocus = true
	c.input.Focus()
}

func (c *chatModel) blur() {
	c.hasFocus = false
	c.input.Blur()
}

func (c chatModel) update(msg tea.Msg) (chatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case advisorReplyMsg:
		c.waiting = false
		if msg.err != nil {
			c.lines = append(c.lines, chatLine{role: "error", content: msg.err.Error()})
		} else {
			c.lines = append(c.lines, chatLine{role: "advisor", content: msg.reply})
		}
		c.refreshContent()
		return c, nil

	case tea.KeyMsg:
		if msg.String() == "enter" {
			text := strings.TrimSpace(c.input.Value())
			if text == "" || c.waiting {
				return c, nil
			}
			c.input.SetValue("")
			c.lines = append(c.lines, chatLine{role: "you", content: text})
			c.waiting = true
			c.refreshContent()
			return c, c.ask(text)
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

func (c *chatModel) ask(text string) tea.Cmd {
	advisor := c.advisor
	chatID := c.chatID
	return func() tea.Msg {
		if advisor == nil {
			return advisorReplyMsg{err: fmt.Errorf("advisor is not configured on this server")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		reply, err := advisor.Ask(ctx, chatID, text)
		return advisorReplyMsg{reply: reply, err: err}
	}
}

func (c *chatModel) refreshContent() {
	var sb strings.Builder
	for _, line := range c.lines {
		switch line.role {
		case "you":
			sb.WriteString(bullStyle.Render("you: ") + line.content + "\n")
		case "error":
			sb.WriteString(errStyle.Render("error: "+line.content) + "\n")
		default:
			sb.WriteString(titleStyle.Render("advisor: ") + line.content + "\n")
		}
	}
	if c.waiting {
		sb.WriteString(dimStyle.Render("thinking...") + "\n")
	}
	c.scroll.SetContent(sb.String())
	c.scroll.GotoBottom()
}

func (c *chatModel) view() string {
	if c.advisor == nil {
		return dimStyle.Render("Advisor chat is disabled: no OpenAI API key configured.")
	}
	var sb strings.Builder
	sb.WriteString(c.scroll.View())
	sb.WriteString("\n")
	sb.WriteString(c.input.View())
	return sb.String()
}
