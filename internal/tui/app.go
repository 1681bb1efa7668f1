// Package tui implements the SSH dashboard: a tabbed bubbletea app showing
// live forecasts, reference levels, and an advisor chat.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"daily-bias-engine/internal/domain"
	"daily-bias-engine/internal/service"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ForecastQuerier is the slice of the forecast service the dashboard reads.
type ForecastQuerier interface {
	GetForecast(ctx context.Context, symbol string) (*domain.Forecast, error)
	GetLevels(ctx context.Context, symbol string) (*service.LevelsReport, error)
	Accuracy(ctx context.Context, symbol string, days int) (*domain.AccuracyStats, error)
}

// AdvisorQuerier is implemented by the advisor service when an OpenAI key is
// configured; nil disables the chat tab.
type AdvisorQuerier interface {
	Ask(ctx context.Context, chatID int64, userMessage string) (string, error)
}

// Services bundles everything the app needs from the host process.
type Services struct {
	Forecasts ForecastQuerier
	Advisor   AdvisorQuerier
	UserID    int64
	Username  string
}

type tab int

const (
	tabForecasts tab = iota
	tabLevels
	tabChat
)

var tabNames = []string{"Forecasts", "Levels", "Chat"}

type forecastsLoadedMsg struct {
	forecasts []*domain.Forecast
	stats     map[string]*domain.AccuracyStats
	err       error
}

type levelsLoadedMsg struct {
	symbol string
	report *service.LevelsReport
	err    error
}

type tickMsg time.Time

// AppModel is the root bubbletea model served to each SSH session.
type AppModel struct {
	svc    Services
	active tab

	width  int
	height int

	spin    spinner.Model
	loading bool

	symbolIdx int
	forecasts map[string]*domain.Forecast
	stats     map[string]*domain.AccuracyStats
	levels    map[string]*service.LevelsReport
	loadErr   error

	chat chatModel
}

func NewAppModel(svc Services) *AppModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &AppModel{
		svc:       svc,
		spin:      sp,
		loading:   true,
		forecasts: make(map[string]*domain.Forecast),
		stats:     make(map[string]*domain.AccuracyStats),
		levels:    make(map[string]*service.LevelsReport),
		chat:      newChatModel(svc.Advisor, svc.UserID),
	}
}

// SetSize is called before the program starts with the pty dimensions.
func (m *AppModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.chat.setSize(width, height-4)
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.loadForecasts(), m.scheduleRefresh())
}

func (m *AppModel) currentSymbol() string {
	return domain.SupportedSymbols[m.symbolIdx]
}

func (m *AppModel) loadForecasts() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		var out []*domain.Forecast
		stats := make(map[string]*domain.AccuracyStats)
		var firstErr error
		for _, sym := range domain.SupportedSymbols {
			f, err := svc.Forecasts.GetForecast(ctx, sym)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			out = append(out, f)
			if a, err := svc.Forecasts.Accuracy(ctx, sym, 30); err == nil {
				stats[sym] = a
			}
		}
		if len(out) == 0 {
			return forecastsLoadedMsg{err: firstErr}
		}
		return forecastsLoadedMsg{forecasts: out, stats: stats}
	}
}

func (m *AppModel) loadLevels(symbol string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		report, err := svc.Forecasts.GetLevels(ctx, symbol)
		return levelsLoadedMsg{symbol: symbol, report: report, err: err}
	}
}

func (m *AppModel) scheduleRefresh() tea.Cmd {
	return tea.Tick(time.Minute, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		// The chat input owns the keyboard while focused.
		if m.active == tabChat && m.chat.focused() {
			if msg.String() == "esc" {
				m.chat.blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.chat, cmd = m.chat.update(msg)
			return m, cmd
		}
		return m.handleKey(msg)

	case forecastsLoadedMsg:
		m.loading = false
		m.loadErr = msg.err
		for _, f := range msg.forecasts {
			m.forecasts[f.Symbol] = f
		}
		for sym, a := range msg.stats {
			m.stats[sym] = a
		}
		return m, nil

	case levelsLoadedMsg:
		if msg.err == nil {
			m.levels[msg.symbol] = msg.report
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.loadForecasts(), m.scheduleRefresh())

	case advisorReplyMsg:
		var cmd tea.Cmd
		m.chat, cmd = m.chat.update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab", "right", "l":
		m.active = (m.active + 1) % tab(len(tabNames))
		return m.enterTab()

	case "shift+tab", "left", "h":
		m.active = (m.active + tab(len(tabNames)) - 1) % tab(len(tabNames))
		return m.enterTab()

	case "1", "2", "3":
		m.active = tab(int(msg.String()[0] - '1'))
		return m.enterTab()

	case "j", "down":
		m.symbolIdx = (m.symbolIdx + 1) % len(domain.SupportedSymbols)
		if m.active == tabLevels {
			return m, m.loadLevels(m.currentSymbol())
		}
		return m, nil

	case "k", "up":
		m.symbolIdx = (m.symbolIdx + len(domain.SupportedSymbols) - 1) % len(domain.SupportedSymbols)
		if m.active == tabLevels {
			return m, m.loadLevels(m.currentSymbol())
		}
		return m, nil

	case "r":
		m.loading = true
		return m, tea.Batch(m.loadForecasts(), m.loadLevels(m.currentSymbol()))

	case "i", "enter":
		if m.active == tabChat {
			m.chat.focus()
		}
		return m, nil
	}
	return m, nil
}

func (m *AppModel) enterTab() (tea.Model, tea.Cmd) {
	if m.active == tabLevels {
		if _, ok := m.levels[m.currentSymbol()]; !ok {
			return m, m.loadLevels(m.currentSymbol())
		}
	}
	return m, nil
}

func (m *AppModel) View() string {
	var sb strings.Builder
	sb.WriteString(m.renderTabs())
	sb.WriteString("\n\n")

	switch m.active {
	case tabForecasts:
		sb.WriteString(m.renderForecasts())
	case tabLevels:
		sb.WriteString(m.renderLevels())
	case tabChat:
		sb.WriteString(m.chat.view())
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render(m.helpLine()))
	return sb.String()
}

func (m *AppModel) helpLine() string {
	if m.active == tabChat {
		return "tab: switch view • i: type • esc: stop typing • q: quit"
	}
	return "tab: switch view • j/k: instrument • r: refresh • q: quit"
}

func (m *AppModel) renderTabs() string {
	parts := make([]string, 0, len(tabNames)+1)
	for i, name := range tabNames {
		label := fmt.Sprintf(" %d %s ", i+1, name)
		if tab(i) == m.active {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, inactiveTabStyle.Render(label))
		}
	}
	header := strings.Join(parts, " ")
	if m.svc.Username != "" {
		header += dimStyle.Render("   " + m.svc.Username)
	}
	return header
}

func (m *AppModel) renderForecasts() string {
	if m.loading && len(m.forecasts) == 0 {
		return m.spin.View() + " loading forecasts..."
	}
	if m.loadErr != nil && len(m.forecasts) == 0 {
		return errStyle.Render(fmt.Sprintf("failed to load forecasts: %v", m.loadErr))
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Daily Bias") + "\n\n")
	for i, sym := range domain.SupportedSymbols {
		f, ok := m.forecasts[sym]
		cursor := "  "
		if i == m.symbolIdx {
			cursor = "> "
		}
		if !ok {
			sb.WriteString(fmt.Sprintf("%s%-6s %s\n", cursor, sym, dimStyle.Render("no data")))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s%-6s %s  conf %5.1f%%  score %.3f (%d/%d)  %10.2f  %s",
			cursor, sym,
			directionBadge(f.Result.Prediction),
			f.Result.Confidence,
			f.Result.NormalizedScore,
			f.Result.BullishCount, f.Result.TotalSignals,
			f.CurrentPrice,
			dimStyle.Render(f.Window)))
		if a, ok := m.stats[sym]; ok && a.Verified > 0 {
			sb.WriteString(dimStyle.Render(fmt.Sprintf("  30d %.0f%%", a.HitRate)))
		}
		sb.WriteString("\n")
		for _, p := range f.Intraday {
			line := fmt.Sprintf("          %2dam  %s  %5.1f%%  %s",
				p.ReferenceHour, directionBadge(p.Prediction), p.Confidence, p.Status)
			if p.Outcome != nil {
				line += "  " + outcomeBadge(*p.Outcome)
			}
			sb.WriteString(dimStyle.Render(line) + "\n")
		}
	}
	return sb.String()
}

func (m *AppModel) renderLevels() string {
	sym := m.currentSymbol()
	report, ok := m.levels[sym]
	if !ok {
		return m.spin.View() + " loading levels for " + sym + "..."
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Levels: %s @ %.2f", sym, report.CurrentPrice)) + "\n\n")
	for _, lv := range report.Levels {
		name := fmt.Sprintf("%-28s", lv.Name)
		switch {
		case lv.Kind == domain.LevelKindRange && lv.High != nil && lv.Low != nil:
			sb.WriteString(fmt.Sprintf("  %s %10.2f / %-10.2f\n", name, *lv.High, *lv.Low))
		case lv.Value != nil:
			line := fmt.Sprintf("  %s %10.2f", name, *lv.Value)
			if lv.Degraded {
				line += dimStyle.Render(" ~")
			}
			sb.WriteString(line + "\n")
		default:
			sb.WriteString(fmt.Sprintf("  %s %s\n", name, dimStyle.Render("n/a")))
		}
	}
	return sb.String()
}

func directionBadge(d domain.Direction) string {
	if d == domain.DirectionBullish {
		return bullStyle.Render("BULLISH")
	}
	return bearStyle.Render("BEARISH")
}

func outcomeBadge(o domain.PredictionOutcome) string {
	if o == domain.OutcomeCorrect {
		return bullStyle.Render("CORRECT")
	}
	return bearStyle.Render("WRONG")
}
