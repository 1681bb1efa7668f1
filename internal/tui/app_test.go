package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"daily-bias-engine/internal/domain"
	"daily-bias-engine/internal/service"

	tea "github.com/charmbracelet/bubbletea"
)

type stubForecasts struct {
	forecast *domain.Forecast
	report   *service.LevelsReport
	err      error
}

func (s *stubForecasts) GetForecast(ctx context.Context, symbol string) (*domain.Forecast, error) {
	if s.err != nil {
		return nil, s.err
	}
	f := *s.forecast
	f.Symbol = symbol
	return &f, nil
}

func (s *stubForecasts) GetLevels(ctx context.Context, symbol string) (*service.LevelsReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	r := *s.report
	r.Symbol = symbol
	return &r, nil
}

func (s *stubForecasts) Accuracy(ctx context.Context, symbol string, days int) (*domain.AccuracyStats, error) {
	return &domain.AccuracyStats{Symbol: symbol, Verified: 10, Correct: 6, HitRate: 60}, nil
}

type stubAdvisor struct {
	reply string
	err   error
	asked []string
}

func (s *stubAdvisor) Ask(ctx context.Context, chatID int64, msg string) (string, error) {
	s.asked = append(s.asked, msg)
	return s.reply, s.err
}

func testForecast() *domain.Forecast {
	return &domain.Forecast{
		CurrentPrice: 6011.25,
		Window:       "10am_hour",
		Result: domain.PredictionResult{
			Prediction:      domain.DirectionBullish,
			NormalizedScore: 0.714,
			Confidence:      42.8,
			BullishCount:    10,
			TotalSignals:    14,
		},
		Intraday: []domain.IntradayPrediction{
			{ReferenceHour: 9, Prediction: domain.DirectionBullish, Confidence: 38.5, Status: domain.StatusActive},
		},
	}
}

func testLevels() *service.LevelsReport {
	v := 6000.0
	hi, lo := 6020.0, 5980.0
	return &service.LevelsReport{
		CurrentPrice: 6011.25,
		Levels: []domain.LevelValue{
			{Name: domain.LevelPreviousDayHigh, Kind: domain.LevelKindScalar, Value: &v},
			{Name: domain.LevelAsianKillZone, Kind: domain.LevelKindRange, High: &hi, Low: &lo},
		},
	}
}

func newTestApp() (*AppModel, *stubForecasts) {
	stub := &stubForecasts{forecast: testForecast(), report: testLevels()}
	m := NewAppModel(Services{Forecasts: stub, UserID: 1, Username: "trader"})
	m.SetSize(120, 40)
	return m, stub
}

func TestForecastsViewAfterLoad(t *testing.T) {
	m, _ := newTestApp()

	cmd := m.loadForecasts()
	msg := cmd()
	loaded, ok := msg.(forecastsLoadedMsg)
	if !ok {
		t.Fatalf("expected forecastsLoadedMsg, got %T", msg)
	}
	if len(loaded.forecasts) != len(domain.SupportedSymbols) {
		t.Fatalf("expected %d forecasts, got %d", len(domain.SupportedSymbols), len(loaded.forecasts))
	}
	m.Update(loaded)

	out := m.View()
	if !strings.Contains(out, "BULLISH") {
		t.Fatal("expected a direction badge in the forecast view")
	}
	if !strings.Contains(out, "ES") || !strings.Contains(out, "UK100") {
		t.Fatal("expected all instruments listed")
	}
	if !strings.Contains(out, "trader") {
		t.Fatal("expected username in the header")
	}
}

func TestForecastsLoadError(t *testing.T) {
	stub := &stubForecasts{err: errors.New("engine offline")}
	m := NewAppModel(Services{Forecasts: stub})
	m.SetSize(80, 24)

	msg := m.loadForecasts()()
	loaded := msg.(forecastsLoadedMsg)
	if loaded.err == nil {
		t.Fatal("expected load error")
	}
	m.Update(loaded)

	out := m.View()
	if !strings.Contains(out, "engine offline") {
		t.Fatalf("expected error message in view, got: %s", out)
	}
}

func TestTabSwitchLoadsLevels(t *testing.T) {
	m, _ := newTestApp()
	m.Update(m.loadForecasts()().(forecastsLoadedMsg))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.active != tabLevels {
		t.Fatalf("expected levels tab, got %v", m.active)
	}
	if cmd == nil {
		t.Fatal("expected a level-loading command on first visit")
	}
	msg := cmd()
	loaded, ok := msg.(levelsLoadedMsg)
	if !ok {
		t.Fatalf("expected levelsLoadedMsg, got %T", msg)
	}
	if loaded.symbol != "ES" {
		t.Fatalf("expected levels for ES, got %s", loaded.symbol)
	}
	m.Update(loaded)

	out := m.View()
	if !strings.Contains(out, "6000.00") {
		t.Fatal("expected scalar level value in view")
	}
	if !strings.Contains(out, "6020.00 / 5980.00") {
		t.Fatal("expected range level in view")
	}
}

func TestInstrumentCycling(t *testing.T) {
	m, _ := newTestApp()
	if m.currentSymbol() != "ES" {
		t.Fatalf("expected ES first, got %s", m.currentSymbol())
	}
	m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if m.currentSymbol() != "NQ" {
		t.Fatalf("expected NQ after j, got %s", m.currentSymbol())
	}
	m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	if m.currentSymbol() != "UK100" {
		t.Fatalf("expected wrap-around to UK100, got %s", m.currentSymbol())
	}
}

func TestChatDisabledWithoutAdvisor(t *testing.T) {
	m, _ := newTestApp()
	m.active = tabChat
	out := m.View()
	if !strings.Contains(out, "disabled") {
		t.Fatalf("expected disabled notice, got: %s", out)
	}
}

func TestChatRoundTrip(t *testing.T) {
	advisor := &stubAdvisor{reply: "ES is bullish with 42% confidence"}
	stub := &stubForecasts{forecast: testForecast(), report: testLevels()}
	m := NewAppModel(Services{Forecasts: stub, Advisor: advisor, UserID: 7})
	m.SetSize(100, 30)
	m.active = tabChat
	m.chat.focus()

	m.chat.input.SetValue("what about ES?")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected an ask command")
	}
	msg := cmd()
	reply, ok := msg.(advisorReplyMsg)
	if !ok {
		t.Fatalf("expected advisorReplyMsg, got %T", msg)
	}
	if reply.err != nil {
		t.Fatalf("unexpected error: %v", reply.err)
	}
	m.Update(reply)

	if len(advisor.asked) != 1 || advisor.asked[0] != "what about ES?" {
		t.Fatalf("expected recorded question, got %v", advisor.asked)
	}
	out := m.View()
	if !strings.Contains(out, "ES is bullish with 42% confidence") {
		t.Fatal("expected advisor reply in the chat view")
	}
}

func TestQuitKey(t *testing.T) {
	m, _ := newTestApp()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Fatalf("expected tea.QuitMsg, got %T", msg)
	}
}
