package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stockdesk/internal/analysis"
	"stockdesk/internal/config"
	apperrors "stockdesk/internal/errors"
	"stockdesk/internal/models"
	"stockdesk/internal/security"
)

// scriptedLLM records every prompt and returns canned replies.
type scriptedLLM struct {
	mu      sync.Mutex
	prompts []string
}

func (s *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return s.CompleteWithSystem(ctx, "", prompt)
}

func (s *scriptedLLM) CompleteWithSystem(_ context.Context, _, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	return "**Analysis** of the request", nil
}

func (s *scriptedLLM) Chat(_ context.Context, _ string, history []models.ChatMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := history[len(history)-1].Content
	s.prompts = append(s.prompts, last)
	return "reply to " + last, nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	t.Setenv("STOCKDESK_USER", "")
	t.Setenv("STOCKDESK_SECRET_KEY", "")
	cfg, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.Quotes.Provider = "mock"
	return &App{Config: cfg, Logger: zerolog.Nop()}
}

func run(t *testing.T, app *App, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, app *App, args ...string) string {
	t.Helper()
	out, err := run(t, app, "", args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func TestVersionJSON(t *testing.T) {
	out := mustRun(t, newTestApp(t), "version", "--json")
	var v map[string]string
	if err := json.Unmarshal([]byte(out), &v); err != nil || v["version"] != Version {
		t.Errorf("version output = %q (%v)", out, err)
	}
}

func TestConfigShowMasksCredentials(t *testing.T) {
	app := newTestApp(t)
	app.Config.Credentials.OpenAI.APIKey = "sk-abcdefghijklmnop1234"

	for _, args := range [][]string{{"config", "show"}, {"config", "show", "--json"}} {
		out := mustRun(t, app, args...)
		if strings.Contains(out, "abcdefghijklmnop") {
			t.Errorf("%v leaked the api key:\n%s", args, out)
		}
		if !strings.Contains(out, "sk-a") {
			t.Errorf("%v should show a masked key:\n%s", args, out)
		}
	}

	if out := mustRun(t, app, "config", "validate"); !strings.Contains(out, "valid") {
		t.Errorf("config validate = %q", out)
	}
}

func TestQuoteJSON(t *testing.T) {
	out := mustRun(t, newTestApp(t), "quote", "aapl", "MSFT", "--json")

	var views []analysis.StockView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if len(views) != 2 || views[0].Symbol != "AAPL" || views[1].Symbol != "MSFT" {
		t.Fatalf("views = %+v", views)
	}
	if views[0].Source != "mock" || views[0].Price == "N/A" {
		t.Errorf("unexpected view %+v", views[0])
	}
	if strings.Contains(out, "NaN") {
		t.Error("output contains NaN")
	}
}

func TestQuoteText(t *testing.T) {
	out := mustRun(t, newTestApp(t), "quote", "NVDA")
	for _, want := range []string{"NVDA", "[MOCK]", "52W Position:", "Trend:", "showing mock data", "US market "} {
		if !strings.Contains(out, want) {
			t.Errorf("quote output missing %q:\n%s", want, out)
		}
	}
}

func TestQuoteRejectsBadSymbol(t *testing.T) {
	_, err := run(t, newTestApp(t), "", "quote", "AA;PL")
	if !apperrors.Is(err, apperrors.ErrInputValidation) {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestInsights(t *testing.T) {
	app := newTestApp(t)
	out := mustRun(t, app, "insights", "AAPL", "--range", "3mo", "--json")

	var got struct {
		Symbol    string             `json:"symbol"`
		Insights  *analysis.Insights `json:"insights"`
		Narrative []analysis.Insight `json:"narrative"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if got.Insights == nil || got.Insights.Bars != 63 {
		t.Fatalf("insights = %+v", got.Insights)
	}
	if got.Insights.GreenCandles+got.Insights.RedCandles > got.Insights.Bars || len(got.Narrative) == 0 {
		t.Errorf("inconsistent insights %+v", got)
	}

	text := mustRun(t, app, "insights", "AAPL")
	if !strings.Contains(text, "Trend:") || !strings.Contains(text, "Relative Strength") {
		t.Errorf("insights text:\n%s", text)
	}
}

func TestLevels(t *testing.T) {
	app := newTestApp(t)
	out := mustRun(t, app, "levels", "100", "90", "110", "--json")
	var levels analysis.LevelAnalysis
	if err := json.Unmarshal([]byte(out), &levels); err != nil {
		t.Fatal(err)
	}
	if levels.Zone != analysis.ZoneMidRange || levels.PositionFraction != 0.5 {
		t.Errorf("levels = %+v", levels)
	}

	if _, err := run(t, app, "", "levels", "100", "110", "110"); !apperrors.Is(err, apperrors.ErrDivisionByZero) {
		t.Errorf("equal levels: err = %v", err)
	}
	if _, err := run(t, app, "", "levels", "100", "abc", "110"); !apperrors.Is(err, apperrors.ErrInputValidation) {
		t.Errorf("bad number: err = %v", err)
	}
}

func TestRiskReward(t *testing.T) {
	app := newTestApp(t)
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"rr", "--entry", "50", "--stop", "48", "--target", "56"}, "Risk/Reward: 4.00:1"},
		{[]string{"rr", "--entry", "50", "--stop", "48"}, "Risk/Reward: -"},
		{[]string{"rr", "--entry", "abc", "--stop", "48", "--target", "56"}, "Risk/Reward: -"},
	}
	for _, tt := range tests {
		if out := mustRun(t, app, tt.args...); !strings.Contains(out, tt.want) {
			t.Errorf("%v = %q, want %q", tt.args, out, tt.want)
		}
	}
	if _, err := run(t, app, "", "rr", "--entry", "50", "--stop", "50", "--target", "56"); !apperrors.Is(err, apperrors.ErrDivisionByZero) {
		t.Errorf("entry == stop: err = %v", err)
	}
}

func TestSizeUsesConfigDefaults(t *testing.T) {
	app := newTestApp(t)
	out := mustRun(t, app, "size", "--entry", "50", "--stop", "48", "--json")
	var sizing analysis.Sizing
	if err := json.Unmarshal([]byte(out), &sizing); err != nil {
		t.Fatal(err)
	}
	// 1% of 10,000 over a 2.00 stop distance.
	if sizing.DollarRisk != 100 || sizing.ShareQuantity != 50 {
		t.Errorf("sizing = %+v", sizing)
	}

	if _, err := run(t, app, "", "size", "--entry", "50", "--stop", "48", "--risk", "-1"); !apperrors.Is(err, apperrors.ErrInputValidation) {
		t.Errorf("negative risk: err = %v", err)
	}
}

func TestPlanWithReview(t *testing.T) {
	app := newTestApp(t)
	llm := &scriptedLLM{}
	app.llm = llm

	out := mustRun(t, app, "plan", "--entry", "50", "--stop", "48", "--target", "56", "--review", "--json")
	var got struct {
		PositionSize float64 `json:"position_size"`
		RiskReward   string  `json:"risk_reward"`
		Review       string  `json:"review"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if got.PositionSize != 50 || got.RiskReward != "4.00:1" || got.Review == "" {
		t.Errorf("plan = %+v", got)
	}
	if len(llm.prompts) != 1 || !strings.Contains(llm.prompts[0], "Take profit: 56.00") {
		t.Errorf("review prompt = %v", llm.prompts)
	}
}

func TestAskWithoutCredentials(t *testing.T) {
	app := newTestApp(t)
	app.Config.Credentials.OpenAI.APIKey = ""
	_, err := run(t, app, "", "ask", "AAPL")
	if !apperrors.Is(err, apperrors.ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestAskModes(t *testing.T) {
	app := newTestApp(t)
	llm := &scriptedLLM{}
	app.llm = llm

	mustRun(t, app, "ask", "AAPL", "what", "next?")
	mustRun(t, app, "ask", "AAPL", "--mode", "trade")
	out := mustRun(t, app, "ask", "AAPL", "--mode", "insights", "--json")

	if len(llm.prompts) != 3 {
		t.Fatalf("got %d prompts", len(llm.prompts))
	}
	if !strings.Contains(llm.prompts[0], "Analyze AAPL") || !strings.Contains(llm.prompts[0], "what next?") {
		t.Errorf("analysis prompt = %s", llm.prompts[0])
	}
	if !strings.Contains(llm.prompts[1], "## Levels") {
		t.Errorf("trade prompt = %s", llm.prompts[1])
	}
	if !strings.Contains(llm.prompts[2], "Chart statistics") || !strings.Contains(out, `"mode": "insights"`) {
		t.Errorf("insights prompt = %s\noutput = %s", llm.prompts[2], out)
	}

	if _, err := run(t, app, "", "ask", "AAPL", "--mode", "astrology"); err == nil {
		t.Error("unknown mode should fail")
	}
}

func TestChatREPL(t *testing.T) {
	app := newTestApp(t)
	llm := &scriptedLLM{}
	app.llm = llm

	out, err := run(t, app, "hello there\n\n/history\n/reset\n/history\nbye\nnever sent\n", "chat", "AAPL")
	if err != nil {
		t.Fatalf("chat: %v\n%s", err, out)
	}
	for _, want := range []string{"Discussing AAPL", "reply to hello there", "user:", "Conversation cleared", "No messages yet", "Goodbye."} {
		if !strings.Contains(out, want) {
			t.Errorf("chat output missing %q:\n%s", want, out)
		}
	}
	if len(llm.prompts) != 1 {
		t.Errorf("sent %d messages, want 1", len(llm.prompts))
	}
}

func TestWatchlistAndWatchOnce(t *testing.T) {
	app := newTestApp(t)
	mustRun(t, app, "watchlist", "add", "msft", "AAPL")
	mustRun(t, app, "watchlist", "add", "TSLA")
	mustRun(t, app, "watchlist", "remove", "tsla")

	out := mustRun(t, app, "watchlist", "list", "--json")
	var list map[string][]string
	if err := json.Unmarshal([]byte(out), &list); err != nil || len(list["symbols"]) != 2 {
		t.Fatalf("watchlist = %s (%v)", out, err)
	}

	out = mustRun(t, app, "watch", "--once", "--json")
	var rows []watchRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	for i, r := range rows {
		if r.Symbol != list["symbols"][i] || r.Error != "" || r.View.Source != "mock" || r.SessionChange != "N/A" {
			t.Errorf("row %d = %+v", i, r)
		}
	}

	out = mustRun(t, app, "watch", "SPY", "--once")
	if !strings.Contains(out, "SYMBOL") || !strings.Contains(out, "SPY") {
		t.Errorf("watch table:\n%s", out)
	}
}

func TestWatchEmptyWatchlist(t *testing.T) {
	if _, err := run(t, newTestApp(t), "", "watch", "--once"); err == nil || !strings.Contains(err.Error(), "watchlist is empty") {
		t.Errorf("err = %v", err)
	}
}

// failingWriter rejects every write.
type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestWatchJSONWriteFailureIsLogged(t *testing.T) {
	app := newTestApp(t)
	var logs bytes.Buffer
	app.Logger = zerolog.New(&logs)

	cmd := newRootCmd(app)
	cmd.SetOut(failingWriter{})
	cmd.SetErr(failingWriter{})
	cmd.SetArgs([]string{"watch", "SPY", "--once", "--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !strings.Contains(logs.String(), "Failed to write watch update") || !strings.Contains(logs.String(), "broken pipe") {
		t.Errorf("write failure not logged:\n%s", logs.String())
	}
}

func TestAccountChangesAreLoggedPerUser(t *testing.T) {
	app := newTestApp(t)
	var buf bytes.Buffer
	app.Logger = zerolog.New(&buf)

	out := mustRun(t, app, "portfolio", "add", "MSFT", "3", "300", "--json")
	var added models.Asset
	if err := json.Unmarshal([]byte(out), &added); err != nil {
		t.Fatal(err)
	}
	mustRun(t, app, "portfolio", "remove", added.ID)

	out = mustRun(t, app, "settings", "enable-2fa", "--json")
	var enrollment security.Enrollment
	if err := json.Unmarshal([]byte(out), &enrollment); err != nil {
		t.Fatal(err)
	}
	code, err := security.CurrentCode(enrollment.Secret, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	mustRun(t, app, "settings", "verify-2fa", code)

	logs := buf.String()
	for _, want := range []string{"Asset added", "Asset removed", "Two-factor enrolment started", "Two-factor enabled"} {
		if !strings.Contains(logs, want) {
			t.Errorf("log missing %q:\n%s", want, logs)
		}
	}
	if !strings.Contains(logs, `"user_id":"`+app.Config.User+`"`) || !strings.Contains(logs, `"asset_id":"`+added.ID+`"`) {
		t.Errorf("log lines lack user or asset fields:\n%s", logs)
	}
}

func TestPortfolioLifecycle(t *testing.T) {
	app := newTestApp(t)

	out := mustRun(t, app, "portfolio", "add", "aapl", "10", "150", "--notes", "core", "--json")
	var added models.Asset
	if err := json.Unmarshal([]byte(out), &added); err != nil {
		t.Fatal(err)
	}
	if added.ID == "" || added.Symbol != "AAPL" || added.Type != models.AssetStock {
		t.Fatalf("added = %+v", added)
	}
	mustRun(t, app, "portfolio", "add", "SPY", "2", "400", "--type", "etf")

	if _, err := run(t, app, "", "portfolio", "add", "X", "0", "1"); !apperrors.Is(err, apperrors.ErrInputValidation) {
		t.Errorf("zero quantity: err = %v", err)
	}
	if _, err := run(t, app, "", "portfolio", "add", "X", "1", "1", "--type", "art"); !apperrors.Is(err, apperrors.ErrInputValidation) {
		t.Errorf("bad type: err = %v", err)
	}

	mustRun(t, app, "portfolio", "update", added.ID[:8], "--quantity", "12")

	out = mustRun(t, app, "portfolio", "list", "--live", "--json")
	var holdings []holdingView
	if err := json.Unmarshal([]byte(out), &holdings); err != nil {
		t.Fatal(err)
	}
	if len(holdings) != 2 || holdings[0].Quantity != 12 || holdings[0].CostBasis != 1800 || holdings[0].Price == "" {
		t.Fatalf("holdings = %+v", holdings)
	}

	text := mustRun(t, app, "portfolio", "list")
	if !strings.Contains(text, "Total cost: $2,600.00") {
		t.Errorf("portfolio list:\n%s", text)
	}

	csvPath := filepath.Join(t.TempDir(), "holdings.csv")
	mustRun(t, app, "portfolio", "export", "-o", csvPath)
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "id,symbol,name,type,quantity,average_price,notes") || !strings.Contains(string(data), "AAPL") {
		t.Errorf("csv export:\n%s", data)
	}

	mustRun(t, app, "portfolio", "import", csvPath)
	out = mustRun(t, app, "portfolio", "list", "--type", "etf", "--json")
	if err := json.Unmarshal([]byte(out), &holdings); err != nil || len(holdings) != 2 {
		t.Errorf("after import etf holdings = %d (%v)", len(holdings), err)
	}

	mustRun(t, app, "portfolio", "remove", added.ID)
	if _, err := run(t, app, "", "portfolio", "remove", added.ID); !apperrors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("second remove: err = %v", err)
	}
}

func TestProfile(t *testing.T) {
	app := newTestApp(t)
	mustRun(t, app, "profile", "set", "--name", "Ada Lovelace", "--email", "ada@example.com")
	mustRun(t, app, "profile", "set", "--country", "UK")

	out := mustRun(t, app, "profile", "show", "--json")
	var p models.UserProfile
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatal(err)
	}
	if p.FullName != "Ada Lovelace" || p.Email != "ada@example.com" || p.Country != "UK" {
		t.Errorf("profile = %+v", p)
	}

	if _, err := run(t, app, "", "profile", "set", "--email", "nope"); !apperrors.Is(err, apperrors.ErrInputValidation) {
		t.Errorf("bad email: err = %v", err)
	}
}

func TestSettingsAndTwoFactorLogin(t *testing.T) {
	app := newTestApp(t)

	mustRun(t, app, "settings", "set", "--price-alerts=false", "--session-timeout", "30m", "--card-last4", "4242")
	out := mustRun(t, app, "settings", "show")
	for _, want := range []string{"Price Alerts:", "30m", "**** 4242"} {
		if !strings.Contains(out, want) {
			t.Errorf("settings show missing %q:\n%s", want, out)
		}
	}
	if _, err := run(t, app, "", "settings", "set", "--card-last4", "42"); !apperrors.Is(err, apperrors.ErrInputValidation) {
		t.Errorf("bad card: err = %v", err)
	}

	mustRun(t, app, "login")

	out = mustRun(t, app, "settings", "enable-2fa", "--json")
	var enrollment security.Enrollment
	if err := json.Unmarshal([]byte(out), &enrollment); err != nil || enrollment.Secret == "" {
		t.Fatalf("enrollment = %s (%v)", out, err)
	}
	if _, err := os.Stat(app.Config.SecretKeyPath()); err != nil {
		t.Errorf("vault key not generated: %v", err)
	}
	if _, err := run(t, app, "", "settings", "verify-2fa", "12345"); !apperrors.Is(err, apperrors.ErrInvalidPasscode) {
		t.Errorf("malformed code: err = %v", err)
	}

	code, err := security.CurrentCode(enrollment.Secret, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	mustRun(t, app, "settings", "verify-2fa", code)

	out = mustRun(t, app, "settings", "show", "--json")
	var st models.Settings
	if err := json.Unmarshal([]byte(out), &st); err != nil || !st.Security.TwoFactorEnabled {
		t.Fatalf("settings = %s (%v)", out, err)
	}
	if strings.Contains(out, enrollment.Secret) {
		t.Error("settings output leaked the totp secret")
	}

	if _, err := run(t, app, "", "login"); !apperrors.Is(err, apperrors.ErrInvalidPasscode) {
		t.Errorf("login without code: err = %v", err)
	}
	mustRun(t, app, "login", "--code", code)

	out = mustRun(t, app, "logins", "--json")
	var logins []models.LoginRecord
	if err := json.Unmarshal([]byte(out), &logins); err != nil {
		t.Fatal(err)
	}
	if len(logins) != 3 {
		t.Fatalf("got %d logins, want 3", len(logins))
	}
	if !logins[0].Success || logins[1].Success || !logins[2].Success {
		t.Errorf("login results not newest first: %+v", logins)
	}

	if text := mustRun(t, app, "logins", "--limit", "1"); strings.Count(text, "cli/") != 1 {
		t.Errorf("logins --limit 1:\n%s", text)
	}
}
