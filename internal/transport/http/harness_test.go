package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"blitz-trivia-service/internal/app"
	"blitz-trivia-service/internal/domain"
	"blitz-trivia-service/internal/infra/memory"
	"blitz-trivia-service/internal/logger"
	"github.com/shopspring/decimal"
)

const testWallet = "0x00000000000000000000000000000000000000a1"

type stubMinter struct {
	mu    sync.Mutex
	err   error
	delay time.Duration
	calls int
}

func (m *stubMinter) Mint(ctx context.Context, address string, amount decimal.Decimal) (string, error) {
	m.mu.Lock()
	m.calls++
	err, delay := m.err, m.delay
	m.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return "0xabc", nil
}

type harness struct {
	server  *httptest.Server
	minter  *stubMinter
	catalog *app.QuizCatalog
}

type harnessOptions struct {
	mode        app.PayoutMode
	mintTimeout time.Duration
	rateLimit   int
	proxies     []string
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	if opts.mode == "" {
		opts.mode = app.PayoutStaged
	}
	if opts.mintTimeout == 0 {
		opts.mintTimeout = time.Second
	}
	if opts.rateLimit == 0 {
		opts.rateLimit = 1000
	}
	log := logger.NewNop()
	store := memory.NewCatalogStore()
	locks := app.NewKeyedMutex()
	minter := &stubMinter{}
	questions := memory.NewQuestionCache(store, time.Minute)

	catalog := app.NewQuizCatalog(store, questions, locks, domain.StatusActive, log)
	session := app.NewQuizSession(store, questions, locks, log)
	ledger := app.NewPendingClaimLedger(memory.NewLedgerStore(), minter, locks, opts.mintTimeout, log)
	board := app.NewLeaderboard(memory.NewLeaderboardStore())
	cfg := app.DefaultDistributorConfig()
	cfg.Mode = opts.mode
	cfg.MintTimeout = opts.mintTimeout
	distributor := app.NewRewardDistributor(store, ledger, minter, locks, cfg, log)
	results := app.NewGameResults(app.NewRewardCalculator(app.DefaultRewardConfig()), ledger, board, log)

	router := NewRouter(
		NewQuizHandler(catalog, session, distributor, log),
		NewLeaderboardHandler(board, ledger, log),
		NewGameResultHandler(results, log),
		NewWSHandler(session, log),
		log,
		RouterOptions{RateLimit: opts.rateLimit, RateWindow: time.Minute, TrustedProxies: opts.proxies},
	)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &harness{server: server, minter: minter, catalog: catalog}
}

func (h *harness) post(t *testing.T, path string, payload any) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(h.server.URL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp)
}

func (h *harness) get(t *testing.T, pathAndQuery string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(h.server.URL + pathAndQuery)
	if err != nil {
		t.Fatalf("get %s: %v", pathAndQuery, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp)
}

// getFrom issues a GET carrying forwardedFor as X-Forwarded-For.
func (h *harness) getFrom(t *testing.T, pathAndQuery, forwardedFor string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.server.URL+pathAndQuery, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Forwarded-For", forwardedFor)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get %s: %v", pathAndQuery, err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

// createQuiz creates a two-question quiz whose correct answer is always "4".
func (h *harness) createQuiz(t *testing.T, prizePool string, max int) string {
	t.Helper()
	status, resp := h.post(t, "/api/quizzes", map[string]any{
		"action":          "create",
		"title":           "Math",
		"description":     "Numbers",
		"hostFid":         1,
		"hostUsername":    "host",
		"category":        "math",
		"prizePool":       prizePool,
		"maxParticipants": max,
		"questions": []map[string]any{
			{"question": "2+2?", "options": []string{"3", "4"}, "correctAnswer": "4"},
			{"question": "1+3?", "options": []string{"4", "5"}, "correctAnswer": "4"},
		},
	})
	if status != http.StatusOK {
		t.Fatalf("create quiz: status %d body %v", status, resp)
	}
	quiz := resp["quiz"].(map[string]any)
	return quiz["id"].(string)
}

func (h *harness) questionIDs(t *testing.T, quizID string) []string {
	t.Helper()
	status, resp := h.get(t, "/api/quizzes?action=questions&quizId="+quizID)
	if status != http.StatusOK {
		t.Fatalf("questions: status %d", status)
	}
	var ids []string
	for _, q := range resp["questions"].([]any) {
		ids = append(ids, q.(map[string]any)["id"].(string))
	}
	return ids
}
