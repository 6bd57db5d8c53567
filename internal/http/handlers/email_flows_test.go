package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/shopjohn/internal/domain/repository"
	"github.com/dropDatabas3/shopjohn/internal/http/middlewares"
	jwtx "github.com/dropDatabas3/shopjohn/internal/jwt"
	"github.com/dropDatabas3/shopjohn/internal/notify"
	"github.com/dropDatabas3/shopjohn/internal/rate"
	"github.com/dropDatabas3/shopjohn/internal/store/memory"
	"github.com/dropDatabas3/shopjohn/internal/verification"
)

type testEnv struct {
	router   *chi.Mux
	queue    *notify.MemoryQueue
	accounts *memory.AccountDirectory
	verifier *jwtx.Verifier
}

func newTestEnv(t *testing.T, selfService bool) *testEnv {
	t.Helper()

	accounts := memory.NewAccountDirectory()
	store := memory.NewTokenStore()
	queue := notify.NewMemoryQueue(16)
	wf := &verification.Workflow{
		Issuer: &verification.Issuer{
			Store:     store,
			VerifyTTL: time.Hour,
			ResetTTL:  time.Hour,
		},
		Store:      store,
		Accounts:   accounts,
		Dispatcher: notify.NewDispatcher(queue),
		Limiter:    rate.NewMemoryLimiter(3, 10*time.Minute),
		BaseURL:    "https://shop.example.com",
	}

	verifier := jwtx.NewVerifier("test-secret-test-secret-test-1234", "shopjohn")

	r := chi.NewRouter()
	(&EmailFlowsHandler{WF: wf, SelfService: selfService}).Register(r)
	r.Group(func(g chi.Router) {
		g.Use(middlewares.RequireAuth(verifier))
		(&AccountHandler{WF: wf}).Register(g)
	})

	return &testEnv{router: r, queue: queue, accounts: accounts, verifier: verifier}
}

func (e *testEnv) do(t *testing.T, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// tokenFromQueue saca el secreto crudo del link del último job encolado.
func (e *testEnv) tokenFromQueue(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	job, err := e.queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("no job in queue: %v", err)
	}
	link := job.TemplateContext["link"]
	i := strings.Index(link, "token=")
	if i < 0 {
		t.Fatalf("link without token: %q", link)
	}
	return link[i+len("token="):]
}

func TestResendEndpoint_HappyPathAndThrottle(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, true)
	e.accounts.Seed(repository.Account{ID: "acc1", Email: "ana@example.com", FullName: "Ana"})

	for i := 0; i < 3; i++ {
		rec := e.do(t, http.MethodPost, "/v1/auth/verify-email/resend", `{"email":"ana@example.com"}`, nil)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("resend %d: status %d body %s", i+1, rec.Code, rec.Body.String())
		}
		e.tokenFromQueue(t)
	}

	rec := e.do(t, http.MethodPost, "/v1/auth/verify-email/resend", `{"email":"ana@example.com"}`, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("429 must carry Retry-After")
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("429 body: %v", err)
	}
	if secs, ok := payload["available_in_seconds"].(float64); !ok || secs < 1 {
		t.Fatalf("429 body must carry available_in_seconds >= 1, got %v", payload)
	}
}

func TestResendEndpoint_UnknownEmailStill202(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, true)

	rec := e.do(t, http.MethodPost, "/v1/auth/verify-email/resend", `{"email":"ghost@example.com"}`, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("unknown email must not leak, got %d", rec.Code)
	}
}

func TestResendEndpoint_SelfServiceDisabled(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, false)

	rec := e.do(t, http.MethodPost, "/v1/auth/verify-email/resend", `{"email":"a@example.com"}`, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with flag off, got %d", rec.Code)
	}
}

func TestVerifyEmailEndpoint_ConfirmViaLink(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, true)
	e.accounts.Seed(repository.Account{ID: "acc1", Email: "ana@example.com", FullName: "Ana"})

	rec := e.do(t, http.MethodPost, "/v1/auth/verify-email/resend", `{"email":"ana@example.com"}`, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("resend: %d", rec.Code)
	}
	token := e.tokenFromQueue(t)

	rec = e.do(t, http.MethodGet, "/v1/auth/verify-email?token="+token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: %d body %s", rec.Code, rec.Body.String())
	}

	acc, err := e.accounts.GetByID(context.Background(), "acc1")
	if err != nil || !acc.EmailVerified {
		t.Fatalf("account not verified: %+v err=%v", acc, err)
	}

	// Segundo uso del mismo link: error genérico, sin distinguir motivo.
	rec = e.do(t, http.MethodGet, "/v1/auth/verify-email?token="+token, "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reuse must 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid_token") {
		t.Fatalf("generic error expected, got %s", rec.Body.String())
	}
}

func TestResetEndpoints_DryRunAndConfirm(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, true)
	e.accounts.Seed(repository.Account{ID: "acc1", Email: "ana@example.com", FullName: "Ana"})

	rec := e.do(t, http.MethodPost, "/v1/auth/forgot", `{"email":"ana@example.com"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot: %d", rec.Code)
	}
	token := e.tokenFromQueue(t)

	// GET = dry-run: no consume.
	rec = e.do(t, http.MethodGet, "/v1/auth/reset?token="+token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dry-run: %d body %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodPost, "/v1/auth/reset", `{"token":"`+token+`","new_password":"hunter2hunter2"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: %d body %s", rec.Code, rec.Body.String())
	}

	// Token consumido: el dry-run ahora falla.
	rec = e.do(t, http.MethodGet, "/v1/auth/reset?token="+token, "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("consumed token must 400, got %d", rec.Code)
	}
}

func TestResetEndpoint_WeakPassword(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, true)
	e.accounts.Seed(repository.Account{ID: "acc1", Email: "ana@example.com", FullName: "Ana"})

	rec := e.do(t, http.MethodPost, "/v1/auth/forgot", `{"email":"ana@example.com"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot: %d", rec.Code)
	}
	token := e.tokenFromQueue(t)

	rec = e.do(t, http.MethodPost, "/v1/auth/reset", `{"token":"`+token+`","new_password":"short"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("weak password must 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "weak_password") {
		t.Fatalf("expected weak_password, got %s", rec.Body.String())
	}
}

func TestForgotEndpoint_UnknownEmailStillOK(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, true)

	rec := e.do(t, http.MethodPost, "/v1/auth/forgot", `{"email":"ghost@example.com"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot must not leak, got %d", rec.Code)
	}
}

func TestDeleteAccountEndpoint_RequiresAuth(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, true)
	e.accounts.Seed(repository.Account{ID: "acc1", Email: "ana@example.com", FullName: "Ana"})

	rec := e.do(t, http.MethodDelete, "/v1/auth/account", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer, got %d", rec.Code)
	}

	tok, err := e.verifier.Sign("acc1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	rec = e.do(t, http.MethodDelete, "/v1/auth/account", "", map[string]string{
		"Authorization": "Bearer " + tok,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d body %s", rec.Code, rec.Body.String())
	}

	if _, err := e.accounts.GetByID(context.Background(), "acc1"); !repository.IsNotFound(err) {
		t.Fatalf("account must be gone, got %v", err)
	}

	// El mail de despedida quedó encolado.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	job, err := e.queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("expected account_deleted job: %v", err)
	}
	if job.Kind != notify.KindAccountDeleted {
		t.Fatalf("wrong kind: %s", job.Kind)
	}
}

func TestDeleteAccountEndpoint_ExpiredToken(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, true)

	tok, err := e.verifier.Sign("acc1", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	rec := e.do(t, http.MethodDelete, "/v1/auth/account", "", map[string]string{
		"Authorization": "Bearer " + tok,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token must 401, got %d", rec.Code)
	}
}
