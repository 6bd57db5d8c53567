package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/shopjohn/internal/domain/repository"
	"github.com/dropDatabas3/shopjohn/internal/email"
	jwtx "github.com/dropDatabas3/shopjohn/internal/jwt"
	"github.com/dropDatabas3/shopjohn/internal/notify"
	"github.com/dropDatabas3/shopjohn/internal/rate"
	"github.com/dropDatabas3/shopjohn/internal/store/memory"
	"github.com/dropDatabas3/shopjohn/internal/verification"
)

// mailbox captura los mails que el worker "envía".
type mailbox struct {
	mu    sync.Mutex
	mails []capturedMail
}

type capturedMail struct {
	to, subject, body string
}

func (m *mailbox) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mails = append(m.mails, capturedMail{to: to, subject: subject, body: body})
	return nil
}

func (m *mailbox) wait(t *testing.T, n int) []capturedMail {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		m.mu.Lock()
		if len(m.mails) >= n {
			out := make([]capturedMail, len(m.mails))
			copy(out, m.mails)
			m.mu.Unlock()
			return out
		}
		m.mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d mails", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

var linkRe = regexp.MustCompile(`https?://\S+token=(\S+)`)

// Test_FullVerificationJourney corre el ciclo completo en un solo proceso:
// resend por HTTP, worker entregando el mail, click en el link y baja de
// cuenta autenticada.
func Test_FullVerificationJourney(t *testing.T) {
	accounts := memory.NewAccountDirectory()
	store := memory.NewTokenStore()
	queue := notify.NewMemoryQueue(16)
	verifier := jwtx.NewVerifier("e2e-secret-e2e-secret-e2e-secret", "shopjohn")

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

	router := NewRouter(RouterConfig{
		WF:          wf,
		Verifier:    verifier,
		SelfService: true,
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	box := &mailbox{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker := &notify.Worker{
		Queue:       queue,
		Sender:      box,
		Templates:   email.NewTemplates(),
		Concurrency: 2,
		MaxRetries:  3,
	}
	go func() { _ = worker.Run(ctx) }()

	accounts.Seed(repository.Account{ID: "acc1", Email: "ana@example.com", FullName: "Ana"})

	// 1) Resend de verificación.
	resp, err := http.Post(srv.URL+"/v1/auth/verify-email/resend", "application/json",
		strings.NewReader(`{"email":"ana@example.com"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	// 2) El worker entrega el mail con el link.
	mails := box.wait(t, 1)
	require.Equal(t, "ana@example.com", mails[0].to)
	require.Equal(t, "Verify your email address", mails[0].subject)
	require.Contains(t, mails[0].body, "Dear Ana,")
	m := linkRe.FindStringSubmatch(mails[0].body)
	require.NotNil(t, m, "mail must contain the verification link")

	// 3) Click: el path del link contra el server de test.
	confirmURL := srv.URL + "/v1/auth/verify-email?token=" + m[1]
	resp, err = http.Get(confirmURL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	acc, err := accounts.GetByID(context.Background(), "acc1")
	require.NoError(t, err)
	require.True(t, acc.EmailVerified)

	// 4) El link es de un solo uso.
	resp, err = http.Get(confirmURL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// 5) Baja de cuenta autenticada + mail de despedida.
	bearer, err := verifier.Sign("acc1", time.Hour)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/auth/account", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+bearer)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	mails = box.wait(t, 2)
	require.Equal(t, "Your account has been deleted", mails[1].subject)
}
