package notify

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/shopjohn/internal/email"
	"github.com/dropDatabas3/shopjohn/internal/observability/logger"
)

// Worker consume jobs de la cola, renderiza el template según el kind y
// envía por SMTP. Reintenta entregas fallidas re-encolando con backoff fijo
// hasta MaxRetries; después descarta.
type Worker struct {
	Queue     Queue
	Sender    email.Sender
	Templates *email.Templates

	// Concurrency es la cantidad de consumidores en paralelo. Mínimo 1.
	Concurrency int

	// MaxRetries es el total de intentos de entrega por job.
	MaxRetries int

	// RetryDelay es la espera antes de re-encolar un job fallido.
	RetryDelay time.Duration
}

// Run consume hasta que el contexto se cancele. Bloqueante.
func (w *Worker) Run(ctx context.Context) error {
	n := w.Concurrency
	if n < 1 {
		n = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error { return w.consume(ctx) })
	}
	return g.Wait()
}

func (w *Worker) consume(ctx context.Context) error {
	for {
		job, err := w.Queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.From(ctx).Error("dequeue failed", logger.Component("Worker"), logger.Err(err))
			continue
		}
		w.handle(ctx, *job)
	}
}

func (w *Worker) handle(ctx context.Context, job Job) {
	log := logger.From(ctx).With(
		logger.Component("Worker"),
		logger.JobID(job.ID),
		logger.JobKind(string(job.Kind)),
		logger.Attempt(job.Attempts+1),
	)

	start := time.Now()
	err := w.deliver(job)
	observeDelivery(job.Kind, time.Since(start).Seconds())

	if err == nil {
		incDelivered(job.Kind)
		log.Info("notification delivered", logger.String("recipient", job.Recipient))
		return
	}

	job.Attempts++
	if job.Attempts >= w.maxRetries() {
		incFailed(job.Kind, "dropped")
		log.Error("notification dropped after retries", logger.Err(err))
		return
	}

	incFailed(job.Kind, "retry")
	log.Warn("delivery failed, scheduling retry", logger.Err(err))
	w.requeueLater(ctx, job)
}

// requeueLater re-encola el job después de RetryDelay sin bloquear al
// consumidor. Si el contexto muere durante la espera, el retry se pierde:
// la entrega es best-effort acotada, no exactly-once.
func (w *Worker) requeueLater(ctx context.Context, job Job) {
	if w.RetryDelay <= 0 {
		w.requeue(ctx, job)
		return
	}
	go func() {
		t := time.NewTimer(w.RetryDelay)
		defer t.Stop()
		select {
		case <-t.C:
			w.requeue(ctx, job)
		case <-ctx.Done():
		}
	}()
}

func (w *Worker) requeue(ctx context.Context, job Job) {
	if err := w.Queue.Enqueue(ctx, job); err != nil {
		incFailed(job.Kind, "dropped")
		logger.From(ctx).Error("requeue failed, job dropped",
			logger.Component("Worker"), logger.JobID(job.ID), logger.Err(err))
	}
}

func (w *Worker) deliver(job Job) error {
	v := email.Vars{
		FullName: job.TemplateContext["full_name"],
		Link:     job.TemplateContext["link"],
		TTL:      job.TemplateContext["ttl"],
	}

	var (
		subject, body string
		err           error
	)
	switch job.Kind {
	case KindVerifyEmail, KindResendVerification:
		subject, body, err = w.Templates.RenderVerify(v)
	case KindPasswordReset:
		subject, body, err = w.Templates.RenderReset(v)
	case KindAccountDeleted:
		subject, body, err = w.Templates.RenderDeleted(v)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
	if err != nil {
		return err
	}

	return w.Sender.Send(job.Recipient, subject, body)
}

func (w *Worker) maxRetries() int {
	if w.MaxRetries < 1 {
		return 1
	}
	return w.MaxRetries
}
