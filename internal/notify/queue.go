package notify

import (
	"context"
	"errors"
)

var (
	// ErrQueueFull indica que la cola en memoria alcanzó su capacidad.
	ErrQueueFull = errors.New("notify: queue full")

	// ErrQueueClosed indica que la cola fue cerrada.
	ErrQueueClosed = errors.New("notify: queue closed")
)

// Queue es el contrato mínimo de broker que necesita este subsistema.
// Implementaciones: RedisQueue (producción) y MemoryQueue (dev/tests).
type Queue interface {
	// Enqueue publica un job y retorna sin esperar la entrega.
	Enqueue(ctx context.Context, job Job) error

	// Dequeue bloquea hasta que haya un job o el contexto se cancele.
	Dequeue(ctx context.Context) (*Job, error)
}

// MemoryQueue es un broker in-process sobre un canal buffered.
// Solo para dev/tests: no sobrevive restarts.
type MemoryQueue struct {
	ch chan Job
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{ch: make(chan Job, capacity)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	select {
	case q.ch <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Job, error) {
	select {
	case job := <-q.ch:
		return &job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len retorna los jobs pendientes (helper para tests).
func (q *MemoryQueue) Len() int { return len(q.ch) }

var _ Queue = (*MemoryQueue)(nil)
