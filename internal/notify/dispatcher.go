package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/shopjohn/internal/observability/logger"
)

// ErrDispatchFailure indica que el broker no aceptó el job.
// El caller decide si propaga (5xx) o lo traga (baja de cuenta).
var ErrDispatchFailure = errors.New("notify: dispatch failure")

// IsDispatchFailure verifica si el error es un fallo de despacho.
func IsDispatchFailure(err error) bool {
	return errors.Is(err, ErrDispatchFailure)
}

// Dispatcher publica jobs de notificación en la cola y retorna enseguida.
// No espera la entrega: eso es del worker.
type Dispatcher struct {
	queue Queue
}

func NewDispatcher(queue Queue) *Dispatcher {
	return &Dispatcher{queue: queue}
}

// Enqueue publica el job. Fire-and-forget: no hay cancelación una vez
// aceptado por el broker; un fallo acá es un fallo de handoff, no de entrega.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) error {
	log := logger.From(ctx).With(
		logger.Component("Dispatcher"),
		logger.JobID(job.ID),
		logger.JobKind(string(job.Kind)),
	)

	if err := d.queue.Enqueue(ctx, job); err != nil {
		log.Error("enqueue failed", logger.Err(err))
		return fmt.Errorf("%w: %v", ErrDispatchFailure, err)
	}

	incEnqueued(job.Kind)
	log.Debug("job enqueued", logger.String("recipient", job.Recipient))
	return nil
}
