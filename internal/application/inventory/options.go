package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-cocina/internal/domain"
	"github.com/jhoicas/inventario-cocina/pkg/logger"
)

// Options parámetros compartidos por los casos de uso del libro.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	Publisher    EventPublisher
	Cache        AvailabilityCache
	Logger       *logger.Logger
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.Publisher == nil {
		o.Publisher = nopPublisher{}
	}
	if o.Cache == nil {
		o.Cache = nopCache{}
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// withRetry reintenta fn mientras falle por contención, con espera lineal entre intentos.
// Tras MaxRetries reintentos devuelve el último error (sigue siendo reintentable).
func (o Options) withRetry(ctx context.Context, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !domain.IsRetryable(err) || attempt >= o.MaxRetries {
			return err
		}
		o.Logger.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("contención en el libro, reintentando")
		wait := o.RetryBackoff * time.Duration(attempt+1)
		if wait <= 0 {
			continue
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}

// afterCommit invalida la caché de disponibilidad y publica los eventos. Los fallos se
// registran y no se propagan: el libro ya está confirmado.
func (o Options) afterCommit(ctx context.Context, events []LedgerEvent) {
	if err := o.Cache.Invalidate(ctx); err != nil {
		o.Logger.Warn().Err(err).Msg("no se pudo invalidar la caché de disponibilidad")
	}
	if len(events) == 0 {
		return
	}
	if err := o.Publisher.Publish(ctx, events...); err != nil {
		o.Logger.Warn().Err(err).Int("events", len(events)).Msg("no se pudieron publicar eventos del libro")
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...LedgerEvent) error { return nil }

type nopCache struct{}

func (nopCache) Get(context.Context, string) (*MenuAvailability, bool, error) { return nil, false, nil }
func (nopCache) Set(context.Context, *MenuAvailability) error                 { return nil }
func (nopCache) Invalidate(context.Context) error                             { return nil }
