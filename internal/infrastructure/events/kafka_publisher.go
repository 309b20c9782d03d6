package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-cocina/internal/application/inventory"
	"github.com/jhoicas/inventario-cocina/pkg/logger"
	"github.com/segmentio/kafka-go"
)

var (
	_ inventory.EventPublisher = (*KafkaPublisher)(nil)
	_ inventory.EventPublisher = NopPublisher{}
)

// messageWriter es la parte de kafka.Writer que usa el publicador.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica eventos del libro ya confirmados. La clave del mensaje es el
// ingrediente o menú afectado, así los eventos de un mismo sujeto caen en la misma partición
// y conservan su orden.
type KafkaPublisher struct {
	w       messageWriter
	timeout time.Duration
	log     *logger.Logger
}

// NewKafkaPublisher crea el writer para el tópico del libro.
func NewKafkaPublisher(brokers []string, topic string, log *logger.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return newKafkaPublisher(w, log)
}

func newKafkaPublisher(w messageWriter, log *logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &KafkaPublisher{w: w, timeout: 5 * time.Second, log: log.Component("events")}
}

// Publish serializa los eventos en JSON y los envía en un solo lote. No se usa el ctx de la
// petición para el envío: el libro ya está confirmado y una cancelación del cliente no debe
// perder el evento.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...inventory.LedgerEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs, err := encode(events)
	if err != nil {
		return err
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	if err := p.w.WriteMessages(sendCtx, msgs...); err != nil {
		return fmt.Errorf("kafka: publicar %d eventos: %w", len(msgs), err)
	}
	p.log.Debug().Int("events", len(msgs)).Str("type", events[0].Type).Msg("eventos publicados")
	return nil
}

// Close vacía y cierra el writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func encode(events []inventory.LedgerEvent) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		body, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("kafka: serializar evento %s: %w", e.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Key()),
			Value: body,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(e.Type)},
			},
			Time: e.OccurredAt,
		})
	}
	return msgs, nil
}

// NopPublisher descarta los eventos (sin brokers configurados).
type NopPublisher struct{}

// Publish no hace nada.
func (NopPublisher) Publish(context.Context, ...inventory.LedgerEvent) error { return nil }
