package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/office-pool-platform/pkg/contracts/events"
)

// KafkaPublisher publica os eventos do ledger em tópicos separados.
// Publicação é best effort e acontece depois do commit da transação.
type KafkaPublisher struct {
	WagerWriter   *kafka.Writer
	SettledWriter *kafka.Writer
	ResetWriter   *kafka.Writer
}

func NewKafkaPublisher(wager, settled, reset *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{WagerWriter: wager, SettledWriter: settled, ResetWriter: reset}
}

func (p *KafkaPublisher) PublishWagerPlaced(ctx context.Context, e events.WagerPlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.WagerWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.MatchID), Value: b})
}

func (p *KafkaPublisher) PublishMatchSettled(ctx context.Context, e events.MatchSettled) error {
	b, _ := json.Marshal(e)
	return p.SettledWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.MatchID), Value: b})
}

func (p *KafkaPublisher) PublishMatchReset(ctx context.Context, e events.MatchReset) error {
	b, _ := json.Marshal(e)
	return p.ResetWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.MatchID), Value: b})
}
