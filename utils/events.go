package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lcc-go/models"
)

// Notifier publishes settlement events to Kafka. Delivery is fire-and-forget:
// a broker outage must never block or roll back a settlement, so every
// publish runs in its own goroutine and failures are only logged. All methods
// are safe on a nil receiver, which is the no-broker configuration.
type Notifier struct {
	writer *kafka.Writer

	topicBetPlaced       string
	topicDepositCredited string
	topicCurseTriggered  string
}

// Events is the global notifier. Nil until InitializeEvents runs with brokers
// configured.
var Events *Notifier

// InitializeEvents wires the Kafka writer. A blank broker list leaves events
// disabled.
func InitializeEvents(cfg Config) {
	if cfg.KafkaBrokers == "" {
		return
	}

	Events = &Notifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(cfg.KafkaBrokers, ",")...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
		topicBetPlaced:       cfg.TopicBetPlaced,
		topicDepositCredited: cfg.TopicDepositCredited,
		topicCurseTriggered:  cfg.TopicCurseTriggered,
	}
}

// CloseEvents flushes and closes the writer.
func CloseEvents() {
	if Events != nil && Events.writer != nil {
		_ = Events.writer.Close()
	}
}

func (n *Notifier) publish(topic string, key string, payload interface{}) {
	value, err := json.Marshal(payload)
	if err != nil {
		Log.Error("failed to marshal event", zap.String("topic", topic), zap.Error(err))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := n.writer.WriteMessages(ctx, kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		})
		if err != nil {
			Log.Warn("event delivery failed", zap.String("topic", topic), zap.Error(err))
		}
	}()
}

// BetPlaced publishes a bet-placed event.
func (n *Notifier) BetPlaced(receipt *BetReceipt) {
	if n == nil || n.writer == nil {
		return
	}
	n.publish(n.topicBetPlaced, fmt.Sprintf("%d", receipt.UserID), models.BetPlacedEvent{
		EventID:  uuid.NewString(),
		UserID:   receipt.UserID,
		Game:     receipt.Game,
		Stake:    receipt.Stake.String(),
		PlacedAt: receipt.PlacedAt,
	})
}

// DepositCredited publishes a deposit-credited event.
func (n *Notifier) DepositCredited(userID int64, currency, txid string, amount, points decimal.Decimal) {
	if n == nil || n.writer == nil {
		return
	}
	n.publish(n.topicDepositCredited, txid, models.DepositCreditedEvent{
		EventID:    uuid.NewString(),
		UserID:     userID,
		Currency:   currency,
		Txid:       txid,
		Amount:     amount.String(),
		Points:     points.String(),
		CreditedAt: time.Now(),
	})
}

// CurseTriggered publishes a curse-triggered event.
func (n *Notifier) CurseTriggered(userID int64, game string) {
	if n == nil || n.writer == nil {
		return
	}
	n.publish(n.topicCurseTriggered, fmt.Sprintf("%d", userID), models.CurseTriggeredEvent{
		EventID:     uuid.NewString(),
		UserID:      userID,
		Game:        game,
		TriggeredAt: time.Now(),
	})
}
