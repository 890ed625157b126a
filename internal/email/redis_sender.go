package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bibliophile/server/internal/config"
	"bibliophile/server/internal/logging"
)

const (
	outboxTTL  = 15 * time.Minute
	outboxKeep = 20
)

// ErrNoMessage is returned by PopMessage when the outbox for a recipient is empty.
var ErrNoMessage = errors.New("no message in outbox")

// OutboxMessage is the stored form of a message captured by RedisSender.
type OutboxMessage struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	SentAt  string `json:"sent_at"`
}

// RedisSender keeps messages in a per-recipient Redis list instead of
// delivering them, so staging environments and end-to-end checks can read
// what would have been sent.
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

// NewRedisSender creates a new RedisSender
func NewRedisSender(client *redis.Client, cfg *config.Config) *RedisSender {
	return &RedisSender{
		client: client,
		cfg:    cfg,
	}
}

func outboxKey(to string) string {
	return fmt.Sprintf("mockemail:%s", strings.ToLower(to))
}

func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	msg := OutboxMessage{
		To:      strings.Join(to, ", "),
		From:    s.cfg.SmtpFromAddress,
		Subject: subject,
		Body:    string(rawMessage),
		SentAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	for _, recipient := range to {
		key := outboxKey(recipient)
		pipe := s.client.TxPipeline()
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, outboxKeep-1)
		pipe.Expire(ctx, key, outboxTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
		}
		logging.L().Info("email captured in Redis outbox", zap.String("key", key), zap.String("subject", subject))
	}
	return nil
}

// PopMessage removes and returns the newest captured message for to.
func (s *RedisSender) PopMessage(ctx context.Context, to string) (*OutboxMessage, error) {
	data, err := s.client.LPop(ctx, outboxKey(to)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoMessage
		}
		return nil, fmt.Errorf("failed to read outbox for %s: %w", to, err)
	}
	var msg OutboxMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse stored email for %s: %w", to, err)
	}
	return &msg, nil
}
