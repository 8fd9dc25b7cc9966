package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SubmissionEvent is broadcast after a submission has been graded and recorded.
type SubmissionEvent struct {
	Source       string    `json:"source"`
	UserID       uint      `json:"user_id"`
	ProblemID    uint      `json:"problem_id"`
	SubmissionID uint      `json:"submission_id"`
	Status       string    `json:"status"`
	SentAt       time.Time `json:"sent_at"`
}

// Publisher fans submission events out to the configured brokers.
type Publisher interface {
	PublishSubmission(ctx context.Context, event SubmissionEvent)
	Listen(ctx context.Context, handler func(SubmissionEvent))
}

type publisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
	now          func() time.Time
}

// NewPublisher builds a publisher. Either broker may be nil.
func NewPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) Publisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":submissions"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".submissions"
	}

	return &publisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "submission_events").Logger(),
		now:          time.Now,
	}
}

// PublishSubmission never fails the caller; broker errors are logged.
func (p *publisher) PublishSubmission(ctx context.Context, event SubmissionEvent) {
	event.Source = p.nodeID
	if event.SentAt.IsZero() {
		event.SentAt = p.now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to encode submission event")
		return
	}

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			p.logger.Warn().Err(err).Str("channel", p.redisChannel).Msg("failed to publish submission event to redis")
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			p.logger.Warn().Err(err).Str("subject", p.natsSubject).Msg("failed to publish submission event to nats")
		}
	}
}

// Listen delivers events published by other nodes until ctx is cancelled. Every node receives
// every event. Only one broker is consumed: NATS when connected, redis otherwise.
func (p *publisher) Listen(ctx context.Context, handler func(SubmissionEvent)) {
	if p.nats != nil && p.natsSubject != "" && p.nats.IsConnected() {
		p.consumeNATS(ctx, handler)
		return
	}
	if p.redis != nil && p.redisChannel != "" {
		go p.consumeRedis(ctx, handler)
	}
}

func (p *publisher) consumeRedis(ctx context.Context, handler func(SubmissionEvent)) {
	pubsub := p.redis.Subscribe(ctx, p.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			p.logger.Error().Err(err).Msg("submission redis subscription closed")
			return
		}
		p.dispatch([]byte(msg.Payload), handler)
	}
}

func (p *publisher) consumeNATS(ctx context.Context, handler func(SubmissionEvent)) {
	sub, err := p.nats.Subscribe(p.natsSubject, func(msg *nats.Msg) {
		p.dispatch(msg.Data, handler)
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to subscribe to nats submissions subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			p.logger.Warn().Err(err).Msg("failed to drain submission nats subscription")
		}
	}()
}

func (p *publisher) dispatch(payload []byte, handler func(SubmissionEvent)) {
	var event SubmissionEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		p.logger.Warn().Err(err).Msg("invalid submission event payload")
		return
	}

	if event.Source == p.nodeID {
		return
	}

	handler(event)
}
