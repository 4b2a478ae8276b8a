// Package feedback publishes suggestion outcomes to a Redis stream for
// acceptance analytics and model tuning.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/carebridge/care-matching/pkg/core/model"
)

// DefaultStream is the stream outcome events are added to
const DefaultStream = "care-matching:suggestion-outcomes"

// Event is the payload of one ledger transition
type Event struct {
	SuggestionID          string               `json:"suggestionId"`
	OrganizationID        int64                `json:"organizationId"`
	Outcome               model.Outcome        `json:"outcome"`
	SuggestedStaffID      *int64               `json:"suggestedStaffId"`
	FinalStaffID          *int64               `json:"finalStaffId"`
	MatchTier             model.MatchTier      `json:"matchTier"`
	ConfidenceScore       *float64             `json:"confidenceScore"`
	Modifications         []model.Modification `json:"modifications"`
	TimeToDecisionSeconds *int64               `json:"timeToDecisionSeconds"`
}

// NewEvent builds the event for a decided suggestion
func NewEvent(s *model.Suggestion) Event {
	return Event{
		SuggestionID:          s.ID,
		OrganizationID:        s.OrganizationID,
		Outcome:               s.Outcome,
		SuggestedStaffID:      s.SuggestedStaffID,
		FinalStaffID:          s.FinalStaffID,
		MatchTier:             s.MatchTier,
		ConfidenceScore:       s.ConfidenceScore,
		Modifications:         s.Modifications,
		TimeToDecisionSeconds: s.TimeToDecisionSeconds,
	}
}

// streamAdder is the slice of the redis client the publisher needs
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisPublisher adds outcome events to a Redis stream
type RedisPublisher struct {
	client streamAdder
	stream string
	maxLen int64
	now    func() time.Time
}

// NewRedisPublisher creates a publisher. A maxLen above zero caps the
// stream approximately at that many entries.
func NewRedisPublisher(client *redis.Client, stream string, maxLen int64) *RedisPublisher {
	return newRedisPublisher(client, stream, maxLen)
}

func newRedisPublisher(client streamAdder, stream string, maxLen int64) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{client: client, stream: stream, maxLen: maxLen, now: time.Now}
}

// PublishOutcome adds the suggestion's outcome to the stream
func (p *RedisPublisher) PublishOutcome(ctx context.Context, s *model.Suggestion) error {
	data, err := json.Marshal(NewEvent(s))
	if err != nil {
		return fmt.Errorf("failed to encode outcome event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"suggestion_id": s.ID,
			"outcome":       string(s.Outcome),
			"data":          string(data),
			"timestamp":     p.now().Unix(),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to add outcome to stream %s: %w", p.stream, err)
	}
	return nil
}

// NopPublisher drops every event. It is used when no stream is configured.
type NopPublisher struct{}

// PublishOutcome does nothing
func (NopPublisher) PublishOutcome(context.Context, *model.Suggestion) error {
	return nil
}
