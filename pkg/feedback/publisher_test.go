package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/care-matching/pkg/core/model"
)

type fakeStream struct {
	added []*redis.XAddArgs
	err   error
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.added = append(f.added, a)
	return redis.NewStringResult("1-0", f.err)
}

func decided() *model.Suggestion {
	suggested, final := int64(7), int64(9)
	score := 0.81
	latency := int64(120)
	return &model.Suggestion{
		ID:                    "s-1",
		OrganizationID:        1,
		Outcome:               model.OutcomeModified,
		SuggestedStaffID:      &suggested,
		FinalStaffID:          &final,
		MatchTier:             model.TierStrong,
		ConfidenceScore:       &score,
		Modifications:         []model.Modification{{Field: "staff_id", From: "7", To: "9"}},
		TimeToDecisionSeconds: &latency,
	}
}

func TestPublishOutcome_AddsEventToStream(t *testing.T) {
	stream := &fakeStream{}
	p := newRedisPublisher(stream, "", 1000)
	p.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, p.PublishOutcome(context.Background(), decided()))

	require.Len(t, stream.added, 1)
	args := stream.added[0]
	assert.Equal(t, DefaultStream, args.Stream)
	assert.Equal(t, int64(1000), args.MaxLen)
	assert.True(t, args.Approx)

	values := args.Values.(map[string]interface{})
	assert.Equal(t, "s-1", values["suggestion_id"])
	assert.Equal(t, "modified", values["outcome"])
	assert.Equal(t, int64(1700000000), values["timestamp"])

	var event Event
	require.NoError(t, json.Unmarshal([]byte(values["data"].(string)), &event))
	assert.Equal(t, int64(9), *event.FinalStaffID)
	assert.Equal(t, model.TierStrong, event.MatchTier)
	assert.Len(t, event.Modifications, 1)
}

func TestPublishOutcome_WrapsStreamError(t *testing.T) {
	stream := &fakeStream{err: errors.New("connection refused")}
	p := newRedisPublisher(stream, "outcomes", 0)

	err := p.PublishOutcome(context.Background(), decided())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "outcomes")
	assert.Zero(t, stream.added[0].MaxLen)
}
