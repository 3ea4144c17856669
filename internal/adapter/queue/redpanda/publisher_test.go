package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"

	"github.com/fairyhunter13/trendpulse/internal/domain"
)

type fakeProducer struct {
	mu          sync.Mutex
	records     []*kgo.Record
	topicCode   int16
	requestErr  error
	produceErr  error
	pingErr     error
	closed      bool
	lastRequest kmsg.Request
}

func (f *fakeProducer) Request(_ context.Context, req kmsg.Request) (kmsg.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRequest = req
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	resp := kmsg.NewCreateTopicsResponse()
	for _, t := range req.(*kmsg.CreateTopicsRequest).Topics {
		rt := kmsg.NewCreateTopicsResponseTopic()
		rt.Topic = t.Topic
		rt.ErrorCode = f.topicCode
		resp.Topics = append(resp.Topics, rt)
	}
	return &resp, nil
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if f.produceErr == nil {
			f.records = append(f.records, r)
		}
		out = append(out, kgo.ProduceResult{Record: r, Err: f.produceErr})
	}
	return out
}

func (f *fakeProducer) Ping(context.Context) error { return f.pingErr }
func (f *fakeProducer) Close()                     { f.closed = true }

func TestPublisher_PublishScan(t *testing.T) {
	fp := &fakeProducer{}
	p, err := newPublisher(context.Background(), fp, "trend-scans")
	require.NoError(t, err)

	req, ok := fp.lastRequest.(*kmsg.CreateTopicsRequest)
	require.True(t, ok)
	require.Len(t, req.Topics, 1)
	assert.Equal(t, "trend-scans", req.Topics[0].Topic)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := domain.ScanEvent{Category: "Tech", Language: domain.LanguageDE, TrendCount: 7, ScannedAt: at}
	require.NoError(t, p.PublishScan(context.Background(), ev))

	require.Len(t, fp.records, 1)
	rec := fp.records[0]
	assert.Equal(t, "trend-scans", rec.Topic)
	assert.Equal(t, "Tech:de", string(rec.Key))
	assert.Equal(t, at, rec.Timestamp)

	var got domain.ScanEvent
	require.NoError(t, json.Unmarshal(rec.Value, &got))
	assert.Equal(t, ev.Category, got.Category)
	assert.Equal(t, 7, got.TrendCount)
	assert.True(t, at.Equal(got.ScannedAt))

	headers := map[string]string{}
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "application/json", headers["content-type"])
	assert.Equal(t, "7", headers["trend-count"])
}

func TestPublisher_PublishScan_ProduceError(t *testing.T) {
	fp := &fakeProducer{produceErr: errors.New("broker gone")}
	p, err := newPublisher(context.Background(), fp, "trend-scans")
	require.NoError(t, err)

	err = p.PublishScan(context.Background(), domain.ScanEvent{Category: "Tech", Language: domain.LanguageEN})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=redpanda.publish_scan")
	assert.Contains(t, err.Error(), "broker gone")
}

func TestPublisher_PingAndClose(t *testing.T) {
	fp := &fakeProducer{pingErr: errors.New("no brokers")}
	p, err := newPublisher(context.Background(), fp, "t")
	require.NoError(t, err)

	assert.ErrorContains(t, p.Ping(context.Background()), "op=redpanda.ping")
	fp.pingErr = nil
	assert.NoError(t, p.Ping(context.Background()))

	p.Close()
	assert.True(t, fp.closed)
}

func TestNewPublisher_Validation(t *testing.T) {
	_, err := NewPublisher(context.Background(), nil, "t")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = NewPublisher(context.Background(), []string{"localhost:9092"}, "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCreateTopicIfNotExists(t *testing.T) {
	ctx := context.Background()

	t.Run("already exists is fine", func(t *testing.T) {
		fp := &fakeProducer{topicCode: kerr.TopicAlreadyExists.Code}
		assert.NoError(t, createTopicIfNotExists(ctx, fp, "t", 1, 1))
	})

	t.Run("broker error code", func(t *testing.T) {
		fp := &fakeProducer{topicCode: kerr.TopicAuthorizationFailed.Code}
		err := createTopicIfNotExists(ctx, fp, "t", 1, 1)
		assert.ErrorIs(t, err, kerr.TopicAuthorizationFailed)
	})

	t.Run("request error", func(t *testing.T) {
		fp := &fakeProducer{requestErr: errors.New("dial")}
		assert.ErrorContains(t, createTopicIfNotExists(ctx, fp, "t", 1, 1), "dial")
	})

	t.Run("argument checks", func(t *testing.T) {
		fp := &fakeProducer{}
		assert.Error(t, createTopicIfNotExists(ctx, fp, "", 1, 1))
		assert.Error(t, createTopicIfNotExists(ctx, fp, "t", 0, 1))
		assert.Error(t, createTopicIfNotExists(ctx, fp, "t", 1, 0))
		assert.Nil(t, fp.lastRequest)
	})

	t.Run("topic creation failure fails the publisher", func(t *testing.T) {
		fp := &fakeProducer{topicCode: kerr.InvalidReplicationFactor.Code}
		_, err := newPublisher(ctx, fp, "t")
		assert.ErrorIs(t, err, kerr.InvalidReplicationFactor)
	})
}
