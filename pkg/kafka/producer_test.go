package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestPublishMessageEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "gzip")

	payload := []map[string]interface{}{{"message": "API错误", "count": 2}}
	require.NoError(t, p.PublishMessage(context.Background(), "personal-qt.logs", payload))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "personal-qt.logs", w.msgs[0].Topic)
	assert.Nil(t, w.msgs[0].Key)

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "API错误", got[0]["message"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishBatchPassesBytesThrough(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "gzip")

	require.NoError(t, p.PublishBatch(context.Background(), "t", []Message{
		{Key: []byte("a"), Value: []byte("raw")},
		{Key: []byte("b"), Value: "text"},
	}))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "raw", string(w.msgs[0].Value))
	assert.Equal(t, "text", string(w.msgs[1].Value))

	require.NoError(t, p.PublishBatch(context.Background(), "t", nil))
	assert.Len(t, w.msgs, 2)
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducerWithWriter(&fakeWriter{err: boom}, "gzip")

	err := p.Publish(context.Background(), "t", nil, "x")
	assert.ErrorIs(t, err, boom)
}
