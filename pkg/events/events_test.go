package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/milan604/hr-console/pkg/logger"
)

func TestEncodeDecode(t *testing.T) {
	in := RoleChange{
		Subject:    "user-1",
		Action:     ActionAssigned,
		Role:       "hr-manager",
		Roles:      []string{"employee", "hr-manager"},
		OccurredAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	raw, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeRejectsInvalid(t *testing.T) {
	_, err := Decode([]byte(`{"subject":"","action":"assigned"}`))
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = Decode([]byte(`{"subject":"u","action":"promoted"}`))
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = Decode([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

type mockWriter struct{ mock.Mock }

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

func (m *mockWriter) Close() error { return m.Called().Error(0) }

func TestKafkaPublisherKeysBySubject(t *testing.T) {
	w := new(mockWriter)
	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 || string(msgs[0].Key) != "user-7" {
			return false
		}
		e, err := Decode(msgs[0].Value)
		return err == nil && e.Role == "admin" && !e.OccurredAt.IsZero()
	})).Return(nil).Once()

	p := NewKafkaPublisher(w, logger.NewNop())
	err := p.PublishRoleChange(context.Background(), RoleChange{
		Subject: "user-7", Action: ActionAssigned, Role: "admin", Roles: []string{"admin"},
	})

	require.NoError(t, err)
	w.AssertExpectations(t)
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	w := new(mockWriter)
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	p := NewKafkaPublisher(w, logger.NewNop())
	err := p.PublishRoleChange(context.Background(), RoleChange{Subject: "u", Action: ActionRevoked})

	assert.ErrorContains(t, err, "broker down")
}

type sliceReader struct {
	msgs   []kafka.Message
	closed bool
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *sliceReader) Close() error {
	r.closed = true
	return nil
}

func TestConsumerDispatchesAndSkipsMalformed(t *testing.T) {
	good, err := Encode(RoleChange{Subject: "user-1", Action: ActionRevoked, Role: "admin"})
	require.NoError(t, err)

	reader := &sliceReader{msgs: []kafka.Message{
		{Value: []byte("{broken"), Offset: 1},
		{Value: good, Offset: 2},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	var got []RoleChange
	handler := func(_ context.Context, e RoleChange) error {
		got = append(got, e)
		cancel()
		return nil
	}

	err = NewConsumer(reader, handler, logger.NewNop(), nil).Run(ctx)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "user-1", got[0].Subject)
	assert.True(t, reader.closed)
}

type failingReader struct{}

func (failingReader) ReadMessage(context.Context) (kafka.Message, error) {
	return kafka.Message{}, errors.New("group coordinator not available")
}

func (failingReader) Close() error { return nil }

func TestConsumerReturnsReadErrors(t *testing.T) {
	c := NewConsumer(failingReader{}, func(context.Context, RoleChange) error { return nil }, logger.NewNop(), nil)

	err := c.Run(context.Background())
	assert.ErrorContains(t, err, "group coordinator")
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.PublishRoleChange(context.Background(), RoleChange{}))
}

func TestLocalPublisher(t *testing.T) {
	var got []RoleChange
	p := LocalPublisher{Handler: func(_ context.Context, e RoleChange) error {
		got = append(got, e)
		return nil
	}}
	e := RoleChange{Subject: "alice", Action: ActionRevoked, Role: "admin"}
	require.NoError(t, p.PublishRoleChange(context.Background(), e))
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Subject)

	assert.ErrorIs(t, p.PublishRoleChange(context.Background(), RoleChange{}), ErrInvalidEvent)
	assert.NoError(t, LocalPublisher{}.PublishRoleChange(context.Background(), e))
}
