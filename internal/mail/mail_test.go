package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/sessionguard/internal/logger"
	"github.com/dtroode/sessionguard/internal/mocks"
	"github.com/dtroode/sessionguard/internal/model"
	"github.com/dtroode/sessionguard/internal/testutil"
)

func TestLogSender_Send(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, int(slog.LevelInfo), "text")

	err := NewLogSender(log).Send(context.Background(), model.Message{To: "a@b.c", Subject: "Hi"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "to=a@b.c")
	assert.Contains(t, buf.String(), "subject=Hi")
}

func TestOutboxSender_Send(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	storage := &mocks.Storage{}

	var uploaded []byte
	storage.On("Upload", mock.Anything,
		mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "outbox/") && strings.HasSuffix(key, ".json")
		}),
		mock.Anything, mock.Anything, "application/json",
	).Run(func(args mock.Arguments) {
		data, err := io.ReadAll(args.Get(2).(io.Reader))
		require.NoError(t, err)
		assert.Equal(t, int64(len(data)), args.Get(3).(int64))
		uploaded = data
	}).Return(nil)

	err := NewOutboxSender(storage, clock).Send(context.Background(), model.Message{To: "a@b.c", Subject: "Verify", Body: "link"})
	require.NoError(t, err)
	storage.AssertExpectations(t)

	var env envelope
	require.NoError(t, json.Unmarshal(uploaded, &env))
	assert.Equal(t, "a@b.c", env.To)
	assert.Equal(t, "Verify", env.Subject)
	assert.Equal(t, "link", env.Body)
	assert.True(t, env.CreatedAt.Equal(clock.Now()))
	assert.NotEmpty(t, env.ID)
}

func TestOutboxSender_Send_StorageError(t *testing.T) {
	storage := &mocks.Storage{}
	storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket gone"))

	err := NewOutboxSender(storage, model.SystemClock{}).Send(context.Background(), model.Message{To: "a@b.c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to enqueue message")
}
