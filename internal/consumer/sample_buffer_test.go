package consumer

import (
	"context"
	"testing"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupBuffer(t *testing.T, capacity int) (*miniredis.Miniredis, *repository.MemorySamplesRepo, *SampleBuffer) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inner := repository.NewMemorySamplesRepo(0)
	return mr, inner, NewSampleBuffer(inner, client, "", capacity, zap.NewNop())
}

func TestSampleBuffer_AppendWritesThroughAndTrims(t *testing.T) {
	mr, inner, buf := setupBuffer(t, 3)
	ctx := context.Background()

	for ts := int64(1); ts <= 5; ts++ {
		require.NoError(t, buf.Append(ctx, models.Sample{Timestamp: ts, Context: "face_down"}))
	}

	items, err := mr.List(DefaultRecentKey)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	stored, err := inner.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 5, "authoritative store keeps everything")

	recent, err := buf.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, int64(5), recent[0].Timestamp)
	assert.Equal(t, int64(3), recent[2].Timestamp)
	assert.Equal(t, "face_down", recent[0].Context)
}

func TestSampleBuffer_FallsBackWhenRedisDown(t *testing.T) {
	mr, _, buf := setupBuffer(t, 30)
	ctx := context.Background()

	require.NoError(t, buf.Append(ctx, models.Sample{Timestamp: 1}))
	mr.Close()

	// Redis 不可用时写入仍然成功
	require.NoError(t, buf.Append(ctx, models.Sample{Timestamp: 2}))

	recent, err := buf.Recent(ctx, 30)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(2), recent[0].Timestamp)
}

func TestSampleBuffer_EmptyBufferReadsStore(t *testing.T) {
	_, inner, buf := setupBuffer(t, 30)
	ctx := context.Background()

	require.NoError(t, inner.Append(ctx, models.Sample{Timestamp: 7}))

	recent, err := buf.Recent(ctx, 30)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, int64(7), recent[0].Timestamp)
}

func TestSampleBuffer_CorruptEntryReadsStore(t *testing.T) {
	mr, inner, buf := setupBuffer(t, 30)
	ctx := context.Background()

	require.NoError(t, inner.Append(ctx, models.Sample{Timestamp: 9}))
	_, err := mr.Lpush(DefaultRecentKey, "{not json")
	require.NoError(t, err)

	recent, err := buf.Recent(ctx, 30)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, int64(9), recent[0].Timestamp)
}

func TestSampleBuffer_Warm(t *testing.T) {
	mr, inner, buf := setupBuffer(t, 3)
	ctx := context.Background()

	for ts := int64(1); ts <= 4; ts++ {
		require.NoError(t, inner.Append(ctx, models.Sample{Timestamp: ts}))
	}
	_, err := mr.Lpush(DefaultRecentKey, "stale")
	require.NoError(t, err)

	require.NoError(t, buf.Warm(ctx))

	recent, err := buf.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []int64{4, 3, 2}, []int64{recent[0].Timestamp, recent[1].Timestamp, recent[2].Timestamp})
}
