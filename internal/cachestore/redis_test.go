package cachestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestVectorEncoding(t *testing.T) {
	vec := []float32{0.25, -1.5, 3}
	got, err := decodeVector(encodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrCorruptVector)
}

func TestStoreGet(t *testing.T) {
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c := mock.NewClient(ctrl)
		c.EXPECT().
			Do(gomock.Any(), mock.Match("GET", DefaultKeyPrefix+"abc")).
			Return(mock.Result(mock.RedisString(string(encodeVector([]float32{1, 2})))))

		vec, ok, err := NewWithClient(c, "").Get(ctx, "abc")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []float32{1, 2}, vec)
	})

	t.Run("missing key", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c := mock.NewClient(ctrl)
		c.EXPECT().
			Do(gomock.Any(), mock.Match("GET", DefaultKeyPrefix+"abc")).
			Return(mock.Result(mock.RedisNil()))

		vec, ok, err := NewWithClient(c, "").Get(ctx, "abc")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, vec)
	})

	t.Run("connection error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c := mock.NewClient(ctrl)
		c.EXPECT().
			Do(gomock.Any(), mock.Match("GET", "p:abc")).
			Return(mock.ErrorResult(context.DeadlineExceeded))

		_, ok, err := NewWithClient(c, "p:").Get(ctx, "abc")
		assert.False(t, ok)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestStoreSet(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SET" && cmd[1] == DefaultKeyPrefix+"abc" && cmd[3] == "EX" && cmd[4] == "3600"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	err := NewWithClient(c, "").Set(context.Background(), "abc", []float32{1}, time.Hour)
	assert.NoError(t, err)
}

func TestStoreClear(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				return cmd[0] == "SCAN" && cmd[1] == "0"
			})).
			Return(mock.Result(mock.RedisArray(
				mock.RedisString("7"),
				mock.RedisArray(mock.RedisString(DefaultKeyPrefix+"a"), mock.RedisString(DefaultKeyPrefix+"b")),
			))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("DEL", DefaultKeyPrefix+"a", DefaultKeyPrefix+"b")).
			Return(mock.Result(mock.RedisInt64(2))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				return cmd[0] == "SCAN" && cmd[1] == "7"
			})).
			Return(mock.Result(mock.RedisArray(mock.RedisString("0"), mock.RedisArray()))),
	)

	err := NewWithClient(c, "").Clear(context.Background())
	assert.NoError(t, err)
}
