package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCooldownStore_Acquire(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisCooldownStore(db, "sf")

	now := time.Date(2025, 3, 14, 14, 30, 0, 0, time.UTC)
	window := 5 * time.Minute

	mock.ExpectEvalSha(acquireScript.Hash(), []string{"sf:SPY|687.50|BUY"}, now.UnixMilli(), window.Milliseconds()).
		SetVal([]interface{}{int64(1), now.UnixMilli()})

	ok, last, err := store.Acquire(context.Background(), "SPY|687.50|BUY", now, window)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, last.Equal(now))

	later := now.Add(time.Minute)
	mock.ExpectEvalSha(acquireScript.Hash(), []string{"sf:SPY|687.50|BUY"}, later.UnixMilli(), window.Milliseconds()).
		SetVal([]interface{}{int64(0), now.UnixMilli()})

	ok, last, err = store.Acquire(context.Background(), "SPY|687.50|BUY", later, window)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, last.Equal(now), "suppressed attempt reports the original fire time")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCooldownStore_Error(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisCooldownStore(db, "")

	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectEvalSha(acquireScript.Hash(), []string{"cooldown:QQQ|400.00|SELL"}, now.UnixMilli(), int64(300000)).
		SetErr(errors.New("connection refused"))

	ok, _, err := store.Acquire(context.Background(), "QQQ|400.00|SELL", now, 5*time.Minute)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "connection refused")
}
