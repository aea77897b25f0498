package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/washpoint/washpoint-backend/types"
)

func TestRedisNearbyCacheMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cache := NewRedisNearbyCache(rdb, time.Minute)

	mock.ExpectGet("nearby:somekey").RedisNil()

	results, ok := cache.Get(context.Background(), "somekey")
	assert.False(t, ok)
	assert.Nil(t, results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisNearbyCacheRoundTrip(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cache := NewRedisNearbyCache(rdb, time.Minute)

	stored := []types.NearbyProfessional{
		{ProfessionalID: "pro-1", Name: "Jordan", DistanceKm: 0.42},
	}
	data, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectSet("nearby:somekey", data, time.Minute).SetVal("OK")
	cache.Set(context.Background(), "somekey", stored)

	mock.ExpectGet("nearby:somekey").SetVal(string(data))
	results, ok := cache.Get(context.Background(), "somekey")

	assert.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, "pro-1", results[0].ProfessionalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisNearbyCacheDegradesOnFailure(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cache := NewRedisNearbyCache(rdb, time.Minute)

	mock.ExpectGet("nearby:somekey").SetErr(assert.AnError)

	// Backend faults read as a miss; callers fall through to the store.
	results, ok := cache.Get(context.Background(), "somekey")
	assert.False(t, ok)
	assert.Nil(t, results)
}

func TestRedisNearbyCacheCorruptEntry(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cache := NewRedisNearbyCache(rdb, time.Minute)

	mock.ExpectGet("nearby:somekey").SetVal("{not json")

	_, ok := cache.Get(context.Background(), "somekey")
	assert.False(t, ok)
}
