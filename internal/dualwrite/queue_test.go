package dualwrite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yln-platform/mentorship-backend/pkg/enums"
)

func TestFetchDueReturnsOldestFirst(t *testing.T) {
	database := newTestDatabase(t)
	queue := newQueueRepository(database.conn)
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := queue.Enqueue(context.Background(), enums.EntityMentors, enums.OpInsert,
			Record{"email": "m@yln.org"}, now, errors.New("sheet unavailable"))
		require.NoError(t, err)
	}

	due, err := queue.FetchDue(context.Background(), now, 2)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.Equal(t, uint(1), due[0].ID)
	require.Equal(t, uint(2), due[1].ID)
}

func TestEnqueueMintsUniqueIdempotencyKeys(t *testing.T) {
	database := newTestDatabase(t)
	queue := newQueueRepository(database.conn)
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

	first, err := queue.Enqueue(context.Background(), enums.EntityMentors, enums.OpInsert,
		Record{"email": "m@yln.org"}, now, errors.New("sheet unavailable"))
	require.NoError(t, err)
	second, err := queue.Enqueue(context.Background(), enums.EntityMentors, enums.OpInsert,
		Record{"email": "m@yln.org"}, now, errors.New("sheet unavailable"))
	require.NoError(t, err)

	require.NotEmpty(t, first.IdempotencyKey)
	require.NotEmpty(t, second.IdempotencyKey)
	require.NotEqual(t, first.IdempotencyKey, second.IdempotencyKey)
}

func TestMarkProcessingClaimsARowExactlyOnce(t *testing.T) {
	database := newTestDatabase(t)
	queue := newQueueRepository(database.conn)
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

	write, err := queue.Enqueue(context.Background(), enums.EntityMentors, enums.OpInsert,
		Record{"email": "m@yln.org"}, now, errors.New("sheet unavailable"))
	require.NoError(t, err)

	claimed, err := queue.MarkProcessing(context.Background(), write.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, err = queue.MarkProcessing(context.Background(), write.ID)
	require.NoError(t, err)
	require.False(t, claimed)
}
