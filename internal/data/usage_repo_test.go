package data

import (
	"context"
	"testing"
	"time"

	"describe-service/internal/biz"

	"github.com/stretchr/testify/require"
)

func TestUsageRepoAccumulatesOncePerSession(t *testing.T) {
	d, _ := newTestData(t)
	repo := NewUsageRepo(d, testLogger())
	ctx := context.Background()
	march := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	first := &biz.BatchCompletedEvent{SessionID: "s1", UserID: "u1", Total: 4, Successful: 3, Failed: 1, CreditsSpent: 3, CompletedAt: march}
	require.NoError(t, repo.ApplyBatchCompleted(ctx, []*biz.BatchCompletedEvent{first}))
	// 重复投递
	require.NoError(t, repo.ApplyBatchCompleted(ctx, []*biz.BatchCompletedEvent{first}))

	second := &biz.BatchCompletedEvent{SessionID: "s2", UserID: "u1", Total: 2, Successful: 2, CreditsSpent: 2, CompletedAt: march.Add(time.Hour)}
	april := &biz.BatchCompletedEvent{SessionID: "s3", UserID: "u1", Total: 1, Failed: 1, CompletedAt: march.AddDate(0, 1, 0)}
	require.NoError(t, repo.ApplyBatchCompleted(ctx, []*biz.BatchCompletedEvent{second, april}))

	stats, err := repo.ListByUser(ctx, "u1", 12)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	require.Equal(t, "2026-04", stats[0].Month)
	require.Equal(t, 1, stats[0].Batches)
	require.Equal(t, 1, stats[0].ItemsFailed)

	require.Equal(t, "2026-03", stats[1].Month)
	require.Equal(t, 2, stats[1].Batches)
	require.Equal(t, 5, stats[1].ItemsSucceeded)
	require.Equal(t, 1, stats[1].ItemsFailed)
	require.Equal(t, int64(5), stats[1].CreditsSpent)
}
