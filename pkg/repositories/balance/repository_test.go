package balance

import (
	"context"
	"testing"
	"time"

	"github.com/fadedpez/ledger/pkg/entities"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

func snapshotAt(playerID string, historyType entities.HistoryType, ts time.Time, balance string) *entities.BalanceSnapshot {
	return &entities.BalanceSnapshot{
		PlayerID:    playerID,
		HistoryType: historyType,
		Timestamp:   ts,
		Balance:     decimal.RequireFromString(balance),
	}
}

func ids(snapshots []*entities.BalanceSnapshot) []string {
	out := make([]string, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, s.ID)
	}
	return out
}

// runRepositoryContract exercises the behavior every Repository must share
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("CreateManyAssignsIDsAndRoundTrips", func(t *testing.T) {
		repo := newRepo(t)
		snapshots := []*entities.BalanceSnapshot{
			snapshotAt("p1", entities.HistoryTypeDaily, base, "100.25"),
			snapshotAt("p1", entities.HistoryTypeDaily, base.Add(-time.Hour), "90"),
		}

		require.NoError(t, repo.CreateMany(ctx, snapshots))
		for _, s := range snapshots {
			assert.NotEmpty(t, s.ID)
		}

		got, err := repo.QueryWhere(ctx, Where(Eq(FieldPlayerID, "p1")))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.ElementsMatch(t, ids(snapshots), ids(got))

		for _, s := range got {
			assert.Equal(t, time.UTC, s.Timestamp.Location())
			if s.ID == snapshots[0].ID {
				assert.True(t, base.Equal(s.Timestamp))
				assert.True(t, decimal.RequireFromString("100.25").Equal(s.Balance))
				assert.Equal(t, entities.HistoryTypeDaily, s.HistoryType)
			}
		}
	})

	t.Run("CreateManyEmptyBatch", func(t *testing.T) {
		repo := newRepo(t)
		assert.NoError(t, repo.CreateMany(ctx, nil))
	})

	t.Run("CreateManyRejectsDuplicateIDs", func(t *testing.T) {
		repo := newRepo(t)
		first := snapshotAt("p1", entities.HistoryTypeDaily, base, "1")
		first.ID = "dup"
		require.NoError(t, repo.CreateMany(ctx, []*entities.BalanceSnapshot{first}))

		again := snapshotAt("p1", entities.HistoryTypeDaily, base, "2")
		again.ID = "dup"
		fresh := snapshotAt("p1", entities.HistoryTypeDaily, base, "3")
		assert.Error(t, repo.CreateMany(ctx, []*entities.BalanceSnapshot{fresh, again}))

		got, err := repo.QueryWhere(ctx, Where(Eq(FieldPlayerID, "p1")))
		require.NoError(t, err)
		assert.Len(t, got, 1, "Failed batch should leave nothing behind")
	})

	t.Run("UpsertReplacesByID", func(t *testing.T) {
		repo := newRepo(t)
		snapshot := snapshotAt("p1", entities.HistoryTypeWeekly, base, "10")
		require.NoError(t, repo.Upsert(ctx, snapshot))
		require.NotEmpty(t, snapshot.ID)

		replacement := snapshotAt("p1", entities.HistoryTypeWeekly, base.Add(time.Minute), "20")
		replacement.ID = snapshot.ID
		require.NoError(t, repo.Upsert(ctx, replacement))

		got, err := repo.QueryWhere(ctx, Where(Eq(FieldPlayerID, "p1")))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, decimal.NewFromInt(20).Equal(got[0].Balance))
		assert.True(t, base.Add(time.Minute).Equal(got[0].Timestamp))
	})

	t.Run("QueryWhereIsConjunctive", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.CreateMany(ctx, []*entities.BalanceSnapshot{
			snapshotAt("p1", entities.HistoryTypeDaily, base, "1"),
			snapshotAt("p1", entities.HistoryTypeDaily, base.Add(-25*time.Hour), "2"),
			snapshotAt("p1", entities.HistoryTypeWeekly, base, "3"),
			snapshotAt("p2", entities.HistoryTypeDaily, base, "4"),
		}))

		criteria := Where(
			Eq(FieldPlayerID, "p1"),
			Eq(FieldHistoryType, string(entities.HistoryTypeDaily)),
		).AtOrAfter(base.Add(-24 * time.Hour).UnixMilli())

		got, err := repo.QueryWhere(ctx, criteria)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, decimal.NewFromInt(1).Equal(got[0].Balance))
	})

	t.Run("RangeBoundaries", func(t *testing.T) {
		repo := newRepo(t)
		cutoff := base.Add(-time.Hour)
		atCutoff := snapshotAt("p1", entities.HistoryTypeDaily, cutoff, "1")
		justBefore := snapshotAt("p1", entities.HistoryTypeDaily, cutoff.Add(-time.Millisecond), "2")
		require.NoError(t, repo.CreateMany(ctx, []*entities.BalanceSnapshot{atCutoff, justBefore}))

		included, err := repo.QueryWhere(ctx, Where(Eq(FieldPlayerID, "p1")).AtOrAfter(cutoff.UnixMilli()))
		require.NoError(t, err)
		assert.Equal(t, []string{atCutoff.ID}, ids(included))

		excluded, err := repo.QueryWhere(ctx, Where(Eq(FieldPlayerID, "p1")).Before(cutoff.UnixMilli()))
		require.NoError(t, err)
		assert.Equal(t, []string{justBefore.ID}, ids(excluded))
	})

	t.Run("DeleteMatchingReportsCount", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.CreateMany(ctx, []*entities.BalanceSnapshot{
			snapshotAt("p1", entities.HistoryTypeDaily, base.Add(-48*time.Hour), "1"),
			snapshotAt("p2", entities.HistoryTypeDaily, base.Add(-30*time.Hour), "2"),
			snapshotAt("p1", entities.HistoryTypeDaily, base, "3"),
			snapshotAt("p1", entities.HistoryTypePermanent, base.Add(-48*time.Hour), "4"),
		}))

		deleted, err := repo.DeleteMatching(ctx,
			Where(Eq(FieldHistoryType, string(entities.HistoryTypeDaily))).Before(base.Add(-24*time.Hour).UnixMilli()))
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		remaining, err := repo.QueryWhere(ctx, Criteria{})
		require.NoError(t, err)
		assert.Len(t, remaining, 2)

		deleted, err = repo.DeleteMatching(ctx,
			Where(Eq(FieldHistoryType, string(entities.HistoryTypeDaily))).Before(base.Add(-24*time.Hour).UnixMilli()))
		require.NoError(t, err)
		assert.Equal(t, int64(0), deleted, "Deleting again should be a no-op")
	})

	t.Run("DeleteMatchingRequiresPredicate", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.DeleteMatching(ctx, Criteria{})
		assert.ErrorIs(t, err, ErrUnboundedDelete)
	})

	t.Run("UnsupportedPredicate", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.QueryWhere(ctx, Where(Eq(Field("balance"), "1")))
		assert.ErrorIs(t, err, ErrUnsupportedPredicate)
	})
}

func TestMemoryRepository(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) Repository {
		return NewMemoryRepository()
	})
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	snapshot := snapshotAt("p1", entities.HistoryTypeDaily, base, "5")
	require.NoError(t, repo.Upsert(ctx, snapshot))

	snapshot.PlayerID = "mutated"

	got, err := repo.QueryWhere(ctx, Where(Eq(FieldPlayerID, "p1")))
	require.NoError(t, err)
	require.Len(t, got, 1)

	got[0].Balance = decimal.NewFromInt(999)
	again, err := repo.QueryWhere(ctx, Where(Eq(FieldPlayerID, "p1")))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(again[0].Balance))
	assert.Equal(t, 1, repo.Len())
}
