package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
)

func makeEvent(threadID string, number int, at time.Time) model.ReviewRequested {
	return model.ReviewRequested{
		ThreadID:       threadID,
		Number:         number,
		PullRequestURL: "https://api.github.com/repos/octo/hello/pulls/42",
		HTMLURL:        "https://github.com/octo/hello/pull/42",
		Author:         "alice",
		RequestedAt:    at,
	}
}

func TestReviewEventRepo_RecordAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewEventRepo(db)
	ctx := context.Background()

	at := time.Date(2026, 3, 1, 9, 0, 0, 123456789, time.UTC)
	ev := makeEvent("101", 42, at)
	ev.ID = "evt-1"

	require.NoError(t, repo.Record(ctx, ev))

	got, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "evt-1", got[0].ID)
	assert.Equal(t, "101", got[0].ThreadID)
	assert.Equal(t, 42, got[0].Number)
	assert.Equal(t, ev.PullRequestURL, got[0].PullRequestURL)
	assert.Equal(t, ev.HTMLURL, got[0].HTMLURL)
	assert.Equal(t, "alice", got[0].Author)
	assert.True(t, at.Equal(got[0].RequestedAt))
}

func TestReviewEventRepo_AssignsID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewEventRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, makeEvent("101", 42, time.Now())))
	require.NoError(t, repo.Record(ctx, makeEvent("102", 43, time.Now())))

	got, err := repo.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestReviewEventRepo_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewEventRepo(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.Publish(ctx, makeEvent("old", 1, base))
	repo.Publish(ctx, makeEvent("new", 2, base.Add(time.Minute)))
	repo.Publish(ctx, makeEvent("mid", 3, base.Add(30*time.Second)))

	got, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ThreadID)
	assert.Equal(t, "mid", got[1].ThreadID)
}

func TestReviewEventRepo_DuplicateIDRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewEventRepo(db)
	ctx := context.Background()

	ev := makeEvent("101", 42, time.Now())
	ev.ID = "dup"
	require.NoError(t, repo.Record(ctx, ev))
	assert.Error(t, repo.Record(ctx, ev))
}
