package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/storage"
)

func TestSubmissionRepo_SaveUpdateList(t *testing.T) {
	ctx := context.Background()
	repo := NewSubmissionRepo()

	now := time.Now()
	require.NoError(t, repo.Save(ctx, &domain.SubmissionRecord{
		Key: "0xold", Status: domain.SubmissionStatusPending, SubmittedAt: now.Add(-time.Minute),
	}))
	require.NoError(t, repo.Save(ctx, &domain.SubmissionRecord{
		Key: "0xnew", Status: domain.SubmissionStatusPending, SubmittedAt: now,
	}))

	require.NoError(t, repo.UpdateStatus(ctx, "0xold", domain.SubmissionStatusFailed, "reverted"))

	rec, err := repo.GetByKey(ctx, "0xold")
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionStatusFailed, rec.Status)
	assert.Equal(t, "reverted", rec.Error)

	list, err := repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "0xnew", list[0].Key)
}

func TestSubmissionRepo_UnknownKey(t *testing.T) {
	repo := NewSubmissionRepo()
	err := repo.UpdateStatus(context.Background(), "missing", domain.SubmissionStatusConfirmed, "")
	assert.ErrorIs(t, err, storage.ErrSubmissionNotFound)

	_, err = repo.GetByKey(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrSubmissionNotFound)
}
