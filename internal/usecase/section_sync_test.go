package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/todosync/internal/domain/model"
	"github.com/wekeepgrowing/todosync/internal/domain/provider"
	"github.com/wekeepgrowing/todosync/internal/testutil"
)

func TestSectionSyncService_Sync(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewProvider()
	fake.Sections = []provider.Section{
		{ID: "s3", ProjectID: "p1", Name: "Sold", Order: 3},
		{ID: "s1", ProjectID: "p1", Name: "Harvested", Order: 1},
		{ID: "s2", ProjectID: "p1", Name: "Harvested!", Order: 2},
		{ID: "s4", ProjectID: "p1", Name: "Ready to Ship", Order: 4},
	}
	sections := testutil.NewSectionRepo(
		&model.Section{Key: "sold", SectionID: "s3", Name: "Sold", ProjectID: "p1"},
		&model.Section{Key: "ready", SectionID: "s4", Name: "Ready", ProjectID: "p1"},
	)
	svc := NewSectionSyncService(fake, sections, zap.NewNop())

	res, err := svc.Sync(ctx, "p1", false)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Unchanged)
	require.Len(t, res.Rows, 4)
	assert.Equal(t, SectionSyncRow{Status: SectionCreated, Key: "harvested", Name: "Harvested", SectionID: "s1", ProjectID: "p1"}, res.Rows[0])
	assert.Equal(t, "harvested-1", res.Rows[1].Key)
	assert.Equal(t, SectionUnchanged, res.Rows[2].Status)
	assert.Equal(t, SectionSyncRow{Status: SectionUpdated, Key: "ready", Name: "Ready to Ship", SectionID: "s4", ProjectID: "p1"}, res.Rows[3])

	stored, _ := sections.GetBySectionID(ctx, "s2")
	require.NotNil(t, stored)
	assert.Equal(t, "harvested-1", stored.Key)
	renamed, _ := sections.GetByKey(ctx, "ready")
	assert.Equal(t, "Ready to Ship", renamed.Name)

	again, err := svc.Sync(ctx, "p1", false)
	require.NoError(t, err)
	assert.Equal(t, 4, again.Unchanged)
	assert.Zero(t, again.Created+again.Updated)
}

func TestSectionSyncService_Sync_DryRun(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewProvider()
	fake.Sections = []provider.Section{
		{ID: "s1", ProjectID: "p1", Name: "Harvested", Order: 1},
		{ID: "s2", ProjectID: "p1", Name: "Harvested", Order: 2},
	}
	sections := testutil.NewSectionRepo()
	svc := NewSectionSyncService(fake, sections, zap.NewNop())

	res, err := svc.Sync(ctx, "", true)
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, "harvested", res.Rows[0].Key)
	assert.Equal(t, "harvested-1", res.Rows[1].Key)

	all, _ := sections.List(ctx)
	assert.Empty(t, all)
}

func TestSectionSyncService_Sync_ProviderError(t *testing.T) {
	fake := testutil.NewProvider()
	fake.FailNext(testutil.ErrBoom)
	svc := NewSectionSyncService(fake, testutil.NewSectionRepo(), zap.NewNop())

	_, err := svc.Sync(context.Background(), "p1", false)
	assert.ErrorIs(t, err, testutil.ErrBoom)
}
