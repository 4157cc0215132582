package delivery

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/contact"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/logger"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/testutil"
)

func newService(t *testing.T, withRedis bool) *Service {
	t.Helper()
	db := testutil.NewDB(t, &ZipCode{})
	svc := NewService(db, nil, testutil.Config(), logger.Discard())
	if withRedis {
		svc.redisClient, _ = testutil.NewRedis(t)
	}
	return svc
}

func TestCreateAndCheck(t *testing.T) {
	svc := newService(t, false)
	ctx := context.Background()

	created, err := svc.Create(ctx, &ZipCodeRequest{Zip: " 62704", City: "Springfield", DeliveryDay: "Friday"})
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	_, err = svc.Create(ctx, &ZipCodeRequest{Zip: "62704"})
	assert.ErrorIs(t, err, ErrDuplicateZip)
	_, err = svc.Create(ctx, &ZipCodeRequest{Zip: "627"})
	assert.ErrorIs(t, err, contact.ErrInvalidZip)

	result, err := svc.Check(ctx, "62704")
	require.NoError(t, err)
	assert.True(t, result.Served)
	assert.Equal(t, "Friday", result.DeliveryDay)

	result, err = svc.Check(ctx, "10001")
	require.NoError(t, err)
	assert.False(t, result.Served)
}

func TestInactiveZipIsNotServed(t *testing.T) {
	svc := newService(t, false)
	ctx := context.Background()

	inactive := false
	created, err := svc.Create(ctx, &ZipCodeRequest{Zip: "62704", IsActive: &inactive})
	require.NoError(t, err)

	served, err := svc.IsServed(ctx, "62704")
	require.NoError(t, err)
	assert.False(t, served)

	active := true
	_, err = svc.Update(ctx, created.ID, &ZipCodeRequest{Zip: "62704", City: "Springfield", IsActive: &active})
	require.NoError(t, err)

	served, err = svc.IsServed(ctx, "62704")
	require.NoError(t, err)
	assert.True(t, served)
}

func TestIsServedUsesCacheAndInvalidates(t *testing.T) {
	svc := newService(t, true)
	ctx := context.Background()

	first, err := svc.Create(ctx, &ZipCodeRequest{Zip: "62704"})
	require.NoError(t, err)

	served, err := svc.IsServed(ctx, "62704")
	require.NoError(t, err)
	assert.True(t, served)
	members, err := svc.redisClient.SMembers(ctx, servedZipsKey).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"62704"}, members)

	require.NoError(t, svc.Delete(ctx, first.ID))
	served, err = svc.IsServed(ctx, "62704")
	require.NoError(t, err)
	assert.False(t, served)

	assert.ErrorIs(t, svc.Delete(ctx, first.ID), ErrZipNotFound)
}

func TestUpdateRejectsDuplicate(t *testing.T) {
	svc := newService(t, false)
	ctx := context.Background()

	_, err := svc.Create(ctx, &ZipCodeRequest{Zip: "62704"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, &ZipCodeRequest{Zip: "62701"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, second.ID, &ZipCodeRequest{Zip: "62704"})
	assert.ErrorIs(t, err, ErrDuplicateZip)
	_, err = svc.Update(ctx, 999, &ZipCodeRequest{Zip: "62705"})
	assert.ErrorIs(t, err, ErrZipNotFound)
}

func TestListAndExport(t *testing.T) {
	svc := newService(t, false)
	ctx := context.Background()

	for _, req := range []ZipCodeRequest{
		{Zip: "62704", City: "Springfield"},
		{Zip: "61820", City: "Champaign"},
	} {
		_, err := svc.Create(ctx, &req)
		require.NoError(t, err)
	}

	zips, err := svc.List(ctx, ListFilter{Search: "spring"})
	require.NoError(t, err)
	require.Len(t, zips, 1)
	assert.Equal(t, "62704", zips[0].Zip)

	data, filename, err := svc.ExportCSV(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "zip_codes_"))
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ZIP,City,Delivery Day,Active,Created At", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "61820,Champaign"))
}
