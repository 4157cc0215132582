package boxtemplate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/catalog"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/auth"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/logger"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/testutil"
)

var (
	admin    = &auth.Session{UserID: 1, Email: "admin@farm.test", IsAdmin: true}
	shopper  = &auth.Session{UserID: 2, Email: "shopper@farm.test"}
	medium   = Key{WeekStartDate: "2024-01-15", BoxSize: "medium"}
	lastWeek = Key{WeekStartDate: "2024-01-08", BoxSize: "medium"}
)

type fixture struct {
	svc      *Service
	products []catalog.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t, &catalog.Product{}, &catalog.BoxSize{}, &TemplateWeek{}, &BoxTemplate{})
	require.NoError(t, db.Exec(`CREATE TABLE weekly_bags (id INTEGER PRIMARY KEY, week_start_date TEXT, box_size TEXT, is_confirmed NUMERIC)`).Error)

	cfg := testutil.Config()
	catalogService := catalog.NewService(db, nil, cfg, logger.Discard())
	svc := NewService(db, catalogService, cfg, logger.Discard())
	svc.now = testutil.Clock(time.Date(2024, 1, 12, 15, 0, 0, 0, time.UTC))

	require.NoError(t, db.Create(&catalog.BoxSize{Name: "medium", DisplayName: "Medium Box", BasePrice: 5000, IsActive: true}).Error)
	products := []catalog.Product{
		{Name: "Carrots", Category: catalog.CategoryProduce, Price: 300, IsAvailable: true},
		{Name: "Eggs", Category: catalog.CategoryProtein, Price: 650, IsAvailable: true},
		{Name: "Oats", Category: catalog.CategoryPantry, Price: 450, IsAvailable: true},
		{Name: "Truffle", Category: catalog.CategoryPremium, Price: 4000, IsAvailable: false},
	}
	require.NoError(t, db.Create(&products).Error)
	return &fixture{svc: svc, products: products}
}

func (f *fixture) add(t *testing.T, key Key, product catalog.Product) *BoxTemplate {
	t.Helper()
	row, err := f.svc.AddProduct(context.Background(), &AddProductRequest{Key: key, ProductID: product.ID})
	require.NoError(t, err)
	return row
}

func TestAddProductAndTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	carrots := f.add(t, medium, f.products[0])
	f.add(t, medium, f.products[1])
	assert.Equal(t, 1, carrots.Quantity)

	_, err := f.svc.AddProduct(ctx, &AddProductRequest{Key: medium, ProductID: f.products[0].ID})
	assert.ErrorIs(t, err, ErrAlreadyInTemplate)

	_, err = f.svc.AddProduct(ctx, &AddProductRequest{Key: medium, ProductID: f.products[3].ID})
	assert.ErrorIs(t, err, catalog.ErrProductUnavailable)

	_, err = f.svc.SetQuantity(ctx, carrots.ID, 3)
	require.NoError(t, err)

	total, err := f.svc.TotalValue(ctx, medium)
	require.NoError(t, err)
	assert.Equal(t, int64(5000+3*300+650), total)

	candidates, err := f.svc.CandidateProducts(ctx, medium)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Oats", candidates[0].Name)
}

func TestSetQuantityZeroDeletesRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	row := f.add(t, medium, f.products[0])
	deleted, err := f.svc.SetQuantity(ctx, row.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, deleted)

	view, err := f.svc.List(ctx, medium)
	require.NoError(t, err)
	assert.Empty(t, view.Rows)

	_, err = f.svc.SetQuantity(ctx, row.ID, 2)
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestListUnknownKeyIsEmpty(t *testing.T) {
	f := newFixture(t)

	view, err := f.svc.List(context.Background(), Key{WeekStartDate: "2024-02-05", BoxSize: "medium"})
	require.NoError(t, err)
	assert.False(t, view.Exists)
	assert.Empty(t, view.Rows)
	assert.Equal(t, int64(5000), view.TotalValue)

	_, err = f.svc.List(context.Background(), Key{WeekStartDate: "2024-02-06", BoxSize: "medium"})
	assert.Error(t, err, "not a Monday")
}

func TestConfirmThenUnconfirmClearsEveryRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.add(t, medium, f.products[0])
	f.add(t, medium, f.products[1])
	f.add(t, medium, f.products[2])
	require.NoError(t, f.svc.db.Exec(`INSERT INTO weekly_bags (week_start_date, box_size, is_confirmed) VALUES
		('2024-01-15', 'medium', 0), ('2024-01-15', 'medium', 0), ('2024-01-15', 'medium', 1), ('2024-01-15', 'small', 0)`).Error)

	confirmed, err := f.svc.Confirm(ctx, admin, medium)
	require.NoError(t, err)
	assert.Equal(t, int64(2), confirmed.AffectedBags)
	assert.Contains(t, confirmed.Message, "2 unconfirmed bag(s)")
	require.Len(t, confirmed.View.Rows, 3)
	for _, row := range confirmed.View.Rows {
		assert.True(t, row.IsConfirmed)
		require.NotNil(t, row.ConfirmedAt)
		require.NotNil(t, row.ConfirmedBy)
		assert.Equal(t, admin.UserID, *row.ConfirmedBy)
	}

	unconfirmed, err := f.svc.Unconfirm(ctx, admin, medium)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unconfirmed.AffectedBags)
	for _, row := range unconfirmed.View.Rows {
		assert.False(t, row.IsConfirmed)
		assert.Nil(t, row.ConfirmedAt)
		assert.Nil(t, row.ConfirmedBy)
	}
	assert.Equal(t, 3, unconfirmed.View.Version)
}

func TestConfirmGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Confirm(ctx, shopper, medium)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Confirm(ctx, admin, medium)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	row := f.add(t, medium, f.products[0])

	_, err = f.svc.Confirm(ctx, admin, medium)
	require.NoError(t, err)

	// confirming twice is a no-op
	again, err := f.svc.Confirm(ctx, admin, medium)
	require.NoError(t, err)
	assert.Equal(t, 2, again.View.Version)

	_, err = f.svc.SetQuantity(ctx, row.ID, 4)
	assert.ErrorIs(t, err, ErrTemplateConfirmed)
	_, err = f.svc.AddProduct(ctx, &AddProductRequest{Key: medium, ProductID: f.products[1].ID})
	assert.ErrorIs(t, err, ErrTemplateConfirmed)
	assert.ErrorIs(t, f.svc.DeleteWeek(ctx, medium), ErrTemplateConfirmed)
}

func TestConfirmRejectsEmptyTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	row := f.add(t, medium, f.products[0])
	_, err := f.svc.SetQuantity(ctx, row.ID, 0)
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, admin, medium)
	assert.ErrorIs(t, err, ErrEmptyTemplate)
}

func TestCopyFromPreviousWeek(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.CopyFromPreviousWeek(ctx, medium)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Copied)
	assert.NotEmpty(t, result.Notice)

	eggs := f.add(t, lastWeek, f.products[1])
	_, err = f.svc.SetQuantity(ctx, eggs.ID, 2)
	require.NoError(t, err)
	f.add(t, lastWeek, f.products[2])

	f.add(t, medium, f.products[0])

	result, err = f.svc.CopyFromPreviousWeek(ctx, medium)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-08", result.SourceWeek)
	assert.Equal(t, 2, result.Copied)

	view, err := f.svc.List(ctx, medium)
	require.NoError(t, err)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "Eggs", view.Rows[0].ProductName)
	assert.Equal(t, 2, view.Rows[0].Quantity)
	assert.Equal(t, "Oats", view.Rows[1].ProductName)
	assert.Equal(t, 1, view.Rows[1].Quantity)
}

func TestDeleteWeek(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.add(t, medium, f.products[0])
	require.NoError(t, f.svc.DeleteWeek(ctx, medium))

	view, err := f.svc.List(ctx, medium)
	require.NoError(t, err)
	assert.False(t, view.Exists)

	assert.ErrorIs(t, f.svc.DeleteWeek(ctx, medium), ErrTemplateNotFound)
}

func TestMixedCaseBoxSizeUsesStoredName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	shouting := Key{WeekStartDate: "2024-01-15", BoxSize: " Medium "}
	f.add(t, Key{WeekStartDate: "2024-01-08", BoxSize: "MEDIUM"}, f.products[1])
	f.add(t, shouting, f.products[0])
	require.NoError(t, f.svc.db.Exec(`INSERT INTO weekly_bags (week_start_date, box_size, is_confirmed) VALUES ('2024-01-15', 'medium', 0)`).Error)

	copied, err := f.svc.CopyFromPreviousWeek(ctx, shouting)
	require.NoError(t, err)
	assert.Equal(t, 1, copied.Copied)

	confirmed, err := f.svc.Confirm(ctx, admin, shouting)
	require.NoError(t, err)
	assert.Equal(t, int64(1), confirmed.AffectedBags)
	assert.Equal(t, "medium", confirmed.View.BoxSize)

	lines, err := f.svc.LinesFor(ctx, "2024-01-15", "medium")
	require.NoError(t, err)
	assert.True(t, lines.Exists)
	assert.True(t, lines.IsConfirmed)
	require.Len(t, lines.Items, 1)
	assert.Equal(t, f.products[1].ID, lines.Items[0].ProductID)

	view, err := f.svc.List(ctx, medium)
	require.NoError(t, err)
	assert.True(t, view.Exists)
	assert.Len(t, view.Rows, 1)
}
