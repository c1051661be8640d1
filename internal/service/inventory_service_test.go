package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/service"
	"github.com/jakecourtright/HayFlow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackService_CreateAndGet(t *testing.T) {
	svc := setupServices(t)
	ctx := testutil.BookkeeperCtx(testutil.OrgA)

	created, err := svc.stacks.Create(ctx, &domain.CreateStackRequest{
		Name:      " Creek lot ",
		Commodity: "Alfalfa",
		BaleSize:  "3x4x8",
		BasePrice: 9,
	})
	require.NoError(t, err)
	assert.Equal(t, "Creek lot", created.Name)
	assert.Equal(t, "3x4", created.BaleSize)
	assert.Equal(t, domain.PriceUnitBale, created.PriceUnit)
	assert.Equal(t, 1200.0, created.ResolvedWeight)
	assert.InDelta(t, 15.0, created.PricePerTon, 1e-9)
	assert.Zero(t, created.CurrentStock)

	barnA := testutil.CreateLocation(t, svc.db, testutil.OrgA, "Barn A", 0)
	barnB := testutil.CreateLocation(t, svc.db, testutil.OrgA, "Barn B", 0)
	testutil.AddTransaction(t, svc.db, testutil.OrgA, domain.TransactionTypeProduction, created.ID, &barnA.ID, 30, 0)
	testutil.AddTransaction(t, svc.db, testutil.OrgA, domain.TransactionTypeProduction, created.ID, &barnB.ID, 20, 0)
	testutil.AddTransaction(t, svc.db, testutil.OrgA, domain.TransactionTypeSale, created.ID, &barnB.ID, 20, 0)

	got, err := svc.stacks.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, got.CurrentStock)
	assert.InDelta(t, 18.0, got.CurrentStockTons, 1e-9)
	require.Len(t, got.Locations, 1)
	assert.Equal(t, "Barn A", got.Locations[0].LocationName)

	list, err := svc.stacks.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 30.0, list[0].CurrentStock)

	others, err := svc.stacks.List(testutil.AdminCtx(testutil.OrgB))
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestStackService_Validation(t *testing.T) {
	svc := setupServices(t)
	ctx := testutil.AdminCtx(testutil.OrgA)
	zero := 0.0

	cases := []domain.CreateStackRequest{
		{Name: "", Commodity: "Alfalfa"},
		{Name: "A", Commodity: " "},
		{Name: "A", Commodity: "Alfalfa", BasePrice: -1},
		{Name: "A", Commodity: "Alfalfa", WeightPerBale: &zero},
		{Name: "A", Commodity: "Alfalfa", PriceUnit: "pound"},
	}
	for _, req := range cases {
		req := req
		_, err := svc.stacks.Create(ctx, &req)
		assert.ErrorIs(t, err, service.ErrValidation, "%+v", req)
	}

	_, err := svc.stacks.Create(testutil.DriverCtx(testutil.OrgA), &domain.CreateStackRequest{Name: "A", Commodity: "B"})
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestStackService_Update(t *testing.T) {
	svc := setupServices(t)
	ctx := testutil.AdminCtx(testutil.OrgA)
	stack := testutil.CreateStack(t, svc.db, testutil.OrgA, "Old", "Grass", "3x3")
	weight := 1000.0

	updated, err := svc.stacks.Update(ctx, stack.ID, &domain.UpdateStackRequest{
		Name:          "New",
		Commodity:     "Grass",
		BaleSize:      "3x3",
		BasePrice:     100,
		PriceUnit:     domain.PriceUnitTon,
		WeightPerBale: &weight,
	})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, 1000.0, updated.ResolvedWeight)
	assert.Equal(t, 100.0, updated.PricePerTon)

	_, err = svc.stacks.Update(testutil.AdminCtx(testutil.OrgB), stack.ID, &domain.UpdateStackRequest{Name: "x", Commodity: "y"})
	assert.ErrorIs(t, err, service.ErrStackNotFound)
}

func TestStackService_DeleteOrphansHistory(t *testing.T) {
	svc := setupServices(t)
	admin := testutil.AdminCtx(testutil.OrgA)
	stack := testutil.CreateStack(t, svc.db, testutil.OrgA, "Gone", "Grass", "3x4")
	barn := testutil.CreateLocation(t, svc.db, testutil.OrgA, "Barn", 0)
	tx := testutil.AddTransaction(t, svc.db, testutil.OrgA, domain.TransactionTypeProduction, stack.ID, &barn.ID, 10, 0)

	assert.ErrorIs(t, svc.stacks.Delete(testutil.BookkeeperCtx(testutil.OrgA), stack.ID), service.ErrForbidden)
	assert.ErrorIs(t, svc.stacks.Delete(testutil.AdminCtx(testutil.OrgB), stack.ID), service.ErrStackNotFound)

	require.NoError(t, svc.stacks.Delete(admin, stack.ID))

	_, err := svc.stacks.GetByID(admin, stack.ID)
	assert.ErrorIs(t, err, service.ErrStackNotFound)

	kept, err := svc.ledger.GetTransaction(admin, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.StackID)
	assert.InDelta(t, 6.0, kept.Tons, 1e-9)

	assert.ErrorIs(t, svc.stacks.Delete(admin, uuid.New()), service.ErrStackNotFound)
}

func TestLocationService(t *testing.T) {
	svc := setupServices(t)
	ctx := testutil.BookkeeperCtx(testutil.OrgA)

	barn, err := svc.locations.Create(ctx, &domain.CreateLocationRequest{Name: "Hay shed", Capacity: 60, CapacityUnit: domain.CapacityUnitTons})
	require.NoError(t, err)
	assert.Equal(t, domain.CapacityUnitTons, barn.CapacityUnit)

	empty, err := svc.locations.Create(ctx, &domain.CreateLocationRequest{Name: "Empty", Capacity: 100})
	require.NoError(t, err)
	assert.Equal(t, domain.CapacityUnitBales, empty.CapacityUnit)

	_, err = svc.locations.Create(ctx, &domain.CreateLocationRequest{Name: "Bad", Capacity: -1})
	assert.ErrorIs(t, err, service.ErrValidation)

	stack := testutil.CreateStack(t, svc.db, testutil.OrgA, "S", "Alfalfa", "3x4")
	testutil.AddTransaction(t, svc.db, testutil.OrgA, domain.TransactionTypeProduction, stack.ID, &barn.ID, 25, 0)

	t.Run("usage follows the capacity unit", func(t *testing.T) {
		got, err := svc.locations.GetByID(ctx, barn.ID)
		require.NoError(t, err)
		assert.Equal(t, 25.0, got.CurrentStock)
		assert.InDelta(t, 15.0, got.CurrentStockTons, 1e-9)
		assert.InDelta(t, 25.0, got.UsagePercent, 1e-9)
		require.Len(t, got.Stacks, 1)
		assert.Equal(t, "S", got.Stacks[0].StackName)
	})

	t.Run("list omits the stack breakdown", func(t *testing.T) {
		list, err := svc.locations.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		for _, l := range list {
			assert.Empty(t, l.Stacks)
		}
	})

	t.Run("update", func(t *testing.T) {
		updated, err := svc.locations.Update(ctx, empty.ID, &domain.UpdateLocationRequest{Name: "Loft", Capacity: 10})
		require.NoError(t, err)
		assert.Equal(t, "Loft", updated.Name)
	})

	t.Run("delete", func(t *testing.T) {
		admin := testutil.AdminCtx(testutil.OrgA)
		assert.ErrorIs(t, svc.locations.Delete(ctx, empty.ID), service.ErrForbidden)
		assert.ErrorIs(t, svc.locations.Delete(admin, barn.ID), service.ErrLocationHasHistory)
		assert.ErrorIs(t, svc.locations.Delete(testutil.AdminCtx(testutil.OrgB), empty.ID), service.ErrLocationNotFound)
		require.NoError(t, svc.locations.Delete(admin, empty.ID))
		_, err := svc.locations.GetByID(admin, empty.ID)
		assert.ErrorIs(t, err, service.ErrLocationNotFound)
	})
}
