package service

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit/domain"
	auditrepo "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit/repository"
	auditservice "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit/service"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/repository"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/clock"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	conn := testutil.OpenDB(t, &domain.Variant{})
	return New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: testutil.Node(t),
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
	})
}

func TestCreateAndResolveSKU(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{SKU: " mat-steel ", Name: "Steel sheet", Kind: "material"})
	require.NoError(t, err)
	assert.Equal(t, "MAT-STEEL", created.SKU)
	assert.Equal(t, domain.KindMaterial, created.Kind)
	assert.True(t, created.Active)

	v, err := svc.ResolveSKU(ctx, "mat-steel")
	require.NoError(t, err)
	assert.Equal(t, created.ID, snowflakeString(v.ID))
}

func TestCreateRejectsDuplicateSKU(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{SKU: "P-1", Name: "Chair", Kind: "PRODUCT"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{SKU: "p-1", Name: "Chair again", Kind: "PRODUCT"})
	require.ErrorIs(t, err, domain.ErrDuplicateSKU)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{SKU: "", Name: "x", Kind: "PRODUCT"})
	assert.ErrorIs(t, err, domain.ErrInvalidSKU)
	_, err = svc.Create(ctx, domain.CreateRequest{SKU: "A", Name: " ", Kind: "PRODUCT"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	_, err = svc.Create(ctx, domain.CreateRequest{SKU: "A", Name: "x", Kind: "SERVICE"})
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
}

func TestResolveSKUErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ResolveSKU(ctx, "MISSING")
	require.ErrorIs(t, err, domain.ErrVariantNotFound)

	created, err := svc.Create(ctx, domain.CreateRequest{SKU: "OLD", Name: "Legacy", Kind: "PRODUCT"})
	require.NoError(t, err)
	_, err = svc.ResolveSKU(ctx, "OLD")
	require.NoError(t, err)

	_, err = svc.Deactivate(ctx, created.ID)
	require.NoError(t, err)

	_, err = svc.ResolveSKU(ctx, "OLD")
	require.ErrorIs(t, err, domain.ErrVariantInactive)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestListFiltersByKind(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{SKU: "B", Name: "Bolt", Kind: "MATERIAL"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{SKU: "A", Name: "Table", Kind: "PRODUCT"})
	require.NoError(t, err)

	items, err := svc.List(ctx, domain.ListRequest{Kind: "material"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].SKU)
}

func snowflakeString(id int64) string {
	return toResponse(&domain.Variant{ID: id}).ID
}

func TestCreateAndDeactivateWriteAuditLogs(t *testing.T) {
	conn := testutil.OpenDB(t, &domain.Variant{}, &auditdomain.AuditLog{})
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	node := testutil.Node(t)
	audits := auditservice.NewService(auditservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepo.Provide(),
		Clock: clk,
	})
	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		Clock:    clk,
		AuditSvc: audits,
	})
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{SKU: "OLD", Name: "Legacy", Kind: "PRODUCT"})
	require.NoError(t, err)
	_, err = svc.Deactivate(ctx, created.ID)
	require.NoError(t, err)

	logs, err := audits.List(ctx, auditdomain.ListAuditLogRequest{TargetType: "variant"})
	require.NoError(t, err)
	require.Len(t, logs.AuditLogs, 2)

	actions := []string{logs.AuditLogs[0].Action, logs.AuditLogs[1].Action}
	assert.ElementsMatch(t, []string{auditdomain.ActionVariantCreated, auditdomain.ActionVariantDeactivated}, actions)
	require.NotNil(t, logs.AuditLogs[0].TargetID)
	assert.Equal(t, created.ID, *logs.AuditLogs[0].TargetID)
}
