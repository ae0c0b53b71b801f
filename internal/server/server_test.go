package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/actor"
	auditdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit/domain"
	auditrepo "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit/repository"
	auditservice "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit/service"
	catalogdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/config"
	inventorydomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
	inventoryservice "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/service"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/lock"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability"
	productiondomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/production/domain"
	productionrepo "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/production/repository"
	productionservice "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/production/service"
	purchasingdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/purchasing/domain"
	purchasingrepo "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/purchasing/repository"
	purchasingservice "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/purchasing/service"
	salesdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/sales/domain"
	salesrepo "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/sales/repository"
	salesservice "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/sales/service"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/uow"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/workflow"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/workflow/workflowtest"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/pkg/db"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	srv     *Server
	harness *workflowtest.Harness
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := workflowtest.New(t,
		&auditdomain.AuditLog{},
		&productiondomain.Ticket{}, &productiondomain.Detail{}, &productiondomain.DetailStatusLog{},
		&purchasingdomain.Ticket{}, &purchasingdomain.Detail{}, &purchasingdomain.DetailStatusLog{},
		&salesdomain.Order{}, &salesdomain.OrderDetail{}, &salesdomain.DetailStatusLog{},
	)

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    h.DB,
		Log:   h.Log,
		GenID: h.Node,
		Repo:  auditrepo.Provide(),
		Clock: h.Clock,
	})

	inventorySvc := inventoryservice.New(inventoryservice.Params{
		DB:       h.DB,
		Log:      h.Log,
		UOW:      uow.NewRunner(h.DB, h.Log, config.UOWConfig{MaxAttempts: 2}, nil),
		Locker:   lock.NewLocalLocker(nil),
		Engine:   h.Engine,
		Repo:     h.Inventory,
		Catalog:  h.Catalog,
		Clock:    h.Clock,
		AuditSvc: auditSvc,
	})
	productionSvc := productionservice.New(productionservice.Params{
		DB:      h.DB,
		Log:     h.Log,
		GenID:   h.Node,
		Repo:    productionrepo.Provide(),
		Catalog: h.Catalog,
		Runner:  h.Runner,
		Clock:   h.Clock,
	})
	purchasingSvc := purchasingservice.New(purchasingservice.Params{
		DB:      h.DB,
		Log:     h.Log,
		GenID:   h.Node,
		Repo:    purchasingrepo.Provide(),
		Catalog: h.Catalog,
		Runner:  h.Runner,
		Clock:   h.Clock,
	})
	salesSvc := salesservice.New(salesservice.Params{
		DB:      h.DB,
		Log:     h.Log,
		GenID:   h.Node,
		Repo:    salesrepo.Provide(),
		Catalog: h.Catalog,
		Runner:  h.Runner,
		Clock:   h.Clock,
	})

	srv := NewServer(ServerParams{
		Gin:           NewEngine(observability.Config{}, nil),
		Cfg:           config.Config{},
		Log:           zap.NewNop(),
		AuditSvc:      auditSvc,
		CatalogSvc:    h.Catalog,
		InventorySvc:  inventorySvc,
		ProductionSvc: productionSvc,
		PurchasingSvc: purchasingSvc,
		SalesSvc:      salesSvc,
	})

	return &testServer{srv: srv, harness: h}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, asActor bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if asActor {
		req.Header.Set(HeaderActorID, "21")
		req.Header.Set(HeaderActorUsername, "ops.user")
		req.Header.Set(HeaderActorRole, "operator")
	}

	rec := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMutationsRequireActor(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/inventory/adjust", map[string]any{
		"sku": "FG-1", "mode": "ADD", "quantity": "1",
	}, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "unauthorized", resp.Error.Type)
	assert.Equal(t, "actor_required", resp.Error.Code)
}

func TestInvalidActorHeader(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/variants", nil)
	req.Header.Set(HeaderActorUsername, "ops.user")
	req.Header.Set(HeaderActorID, "abc")
	rec := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "invalid_actor_id", resp.Error.Code)
}

func TestCreateVariantValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/variants", map[string]any{
		"name": "Widget", "kind": "PRODUCT",
	}, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "validation_error", resp.Error.Type)
	require.Len(t, resp.Error.Errors, 1)
	assert.Equal(t, "sku", resp.Error.Errors[0].Field)
	assert.Equal(t, "required", resp.Error.Errors[0].Code)
}

func TestCreateVariantDuplicateSKU(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]any{"sku": "fg-1", "name": "Widget", "kind": "PRODUCT"}

	rec := ts.do(t, http.MethodPost, "/api/variants", body, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/variants", body, true)
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "duplicate_sku", resp.Error.Code)
}

func TestAdjustInventoryFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/variants", map[string]any{
		"sku": "MAT-1", "name": "Steel", "kind": "MATERIAL",
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	variant := decode[dataEnvelope[catalogdomain.Response]](t, rec).Data

	rec = ts.do(t, http.MethodPost, "/api/inventory/adjust", map[string]any{
		"sku": "mat-1", "mode": "ADD", "quantity": "10", "note": "initial count",
	}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	adjusted := decode[dataEnvelope[inventorydomain.Response]](t, rec).Data
	assert.Equal(t, "10", adjusted.CurrentStock.String())

	rec = ts.do(t, http.MethodPost, "/api/inventory/adjust", map[string]any{
		"sku": "MAT-1", "mode": "SUBTRACT", "quantity": "15",
	}, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "insufficient_stock", resp.Error.Code)

	rec = ts.do(t, http.MethodGet, "/api/inventory/"+variant.ID, nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	current := decode[dataEnvelope[inventorydomain.Response]](t, rec).Data
	assert.Equal(t, "10", current.CurrentStock.String())

	rec = ts.do(t, http.MethodGet, "/api/inventory/sku/MAT-1", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/inventory/"+variant.ID+"/ledger", nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entries := decode[dataEnvelope[[]inventorydomain.LedgerEntry]](t, rec).Data
	require.Len(t, entries, 2)
	assert.Equal(t, inventorydomain.SourceManualAdjustment, entries[0].SourceType)
	assert.Equal(t, "10", entries[0].AfterQuantity.String())
	assert.Equal(t, inventorydomain.SourceInventoryInit, entries[1].SourceType)

	rec = ts.do(t, http.MethodGet, "/api/audit-logs?action="+auditdomain.ActionStockAdjusted, nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestBulkAdjustReportsPartialFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.harness.Variant(t, "MAT-1", catalogdomain.KindMaterial)
	ts.harness.Variant(t, "MAT-2", catalogdomain.KindMaterial)

	rec := ts.do(t, http.MethodPost, "/api/inventory/bulk-adjust", map[string]any{
		"mode": "ADD",
		"items": []map[string]any{
			{"sku": "MAT-1", "quantity": "3"},
			{"sku": "MISSING", "quantity": "3"},
			{"sku": "MAT-2", "quantity": "4"},
		},
	}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			SuccessCount   int `json:"success_count"`
			FailureCount   int `json:"failure_count"`
			TotalProcessed int `json:"total_processed"`
			Failures       []struct {
				Index int    `json:"index"`
				Code  string `json:"code"`
			} `json:"failures"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Data.TotalProcessed)
	assert.Equal(t, 2, resp.Data.SuccessCount)
	assert.Equal(t, 1, resp.Data.FailureCount)
	require.Len(t, resp.Data.Failures, 1)
	assert.Equal(t, 1, resp.Data.Failures[0].Index)
}

func TestProductionTransitionOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ts.harness.Variant(t, "FG-1", catalogdomain.KindProduct)

	rec := ts.do(t, http.MethodPost, "/api/production/tickets", map[string]any{
		"name": "Batch 7",
		"details": []map[string]any{
			{"sku": "FG-1", "quantity": "5"},
		},
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ticket := decode[dataEnvelope[productiondomain.TicketResponse]](t, rec).Data
	require.Len(t, ticket.Details, 1)
	detailID := ticket.Details[0].ID

	rec = ts.do(t, http.MethodPost, "/api/production/details/"+detailID+"/transition", map[string]any{
		"status": "READY",
	}, true)
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "conflict", resp.Error.Type)
	assert.Equal(t, "illegal_transition", resp.Error.Code)

	rec = ts.do(t, http.MethodPost, "/api/production/details/"+detailID+"/transition", map[string]any{
		"status": "APPROVAL",
	}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	variantID, err := strconv.ParseInt(ticket.Details[0].VariantID, 10, 64)
	require.NoError(t, err)
	_, future, _ := ts.harness.Stock(t, variantID)
	assert.Equal(t, "5", future)

	rec = ts.do(t, http.MethodGet, "/api/production/details/"+detailID+"/logs", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/production/tickets/"+ticket.ID, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownDetailIsNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/production/details/424242/transition", map[string]any{
		"status": "APPROVAL",
	}, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/nope", nil, false)
	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "not_found", resp.Error.Type)
}

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"actor", actor.ErrActorRequired, http.StatusUnauthorized},
		{"variant missing", fmt.Errorf("resolve: %w", catalogdomain.ErrVariantNotFound), http.StatusNotFound},
		{"illegal transition", &workflow.IllegalTransitionError{Domain: "production", Current: "NEW", Requested: "READY"}, http.StatusConflict},
		{"stale version", db.ErrConcurrentModification, http.StatusConflict},
		{"insufficient", inventorydomain.ErrInsufficientStock, http.StatusUnprocessableEntity},
		{"reason", workflow.ErrReasonRequired, http.StatusUnprocessableEntity},
		{"quantity", inventorydomain.ErrInvalidQuantity, http.StatusBadRequest},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := mapError(tc.err)
			assert.Equal(t, tc.status, status)
		})
	}
}

func TestValidationFieldFromCode(t *testing.T) {
	status, payload := mapError(inventorydomain.ErrInvalidQuantity)
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "quantity", payload.Errors[0].Field)
}

func TestToSnake(t *testing.T) {
	assert.Equal(t, "sku", toSnake("SKU"))
	assert.Equal(t, "unit_cost", toSnake("UnitCost"))
	assert.Equal(t, "variant_id", toSnake("VariantID"))
	assert.Equal(t, "bom_code", toSnake("BOMCode"))
}
