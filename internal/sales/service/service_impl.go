package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/actor"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/batch"
	catalogdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/clock"
	obslogger "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/logger"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/metrics"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/sales/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/workflow"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Repo            domain.Repository
	Catalog         catalogdomain.Service
	Runner          *workflow.Runner
	Clock           clock.Clock              `optional:"true"`
	WorkflowMetrics *metrics.WorkflowMetrics `optional:"true"`
	ObsMetrics      *metrics.Metrics         `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	repo            domain.Repository
	catalog         catalogdomain.Service
	runner          *workflow.Runner
	machine         workflow.Machine
	clock           clock.Clock
	workflowMetrics *metrics.WorkflowMetrics
	obsMetrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("sales.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		catalog: p.Catalog,
		runner:  p.Runner,
		machine: workflow.Machine{
			Graph: domain.Graph,
			Store: workflow.NewStore(domain.Tables),
		},
		clock:           clk,
		workflowMetrics: p.WorkflowMetrics,
		obsMetrics:      p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.OrderResponse, error) {
	who, err := actor.Require(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if len(req.Lines) == 0 {
		return nil, domain.ErrEmptyLines
	}

	now := s.clock.Now().UTC()
	order := &domain.Order{
		TicketColumns: workflow.TicketColumns{
			ID:        s.genID.Generate().Int64(),
			Name:      name,
			Status:    workflow.TicketNew,
			Note:      strings.TrimSpace(req.Note),
			CreatedBy: who.Username,
			UpdatedBy: who.Username,
			CreatedAt: now,
			UpdatedAt: now,
		},
		CustomerName: strings.TrimSpace(req.CustomerName),
	}

	lines := make([]domain.OrderDetail, 0, len(req.Lines))
	skus := make(map[int64]string, len(req.Lines))
	variantIDs := make([]int64, 0, len(req.Lines))
	for _, in := range req.Lines {
		if in.Quantity.Sign() <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidUnitPrice
		}
		variant, err := s.catalog.ResolveSKU(ctx, in.SKU)
		if err != nil {
			return nil, err
		}
		if variant.Kind != catalogdomain.KindProduct {
			return nil, domain.ErrVariantKindMismatch
		}
		skus[variant.ID] = variant.SKU
		variantIDs = append(variantIDs, variant.ID)

		lines = append(lines, domain.OrderDetail{
			DetailColumns: workflow.DetailColumns{
				ID:        s.genID.Generate().Int64(),
				TicketID:  order.ID,
				VariantID: variant.ID,
				Quantity:  in.Quantity,
				Status:    domain.StatusNew,
				Note:      strings.TrimSpace(in.Note),
				CreatedBy: who.Username,
				UpdatedBy: who.Username,
				CreatedAt: now,
				UpdatedAt: now,
			},
			UnitPrice: in.UnitPrice,
		})
	}

	err = s.runner.Open(ctx, s.machine, variantIDs, who, func(tx *gorm.DB) error {
		return s.repo.CreateOrder(ctx, tx, order, lines)
	})
	if err != nil {
		return nil, err
	}

	obslogger.WithContext(ctx, s.log).Info("sales order created",
		zap.Int64("order_id", order.ID),
		zap.String("customer", order.CustomerName),
		zap.Int("lines", len(lines)),
	)
	resp := toOrderResponse(order, lines, skus)
	return &resp, nil
}

func (s *Service) BulkCreate(ctx context.Context, req domain.BulkCreateRequest) (batch.Result[domain.OrderResponse], error) {
	if _, err := actor.Require(ctx); err != nil {
		return batch.Result[domain.OrderResponse]{}, err
	}
	if len(req.Items) == 0 {
		return batch.Result[domain.OrderResponse]{}, domain.ErrEmptyLines
	}

	opts := batch.Options{
		Name:       "sales.bulk_create",
		Log:        s.log,
		Metrics:    s.workflowMetrics,
		ObsMetrics: s.obsMetrics,
	}
	return batch.Run(ctx, opts, req.Items,
		func(_ int, item domain.BulkCreateItem) string { return catalogdomain.NormalizeSKU(item.SKU) },
		func(ctx context.Context, item domain.BulkCreateItem) (domain.OrderResponse, error) {
			name := "Order " + catalogdomain.NormalizeSKU(item.SKU)
			if customer := strings.TrimSpace(item.CustomerName); customer != "" {
				name = customer + " / " + catalogdomain.NormalizeSKU(item.SKU)
			}
			resp, err := s.Create(ctx, domain.CreateRequest{
				Name:         name,
				CustomerName: item.CustomerName,
				Note:         item.Note,
				Lines: []domain.LineInput{{
					SKU:       item.SKU,
					Quantity:  item.Quantity,
					UnitPrice: item.UnitPrice,
				}},
			})
			if err != nil {
				return domain.OrderResponse{}, err
			}
			return *resp, nil
		},
	), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.OrderResponse, error) {
	orderID, err := parseID(id, domain.ErrInvalidOrderID)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.FindOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, workflow.ErrTicketNotFound
	}
	lines, err := s.repo.ListDetails(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}
	resp := toOrderResponse(order, lines, s.skus(ctx, lines))
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{
		Status:       strings.ToUpper(strings.TrimSpace(req.Status)),
		CustomerName: strings.TrimSpace(req.CustomerName),
		Limit:        pagination.NormalizePageSize(req.PageSize),
	}
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, err
		}
		id, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return domain.ListResponse{}, pagination.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return domain.ListResponse{}, pagination.ErrInvalidPageToken
		}
		filter.Cursor = &domain.OrderCursor{ID: id, CreatedAt: createdAt}
	}

	orders, err := s.repo.ListOrders(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}
	pageInfo := pagination.BuildCursorPageInfo(orders, int32(filter.Limit), func(o *domain.Order) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        strconv.FormatInt(o.ID, 10),
			CreatedAt: o.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(orders) > filter.Limit {
		orders = orders[:filter.Limit]
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	lines, err := s.repo.ListDetails(ctx, s.db, ids...)
	if err != nil {
		return domain.ListResponse{}, err
	}
	byOrder := make(map[int64][]domain.OrderDetail, len(orders))
	for _, l := range lines {
		byOrder[l.TicketID] = append(byOrder[l.TicketID], l)
	}
	skus := s.skus(ctx, lines)

	resp := domain.ListResponse{Orders: make([]domain.OrderResponse, 0, len(orders))}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(o, byOrder[o.ID], skus))
	}
	return resp, nil
}

func (s *Service) Transition(ctx context.Context, req domain.TransitionRequest) (*workflow.TransitionResult, error) {
	detailID, err := parseID(req.DetailID, domain.ErrInvalidDetailID)
	if err != nil {
		return nil, err
	}
	return s.runner.Transition(ctx, s.machine, workflow.TransitionRequest{
		DetailID: detailID,
		To:       workflow.Status(strings.ToUpper(strings.TrimSpace(req.Status))),
		Note:     req.Note,
		Reason:   req.Reason,
	})
}

func (s *Service) CancelOrder(ctx context.Context, req domain.CancelRequest) (batch.Result[workflow.TransitionResult], error) {
	orderID, err := parseID(req.OrderID, domain.ErrInvalidOrderID)
	if err != nil {
		return batch.Result[workflow.TransitionResult]{}, err
	}
	return s.runner.CancelTicket(ctx, s.machine, orderID, req.Reason, req.Note)
}

func (s *Service) ListStatusLogs(ctx context.Context, detailID string) ([]workflow.StatusLog, error) {
	id, err := parseID(detailID, domain.ErrInvalidDetailID)
	if err != nil {
		return nil, err
	}
	detail, err := s.machine.Store.FindDetail(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, workflow.ErrDetailNotFound
	}
	return s.machine.Store.ListLogs(ctx, s.db, id)
}

func (s *Service) skus(ctx context.Context, lines []domain.OrderDetail) map[int64]string {
	out := make(map[int64]string, len(lines))
	for _, l := range lines {
		if _, ok := out[l.VariantID]; ok {
			continue
		}
		v, err := s.catalog.ResolveID(ctx, l.VariantID)
		if err != nil {
			s.log.Warn("variant lookup failed", zap.Int64("variant_id", l.VariantID), zap.Error(err))
			continue
		}
		out[l.VariantID] = v.SKU
	}
	return out
}

func parseID(raw string, invalid error) (int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id.Int64() <= 0 {
		return 0, invalid
	}
	return id.Int64(), nil
}

func toOrderResponse(o *domain.Order, lines []domain.OrderDetail, skus map[int64]string) domain.OrderResponse {
	resp := domain.OrderResponse{
		ID:           strconv.FormatInt(o.ID, 10),
		Name:         o.Name,
		CustomerName: o.CustomerName,
		Status:       o.Status,
		Note:         o.Note,
		TotalAmount:  decimal.Zero,
		CreatedBy:    o.CreatedBy,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		Lines:        make([]domain.LineResponse, 0, len(lines)),
	}
	for _, l := range lines {
		if l.UnitPrice != nil && l.Status != domain.StatusCancelled {
			resp.TotalAmount = resp.TotalAmount.Add(l.Quantity.Mul(*l.UnitPrice))
		}
		resp.Lines = append(resp.Lines, domain.LineResponse{
			ID:        strconv.FormatInt(l.ID, 10),
			VariantID: strconv.FormatInt(l.VariantID, 10),
			SKU:       skus[l.VariantID],
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Status:    l.Status,
			Note:      l.Note,
			Version:   l.Version,
			UpdatedBy: l.UpdatedBy,
			UpdatedAt: l.UpdatedAt,
		})
	}
	return resp
}
