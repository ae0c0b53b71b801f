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
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/purchasing/domain"
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
		log:     p.Log.Named("purchasing.service"),
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

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.TicketResponse, error) {
	who, err := actor.Require(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if len(req.Details) == 0 {
		return nil, domain.ErrEmptyDetails
	}

	now := s.clock.Now().UTC()
	ticket := &domain.Ticket{
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
		SupplierName: strings.TrimSpace(req.SupplierName),
	}

	details := make([]domain.Detail, 0, len(req.Details))
	skus := make(map[int64]string, len(req.Details))
	variantIDs := make([]int64, 0, len(req.Details))
	for _, in := range req.Details {
		if in.Quantity.Sign() <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		if in.UnitCost != nil && in.UnitCost.IsNegative() {
			return nil, domain.ErrInvalidUnitCost
		}
		variant, err := s.catalog.ResolveSKU(ctx, in.SKU)
		if err != nil {
			return nil, err
		}
		// Only materials are bought in.
		if variant.Kind != catalogdomain.KindMaterial {
			return nil, domain.ErrVariantKindMismatch
		}
		skus[variant.ID] = variant.SKU
		variantIDs = append(variantIDs, variant.ID)

		details = append(details, domain.Detail{
			DetailColumns: workflow.DetailColumns{
				ID:        s.genID.Generate().Int64(),
				TicketID:  ticket.ID,
				VariantID: variant.ID,
				Quantity:  in.Quantity,
				Status:    domain.StatusNew,
				Note:      strings.TrimSpace(in.Note),
				CreatedBy: who.Username,
				UpdatedBy: who.Username,
				CreatedAt: now,
				UpdatedAt: now,
			},
			UnitCost: in.UnitCost,
		})
	}

	err = s.runner.Open(ctx, s.machine, variantIDs, who, func(tx *gorm.DB) error {
		return s.repo.CreateTicket(ctx, tx, ticket, details)
	})
	if err != nil {
		return nil, err
	}

	obslogger.WithContext(ctx, s.log).Info("purchasing ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("supplier", ticket.SupplierName),
		zap.Int("details", len(details)),
	)
	resp := toTicketResponse(ticket, details, skus)
	return &resp, nil
}

func (s *Service) BulkCreate(ctx context.Context, req domain.BulkCreateRequest) (batch.Result[domain.TicketResponse], error) {
	if _, err := actor.Require(ctx); err != nil {
		return batch.Result[domain.TicketResponse]{}, err
	}
	if len(req.Items) == 0 {
		return batch.Result[domain.TicketResponse]{}, domain.ErrEmptyDetails
	}

	opts := batch.Options{
		Name:       "purchasing.bulk_create",
		Log:        s.log,
		Metrics:    s.workflowMetrics,
		ObsMetrics: s.obsMetrics,
	}
	return batch.Run(ctx, opts, req.Items,
		func(_ int, item domain.BulkCreateItem) string { return catalogdomain.NormalizeSKU(item.SKU) },
		func(ctx context.Context, item domain.BulkCreateItem) (domain.TicketResponse, error) {
			resp, err := s.Create(ctx, domain.CreateRequest{
				Name:         "Purchase " + catalogdomain.NormalizeSKU(item.SKU),
				SupplierName: item.SupplierName,
				Note:         item.Note,
				Details: []domain.DetailInput{{
					SKU:      item.SKU,
					Quantity: item.Quantity,
					UnitCost: item.UnitCost,
				}},
			})
			if err != nil {
				return domain.TicketResponse{}, err
			}
			return *resp, nil
		},
	), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.TicketResponse, error) {
	ticketID, err := parseID(id, domain.ErrInvalidTicketID)
	if err != nil {
		return nil, err
	}
	ticket, err := s.repo.FindTicket(ctx, s.db, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, workflow.ErrTicketNotFound
	}
	details, err := s.repo.ListDetails(ctx, s.db, ticket.ID)
	if err != nil {
		return nil, err
	}
	resp := toTicketResponse(ticket, details, s.skus(ctx, details))
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{
		Status:       strings.ToUpper(strings.TrimSpace(req.Status)),
		SupplierName: strings.TrimSpace(req.SupplierName),
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
		filter.Cursor = &domain.TicketCursor{ID: id, CreatedAt: createdAt}
	}

	tickets, err := s.repo.ListTickets(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}
	pageInfo := pagination.BuildCursorPageInfo(tickets, int32(filter.Limit), func(t *domain.Ticket) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        strconv.FormatInt(t.ID, 10),
			CreatedAt: t.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(tickets) > filter.Limit {
		tickets = tickets[:filter.Limit]
	}

	ids := make([]int64, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	details, err := s.repo.ListDetails(ctx, s.db, ids...)
	if err != nil {
		return domain.ListResponse{}, err
	}
	byTicket := make(map[int64][]domain.Detail, len(tickets))
	for _, d := range details {
		byTicket[d.TicketID] = append(byTicket[d.TicketID], d)
	}
	skus := s.skus(ctx, details)

	resp := domain.ListResponse{Tickets: make([]domain.TicketResponse, 0, len(tickets))}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	for _, t := range tickets {
		resp.Tickets = append(resp.Tickets, toTicketResponse(t, byTicket[t.ID], skus))
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

func (s *Service) CancelTicket(ctx context.Context, req domain.CancelRequest) (batch.Result[workflow.TransitionResult], error) {
	ticketID, err := parseID(req.TicketID, domain.ErrInvalidTicketID)
	if err != nil {
		return batch.Result[workflow.TransitionResult]{}, err
	}
	return s.runner.CancelTicket(ctx, s.machine, ticketID, req.Reason, req.Note)
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

func (s *Service) skus(ctx context.Context, details []domain.Detail) map[int64]string {
	out := make(map[int64]string, len(details))
	for _, d := range details {
		if _, ok := out[d.VariantID]; ok {
			continue
		}
		v, err := s.catalog.ResolveID(ctx, d.VariantID)
		if err != nil {
			s.log.Warn("variant lookup failed", zap.Int64("variant_id", d.VariantID), zap.Error(err))
			continue
		}
		out[d.VariantID] = v.SKU
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

func toTicketResponse(t *domain.Ticket, details []domain.Detail, skus map[int64]string) domain.TicketResponse {
	resp := domain.TicketResponse{
		ID:           strconv.FormatInt(t.ID, 10),
		Name:         t.Name,
		SupplierName: t.SupplierName,
		Status:       t.Status,
		Note:         t.Note,
		TotalCost:    decimal.Zero,
		CreatedBy:    t.CreatedBy,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		Details:      make([]domain.DetailResponse, 0, len(details)),
	}
	for _, d := range details {
		if d.UnitCost != nil && d.Status != domain.StatusCancelled {
			resp.TotalCost = resp.TotalCost.Add(d.Quantity.Mul(*d.UnitCost))
		}
		resp.Details = append(resp.Details, domain.DetailResponse{
			ID:        strconv.FormatInt(d.ID, 10),
			VariantID: strconv.FormatInt(d.VariantID, 10),
			SKU:       skus[d.VariantID],
			Quantity:  d.Quantity,
			UnitCost:  d.UnitCost,
			Status:    d.Status,
			Note:      d.Note,
			Version:   d.Version,
			UpdatedBy: d.UpdatedBy,
			UpdatedAt: d.UpdatedAt,
		})
	}
	return resp
}
