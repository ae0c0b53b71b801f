package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	auditdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/cache"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/clock"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Clock    clock.Clock
	Cache    cache.VariantCache  `optional:"true"`
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	genID    *snowflake.Node
	clock    clock.Clock
	cache    cache.VariantCache
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	c := p.Cache
	if c == nil {
		c = cache.NewVariantCache()
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("catalog.service"),
		repo:     p.Repo,
		genID:    p.GenID,
		clock:    clk,
		cache:    c,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	sku := domain.NormalizeSKU(req.SKU)
	if sku == "" {
		return nil, domain.ErrInvalidSKU
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	kind := domain.Kind(strings.ToUpper(strings.TrimSpace(req.Kind)))
	if !kind.Valid() {
		return nil, domain.ErrInvalidKind
	}

	now := s.clock.Now().UTC()
	v := &domain.Variant{
		ID:        s.genID.Generate().Int64(),
		SKU:       sku,
		Name:      name,
		Kind:      kind,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, v); err != nil {
			return err
		}
		return s.audit(ctx, tx, auditdomain.ActionVariantCreated, v)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateSKU
		}
		return nil, err
	}

	s.log.Info("variant created", zap.Int64("variant_id", v.ID), zap.String("sku", v.SKU))
	resp := toResponse(v)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	variantID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	v, err := s.ResolveID(ctx, variantID.Int64())
	if err != nil {
		return nil, err
	}
	resp := toResponse(&v)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListRequest{
		Kind:   strings.ToUpper(strings.TrimSpace(req.Kind)),
		Active: req.Active,
	}
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Deactivate(ctx context.Context, id string) (*domain.Response, error) {
	variantID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, variantID.Int64())
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrVariantNotFound
	}

	item.Active = false
	item.UpdatedAt = s.clock.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, item); err != nil {
			return err
		}
		return s.audit(ctx, tx, auditdomain.ActionVariantDeactivated, item)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(*item)

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) ResolveSKU(ctx context.Context, sku string) (domain.Variant, error) {
	normalized := domain.NormalizeSKU(sku)
	if normalized == "" {
		return domain.Variant{}, domain.ErrInvalidSKU
	}

	v, ok := s.cache.GetBySKU(normalized)
	if !ok {
		item, err := s.repo.FindBySKU(ctx, s.db, normalized)
		if err != nil {
			return domain.Variant{}, err
		}
		if item == nil {
			return domain.Variant{}, fmt.Errorf("%w: %s", domain.ErrVariantNotFound, normalized)
		}
		v = *item
		s.cache.Set(v)
	}
	if !v.Active {
		return domain.Variant{}, fmt.Errorf("%w: %s", domain.ErrVariantInactive, normalized)
	}
	return v, nil
}

func (s *Service) ResolveID(ctx context.Context, id int64) (domain.Variant, error) {
	if v, ok := s.cache.GetByID(id); ok {
		return v, nil
	}
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Variant{}, err
	}
	if item == nil {
		return domain.Variant{}, domain.ErrVariantNotFound
	}
	s.cache.Set(*item)
	return *item, nil
}

func toResponse(v *domain.Variant) domain.Response {
	return domain.Response{
		ID:        snowflake.ID(v.ID).String(),
		SKU:       v.SKU,
		Name:      v.Name,
		Kind:      v.Kind,
		Active:    v.Active,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, action string, v *domain.Variant) error {
	if s.auditSvc == nil {
		return nil
	}
	targetID := strconv.FormatInt(v.ID, 10)
	return s.auditSvc.AuditLog(ctx, tx, action, "variant", &targetID, map[string]any{
		"sku":    v.SKU,
		"kind":   string(v.Kind),
		"active": v.Active,
	})
}
