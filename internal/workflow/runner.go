package workflow

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/actor"
	auditdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/batch"
	catalogdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/clock"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/events"
	invdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/lock"
	obslogger "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/logger"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/metrics"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/uow"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Machine binds a domain graph to the tables it governs.
type Machine struct {
	Graph *Graph
	Store *Store
}

type TransitionRequest struct {
	DetailID int64
	To       Status
	Note     string
	// Reason is mandatory when To is the cancelled status.
	Reason string
}

type TransitionResult struct {
	Detail        DetailState             `json:"detail"`
	From          Status                  `json:"from_status"`
	Log           StatusLog               `json:"log"`
	TicketStatus  TicketStatus            `json:"ticket_status"`
	TicketChanged bool                    `json:"ticket_changed"`
	Entries       []invdomain.LedgerEntry `json:"ledger_entries"`
}

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	UOW             *uow.Runner
	Locker          lock.Locker
	Engine          invdomain.Engine
	Catalog         catalogdomain.Service    `optional:"true"`
	Clock           clock.Clock              `optional:"true"`
	Outbox          *events.Outbox           `optional:"true"`
	AuditSvc        auditdomain.Service      `optional:"true"`
	WorkflowMetrics *metrics.WorkflowMetrics `optional:"true"`
	ObsMetrics      *metrics.Metrics         `optional:"true"`
}

// Runner executes detail transitions: validate against the graph, apply the
// edge's stock effects, persist the status with its log row, settle the
// ticket and record the outbox events, all in one unit of work.
type Runner struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	uow             *uow.Runner
	locker          lock.Locker
	engine          invdomain.Engine
	catalog         catalogdomain.Service
	clock           clock.Clock
	outbox          *events.Outbox
	auditSvc        auditdomain.Service
	workflowMetrics *metrics.WorkflowMetrics
	obsMetrics      *metrics.Metrics
}

func NewRunner(p Params) *Runner {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Runner{
		db:              p.DB,
		log:             p.Log.Named("workflow.runner"),
		genID:           p.GenID,
		uow:             p.UOW,
		locker:          p.Locker,
		engine:          p.Engine,
		catalog:         p.Catalog,
		clock:           clk,
		outbox:          p.Outbox,
		auditSvc:        p.AuditSvc,
		workflowMetrics: p.WorkflowMetrics,
		obsMetrics:      p.ObsMetrics,
	}
}

func (r *Runner) Transition(ctx context.Context, m Machine, req TransitionRequest) (*TransitionResult, error) {
	domain := m.Graph.Domain()
	res, err := r.transition(ctx, m, req)
	if err != nil {
		r.workflowMetrics.IncTransitionError(domain, err)
		r.obsMetrics.RecordTransition(ctx, domain, string(req.To), metrics.OutcomeRejected)
		return nil, err
	}

	r.workflowMetrics.IncTransition(domain, string(res.From), string(res.Detail.Status))
	r.obsMetrics.RecordTransition(ctx, domain, string(res.Detail.Status), metrics.OutcomeApplied)
	obslogger.WithContext(ctx, r.log).Info("detail transitioned",
		zap.String("domain", domain),
		zap.Int64("detail_id", res.Detail.ID),
		zap.Int64("ticket_id", res.Detail.TicketID),
		zap.String("from", string(res.From)),
		zap.String("to", string(res.Detail.Status)),
		zap.String("ticket_status", string(res.TicketStatus)),
	)
	return res, nil
}

func (r *Runner) transition(ctx context.Context, m Machine, req TransitionRequest) (*TransitionResult, error) {
	who, err := actor.Require(ctx)
	if err != nil {
		return nil, err
	}
	req.Reason = strings.TrimSpace(req.Reason)
	req.Note = strings.TrimSpace(req.Note)
	if req.To == m.Graph.Cancelled() && req.Reason == "" {
		return nil, ErrReasonRequired
	}

	current, err := m.Store.FindDetail(ctx, r.db, req.DetailID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrDetailNotFound
	}
	if _, err := m.Graph.Next(current.Status, req.To); err != nil {
		return nil, err
	}
	if req.To != m.Graph.Cancelled() {
		if err := r.requireActiveVariant(ctx, current.VariantID); err != nil {
			return nil, err
		}
	}

	keys := []string{
		lock.TicketKey(m.Graph.Domain(), current.TicketID),
		lock.DetailKey(m.Graph.Domain(), current.ID),
		lock.VariantKey(current.VariantID),
	}
	var res *TransitionResult
	err = lock.With(ctx, r.locker, keys, func() error {
		return r.uow.Do(ctx, m.Graph.Domain()+".transition", func(tx *gorm.DB) error {
			out, err := r.apply(ctx, tx, m, req, who)
			if err != nil {
				return err
			}
			res = out
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// requireActiveVariant keeps a deactivated variant's record inert. Cancel
// edges skip the check so open commitments can still be unwound.
func (r *Runner) requireActiveVariant(ctx context.Context, variantID int64) error {
	if r.catalog == nil {
		return nil
	}
	v, err := r.catalog.ResolveID(ctx, variantID)
	if err != nil {
		return err
	}
	if !v.Active {
		return fmt.Errorf("%w: %s", catalogdomain.ErrVariantInactive, v.SKU)
	}
	return nil
}

// Open runs create in one unit of work after making sure every referenced
// variant owns an inventory record.
func (r *Runner) Open(ctx context.Context, m Machine, variantIDs []int64, who actor.Actor, create func(tx *gorm.DB) error) error {
	ids := uniqueIDs(variantIDs)
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, lock.VariantKey(id))
	}
	return lock.With(ctx, r.locker, keys, func() error {
		return r.uow.Do(ctx, m.Graph.Domain()+".open", func(tx *gorm.DB) error {
			for _, id := range ids {
				if _, err := r.engine.GetOrCreate(ctx, tx, id, who); err != nil {
					return err
				}
			}
			return create(tx)
		})
	})
}

func uniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Runner) apply(ctx context.Context, tx *gorm.DB, m Machine, req TransitionRequest, who actor.Actor) (*TransitionResult, error) {
	d, err := m.Store.FindDetailForUpdate(ctx, tx, req.DetailID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDetailNotFound
	}
	from := d.Status
	effects, err := m.Graph.Next(from, req.To)
	if err != nil {
		return nil, err
	}

	var entries []invdomain.LedgerEntry
	for _, eff := range effects {
		applied, err := r.engine.Execute(ctx, tx, eff.Operation, invdomain.OperationRequest{
			VariantID: d.VariantID,
			Quantity:  d.Quantity,
			Source:    eff.Source,
			Reference: invdomain.Reference{Type: m.Graph.ReferenceType(), ID: d.ID},
			Note:      req.Note,
			Actor:     who,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, applied...)
	}

	now := r.clock.Now().UTC()
	if err := m.Store.UpdateDetailStatus(ctx, tx, d, req.To, who.Username, now); err != nil {
		return nil, err
	}

	entry := StatusLog{
		ID:            r.genID.Generate().Int64(),
		DetailID:      d.ID,
		TicketID:      d.TicketID,
		OldStatus:     from,
		NewStatus:     req.To,
		Note:          req.Note,
		Reason:        req.Reason,
		ActorID:       who.ID,
		ActorUsername: who.Username,
		ActorRole:     who.Role,
		CreatedAt:     now,
	}
	if err := m.Store.InsertLog(ctx, tx, &entry); err != nil {
		return nil, err
	}

	previous, ticketStatus, err := r.Recompute(ctx, tx, m, d.TicketID, who, now)
	if err != nil {
		return nil, err
	}

	res := &TransitionResult{
		Detail:        *d,
		From:          from,
		Log:           entry,
		TicketStatus:  ticketStatus,
		TicketChanged: previous != ticketStatus,
		Entries:       entries,
	}
	if err := r.publish(ctx, tx, m, res, who); err != nil {
		return nil, err
	}
	return res, nil
}

// Recompute settles the ticket status from its details and returns the
// previous and the new status.
func (r *Runner) Recompute(ctx context.Context, tx *gorm.DB, m Machine, ticketID int64, who actor.Actor, now time.Time) (TicketStatus, TicketStatus, error) {
	previous, ok, err := m.Store.FindTicketStatusForUpdate(ctx, tx, ticketID)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", fmt.Errorf("%s ticket %d: %w", m.Graph.Domain(), ticketID, ErrTicketNotFound)
	}

	details, err := m.Store.ListDetails(ctx, tx, ticketID)
	if err != nil {
		return "", "", err
	}
	statuses := make([]Status, 0, len(details))
	for _, d := range details {
		statuses = append(statuses, d.Status)
	}

	next := m.Graph.Rollup(statuses)
	if next == previous {
		return previous, next, nil
	}
	if err := m.Store.UpdateTicketStatus(ctx, tx, ticketID, next, who.Username, now); err != nil {
		return "", "", err
	}
	return previous, next, nil
}

func (r *Runner) publish(ctx context.Context, tx *gorm.DB, m Machine, res *TransitionResult, who actor.Actor) error {
	if r.outbox == nil {
		return nil
	}
	domain := m.Graph.Domain()
	d := res.Detail

	err := r.outbox.PublishTx(ctx, tx, events.Event{
		Type:          events.EventTicketDetailStatusChanged,
		AggregateType: domain + "_ticket_detail",
		AggregateID:   d.ID,
		Payload: map[string]any{
			"domain":         domain,
			"detail_id":      strconv.FormatInt(d.ID, 10),
			"ticket_id":      strconv.FormatInt(d.TicketID, 10),
			"old_status":     string(res.From),
			"new_status":     string(d.Status),
			"ticket_status":  string(res.TicketStatus),
			"note":           res.Log.Note,
			"reason":         res.Log.Reason,
			"actor_id":       strconv.FormatInt(who.ID, 10),
			"actor_username": who.Username,
			"actor_role":     who.Role,
		},
		DedupeKey: fmt.Sprintf("%s:detail:%d:log:%d", domain, d.ID, res.Log.ID),
	})
	if err != nil || !res.TicketChanged {
		return err
	}

	return r.outbox.PublishTx(ctx, tx, events.Event{
		Type:          events.EventTicketStatusChanged,
		AggregateType: domain + "_ticket",
		AggregateID:   d.TicketID,
		Payload: map[string]any{
			"domain":     domain,
			"ticket_id":  strconv.FormatInt(d.TicketID, 10),
			"new_status": string(res.TicketStatus),
		},
		DedupeKey: fmt.Sprintf("%s:ticket:%d:log:%d", domain, d.TicketID, res.Log.ID),
	})
}

// CancelTicket cancels every non-terminal detail of a ticket one by one.
// Details that fail are reported; the others stay cancelled.
func (r *Runner) CancelTicket(ctx context.Context, m Machine, ticketID int64, reason, note string) (batch.Result[TransitionResult], error) {
	if _, err := actor.Require(ctx); err != nil {
		return batch.Result[TransitionResult]{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return batch.Result[TransitionResult]{}, ErrReasonRequired
	}
	if _, ok, err := m.Store.FindTicketStatus(ctx, r.db, ticketID); err != nil {
		return batch.Result[TransitionResult]{}, err
	} else if !ok {
		return batch.Result[TransitionResult]{}, ErrTicketNotFound
	}

	details, err := m.Store.ListDetails(ctx, r.db, ticketID)
	if err != nil {
		return batch.Result[TransitionResult]{}, err
	}
	open := make([]DetailState, 0, len(details))
	for _, d := range details {
		if !m.Graph.IsTerminal(d.Status) {
			open = append(open, d)
		}
	}

	opts := batch.Options{
		Name:       m.Graph.Domain() + ".cancel_ticket",
		Log:        r.log,
		Metrics:    r.workflowMetrics,
		ObsMetrics: r.obsMetrics,
	}
	res := batch.Run(ctx, opts, open,
		func(_ int, d DetailState) string { return strconv.FormatInt(d.ID, 10) },
		func(ctx context.Context, d DetailState) (TransitionResult, error) {
			out, err := r.Transition(ctx, m, TransitionRequest{
				DetailID: d.ID,
				To:       m.Graph.Cancelled(),
				Note:     note,
				Reason:   reason,
			})
			if err != nil {
				return TransitionResult{}, err
			}
			return *out, nil
		},
	)

	if r.auditSvc != nil {
		targetID := strconv.FormatInt(ticketID, 10)
		if err := r.auditSvc.AuditLog(ctx, nil, auditdomain.ActionTicketCancelled, m.Graph.Domain()+"_ticket", &targetID, map[string]any{
			"reason":        reason,
			"success_count": res.SuccessCount,
			"failure_count": res.FailureCount,
		}); err != nil {
			obslogger.WithContext(ctx, r.log).Warn("audit ticket cancel failed", zap.Error(err))
		}
	}
	return res, nil
}
