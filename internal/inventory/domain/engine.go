package domain

import (
	"context"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/actor"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Operation is a named composition of bucket mutations.
type Operation string

const (
	OpAddToFuture         Operation = "add_to_future"
	OpMoveFutureToCurrent Operation = "move_future_to_current"
	OpRemoveFromFuture    Operation = "remove_from_future"
	OpRemoveFromCurrent   Operation = "remove_from_current"
	OpAddToCurrent        Operation = "add_to_current"
	OpSetCurrent          Operation = "set_current"
	OpAllocate            Operation = "allocate"
	OpReleaseAllocation   Operation = "release_allocation"
	OpFulfill             Operation = "fulfill"
)

// Step is a single bucket mutation inside an operation.
type Step struct {
	Bucket Bucket
	Type   TransactionType
}

var operationSteps = map[Operation][]Step{
	OpAddToFuture:         {{BucketFuture, TransactionIn}},
	OpMoveFutureToCurrent: {{BucketFuture, TransactionOut}, {BucketCurrent, TransactionIn}},
	OpRemoveFromFuture:    {{BucketFuture, TransactionOut}},
	OpRemoveFromCurrent:   {{BucketCurrent, TransactionOut}},
	OpAddToCurrent:        {{BucketCurrent, TransactionIn}},
	OpSetCurrent:          {{BucketCurrent, TransactionSet}},
	OpAllocate:            {{BucketAllocated, TransactionIn}},
	OpReleaseAllocation:   {{BucketAllocated, TransactionOut}},
	OpFulfill:             {{BucketAllocated, TransactionOut}, {BucketCurrent, TransactionOut}},
}

// Steps returns the ordered mutations of op.
func (op Operation) Steps() ([]Step, bool) {
	steps, ok := operationSteps[op]
	return steps, ok
}

// MutationRequest describes one bucket mutation.
type MutationRequest struct {
	VariantID int64
	Bucket    Bucket
	Type      TransactionType
	Quantity  decimal.Decimal
	Source    SourceType
	Reference Reference
	Note      string
	Actor     actor.Actor
}

// OperationRequest drives a composite operation for one variant.
type OperationRequest struct {
	VariantID int64
	Quantity  decimal.Decimal
	Source    SourceType
	Reference Reference
	Note      string
	Actor     actor.Actor
}

// Engine is the only writer of inventory buckets. Every call runs on the
// caller's transaction so bucket updates and ledger rows commit together.
type Engine interface {
	Apply(ctx context.Context, tx *gorm.DB, req MutationRequest) (LedgerEntry, error)
	Execute(ctx context.Context, tx *gorm.DB, op Operation, req OperationRequest) ([]LedgerEntry, error)
	// GetOrCreate returns the locked record for variantID, creating it when missing.
	GetOrCreate(ctx context.Context, tx *gorm.DB, variantID int64, who actor.Actor) (*Record, error)
}
