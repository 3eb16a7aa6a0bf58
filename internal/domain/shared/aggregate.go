package shared

// BaseAggregateRoot carries the optimistic-lock version of an aggregate.
// Repositories compare Version on update and reject stale writes.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
}

// GetVersion returns the version read from storage
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion bumps the version after a successful mutation
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// NewBaseAggregateRoot creates an aggregate root at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}
