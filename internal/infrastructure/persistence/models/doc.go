// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel and AggregateModel
//   - placement.go: tracked entities, zones and the placement period ledger
//   - legacy.go: the deprecated movement and event logs (read-only)
//   - enrichment.go: breeding memberships, pregnancy checks and birth records
//
// JSON columns are stored as strings tagged type:jsonb; SQLite accepts the declared
// type and keeps the text as-is, which keeps the models usable in in-memory tests.
package models
