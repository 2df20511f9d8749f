// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities carry no GORM tags
// 2. Mappers convert between domain entities and persistence models
// 3. Raw stored values are normalized once, in ToDomain; the scoring core never
// re-parses labels or falls back between columns
//
// Structure:
// - base.go: BaseModel and AggregateModel
// - audit.go: audits, audit_sections, audit_items
// - schema.go: audit_schemas, schema_sections, schema_questions, schema_thresholds
// - evidence.go: evidence_refs
// - sequence.go: document_sequences
package models
