package specification

import "gorm.io/gorm"

// Specification composes query predicates onto a gorm query. Repositories
// apply them in order.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
