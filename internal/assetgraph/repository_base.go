// Package assetgraph owns the entity graph: models and their versions, the
// many-to-many container associations, and the soft-delete/restore/purge
// lifecycle. It is split into repository_base (wiring), repository_query
// (reads), and repository_write (mutations) the same way the teacher splits
// its largest aggregate's repository across three files.
package assetgraph

import (
	"github.com/jmoiron/sqlx"

	"modelibr/internal/database"
)

// Repository is the sqlx-backed store for the asset graph.
type Repository struct {
	db *database.DB
}

// NewRepository constructs a Repository over db.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx, letting query helpers
// run either directly or inside a caller-managed transaction.
type queryer interface {
	sqlx.Queryer
	sqlx.Execer
}
