// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bakehouse/internal/infrastructure/storage/postgres"
)

// BaseDocumentRepo provides insert and list operations for document tables.
// Documents are append-only: they are never updated or deleted.
type BaseDocumentRepo[T any] struct {
	txm        *postgres.TxManager
	tableName  string
	insertCols []string
}

// NewBaseDocumentRepo creates a new base document repository. insertCols are
// the table's own columns; joined display columns of T are skipped on insert.
func NewBaseDocumentRepo[T any](txm *postgres.TxManager, tableName string, insertCols []string) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txm:        txm,
		tableName:  tableName,
		insertCols: insertCols,
	}
}

// Builder returns a new squirrel builder.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// insertQuery maps the document to its table columns.
func (r *BaseDocumentRepo[T]) insertQuery(doc *T, rename map[string]string) squirrel.InsertBuilder {
	data := postgres.StructToMap(doc)
	for from, to := range rename {
		if v, ok := data[from]; ok {
			data[to] = v
			delete(data, from)
		}
	}
	return r.Builder().Insert(r.tableName).SetMap(postgres.PickColumns(data, r.insertCols))
}

// Create inserts a new document. rename maps struct tags to differing column names.
func (r *BaseDocumentRepo[T]) Create(ctx context.Context, doc *T, rename map[string]string) error {
	sql, args, err := r.insertQuery(doc, rename).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert %s: %w", r.tableName, err), r.tableName)
	}
	return nil
}

// Select runs a list query.
func (r *BaseDocumentRepo[T]) Select(ctx context.Context, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	docs := make([]T, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &docs, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", r.tableName, err)
	}
	return docs, nil
}
