package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bakehouse/internal/core/id"
	"bakehouse/internal/core/types"
)

type stamped struct {
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type sampleRow struct {
	stamped
	ID       id.ID          `db:"id"`
	Name     string         `db:"name"`
	Quantity types.Quantity `db:"quantity"`
	Lines    []string       `db:"-"`
	Note     string
}

func TestExtractDBColumns_EmbeddedFirst(t *testing.T) {
	cols := ExtractDBColumns[sampleRow]()
	assert.Equal(t, []string{"created_at", "updated_at", "id", "name", "quantity"}, cols)
}

func TestStructToMap_SkipsUntagged(t *testing.T) {
	now := time.Now().UTC()
	row := &sampleRow{
		stamped:  stamped{CreatedAt: now, UpdatedAt: now},
		ID:       id.New(),
		Name:     "Croissant dough",
		Quantity: types.MustDecimal("12"),
		Lines:    []string{"x"},
		Note:     "ignored",
	}

	m := StructToMap(row)
	assert.Len(t, m, 5)
	assert.Equal(t, "Croissant dough", m["name"])
	assert.Equal(t, now, m["created_at"])
	assert.NotContains(t, m, "Note")
}

func TestPickColumns(t *testing.T) {
	data := map[string]any{"id": 1, "name": "a", "version": 3, "extra": true}
	got := PickColumns(data, []string{"id", "name", "version"}, "id", "version")
	assert.Equal(t, map[string]any{"name": "a"}, got)
}

type auditedRow struct {
	*stamped
	Name   string `db:"name"`
	secret string `db:"secret"`
}

func TestStructToMap_NilEmbeddedAndUnexported(t *testing.T) {
	m := StructToMap(auditedRow{Name: "Rye starter", secret: "x"})
	assert.Equal(t, map[string]any{"name": "Rye starter"}, m)

	now := time.Now().UTC()
	m = StructToMap(&auditedRow{stamped: &stamped{CreatedAt: now}, Name: "Rye starter"})
	assert.Equal(t, now, m["created_at"])
	assert.Len(t, m, 3)
}
