package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// UUIDArray is a uuid[] column; on SQLite it is stored as the same array
// literal in a text column.
type UUIDArray []uuid.UUID

func (UUIDArray) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "uuid[]"
	}
	return "text"
}

func (a UUIDArray) Contains(id uuid.UUID) bool {
	return slices.Contains(a, id)
}

// With returns a copy that includes id once, appended at the end.
func (a UUIDArray) With(id uuid.UUID) UUIDArray {
	if a.Contains(id) {
		return a
	}
	return append(slices.Clone(a), id)
}

// Without returns a copy with every occurrence of id removed.
func (a UUIDArray) Without(id uuid.UUID) UUIDArray {
	return slices.DeleteFunc(slices.Clone(a), func(existing uuid.UUID) bool {
		return existing == id
	})
}

func (a UUIDArray) Value() (driver.Value, error) {
	literal := make(pq.StringArray, len(a))
	for i, id := range a {
		literal[i] = id.String()
	}
	return literal.Value()
}

func (a *UUIDArray) Scan(src any) error {
	var literal pq.StringArray
	if err := literal.Scan(src); err != nil {
		return fmt.Errorf("scan uuid array: %w", err)
	}
	ids := make(UUIDArray, 0, len(literal))
	for _, raw := range literal {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("scan uuid array: element %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	*a = ids
	return nil
}
