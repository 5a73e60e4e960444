package content

import (
	"context"
	"fmt"
)

// Portfolio is the public read model: one entry per section. Single-row
// sections map to their default row (or nil), multi-row sections to a list.
type Portfolio map[Section]any

// Portfolio assembles every section from the live rows with their children and
// nested children attached under the relation names.
func (e *Engine) Portfolio(ctx context.Context) (Portfolio, error) {
	out := make(Portfolio, len(allSections))
	for _, section := range allSections {
		schema, err := SchemaFor(section)
		if err != nil {
			return nil, err
		}
		rows, err := e.ListRows(ctx, section)
		if err != nil {
			return nil, err
		}
		if !schema.MultiRow && len(rows) > 1 {
			rows = rows[:1]
		}
		for _, row := range rows {
			if errAttach := e.attachChildren(ctx, schema, row); errAttach != nil {
				return nil, errAttach
			}
		}
		switch {
		case schema.MultiRow:
			if rows == nil {
				rows = []Row{}
			}
			out[section] = rows
		case len(rows) == 1:
			out[section] = rows[0]
		default:
			out[section] = nil
		}
	}
	return out, nil
}

func (e *Engine) attachChildren(ctx context.Context, schema SectionSchema, row Row) error {
	id, ok := RowID(row)
	if !ok {
		return fmt.Errorf("%s row without id", schema.Table)
	}
	for _, rel := range schema.Children {
		children, err := e.listByForeignKey(ctx, rel, id)
		if err != nil {
			return err
		}
		if errNested := e.attachNested(ctx, rel.Table, children); errNested != nil {
			return errNested
		}
		row[rel.Name] = children
	}
	return nil
}
