package db

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/tordrt/schemaforge/internal/schema"
)

// SchemaExtractor reads a live database catalog into a schema document
type SchemaExtractor interface {
	ExtractSchema(ctx context.Context, filter Filter) (*schema.Schema, error)
}

// Filter selects the tables to extract. An empty Tables list means every
// base table; Exclude is applied afterwards.
type Filter struct {
	Tables  []string
	Exclude []string
}

// column is one catalog row before it becomes a schema.Field
type column struct {
	name          string
	dataType      string
	nullable      bool
	defaultValue  *string
	unique        bool
	autoIncrement bool
	note          string
}

// foreignKey is a single-column foreign key of the extracted table
type foreignKey struct {
	column       string
	targetTable  string
	targetColumn string
	onDelete     string
	onUpdate     string
}

// buildTable turns catalog rows into a table. Foreign keys with default
// referential actions become Field.References; those carrying ON DELETE or
// ON UPDATE rules are returned as explicit relationships instead, so the
// rules survive and the pair is not emitted twice.
func buildTable(name, note string, cols []column, pk []string, fks []foreignKey) (schema.Table, []schema.Relationship) {
	table := schema.Table{Name: name, Note: note, Fields: make([]schema.Field, 0, len(cols))}

	pkSet := make(map[string]bool, len(pk))
	for _, c := range pk {
		pkSet[c] = true
	}

	for _, c := range cols {
		field := schema.Field{
			Name:          c.name,
			Type:          c.dataType,
			PK:            pkSet[c.name],
			NotNull:       !c.nullable,
			Unique:        c.unique && !pkSet[c.name],
			AutoIncrement: c.autoIncrement,
			Note:          c.note,
		}
		if c.defaultValue != nil && !c.autoIncrement {
			field.Default = *c.defaultValue
		}
		table.Fields = append(table.Fields, field)
	}

	var rels []schema.Relationship
	for _, fk := range fks {
		target := schema.Endpoint{Table: fk.targetTable, Field: fk.targetColumn}
		onDelete, onUpdate := normalizeAction(fk.onDelete), normalizeAction(fk.onUpdate)

		if onDelete == "" && onUpdate == "" {
			if f := table.FindField(fk.column); f != nil {
				f.References = &target
			}
			continue
		}
		rels = append(rels, schema.Relationship{
			From:     target,
			To:       schema.Endpoint{Table: name, Field: fk.column},
			Type:     schema.OneToMany,
			OnDelete: onDelete,
			OnUpdate: onUpdate,
		})
	}

	return table, rels
}

// normalizeAction maps a catalog rule to a referential action. NO ACTION is
// the default and maps to absent.
func normalizeAction(rule string) schema.ReferentialAction {
	rule = strings.ToUpper(strings.TrimSpace(rule))
	if rule == "" || rule == string(schema.NoAction) {
		return ""
	}
	return schema.ReferentialAction(rule)
}

// filterTables applies Filter.Exclude to an explicit table list
func filterTables(tables, exclude []string) []string {
	if len(exclude) == 0 {
		return tables
	}
	excludeSet := make(map[string]bool, len(exclude))
	for _, t := range exclude {
		excludeSet[t] = true
	}
	kept := make([]string, 0, len(tables))
	for _, t := range tables {
		if !excludeSet[t] {
			kept = append(kept, t)
		}
	}
	return kept
}

// tableListQuery builds the catalog query listing base tables, minus exclusions
func tableListQuery(builder sq.SelectBuilder, nameColumn string, exclude []string) (string, []interface{}, error) {
	if len(exclude) > 0 {
		builder = builder.Where(sq.NotEq{nameColumn: exclude})
	}
	return builder.OrderBy(nameColumn).ToSql()
}
