package db

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/tordrt/schemaforge/internal/schema"
)

// Extractor handles schema extraction from PostgreSQL
type Extractor struct {
	client *PostgresClient
	schema string
}

// NewExtractor creates a new schema extractor
func NewExtractor(client *PostgresClient, schemaName string) *Extractor {
	return &Extractor{
		client: client,
		schema: schemaName,
	}
}

// ExtractSchema extracts the tables selected by filter
func (e *Extractor) ExtractSchema(ctx context.Context, filter Filter) (*schema.Schema, error) {
	tableNames, err := e.getTableNames(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	s := &schema.Schema{}
	for _, tableName := range tableNames {
		table, rels, err := e.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		s.Tables = append(s.Tables, table)
		s.Relationships = append(s.Relationships, rels...)
	}

	return s, nil
}

// getTableNames returns the list of tables to extract
func (e *Extractor) getTableNames(ctx context.Context, filter Filter) ([]string, error) {
	if len(filter.Tables) > 0 {
		return filterTables(filter.Tables, filter.Exclude), nil
	}

	query, args, err := tableListQuery(
		sq.Select("table_name").
			From("information_schema.tables").
			Where(sq.Eq{"table_schema": e.schema, "table_type": "BASE TABLE"}).
			PlaceholderFormat(sq.Dollar),
		"table_name", filter.Exclude)
	if err != nil {
		return nil, err
	}

	rows, err := e.client.GetConnection().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}

	return tables, rows.Err()
}

// extractTable extracts all information for a single table
func (e *Extractor) extractTable(ctx context.Context, tableName string) (schema.Table, []schema.Relationship, error) {
	var note string
	err := e.client.GetConnection().QueryRow(ctx,
		`SELECT COALESCE(obj_description(format('%I.%I', $1::text, $2::text)::regclass, 'pg_class'), '')`,
		e.schema, tableName).Scan(&note)
	if err != nil {
		return schema.Table{}, nil, fmt.Errorf("failed to extract table comment: %w", err)
	}

	columns, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return schema.Table{}, nil, fmt.Errorf("failed to extract columns: %w", err)
	}

	pk, err := e.extractPrimaryKey(ctx, tableName)
	if err != nil {
		return schema.Table{}, nil, fmt.Errorf("failed to extract primary key: %w", err)
	}

	fks, err := e.extractForeignKeys(ctx, tableName)
	if err != nil {
		return schema.Table{}, nil, fmt.Errorf("failed to extract relations: %w", err)
	}

	table, rels := buildTable(tableName, note, columns, pk, fks)
	return table, rels, nil
}

// extractColumns extracts column information for a table
func (e *Extractor) extractColumns(ctx context.Context, tableName string) ([]column, error) {
	query := `
		SELECT
			c.column_name,
			CASE WHEN c.character_maximum_length IS NOT NULL
				THEN c.udt_name || '(' || c.character_maximum_length || ')'
				ELSE c.udt_name END AS data_type,
			c.is_nullable,
			c.column_default,
			c.is_identity = 'YES' OR COALESCE(c.column_default LIKE 'nextval(%', false) AS is_serial,
			CASE WHEN EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.constraint_column_usage ccu
					ON tc.constraint_name = ccu.constraint_name
					AND tc.table_schema = ccu.table_schema
				WHERE tc.table_schema = $1
					AND tc.table_name = $2
					AND tc.constraint_type = 'UNIQUE'
					AND ccu.column_name = c.column_name
			) THEN true ELSE false END AS is_unique,
			COALESCE(col_description(format('%I.%I', c.table_schema, c.table_name)::regclass, c.ordinal_position::int), '')
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []column
	for rows.Next() {
		var col column
		var nullable string
		var defaultVal *string

		if err := rows.Scan(&col.name, &col.dataType, &nullable, &defaultVal, &col.autoIncrement, &col.unique, &col.note); err != nil {
			return nil, err
		}

		col.nullable = nullable == "YES"
		if defaultVal != nil {
			cleaned := cleanPostgresDefault(*defaultVal)
			col.defaultValue = &cleaned
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// cleanPostgresDefault strips the type cast PostgreSQL adds to literal
// defaults: 'active'::character varying becomes active.
func cleanPostgresDefault(def string) string {
	if !strings.HasPrefix(def, "'") {
		return def
	}
	end := strings.LastIndex(def, "'::")
	if end <= 0 {
		return strings.Trim(def, "'")
	}
	return def[1:end]
}

// extractPrimaryKey extracts primary key columns
func (e *Extractor) extractPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = $1
			AND table_name = $2
			AND constraint_name IN (
				SELECT constraint_name
				FROM information_schema.table_constraints
				WHERE table_schema = $1
					AND table_name = $2
					AND constraint_type = 'PRIMARY KEY'
			)
		ORDER BY ordinal_position
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var colName string
		if err := rows.Scan(&colName); err != nil {
			return nil, err
		}
		pk = append(pk, colName)
	}

	return pk, rows.Err()
}

// extractForeignKeys extracts foreign keys together with their referential rules
func (e *Extractor) extractForeignKeys(ctx context.Context, tableName string) ([]foreignKey, error) {
	query := `
		SELECT
			kcu.column_name,
			ccu.table_name AS foreign_table_name,
			ccu.column_name AS foreign_column_name,
			rc.delete_rule,
			rc.update_rule
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		JOIN information_schema.referential_constraints AS rc
			ON rc.constraint_name = tc.constraint_name
			AND rc.constraint_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []foreignKey
	for rows.Next() {
		var fk foreignKey
		if err := rows.Scan(&fk.column, &fk.targetTable, &fk.targetColumn, &fk.onDelete, &fk.onUpdate); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}

	return fks, rows.Err()
}
