package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/tordrt/schemaforge/internal/schema"
)

// MySQLExtractor handles schema extraction from MySQL
type MySQLExtractor struct {
	client     *MySQLClient
	schemaName string
}

// NewMySQLExtractor creates a new MySQL schema extractor
func NewMySQLExtractor(client *MySQLClient, schemaName string) *MySQLExtractor {
	return &MySQLExtractor{
		client:     client,
		schemaName: schemaName,
	}
}

// ExtractSchema extracts the tables selected by filter
func (e *MySQLExtractor) ExtractSchema(ctx context.Context, filter Filter) (*schema.Schema, error) {
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
func (e *MySQLExtractor) getTableNames(ctx context.Context, filter Filter) ([]string, error) {
	if len(filter.Tables) > 0 {
		return filterTables(filter.Tables, filter.Exclude), nil
	}

	query, args, err := tableListQuery(
		sq.Select("table_name").
			From("information_schema.tables").
			Where(sq.Eq{"table_schema": e.schemaName, "table_type": "BASE TABLE"}),
		"table_name", filter.Exclude)
	if err != nil {
		return nil, err
	}

	rows, err := e.client.GetDB().QueryContext(ctx, query, args...)
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
func (e *MySQLExtractor) extractTable(ctx context.Context, tableName string) (schema.Table, []schema.Relationship, error) {
	var note string
	err := e.client.GetDB().QueryRowContext(ctx,
		`SELECT table_comment FROM information_schema.tables WHERE table_schema = ? AND table_name = ?`,
		e.schemaName, tableName).Scan(&note)
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
func (e *MySQLExtractor) extractColumns(ctx context.Context, tableName string) ([]column, error) {
	query := `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable,
			c.column_default,
			c.extra,
			CASE WHEN EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
					AND tc.table_name = kcu.table_name
				WHERE tc.table_schema = ?
					AND tc.table_name = ?
					AND tc.constraint_type = 'UNIQUE'
					AND kcu.column_name = c.column_name
			) THEN true ELSE false END as is_unique,
			c.column_comment
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []column
	for rows.Next() {
		var col column
		var nullable, extra string
		var defaultVal sql.NullString

		if err := rows.Scan(&col.name, &col.dataType, &nullable, &defaultVal, &extra, &col.unique, &col.note); err != nil {
			return nil, err
		}

		col.nullable = nullable == "YES"
		col.autoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		if defaultVal.Valid {
			col.defaultValue = &defaultVal.String
		}

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// extractPrimaryKey extracts primary key columns
func (e *MySQLExtractor) extractPrimaryKey(ctx context.Context, tableName string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
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
func (e *MySQLExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]foreignKey, error) {
	query := `
		SELECT
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name,
			rc.delete_rule,
			rc.update_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_schema = kcu.table_schema
			AND rc.constraint_name = kcu.constraint_name
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
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
