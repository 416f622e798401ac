package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/tordrt/schemaforge/internal/schema"
)

// SQLiteExtractor handles schema extraction from SQLite
type SQLiteExtractor struct {
	client *SQLiteClient
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient) *SQLiteExtractor {
	return &SQLiteExtractor{
		client: client,
	}
}

// ExtractSchema extracts the tables selected by filter
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, filter Filter) (*schema.Schema, error) {
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
func (e *SQLiteExtractor) getTableNames(ctx context.Context, filter Filter) ([]string, error) {
	if len(filter.Tables) > 0 {
		return filterTables(filter.Tables, filter.Exclude), nil
	}

	query, args, err := tableListQuery(
		sq.Select("name").
			From("sqlite_master").
			Where(sq.Eq{"type": "table"}).
			Where(sq.NotLike{"name": "sqlite_%"}),
		"name", filter.Exclude)
	if err != nil {
		return nil, err
	}

	rows, err := e.client.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

// extractTable extracts all information for a single table
func (e *SQLiteExtractor) extractTable(ctx context.Context, tableName string) (schema.Table, []schema.Relationship, error) {
	columns, pk, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return schema.Table{}, nil, fmt.Errorf("failed to extract columns: %w", err)
	}

	fks, err := e.extractForeignKeys(ctx, tableName)
	if err != nil {
		return schema.Table{}, nil, fmt.Errorf("failed to extract relations: %w", err)
	}

	// SQLite has no table comments
	table, rels := buildTable(tableName, "", columns, pk, fks)
	return table, rels, nil
}

// extractColumns extracts column information and the primary key for a table.
// A single INTEGER primary key is a rowid alias and therefore auto-increments.
func (e *SQLiteExtractor) extractColumns(ctx context.Context, tableName string) ([]column, []string, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(tableName))

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []column
	pkOrder := make(map[int]string)

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, nil, err
		}

		col := column{
			name:     name,
			dataType: strings.ToLower(colType),
			nullable: notNull == 0,
		}

		if defaultValue.Valid {
			def := strings.Trim(defaultValue.String, "'")
			col.defaultValue = &def
		}

		if pk > 0 {
			pkOrder[pk] = name
		}

		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	pkColumns := make([]string, 0, len(pkOrder))
	for i := 1; i <= len(pkOrder); i++ {
		pkColumns = append(pkColumns, pkOrder[i])
	}

	uniqueColumns, err := e.uniqueColumns(ctx, tableName)
	if err != nil {
		return nil, nil, err
	}

	for i := range columns {
		columns[i].unique = uniqueColumns[columns[i].name]
		if len(pkColumns) == 1 && pkColumns[0] == columns[i].name && columns[i].dataType == "integer" {
			columns[i].autoIncrement = true
		}
	}

	return columns, pkColumns, nil
}

// uniqueColumns returns the columns covered by a single-column unique index
func (e *SQLiteExtractor) uniqueColumns(ctx context.Context, tableName string) (map[string]bool, error) {
	query := fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(tableName))
	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	var uniqueIndexes []string
	for rows.Next() {
		var seq int
		var name, origin string
		var unique, partial int

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}

		// pk-origin indexes are covered by the primary key
		if unique == 1 && origin != "pk" {
			uniqueIndexes = append(uniqueIndexes, name)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	unique := make(map[string]bool)
	for _, name := range uniqueIndexes {
		indexColumns, err := e.indexColumns(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(indexColumns) == 1 {
			unique[indexColumns[0]] = true
		}
	}

	return unique, nil
}

func (e *SQLiteExtractor) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	query := fmt.Sprintf("PRAGMA index_info(%s)", quoteIdent(indexName))
	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString

		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}

	return columns, rows.Err()
}

// extractForeignKeys extracts foreign keys together with their referential rules
func (e *SQLiteExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]foreignKey, error) {
	query := fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(tableName))

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		fks  []foreignKey
		seqs []int
	)

	for rows.Next() {
		var id, seq int
		var targetTable, fromCol, match string
		var toCol sql.NullString
		var onUpdate, onDelete string

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}

		fk := foreignKey{
			column:      fromCol,
			targetTable: targetTable,
			onDelete:    onDelete,
			onUpdate:    onUpdate,
		}
		if toCol.Valid {
			fk.targetColumn = toCol.String
		}

		fks = append(fks, fk)
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// REFERENCES t without a column list points at t's primary key
	for i := range fks {
		if fks[i].targetColumn != "" {
			continue
		}
		_, pk, err := e.extractColumns(ctx, fks[i].targetTable)
		if err != nil {
			return nil, err
		}
		if seqs[i] < len(pk) {
			fks[i].targetColumn = pk[seqs[i]]
		}
	}

	return fks, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
