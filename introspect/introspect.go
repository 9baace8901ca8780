package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Querier is the slice of a pgx pool or connection the live lookup needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type ExistingColumn struct {
	ColumnName string
	DataType   string
	IsNullable bool
}

type ExistingIndex struct {
	IndexName string
	Columns   []string
	IsUnique  bool
}

// LiveColumns lists the columns the database currently has for table.
func LiveColumns(ctx context.Context, q Querier, table string) ([]ExistingColumn, error) {
	columnsQuery := `
	SELECT
		c.column_name,
		c.data_type,
		(c.is_nullable = 'YES') as is_nullable
	FROM information_schema.columns c
	WHERE c.table_schema = current_schema() AND c.table_name = $1
	ORDER BY c.ordinal_position;
	`

	rows, err := q.Query(ctx, columnsQuery, table)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	var columns []ExistingColumn
	for rows.Next() {
		var col ExistingColumn
		if err := rows.Scan(&col.ColumnName, &col.DataType, &col.IsNullable); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		columns = append(columns, col)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterating column rows: %w", rows.Err())
	}

	return columns, nil
}

// LiveIndexes lists the indexes defined on table.
func LiveIndexes(ctx context.Context, q Querier, table string) ([]ExistingIndex, error) {
	indexesQuery := `
	SELECT
		ic.relname,
		array_to_string(array_agg(a.attname ORDER BY a.attnum), ',') as column_names,
		idx.indisunique
	FROM pg_index idx
	JOIN pg_class ic ON ic.oid = idx.indexrelid
	JOIN pg_class tc ON tc.oid = idx.indrelid
	JOIN pg_namespace n ON n.oid = tc.relnamespace
	JOIN pg_attribute a ON a.attrelid = idx.indrelid AND a.attnum = ANY(idx.indkey)
	WHERE tc.relname = $1 AND n.nspname = current_schema()
	GROUP BY ic.relname, idx.indisunique
	ORDER BY ic.relname;
	`

	rows, err := q.Query(ctx, indexesQuery, table)
	if err != nil {
		return nil, fmt.Errorf("querying indexes: %w", err)
	}
	defer rows.Close()

	var indexes []ExistingIndex
	for rows.Next() {
		var idx ExistingIndex
		var columnNames string
		if err := rows.Scan(&idx.IndexName, &columnNames, &idx.IsUnique); err != nil {
			return nil, fmt.Errorf("scanning index: %w", err)
		}
		idx.Columns = splitColumnList(columnNames)
		indexes = append(indexes, idx)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterating index rows: %w", rows.Err())
	}

	return indexes, nil
}

// Live reads table's columns and indexes from the database as a History,
// so it can be merged with what the migration files declare.
func Live(ctx context.Context, q Querier, table string) (History, error) {
	h := NewHistory()

	columns, err := LiveColumns(ctx, q, table)
	if err != nil {
		return h, fmt.Errorf("getting columns for table %s: %w", table, err)
	}
	for _, c := range columns {
		h.Columns.Add(c.ColumnName)
	}
	// a table with no columns does not exist
	h.Created = len(columns) > 0

	indexes, err := LiveIndexes(ctx, q, table)
	if err != nil {
		return h, fmt.Errorf("getting indexes for table %s: %w", table, err)
	}
	for _, idx := range indexes {
		h.Indexes[idx.IndexName] = true
	}
	return h, nil
}

func splitColumnList(list string) []string {
	if list == "" {
		return nil
	}
	columns := strings.Split(list, ",")
	for i, col := range columns {
		columns[i] = strings.TrimSpace(col)
	}
	return columns
}
