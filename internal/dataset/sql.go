package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"propscore/internal/score"
	"propscore/internal/score/value"
	"regexp"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// OpenSQL opens and pings a database.
func OpenSQL(ctx context.Context, driver, dsn string) (db *sql.DB, err error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		err = errors.Errorf("unsupported records driver: %s", driver)
		return db, err
	}

	db, err = sql.Open(driver, dsn)
	if err != nil {
		err = errors.Wrapf(err, "failed to open %s database", driver)
		return db, err
	}

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		err = errors.Wrapf(err, "failed to connect to %s database", driver)
		return nil, err
	}
	return db, err
}

// SQLSource reads records from a table or query result. Column names become
// field names; NULL reads as an empty cell.
type SQLSource struct {
	db      *sql.DB
	query   string
	idField string
}

// NewSQLSource creates a source running query. When query is empty the whole
// table is read, in its natural order.
func NewSQLSource(db *sql.DB, table, query, idField string) (*SQLSource, error) {
	if idField == "" {
		idField = DefaultIdentifierField
	}
	if query == "" {
		if !tableName.MatchString(table) {
			return nil, errors.Errorf("invalid records table name: %q", table)
		}
		query = fmt.Sprintf("SELECT * FROM %s", table)
	}
	return &SQLSource{db: db, query: query, idField: idField}, nil
}

// Records runs the query.
func (s *SQLSource) Records(ctx context.Context) (records []score.Record, err error) {
	var rows *sql.Rows
	rows, err = s.db.QueryContext(ctx, s.query)
	if err != nil {
		err = errors.Wrap(err, "failed to query records")
		return records, err
	}
	defer rows.Close()

	var columns []string
	columns, err = rows.Columns()
	if err != nil {
		err = errors.Wrap(err, "failed to read record columns")
		return records, err
	}

	records = []score.Record{}
	cells := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range cells {
		dest[i] = &cells[i]
	}

	for position := 0; rows.Next(); position++ {
		if err = rows.Scan(dest...); err != nil {
			err = errors.Wrapf(err, "failed to scan record %d", position)
			return nil, err
		}
		fields := make(map[string]value.Value, len(columns))
		for i, name := range columns {
			fields[name] = value.FromAny(cells[i])
		}
		records = append(records, NewRecord(position, fields, s.idField))
	}

	if err = rows.Err(); err != nil {
		err = errors.Wrap(err, "failed to iterate records")
		return nil, err
	}
	return records, nil
}
