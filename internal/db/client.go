package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	_ "github.com/mattn/go-sqlite3"
)

const (
	applicationName = "schemaforge"
	connectTimeout  = 10 * time.Second
)

// PostgresClient is a single pgx connection used for catalog queries
type PostgresClient struct {
	conn *pgx.Conn
}

// NewPostgresClient connects to connString and verifies the connection.
// The session is tagged with application_name so imports show up in
// pg_stat_activity.
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if _, ok := cfg.RuntimeParams["application_name"]; !ok {
		cfg.RuntimeParams["application_name"] = applicationName
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = connectTimeout
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{conn: conn}, nil
}

// Close closes the database connection
func (c *PostgresClient) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// GetConnection returns the underlying connection
func (c *PostgresClient) GetConnection() *pgx.Conn {
	return c.conn
}

// sqlClient is the database/sql handle shared by the MySQL and SQLite clients
type sqlClient struct {
	db *sql.DB
}

func openSQLClient(ctx context.Context, db *sql.DB, name string) (sqlClient, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return sqlClient{}, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return sqlClient{db: db}, nil
}

// Close closes the database connection
func (c sqlClient) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying database handle
func (c sqlClient) GetDB() *sql.DB {
	return c.db
}

// MySQLClient reads information_schema through go-sql-driver/mysql
type MySQLClient struct {
	sqlClient
}

// NewMySQLClient opens a go-sql-driver DSN (user:pass@tcp(host:port)/database)
func NewMySQLClient(ctx context.Context, dsn string) (*MySQLClient, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = connectTimeout
	}
	if cfg.ConnectionAttributes == "" {
		cfg.ConnectionAttributes = "program_name:" + applicationName
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	c, err := openSQLClient(ctx, sql.OpenDB(connector), cfg.DBName)
	if err != nil {
		return nil, err
	}
	return &MySQLClient{sqlClient: c}, nil
}

// ParseDatabaseName returns the database named in a MySQL DSN
func ParseDatabaseName(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("failed to parse DSN: %w", err)
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("no database name in DSN")
	}
	return cfg.DBName, nil
}

// SQLiteClient holds a read-only handle on an SQLite file
type SQLiteClient struct {
	sqlClient
}

// NewSQLiteClient opens path read-only. A missing file is an error rather
// than a new empty database.
func NewSQLiteClient(ctx context.Context, path string) (*SQLiteClient, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	c, err := openSQLClient(ctx, db, path)
	if err != nil {
		return nil, err
	}
	return &SQLiteClient{sqlClient: c}, nil
}
