package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresConfig locates a PostgreSQL registry database.
type PostgresConfig struct {
	Host     string `mapstructure:"host" yaml:"host,omitempty"`
	Port     int    `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port,omitempty"`
	Database string `mapstructure:"database" yaml:"database,omitempty"`
	User     string `mapstructure:"user" yaml:"user,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	// SSLMode is disable, require, verify-ca or verify-full.
	SSLMode string `mapstructure:"sslmode" yaml:"sslmode,omitempty"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, port, c.User, c.Password, c.Database, sslMode)
}

// clientRow is the table layout shared by the SQLite and PostgreSQL backends.
type clientRow struct {
	Identity    string `gorm:"primaryKey;size:255"`
	FirstSeen   time.Time
	LastSeen    time.Time
	LastAddress string `gorm:"size:255"`
	Sessions    int64
}

func (clientRow) TableName() string { return "registry_clients" }

func (r *clientRow) toClient() *Client {
	return &Client{
		Identity:    r.Identity,
		FirstSeen:   r.FirstSeen,
		LastSeen:    r.LastSeen,
		LastAddress: r.LastAddress,
		Sessions:    r.Sessions,
	}
}

// SQLStore persists records through GORM in SQLite or PostgreSQL.
//
// Touch is a single upsert, so concurrent sessions for the same identity
// never lose an increment regardless of backend.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLiteStore opens (or creates) a SQLite registry file at path.
func OpenSQLiteStore(path string) (*SQLStore, error) {
	if path == "" {
		return nil, errors.New("sqlite registry requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}
	// WAL lets readers proceed while a Touch commits.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	s, err := openSQL(sqlite.Open(dsn))
	if err != nil {
		return nil, err
	}

	// SQLite has a single writer; one connection avoids SQLITE_BUSY on
	// lock upgrades.
	sqlDB, err := s.db.DB()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("get underlying database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return s, nil
}

// OpenPostgresStore connects to the PostgreSQL registry described by cfg.
func OpenPostgresStore(cfg PostgresConfig) (*SQLStore, error) {
	if cfg.Host == "" || cfg.Database == "" || cfg.User == "" {
		return nil, errors.New("postgres registry requires host, database and user")
	}
	return openSQL(postgres.Open(cfg.DSN()))
}

func openSQL(dialector gorm.Dialector) (*SQLStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to registry database: %w", err)
	}
	if err := db.AutoMigrate(&clientRow{}); err != nil {
		return nil, fmt.Errorf("migrate registry schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Touch(ctx context.Context, identity, remoteAddr string, at time.Time) (*Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var row clientRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insert := clientRow{
			Identity:    identity,
			FirstSeen:   at,
			LastSeen:    at,
			LastAddress: remoteAddr,
			Sessions:    1,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identity"}},
			DoUpdates: clause.Assignments(map[string]any{
				"last_seen":    at,
				"last_address": remoteAddr,
				"sessions":     gorm.Expr("registry_clients.sessions + 1"),
			}),
		}).Create(&insert).Error
		if err != nil {
			return err
		}
		return tx.Where("identity = ?", identity).Take(&row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("touch %s: %w", identity, err)
	}
	return row.toClient(), nil
}

func (s *SQLStore) Get(ctx context.Context, identity string) (*Client, error) {
	var row clientRow
	err := s.db.WithContext(ctx).Where("identity = ?", identity).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toClient(), nil
}

func (s *SQLStore) List(ctx context.Context) ([]*Client, error) {
	var rows []clientRow
	if err := s.db.WithContext(ctx).Order("identity").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*Client, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toClient())
	}
	return out, nil
}

// Healthcheck pings the database.
func (s *SQLStore) Healthcheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get underlying database: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get underlying database: %w", err)
	}
	return sqlDB.Close()
}

var _ Store = (*SQLStore)(nil)
