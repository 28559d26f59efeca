// pkg/database/database.go
package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var schema string

// mysqlDuplicateEntry est le code MySQL d'une clé primaire en double
const mysqlDuplicateEntry = 1062

// DB enveloppe la connexion MySQL partagée par le stockage et le portefeuille
type DB struct {
	conn *sqlx.DB
}

// NewDB crée une nouvelle connexion à la base de données
func NewDB(host, port, user, password, dbname string) (*DB, error) {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = dbname
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	// UPDATE compte les lignes trouvées, pas seulement modifiées
	cfg.ClientFoundRows = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}

	conn, err := sqlx.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configuration du pool de connexions
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// Test de connexion
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// NewFromConn réutilise une connexion existante
func NewFromConn(conn *sqlx.DB) *DB {
	return &DB{conn: conn}
}

// Close ferme la connexion
func (db *DB) Close() error {
	return db.conn.Close()
}

// Migrate crée les tables manquantes
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
