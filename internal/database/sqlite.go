package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO required)
)

// DB holds the database connection
var DB *sql.DB

// Connect establishes a connection to the SQLite database
func Connect(dbPath string) error {
	// Ensure data directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	var err error
	// modernc.org/sqlite uses "sqlite" as driver name
	connStr := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", dbPath)
	DB, err = sql.Open("sqlite", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	DB.SetMaxOpenConns(1) // SQLite only supports one writer
	DB.SetMaxIdleConns(1)
	DB.SetConnMaxLifetime(time.Hour)

	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// migrate runs the base schema and any versioned follow-up migrations.
func migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			slug       TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL,
			timezone   TEXT NOT NULL DEFAULT 'UTC',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id     INTEGER NOT NULL,
			email         TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'operator',
			permissions   TEXT DEFAULT '{}',
			is_active     INTEGER DEFAULT 1,
			created_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(tenant_id, email),
			FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS devices (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id         INTEGER NOT NULL,
			device_key        TEXT NOT NULL,
			name              TEXT NOT NULL DEFAULT '',
			description       TEXT DEFAULT '',
			is_active         INTEGER DEFAULT 1,
			last_seen         DATETIME,
			provisioning_key  TEXT DEFAULT '',
			created_at        DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(tenant_id, device_key),
			FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_devices_tenant ON devices(tenant_id)`,

		`CREATE TABLE IF NOT EXISTS parameters (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id        INTEGER NOT NULL,
			parameter_key    TEXT NOT NULL,
			data_type        TEXT NOT NULL DEFAULT 'float',
			display_name     TEXT DEFAULT '',
			unit             TEXT DEFAULT '',
			is_kpi_selected  INTEGER DEFAULT 1,
			created_at       DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(device_id, parameter_key),
			FOREIGN KEY (device_id) REFERENCES devices(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_parameters_device ON parameters(device_id)`,

		`CREATE TABLE IF NOT EXISTS rules (
			id                    TEXT PRIMARY KEY,
			tenant_id             INTEGER NOT NULL,
			name                  TEXT NOT NULL,
			severity              TEXT NOT NULL DEFAULT 'medium',
			scope                 TEXT NOT NULL DEFAULT 'device',
			condition             TEXT NOT NULL DEFAULT '{}',
			cooldown_minutes      INTEGER NOT NULL DEFAULT 15,
			is_active             INTEGER DEFAULT 1,
			schedule_type         TEXT NOT NULL DEFAULT 'always',
			schedule_config       TEXT DEFAULT '',
			created_at            DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at            DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_tenant ON rules(tenant_id, is_active)`,

		`CREATE TABLE IF NOT EXISTS rule_devices (
			rule_id    TEXT NOT NULL,
			device_id  INTEGER NOT NULL,
			PRIMARY KEY (rule_id, device_id),
			FOREIGN KEY (rule_id) REFERENCES rules(id) ON DELETE CASCADE,
			FOREIGN KEY (device_id) REFERENCES devices(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rule_devices_device ON rule_devices(device_id)`,

		`CREATE TABLE IF NOT EXISTS rule_channels (
			rule_id    TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			PRIMARY KEY (rule_id, channel_id),
			FOREIGN KEY (rule_id) REFERENCES rules(id) ON DELETE CASCADE,
			FOREIGN KEY (channel_id) REFERENCES notification_channels(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS notification_channels (
			id         TEXT PRIMARY KEY,
			tenant_id  INTEGER NOT NULL,
			kind       TEXT NOT NULL,
			target     TEXT NOT NULL,
			is_enabled INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS cooldowns (
			rule_id        TEXT NOT NULL,
			device_id      INTEGER NOT NULL,
			last_triggered DATETIME NOT NULL,
			PRIMARY KEY (rule_id, device_id),
			FOREIGN KEY (rule_id) REFERENCES rules(id) ON DELETE CASCADE,
			FOREIGN KEY (device_id) REFERENCES devices(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id           INTEGER NOT NULL,
			rule_id             TEXT NOT NULL,
			device_id           INTEGER NOT NULL,
			triggered_at        DATETIME NOT NULL,
			severity            TEXT NOT NULL,
			message             TEXT NOT NULL,
			telemetry_snapshot  TEXT NOT NULL DEFAULT '{}',
			resolved_at         DATETIME,
			notification_sent   INTEGER DEFAULT 0,
			FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE,
			FOREIGN KEY (rule_id) REFERENCES rules(id) ON DELETE CASCADE,
			FOREIGN KEY (device_id) REFERENCES devices(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_rule_device ON alerts(rule_id, device_id, triggered_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_tenant_time ON alerts(tenant_id, triggered_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_resolved ON alerts(resolved_at)`,

		`CREATE TABLE IF NOT EXISTS notification_history (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			alert_id      INTEGER NOT NULL,
			channel_id    TEXT NOT NULL,
			channel_kind  TEXT NOT NULL,
			recipient_id  INTEGER NOT NULL,
			status        TEXT NOT NULL DEFAULT 'pending',
			error_message TEXT DEFAULT '',
			retry_count   INTEGER DEFAULT 0,
			created_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
			sent_at       DATETIME,
			FOREIGN KEY (alert_id) REFERENCES alerts(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notification_history_alert ON notification_history(alert_id)`,

		`CREATE TABLE IF NOT EXISTS analytics_jobs (
			id             TEXT PRIMARY KEY,
			tenant_id      INTEGER NOT NULL,
			created_by     INTEGER NOT NULL,
			job_type       TEXT NOT NULL,
			device_ids     TEXT NOT NULL DEFAULT '[]',
			start_time     DATETIME NOT NULL,
			end_time       DATETIME NOT NULL,
			status         TEXT NOT NULL DEFAULT 'pending',
			started_at     DATETIME,
			completed_at   DATETIME,
			result_url     TEXT DEFAULT '',
			error_message  TEXT DEFAULT '',
			retry_count    INTEGER DEFAULT 0,
			created_at     DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_jobs_tenant ON analytics_jobs(tenant_id, status)`,

		`CREATE TABLE IF NOT EXISTS reports (
			id                 TEXT PRIMARY KEY,
			tenant_id          INTEGER NOT NULL,
			created_by         INTEGER NOT NULL,
			title              TEXT DEFAULT '',
			device_ids         TEXT NOT NULL DEFAULT '[]',
			start_time         DATETIME NOT NULL,
			end_time           DATETIME NOT NULL,
			format             TEXT NOT NULL DEFAULT 'pdf',
			include_analytics  INTEGER DEFAULT 0,
			analytics_job_id   TEXT DEFAULT '',
			status             TEXT NOT NULL DEFAULT 'pending',
			started_at         DATETIME,
			completed_at       DATETIME,
			result_url         TEXT DEFAULT '',
			error_message      TEXT DEFAULT '',
			file_size_bytes    INTEGER DEFAULT 0,
			expires_at         DATETIME,
			created_at         DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_tenant ON reports(tenant_id, status)`,
	}

	for _, migration := range migrations {
		if _, err := DB.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, migration)
		}
	}

	if err := migrateV2(); err != nil {
		return fmt.Errorf("v2 migration failed: %w", err)
	}

	return nil
}

// Transaction executes a function within a transaction
func Transaction(fn func(*sql.Tx) error) error {
	tx, err := DB.Begin()
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// migrateV2 adds the unit column to parameters for existing databases;
// fresh databases already carry it from the base schema above.
func migrateV2() error {
	rows, err := DB.Query("PRAGMA table_info(parameters)")
	if err != nil {
		return err
	}
	defer rows.Close()

	var hasUnit bool
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == "unit" {
			hasUnit = true
			break
		}
	}
	if hasUnit {
		return nil
	}

	_, err = DB.Exec(`ALTER TABLE parameters ADD COLUMN unit TEXT DEFAULT ''`)
	return err
}
