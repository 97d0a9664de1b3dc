package storage

import "fmt"

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// dialect covers the few places where MySQL and SQLite disagree.
type dialect struct {
	name         string
	schema       []string
	insertIgnore string
	// lockSuffix is appended to reads that must block concurrent writers.
	// SQLite has no row locks; it relies on BEGIN IMMEDIATE (_txlock=immediate).
	lockSuffix string
}

var mysqlDialect = dialect{
	name:         DriverMySQL,
	insertIgnore: "INSERT IGNORE",
	lockSuffix:   " FOR UPDATE",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS items (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NULL,
			price DECIMAL(18,2) NOT NULL,
			stock_quantity INT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			modified_at DATETIME(6) NULL,
			CONSTRAINT chk_items_price CHECK (price >= 0),
			CONSTRAINT chk_items_stock CHECK (stock_quantity >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS item_history (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			item_id BIGINT NOT NULL,
			action ENUM('INSERT','UPDATE','DELETE') NOT NULL,
			old_price DECIMAL(18,2) NULL,
			new_price DECIMAL(18,2) NULL,
			old_stock INT NULL,
			new_stock INT NULL,
			action_at DATETIME(6) NOT NULL,
			INDEX idx_item_history_item (item_id, action_at)
		)`,
		`CREATE TABLE IF NOT EXISTS aggregate_stats (
			stat_id INT NOT NULL PRIMARY KEY,
			total_items BIGINT NOT NULL,
			total_price DECIMAL(30,2) NOT NULL,
			average_price DECIMAL(18,4) NOT NULL,
			last_updated DATETIME(6) NOT NULL,
			CONSTRAINT chk_aggregate_singleton CHECK (stat_id = 1)
		)`,
	},
}

var sqliteDialect = dialect{
	name:         DriverSQLite,
	insertIgnore: "INSERT OR IGNORE",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT,
			price DECIMAL(18,2) NOT NULL CHECK (price >= 0),
			stock_quantity INTEGER NOT NULL CHECK (stock_quantity >= 0),
			created_at DATETIME NOT NULL,
			modified_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS item_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id INTEGER NOT NULL,
			action TEXT NOT NULL CHECK (action IN ('INSERT','UPDATE','DELETE')),
			old_price DECIMAL(18,2),
			new_price DECIMAL(18,2),
			old_stock INTEGER,
			new_stock INTEGER,
			action_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_item_history_item ON item_history (item_id, action_at)`,
		`CREATE TABLE IF NOT EXISTS aggregate_stats (
			stat_id INTEGER PRIMARY KEY CHECK (stat_id = 1),
			total_items INTEGER NOT NULL,
			total_price DECIMAL(30,2) NOT NULL,
			average_price DECIMAL(18,4) NOT NULL,
			last_updated DATETIME NOT NULL
		)`,
	},
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverMySQL:
		return mysqlDialect, nil
	case DriverSQLite:
		return sqliteDialect, nil
	}
	return dialect{}, fmt.Errorf("unsupported driver %q", driver)
}
