package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | timestamps are naive local values
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// schema holds the CREATE TABLE statements for the whole application,
// in dependency order.  Every statement is idempotent so the server
// can execute the list on each start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS files (
        id CHAR(36) NOT NULL,
        name VARCHAR(255) NOT NULL,
        content_type VARCHAR(255) NOT NULL,
        data LONGBLOB NOT NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS identities (
        id CHAR(36) NOT NULL,
        authority VARCHAR(15) NOT NULL,
        username VARCHAR(255) NOT NULL,
        password_hash VARCHAR(255) NOT NULL,
        email VARCHAR(255) NOT NULL,
        is_active TINYINT(1) NOT NULL DEFAULT 1,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        UNIQUE KEY uq_identities_username (username),
        UNIQUE KEY uq_identities_email (email)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS identity_files (
        identity_id CHAR(36) NOT NULL,
        file_id CHAR(36) NOT NULL,
        PRIMARY KEY (identity_id, file_id),
        CONSTRAINT fk_identity_files_identity FOREIGN KEY (identity_id)
            REFERENCES identities (id) ON DELETE CASCADE ON UPDATE CASCADE,
        CONSTRAINT fk_identity_files_file FOREIGN KEY (file_id)
            REFERENCES files (id) ON DELETE CASCADE ON UPDATE CASCADE
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
        id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        identity_id CHAR(36) NOT NULL,
        token_hash CHAR(64) NOT NULL,
        expires_at DATETIME NOT NULL,
        revoked_at DATETIME NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        UNIQUE KEY uq_refresh_tokens_hash (token_hash),
        CONSTRAINT fk_refresh_tokens_identity FOREIGN KEY (identity_id)
            REFERENCES identities (id) ON DELETE CASCADE ON UPDATE CASCADE
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS addresses (
        id CHAR(36) NOT NULL,
        city VARCHAR(255) NOT NULL,
        street VARCHAR(255) NOT NULL,
        house VARCHAR(255) NOT NULL,
        apartment VARCHAR(255) NULL,
        PRIMARY KEY (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS restaurants (
        id CHAR(36) NOT NULL,
        name VARCHAR(255) NOT NULL,
        description TEXT NOT NULL,
        PRIMARY KEY (id),
        UNIQUE KEY uq_restaurants_name (name)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS locations (
        restaurant_id CHAR(36) NOT NULL,
        address_id CHAR(36) NOT NULL,
        places INT NOT NULL DEFAULT 0,
        open TIME NULL,
        close TIME NULL,
        PRIMARY KEY (restaurant_id, address_id),
        CONSTRAINT fk_locations_restaurant FOREIGN KEY (restaurant_id)
            REFERENCES restaurants (id) ON DELETE CASCADE ON UPDATE CASCADE,
        CONSTRAINT fk_locations_address FOREIGN KEY (address_id)
            REFERENCES addresses (id) ON DELETE CASCADE ON UPDATE CASCADE,
        CONSTRAINT chk_locations_places CHECK (places >= 0)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS employees (
        id CHAR(36) NOT NULL,
        identity_id CHAR(36) NOT NULL,
        position VARCHAR(255) NOT NULL,
        location_restaurant_id CHAR(36) NULL,
        location_address_id CHAR(36) NULL,
        firstname VARCHAR(255) NOT NULL,
        lastname VARCHAR(255) NOT NULL,
        patronymic VARCHAR(255) NOT NULL,
        age INT NOT NULL,
        birthday DATE NOT NULL,
        home_address_id CHAR(36) NOT NULL,
        PRIMARY KEY (id),
        UNIQUE KEY uq_employees_identity (identity_id),
        CONSTRAINT fk_employees_identity FOREIGN KEY (identity_id)
            REFERENCES identities (id) ON DELETE CASCADE ON UPDATE CASCADE,
        CONSTRAINT fk_employees_location FOREIGN KEY (location_restaurant_id, location_address_id)
            REFERENCES locations (restaurant_id, address_id) ON DELETE SET NULL ON UPDATE CASCADE,
        CONSTRAINT fk_employees_home_address FOREIGN KEY (home_address_id)
            REFERENCES addresses (id) ON DELETE CASCADE ON UPDATE CASCADE
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS director_servants (
        director_id CHAR(36) NOT NULL,
        servant_id CHAR(36) NOT NULL,
        PRIMARY KEY (director_id, servant_id),
        CONSTRAINT fk_director_servants_director FOREIGN KEY (director_id)
            REFERENCES employees (id) ON DELETE CASCADE ON UPDATE CASCADE,
        CONSTRAINT fk_director_servants_servant FOREIGN KEY (servant_id)
            REFERENCES employees (id) ON DELETE CASCADE ON UPDATE CASCADE
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
        id CHAR(36) NOT NULL,
        location_restaurant_id CHAR(36) NOT NULL,
        location_address_id CHAR(36) NOT NULL,
        name VARCHAR(255) NOT NULL,
        phone VARCHAR(64) NOT NULL,
        places INT NOT NULL,
        start_time DATETIME NOT NULL,
        end_time DATETIME NULL,
        is_started TINYINT(1) NOT NULL DEFAULT 0,
        is_finished TINYINT(1) NOT NULL DEFAULT 0,
        PRIMARY KEY (id),
        KEY idx_reservations_location_date (location_restaurant_id, location_address_id, start_time),
        KEY idx_reservations_sweep (is_finished, is_started, start_time),
        CONSTRAINT fk_reservations_location FOREIGN KEY (location_restaurant_id, location_address_id)
            REFERENCES locations (restaurant_id, address_id) ON DELETE CASCADE ON UPDATE CASCADE,
        CONSTRAINT chk_reservations_places CHECK (places > 0)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates all application tables when they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
