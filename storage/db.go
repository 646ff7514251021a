package storage

import (
	"costest/models"
	"costest/utils"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

var db *sql.DB

func InitDB() *sql.DB {
	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file")
	}
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")

	connStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%s sslmode=disable",
		user, password, dbname, host, port)

	var err error
	db, err = sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	if err := ensureAuthTables(db); err != nil {
		log.Fatal("Failed to create auth tables:", err)
	}

	return db
}

// ensureAuthTables creates the users and session tables if they do not exist.
// The estimator tables are migrated separately by GORM.
func ensureAuthTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            first_name TEXT NOT NULL DEFAULT '',
            last_name TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'contractor',
            company TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            suspended BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP NOT NULL DEFAULT NOW()
        )
    `)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS session (
            id SERIAL PRIMARY KEY,
            user_id INT NOT NULL,
            session_id TEXT NOT NULL,
            host_name TEXT,
            ip_address TEXT,
            timestp TIMESTAMP NOT NULL DEFAULT NOW(),
            expires_at TIMESTAMP NOT NULL
        )
    `)
	return err
}

func GetDB() *sql.DB {
	return db
}

// CreateUser inserts a new account and returns its id. Emails are unique
// case-insensitively.
func CreateUser(db *sql.DB, user *models.User) (int, error) {
	ctx, cancel := utils.GetDefaultQueryContext(nil)
	defer cancel()

	var id int
	query := `INSERT INTO users (email, password, first_name, last_name, role, company, phone, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING id`
	err := db.QueryRowContext(ctx, query, user.Email, user.Password, user.FirstName, user.LastName,
		user.Role, user.Company, user.Phone).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %v", err)
	}
	return id, nil
}

func GetUserByEmail(db *sql.DB, email string) (*models.User, error) {
	ctx, cancel := utils.GetDefaultQueryContext(nil)
	defer cancel()

	var user models.User
	query := `SELECT id, email, password, first_name, last_name, role, company, phone, suspended
	          FROM users WHERE LOWER(email) = LOWER($1)`

	err := db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &user.Password,
		&user.FirstName, &user.LastName, &user.Role, &user.Company, &user.Phone, &user.Suspended)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user with email %s not found", email)
		}
		return nil, fmt.Errorf("failed to query user: %v", err)
	}

	return &user, nil
}

// SaveSession saves a new session for a user. If allowMultipleSessions is
// false, all existing sessions for the user are removed first.
func SaveSession(db *sql.DB, session *models.Session, allowMultipleSessions bool) error {
	ctx, cancel := utils.GetDefaultQueryContext(nil)
	defer cancel()

	if !allowMultipleSessions {
		deleteAllQuery := `DELETE FROM session WHERE user_id = $1`
		if _, err := db.ExecContext(ctx, deleteAllQuery, session.UserID); err != nil {
			return fmt.Errorf("failed to delete all user sessions: %v", err)
		}
	}

	insertQuery := `INSERT INTO session (user_id, session_id, host_name, ip_address, timestp, expires_at)
                    VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := db.ExecContext(ctx, insertQuery, session.UserID, session.SessionID, session.HostName,
		session.IPAddress, session.Timestamp, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert new session: %v", err)
	}
	return nil
}

func DeleteSessionByID(db *sql.DB, sessionID string, userID int) error {
	ctx, cancel := utils.GetDefaultQueryContext(nil)
	defer cancel()

	result, err := db.ExecContext(ctx, `DELETE FROM session WHERE session_id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("session not found or already deleted")
	}

	return nil
}

// GetUserBySessionID resolves an active session token to its account.
// Suspended accounts are rejected even when the session is still live.
func GetUserBySessionID(db *sql.DB, sessionID string) (*models.User, error) {
	query := `
		SELECT u.id, u.email, u.first_name, u.last_name, u.role, u.company, u.phone, u.suspended
		FROM session s
		JOIN users u ON s.user_id = u.id
		WHERE s.session_id = $1 AND s.expires_at > NOW()
	`

	ctx, cancel := utils.GetDefaultQueryContext(nil)
	defer cancel()

	var user models.User
	err := db.QueryRowContext(ctx, query, sessionID).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.Role, &user.Company, &user.Phone, &user.Suspended,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("no active session for the given session ID")
		}
		return nil, err
	}
	if user.Suspended {
		return nil, errors.New("account suspended")
	}

	return &user, nil
}

func CleanupExpiredSessions(db *sql.DB) error {
	ctx, cancel := utils.GetSlowQueryContext(nil)
	defer cancel()

	threshold := time.Now().Add(-24 * time.Hour)
	_, err := db.ExecContext(ctx, "DELETE FROM session WHERE expires_at < $1", threshold)
	return err
}
