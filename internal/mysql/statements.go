package mysql

import (
	"database/sql"
	"fmt"
	"sync"
)

// stmtCache prepares statements lazily and keeps them for the life of the
// connection pool, keyed by name.
type stmtCache struct {
	mu         sync.Mutex
	db         *sql.DB
	statements map[string]*sql.Stmt
}

func newStmtCache(db *sql.DB) *stmtCache {
	return &stmtCache{
		db:         db,
		statements: make(map[string]*sql.Stmt),
	}
}

func (c *stmtCache) prepare(name, query string) (*sql.Stmt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if stmt, ok := c.statements[name]; ok {
		return stmt, nil
	}

	stmt, err := c.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement [%s]: %w", name, err)
	}

	c.statements[name] = stmt
	return stmt, nil
}

func (c *stmtCache) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, stmt := range c.statements {
		_ = stmt.Close()
		delete(c.statements, name)
	}
}

// saveCode is an upsert: re-adding a code resets its added_at and used flag.
func (s *MySql) stmtSaveCode() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`INSERT INTO %scodes (code, added_at, used)
                 VALUES (?, ?, ?)
                 ON DUPLICATE KEY UPDATE added_at = VALUES(added_at), used = VALUES(used)`,
		s.prefix,
	)
	return s.stmts.prepare("saveCode", query)
}

func (s *MySql) stmtSelectCode() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT code, added_at, used FROM %scodes WHERE code = ?`,
		s.prefix,
	)
	return s.stmts.prepare("selectCode", query)
}

func (s *MySql) stmtSelectCodes() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT code, added_at, used FROM %scodes ORDER BY added_at`,
		s.prefix,
	)
	return s.stmts.prepare("selectCodes", query)
}

func (s *MySql) stmtMarkCodeUsed() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`UPDATE %scodes SET used = 1 WHERE code = ?`,
		s.prefix,
	)
	return s.stmts.prepare("markCodeUsed", query)
}

func (s *MySql) stmtDeleteCode() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`DELETE FROM %scodes WHERE code = ?`,
		s.prefix,
	)
	return s.stmts.prepare("deleteCode", query)
}

func (s *MySql) stmtDeleteCodesBefore() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`DELETE FROM %scodes WHERE added_at < ?`,
		s.prefix,
	)
	return s.stmts.prepare("deleteCodesBefore", query)
}

func (s *MySql) stmtSelectAllowedUsers() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT user_id, granted_at FROM %sallowed_users ORDER BY user_id`,
		s.prefix,
	)
	return s.stmts.prepare("selectAllowedUsers", query)
}

func (s *MySql) stmtSelectAllowedUser() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`SELECT user_id FROM %sallowed_users WHERE user_id = ?`,
		s.prefix,
	)
	return s.stmts.prepare("selectAllowedUser", query)
}

func (s *MySql) stmtSaveAllowedUser() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`INSERT IGNORE INTO %sallowed_users (user_id, granted_at) VALUES (?, ?)`,
		s.prefix,
	)
	return s.stmts.prepare("saveAllowedUser", query)
}

func (s *MySql) stmtDeleteAllowedUser() (*sql.Stmt, error) {
	query := fmt.Sprintf(
		`DELETE FROM %sallowed_users WHERE user_id = ?`,
		s.prefix,
	)
	return s.stmts.prepare("deleteAllowedUser", query)
}
