package mysql

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"codegate/entity"
	"codegate/internal/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySql is the SQL-backed store: a codes table keyed by the code string and
// an allowed_users table keyed by the Telegram user id.
type MySql struct {
	db     *sql.DB
	prefix string
	stmts  *stmtCache
}

func NewSQLClient(conf *config.Config) (*MySql, error) {
	if !conf.MySql.Enabled {
		return nil, fmt.Errorf("mysql client is disabled in configuration")
	}
	connectionURI := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		conf.MySql.User, conf.MySql.Password, conf.MySql.Host, conf.MySql.Port, conf.MySql.Database)
	db, err := sql.Open("mysql", connectionURI)
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}

	// try to ping three times with a 30-second interval; wait for a database to start
	for i := 0; i < 3; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 2 {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		time.Sleep(30 * time.Second)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &MySql{
		db:     db,
		prefix: conf.MySql.Prefix,
		stmts:  newStmtCache(db),
	}

	if err = sdb.ensureTables(); err != nil {
		return nil, err
	}

	return sdb, nil
}

func (s *MySql) Close() {
	s.stmts.close()
	_ = s.db.Close()
}

func (s *MySql) ensureTables() error {
	tables := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %scodes (
                   code VARCHAR(128) NOT NULL,
                   added_at DATETIME NOT NULL,
                   used TINYINT(1) NOT NULL DEFAULT 0,
                   PRIMARY KEY (code)
                   )`, s.prefix),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %sallowed_users (
                   user_id BIGINT NOT NULL,
                   granted_at DATETIME NOT NULL,
                   PRIMARY KEY (user_id)
                   )`, s.prefix),
	}
	for _, query := range tables {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

func (s *MySql) SaveCode(code *entity.Code) error {
	stmt, err := s.stmtSaveCode()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(code.Code, code.AddedAt.UTC(), code.Used)
	return err
}

func (s *MySql) GetCode(value string) (*entity.Code, error) {
	stmt, err := s.stmtSelectCode()
	if err != nil {
		return nil, err
	}
	var code entity.Code
	err = stmt.QueryRow(value).Scan(&code.Code, &code.AddedAt, &code.Used)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (s *MySql) GetCodes() ([]*entity.Code, error) {
	stmt, err := s.stmtSelectCodes()
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []*entity.Code
	for rows.Next() {
		var code entity.Code
		if err = rows.Scan(&code.Code, &code.AddedAt, &code.Used); err != nil {
			return nil, err
		}
		codes = append(codes, &code)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *MySql) MarkCodeUsed(value string) error {
	stmt, err := s.stmtMarkCodeUsed()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(value)
	return err
}

func (s *MySql) DeleteCode(value string) (bool, error) {
	stmt, err := s.stmtDeleteCode()
	if err != nil {
		return false, err
	}
	result, err := stmt.Exec(value)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *MySql) DeleteCodesAddedBefore(cutoff time.Time) (int64, error) {
	stmt, err := s.stmtDeleteCodesBefore()
	if err != nil {
		return 0, err
	}
	result, err := stmt.Exec(cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *MySql) GetAllowedUsers() ([]*entity.AllowedUser, error) {
	stmt, err := s.stmtSelectAllowedUsers()
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*entity.AllowedUser
	for rows.Next() {
		var user entity.AllowedUser
		if err = rows.Scan(&user.UserId, &user.GrantedAt); err != nil {
			return nil, err
		}
		users = append(users, &user)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *MySql) SaveAllowedUser(user *entity.AllowedUser) error {
	stmt, err := s.stmtSaveAllowedUser()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(user.UserId, user.GrantedAt.UTC())
	return err
}

func (s *MySql) DeleteAllowedUser(userId int64) (bool, error) {
	stmt, err := s.stmtDeleteAllowedUser()
	if err != nil {
		return false, err
	}
	result, err := stmt.Exec(userId)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *MySql) IsAllowedUser(userId int64) (bool, error) {
	stmt, err := s.stmtSelectAllowedUser()
	if err != nil {
		return false, err
	}
	var id int64
	err = stmt.QueryRow(userId).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
