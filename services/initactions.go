package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"devhost-keeper/internal/artifact"
	"devhost-keeper/internal/logger"
	"devhost-keeper/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// sqlSession runs administrative statements against the database server.
type sqlSession interface {
	QueryBool(ctx context.Context, sql string) (bool, error)
	Exec(ctx context.Context, sql string) error
	Close()
}

type pgxSession struct {
	conn *pgx.Conn
}

func (s *pgxSession) QueryBool(ctx context.Context, sql string) (bool, error) {
	var v bool
	err := s.conn.QueryRow(ctx, sql).Scan(&v)
	return v, err
}

func (s *pgxSession) Exec(ctx context.Context, sql string) error {
	_, err := s.conn.Exec(ctx, sql)
	return err
}

func (s *pgxSession) Close() { s.conn.Close(context.Background()) }

// psqlSession runs statements with psql as the database superuser account,
// which is what local peer authentication admits.
type psqlSession struct {
	runner utils.Runner
	osUser string
}

func (s *psqlSession) run(ctx context.Context, sql string) (string, error) {
	out, err := s.runner.Run(ctx, "runuser", "-u", s.osUser, "--", "psql", "-X", "-q", "-t", "-A", "-v", "ON_ERROR_STOP=1", "-c", sql)
	return strings.TrimSpace(string(out)), err
}

func (s *psqlSession) QueryBool(ctx context.Context, sql string) (bool, error) {
	out, err := s.run(ctx, sql)
	if err != nil {
		return false, err
	}
	return out == "t", nil
}

func (s *psqlSession) Exec(ctx context.Context, sql string) error {
	_, err := s.run(ctx, sql)
	return err
}

func (s *psqlSession) Close() {}

/**
 * PostgresDatabase creates a role and a database owned by it
 * @property {string} DSN - Admin connection string
 * @property {string} Database - Database whose existence is the marker
 * @property {string} Role - Login role owning the database
 * @property {string} Password - Role password from the credentials store
 * @property {utils.Runner} Runner - Runs psql when the DSN is refused by peer authentication
 * @property {string} OSUser - OS account psql runs as, default "postgres"
 */
type PostgresDatabase struct {
	DSN      string
	Database string
	Role     string
	Password string
	Runner   utils.Runner
	OSUser   string
	connect  func(ctx context.Context) (sqlSession, error)
}

func (p *PostgresDatabase) session(ctx context.Context) (sqlSession, error) {
	if p.connect != nil {
		return p.connect(ctx)
	}
	conn, err := pgx.Connect(ctx, p.DSN)
	if err == nil {
		return &pgxSession{conn: conn}, nil
	}
	var pgErr *pgconn.PgError
	if p.Runner == nil || !errors.As(err, &pgErr) || !strings.HasPrefix(pgErr.Code, "28") {
		return nil, fmt.Errorf("connect: %w", err)
	}
	// 本地peer认证拒绝了当前系统用户，改用数据库系统账户执行
	osUser := p.OSUser
	if osUser == "" {
		osUser = "postgres"
	}
	logger.Debugf("Postgres refused %s (%s), using psql as %s", p.DSN, pgErr.Code, osUser)
	return &psqlSession{runner: p.Runner, osUser: osUser}, nil
}

func (p *PostgresDatabase) Done(ctx context.Context) (bool, error) {
	s, err := p.session(ctx)
	if err != nil {
		return false, err
	}
	defer s.Close()
	return s.QueryBool(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = "+quoteLiteral(p.Database)+")")
}

func (p *PostgresDatabase) Run(ctx context.Context) error {
	// 数据库一旦创建就不会再初始化，空密码会被永久保留
	if p.Password == "" {
		return fmt.Errorf("%w for role %s", ErrEmptyPassword, p.Role)
	}
	s, err := p.session(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	role := pgx.Identifier{p.Role}.Sanitize()
	exists, err := s.QueryBool(ctx, "SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = "+quoteLiteral(p.Role)+")")
	if err != nil {
		return fmt.Errorf("lookup role: %w", err)
	}
	verb := "CREATE"
	if exists {
		verb = "ALTER"
	}
	if err := s.Exec(ctx, fmt.Sprintf("%s ROLE %s WITH LOGIN PASSWORD %s", verb, role, quoteLiteral(p.Password))); err != nil {
		return fmt.Errorf("%s role %s: %w", strings.ToLower(verb), p.Role, err)
	}
	if err := s.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s OWNER %s", pgx.Identifier{p.Database}.Sanitize(), role)); err != nil {
		return fmt.Errorf("create database %s: %w", p.Database, err)
	}
	logger.Infof("Database [%s] created, owned by role [%s]", p.Database, p.Role)
	return nil
}

// ErrEmptyPassword is returned when the role password has not been generated.
var ErrEmptyPassword = errors.New("empty database password")

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

/**
 * FileMarker runs a command once, recording success in a marker file
 * @property {string} Path - Marker file, its presence means done
 * @property {[]string} Argv - Command to run, may be empty to only set the marker
 */
type FileMarker struct {
	Path   string
	Argv   []string
	Runner utils.Runner
}

func (f *FileMarker) Done(context.Context) (bool, error) {
	_, err := os.Stat(f.Path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (f *FileMarker) Run(ctx context.Context) error {
	if len(f.Argv) > 0 {
		if _, err := f.Runner.Run(ctx, f.Argv[0], f.Argv[1:]...); err != nil {
			return err
		}
	}
	_, err := artifact.Place(f.Path, []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0644)
	return err
}
