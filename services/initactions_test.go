package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	databases map[string]bool
	roles     map[string]bool
	execs     []string
	closed    int
}

func (f *fakeSession) QueryBool(_ context.Context, sql string) (bool, error) {
	name := sql[strings.LastIndex(sql, "= '")+3 : strings.LastIndex(sql, "'")]
	switch {
	case strings.Contains(sql, "pg_database"):
		return f.databases[name], nil
	case strings.Contains(sql, "pg_roles"):
		return f.roles[name], nil
	}
	return false, errors.New("unexpected query")
}

func (f *fakeSession) Exec(_ context.Context, sql string) error {
	f.execs = append(f.execs, sql)
	if strings.HasPrefix(sql, "CREATE DATABASE") {
		f.databases["devhost"] = true
	}
	return nil
}

func (f *fakeSession) Close() { f.closed++ }

func newPostgresInit(s *fakeSession) *PostgresDatabase {
	return &PostgresDatabase{
		Database: "devhost",
		Role:     "devhost",
		Password: "pa'ss",
		connect:  func(context.Context) (sqlSession, error) { return s, nil },
	}
}

func TestPostgresDatabaseCreatesRoleAndDatabase(t *testing.T) {
	s := &fakeSession{databases: map[string]bool{}, roles: map[string]bool{}}
	p := newPostgresInit(s)
	ctx := context.Background()

	done, err := p.Done(ctx)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, []string{
		`CREATE ROLE "devhost" WITH LOGIN PASSWORD 'pa''ss'`,
		`CREATE DATABASE "devhost" OWNER "devhost"`,
	}, s.execs)

	done, err = p.Done(ctx)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 3, s.closed)
}

func TestPostgresDatabaseExistingRole(t *testing.T) {
	s := &fakeSession{databases: map[string]bool{}, roles: map[string]bool{"devhost": true}}
	require.NoError(t, newPostgresInit(s).Run(context.Background()))
	assert.True(t, strings.HasPrefix(s.execs[0], `ALTER ROLE "devhost"`))
}

func TestPsqlSession(t *testing.T) {
	runner := &recordingRunner{output: map[string]string{"runuser": "t\n"}}
	s := &psqlSession{runner: runner, osUser: "postgres"}

	ok, err := s.QueryBool(context.Background(), "SELECT true")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "runuser -u postgres -- psql -X -q -t -A -v ON_ERROR_STOP=1 -c SELECT true", runner.calls[0])
}

func TestPostgresDatabaseRefusesEmptyPassword(t *testing.T) {
	s := &fakeSession{databases: map[string]bool{}, roles: map[string]bool{}}
	p := newPostgresInit(s)
	p.Password = ""

	err := p.Run(context.Background())
	require.ErrorIs(t, err, ErrEmptyPassword)
	assert.Empty(t, s.execs)
	assert.Zero(t, s.closed)
	assert.False(t, s.databases["devhost"])
}

func TestGuardScriptQuoting(t *testing.T) {
	script := GuardScript("code-server", []string{"code-server", "--config", "/home/o'neil/c.yaml"}, "")
	assert.Contains(t, script, `'/home/o'\''neil/c.yaml'`)
	assert.Contains(t, script, ">>'/dev/null'")
	assert.True(t, strings.HasPrefix(script, "#!/bin/sh\n"))
	assert.Contains(t, script, "-v exe='code-server' -v rest=''")
	assert.NotContains(t, script, "grep -F")
}

func TestGuardScriptSplitsFragment(t *testing.T) {
	script := GuardScript("nginx:  master", []string{"nginx", "-g", "daemon off;"}, "/var/log/nginx.log")
	assert.Contains(t, script, "-v exe='nginx:' -v rest='master'")
	assert.Contains(t, script, "-v interp='node python python3 perl ruby bash sh'")
}
