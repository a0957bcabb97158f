package infra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	localDatabase = "jobpazar_stress"
	localRole     = "jobpazar_test"
	localPassword = "jobpazar"
)

// LocalServer is a PostgreSQL server already running on this machine.
type LocalServer struct {
	Host string
	Port string
}

// LocalServerFromEnv reads PGHOST and PGPORT, defaulting to 127.0.0.1:5432.
func LocalServerFromEnv() LocalServer {
	s := LocalServer{Host: os.Getenv("PGHOST"), Port: os.Getenv("PGPORT")}
	if s.Host == "" {
		s.Host = "127.0.0.1"
	}
	if s.Port == "" {
		s.Port = "5432"
	}
	return s
}

func (s LocalServer) addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// Reachable reports whether something accepts TCP connections on the server
// address.
func (s LocalServer) Reachable() bool {
	conn, err := net.DialTimeout("tcp", s.addr(), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// DSN builds a connection string for user on database.
func (s LocalServer) DSN(user, password, database string) string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     s.addr(),
		Path:     "/" + database,
		RawQuery: "sslmode=disable",
	}
	if password != "" {
		u.User = url.UserPassword(user, password)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}

// adminCandidates are the superuser logins tried in order: the stock postgres
// account with and without the usual dev password, then the OS user.
func (s LocalServer) adminCandidates() []string {
	users := []string{"postgres"}
	if osUser := os.Getenv("USER"); osUser != "" && osUser != "postgres" {
		users = append(users, osUser)
	}
	var dsns []string
	for _, u := range users {
		dsns = append(dsns, s.DSN(u, "", "postgres"), s.DSN(u, "postgres", "postgres"))
	}
	return dsns
}

// InitLocalDatabase makes sure the stress role and database exist on the
// local server and returns a DSN for them. Runs isolate themselves in
// per-run schemas, so an existing database is reused as is.
func InitLocalDatabase(ctx context.Context) (string, error) {
	s := LocalServerFromEnv()
	if !s.Reachable() {
		return "", fmt.Errorf("no PostgreSQL listening on %s", s.addr())
	}

	admin, err := s.connectAdmin(ctx)
	if err != nil {
		return "", err
	}
	defer admin.Close(ctx)

	if _, err := admin.Exec(ctx, fmt.Sprintf(
		"DO $$ BEGIN CREATE ROLE %s WITH LOGIN PASSWORD '%s'; EXCEPTION WHEN duplicate_object THEN NULL; END $$;",
		pgx.Identifier{localRole}.Sanitize(), localPassword)); err != nil {
		return "", fmt.Errorf("create role %s: %w", localRole, err)
	}

	var exists bool
	if err := admin.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, localDatabase).Scan(&exists); err != nil {
		return "", fmt.Errorf("look up database %s: %w", localDatabase, err)
	}
	if !exists {
		// CREATE DATABASE cannot run inside a transaction block or take parameters.
		stmt := fmt.Sprintf("CREATE DATABASE %s OWNER %s",
			pgx.Identifier{localDatabase}.Sanitize(), pgx.Identifier{localRole}.Sanitize())
		if _, err := admin.Exec(ctx, stmt); err != nil {
			return "", fmt.Errorf("create database %s: %w", localDatabase, err)
		}
	}

	return s.DSN(localRole, localPassword, localDatabase), nil
}

func (s LocalServer) connectAdmin(ctx context.Context) (*pgx.Conn, error) {
	var errs []error
	for _, dsn := range s.adminCandidates() {
		conn, err := pgx.Connect(ctx, dsn)
		if err == nil {
			return conn, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("connect as a local superuser: %w", errors.Join(errs...))
}
