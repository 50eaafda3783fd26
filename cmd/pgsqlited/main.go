// Command pgsqlited accepts PostgreSQL wire-protocol v3 connections
// over plain TCP and serves them from an embedded SQLite database via
// the server package. It owns exactly the net.Listen/Accept loop and
// the *sql.DB handle; everything past the first byte after connection
// accept — startup handshake, query execution, DDL translation — is
// server/query/ddl's job. TLS, SASL/SCRAM auth, and real CLI/config
// binding are explicitly out of scope (spec.md §1): this entrypoint
// takes three flags and opens a plaintext listener, the same minimal
// shape the teacher's own package boundary implies by parametrizing
// server.Conn over io.ReadWriteCloser rather than net.Conn.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"net"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/pgsqlite/pgsqlite/obslog"
	"github.com/pgsqlite/pgsqlite/server"
)

func main() {
	addr := flag.String("listen", "127.0.0.1:5432", "address to accept PostgreSQL wire connections on")
	dsn := flag.String("db", "file:pgsqlite.db?_journal=WAL&_fk=1", "sqlite3 data source name for the embedded database")
	verbose := flag.Bool("v", false, "enable debug-level logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := obslog.New("pgsqlited", os.Stderr, level)

	if err := run(*addr, *dsn, log); err != nil {
		log.Error(err, "pgsqlited: fatal")
		os.Exit(1)
	}
}

func run(addr, dsn string, log *obslog.Logger) error {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite3 database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	srv, err := server.New(db, server.DefaultConfig(), log)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer ln.Close()
	log.Info("listening", "addr", addr, "db", dsn)

	for {
		netConn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go serveConn(srv, netConn, log)
	}
}

func serveConn(srv *server.Server, netConn net.Conn, log *obslog.Logger) {
	defer netConn.Close()
	conn := server.NewConn(srv, netConn)
	if err := conn.Serve(); err != nil {
		log.Debug("connection closed", "remote", netConn.RemoteAddr().String(), "err", err.Error())
	}
}
