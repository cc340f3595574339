// Package shotstore persists shot data in SQLite.
//
// It keeps the last accepted shot in a single-row table so the cache
// survives restarts, and an append-only log of every classification for
// later review. Tables are created by the migrations package.
package shotstore
