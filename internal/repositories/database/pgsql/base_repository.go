package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// BaseRepository provides the shared pool handle for all repositories.
type BaseRepository struct {
	Pool *pgxpool.Pool
}
