//go:build integration

package repository

import (
	"testing"

	"github.com/Badrul886/riverside/internal/db/dbtest"
)

func TestPostgresRepository_Contract(t *testing.T) {
	pool := dbtest.StartPostgres(t)
	runRepositoryContract(t, func(t *testing.T) Repository {
		dbtest.Reset(t, pool)
		for _, id := range contractUsers {
			dbtest.InsertUser(t, pool, id)
		}
		return NewPostgresRepository(pool)
	})
}
