// Package dbtest starts a throwaway Postgres for integration tests (build tag integration).
package dbtest
