package migrate

import (
	"context"

	"github.com/baderkha/mysql2ch/pkg/migrate/config"
)

// Runner : runs one migration task from a source config S to a target
// config T
type Runner[S any, T any] interface {
	Run(ctx context.Context, cfg config.Config[S, T]) (*TaskResult, error)
}
