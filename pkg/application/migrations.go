package application

import (
	"context"
	"embed"
	"io/fs"
	"path"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type MigrationManager interface {
	RegisterDirs(dirs ...*embed.FS)
	Run(ctx context.Context) error
}

func NewMigrationManager(pool *pgxpool.Pool) MigrationManager {
	return &migrationManager{pool: pool}
}

type migrationManager struct {
	pool *pgxpool.Pool
	dirs []*embed.FS
}

func (m *migrationManager) RegisterDirs(dirs ...*embed.FS) {
	m.dirs = append(m.dirs, dirs...)
}

func (m *migrationManager) Run(ctx context.Context) error {
	if m.pool == nil || len(m.dirs) == 0 {
		return nil
	}

	db := stdlib.OpenDBFromPool(m.pool)
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	defer goose.SetBaseFS(nil)

	for _, fsys := range m.dirs {
		dirs, err := sqlDirs(fsys)
		if err != nil {
			return err
		}
		goose.SetBaseFS(fsys)
		for _, dir := range dirs {
			if err := goose.UpContext(ctx, db, dir); err != nil {
				return err
			}
		}
	}
	return nil
}

// sqlDirs lists every directory in the embedded tree holding .sql files.
func sqlDirs(fsys fs.FS) ([]string, error) {
	seen := map[string]bool{}
	var dirs []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".sql") {
			return nil
		}
		dir := path.Dir(p)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
		return nil
	})
	return dirs, err
}
