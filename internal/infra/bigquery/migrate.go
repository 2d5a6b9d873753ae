package bigquery

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finsense/internal/logger"
	"google.golang.org/api/iterator"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration is a single versioned schema file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

var migrationFilename = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// ReadMigrations loads NNNN_name.sql files from fsys sorted by version, with
// {{PROJECT_ID}} and {{DATASET_ID}} substituted. Other files are skipped.
// The checksum covers the file before substitution.
func ReadMigrations(fsys fs.FS, project, dataset string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("ReadMigrations: %w", err)
	}

	var migrations []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := migrationFilename.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		content, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("ReadMigrations: reading %s: %w", e.Name(), err)
		}

		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", project)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", dataset)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     m[2],
			Filename: e.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Migrate applies pending embedded migrations and records each one in
// schema_migrations. It returns the number applied.
func (s *Store) Migrate(ctx context.Context, appliedBy string) (int, error) {
	log := logger.FromContext(ctx)

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}
	migrations, err := ReadMigrations(sub, s.project, s.dataset)
	if err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}

	if _, err := s.exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+s.table(migrationsTable)+` (
			version    INT64 NOT NULL,
			name       STRING NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum   STRING,
			applied_by STRING
		)`); err != nil {
		return 0, fmt.Errorf("Migrate: ensure %s: %w", migrationsTable, err)
	}

	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}

	count := 0
	for _, m := range migrations {
		if applied[m.Version] {
			log.Debug().Int("version", m.Version).Str("name", m.Name).Msg("Migration already applied")
			continue
		}

		if _, err := s.exec(ctx, m.SQL); err != nil {
			return count, fmt.Errorf("Migrate: %04d_%s: %w", m.Version, m.Name, err)
		}
		if _, err := s.exec(ctx, `
			INSERT INTO `+s.table(migrationsTable)+`
			(version, name, applied_at, checksum, applied_by)
			VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)`,
			bigquery.QueryParameter{Name: "version", Value: m.Version},
			bigquery.QueryParameter{Name: "name", Value: m.Name},
			bigquery.QueryParameter{Name: "checksum", Value: m.Checksum},
			bigquery.QueryParameter{Name: "applied_by", Value: appliedBy},
		); err != nil {
			return count, fmt.Errorf("Migrate: record %04d_%s: %w", m.Version, m.Name, err)
		}

		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Migration applied")
		count++
	}
	return count, nil
}

func (s *Store) appliedVersions(ctx context.Context) (map[int]bool, error) {
	q := s.client.Query(`SELECT version FROM ` + s.table(migrationsTable))
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	versions := make(map[int]bool)
	for {
		var row struct {
			Version int64 `bigquery:"version"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}
		versions[int(row.Version)] = true
	}
	return versions, nil
}
