package migrations

import (
	_ "embed"

	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_skills.sql
var createSkillsSQL string

var Migrations = migrate.NewMigrations()
