package repo_test

import (
	"testing"

	"github.com/hamed0406/smoketestexporter/internal/repo"
	"github.com/hamed0406/smoketestexporter/internal/repo/memory"
	pg "github.com/hamed0406/smoketestexporter/internal/repo/postgres"
)

// Compile-time interface satisfaction checks.
// Using external test package avoids import cycle.
func TestInterfaceSatisfaction(t *testing.T) {
	var _ repo.ResultStore = memory.New()
	var _ repo.AlertStore = memory.NewAlerts()

	// Postgres store types compile against the interfaces, too.
	var _ repo.ResultMirror = (*pg.Store)(nil)
	var _ repo.AlertStore = (*pg.Store)(nil)
}
