package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestProductsMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_products_table.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CHECK (price_cents >= 0)",
		"CHECK (stock >= 0)",
		"media_file_ids uuid[] NOT NULL DEFAULT '{}'::uuid[]",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_products_sku",
		"CREATE INDEX IF NOT EXISTS idx_products_category",
		"CREATE INDEX IF NOT EXISTS idx_products_featured",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestFabricColumnsMigration(t *testing.T) {
	content := readMigration(t, "*_add_product_fabric_columns.sql")

	checks := []string{
		"ADD COLUMN width_cm numeric(6,2)",
		"ADD COLUMN weight_gsm numeric(7,2)",
		"ADD COLUMN color_ways text[] NOT NULL DEFAULT '{}'::text[]",
		"DROP COLUMN IF EXISTS material",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCategoriesMigrationGuardsCount(t *testing.T) {
	content := readMigration(t, "*_create_categories_table.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS categories",
		"product_count integer NOT NULL DEFAULT 0 CHECK (product_count >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
