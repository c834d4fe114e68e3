package persistence

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlyPersistenceImportsLedgerDrivers keeps call sites on domain.RunLedger.
func TestOnlyPersistenceImportsLedgerDrivers(t *testing.T) {
	const infraPrefix = "cornucopia/internal/infra/persistence"
	const allowed = "cornucopia/internal/persistence"

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "cornucopia/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	var violations []string
	for _, pkg := range pkgs {
		path := strings.TrimSuffix(pkg.PkgPath, "_test")
		if path == allowed || strings.HasPrefix(path, infraPrefix) {
			continue
		}
		for imp := range pkg.Imports {
			if imp == infraPrefix || strings.HasPrefix(imp, infraPrefix+"/") {
				violations = append(violations, pkg.PkgPath+": "+imp)
			}
		}
	}
	sort.Strings(violations)
	for _, v := range violations {
		t.Errorf("forbidden import of ledger driver: %s", v)
	}
}
