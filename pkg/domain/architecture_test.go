package domain

import (
	"testing"

	"cornucopia/testutil"
)

func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "domain vocabulary must stay free of internal packages")
}
