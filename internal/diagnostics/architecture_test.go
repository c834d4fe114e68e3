package diagnostics

import (
	"testing"

	"cornucopia/testutil"
)

func TestClassifierIsALeaf(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "classification depends only on the domain vocabulary")
}
