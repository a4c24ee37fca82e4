package toolchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFillsDefaultNames(t *testing.T) {
	tc := New("", "")
	assert.Equal(t, DefaultAssembler, tc.AssemblerPath)
	assert.Equal(t, DefaultLinker, tc.LinkerPath)
}

func TestAssembleWrapsFailureWithPaths(t *testing.T) {
	tc := New("/bin/false", "")
	err := tc.Assemble("in.s", "out.o")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "in.s")
}

func TestLinkWrapsFailureWithOutputPath(t *testing.T) {
	tc := New("", "/bin/false")
	err := tc.Link([]string{"a.o", "b.o"}, "runtime.o", "a.out")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "a.out")
}
