package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcc-project/rcc/pkg/diag"
	"github.com/rcc-project/rcc/pkg/frontend"
	"github.com/rcc-project/rcc/pkg/provenance"
)

func lowerSource(t *testing.T, src string) (*Module, *diag.Collector, *Builder) {
	t.Helper()
	prog, err := frontend.NewParser("t.c", src).Parse()
	require.NoError(t, err)
	checker := frontend.NewChecker()
	checker.Check(prog)
	require.Empty(t, checker.Errors())

	diags := diag.NewCollector()
	b := NewBuilder(checker, diags)
	mod := b.BuildProgram(prog)
	return mod, diags, b
}

func findFunc(mod *Module, name string) *Function {
	for _, f := range mod.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func TestBuildSimpleFunctionHasAllocaForParamAndLocal(t *testing.T) {
	src := `
int add(int a, int b) {
    int sum = a + b;
    return sum;
}
`
	mod, diags, _ := lowerSource(t, src)
	assert.False(t, diags.HasErrors())
	fn := findFunc(mod, "add")
	require.NotNil(t, fn)

	var allocas int
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			if _, ok := inst.(Alloca); ok {
				allocas++
			}
		}
	}
	// two params + one local = three stack slots
	assert.Equal(t, 3, allocas)
	require.NotNil(t, fn.Blocks[len(fn.Blocks)-1].Term)
	_, isRet := fn.Blocks[len(fn.Blocks)-1].Term.(Ret)
	assert.True(t, isRet)
}

func TestBuildIndexLowersThroughGEPNotBareAdd(t *testing.T) {
	src := `
int xs[4];
int at(int i) {
    return xs[i];
}
`
	mod, diags, _ := lowerSource(t, src)
	assert.False(t, diags.HasErrors())
	fn := findFunc(mod, "at")
	require.NotNil(t, fn)

	var geps []GEP
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			if g, ok := inst.(GEP); ok {
				geps = append(geps, g)
			}
		}
	}
	require.Len(t, geps, 1)
	require.Len(t, geps[0].Steps, 1)
	assert.Equal(t, GEPElement, geps[0].Steps[0].Kind)
}

func TestBuildFieldAccessLowersThroughGEPField(t *testing.T) {
	src := `
struct Point { int x; int y; };
int getY(struct Point *p) {
    return p->y;
}
`
	prog, err := frontend.NewParser("t.c", src).Parse()
	require.NoError(t, err)
	checker := frontend.NewChecker()
	checker.Check(prog)
	require.Empty(t, checker.Errors())

	diags := diag.NewCollector()
	b := NewBuilder(checker, diags)
	region := provenance.Stack
	b.AssumeParamRegion = &region
	mod := b.BuildProgram(prog)

	assert.False(t, diags.HasErrors())
	fn := findFunc(mod, "getY")
	require.NotNil(t, fn)

	var found *GEP
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			if g, ok := inst.(GEP); ok {
				found = &g
			}
		}
	}
	require.NotNil(t, found)
	require.Len(t, found.Steps, 1)
	assert.Equal(t, GEPField, found.Steps[0].Kind)
	assert.Equal(t, 1, found.Steps[0].Field) // "y" is field index 1
}

func TestBuildDerefThroughUnknownPointerParamReportsDiagnostic(t *testing.T) {
	src := `
int readIt(int *p) {
    return *p;
}
`
	_, diags, _ := lowerSource(t, src)
	require.True(t, diags.HasErrors())
	all := diags.All()
	assert.Equal(t, diag.CodeDerefUnknown, all[0].Code)
}

// A write through a pointer with unknown provenance (*p = x) must be
// diagnosed exactly like a read through one — emitAssign checks the
// target address the same way emitLoadThrough checks a load address.
func TestAssignThroughUnknownPointerParamReportsDiagnostic(t *testing.T) {
	src := `
int writeIt(int *p) {
    *p = 1;
    return 0;
}
`
	_, diags, _ := lowerSource(t, src)
	require.True(t, diags.HasErrors())
	all := diags.All()
	assert.Equal(t, diag.CodeDerefUnknown, all[0].Code)
}

func TestAssumePointerParamsSuppressesUnknownDiagnosticAndWarnsOnce(t *testing.T) {
	src := `
int readIt(int *p) {
    int a = *p;
    int b = *p;
    return a + b;
}
`
	prog, err := frontend.NewParser("t.c", src).Parse()
	require.NoError(t, err)
	checker := frontend.NewChecker()
	checker.Check(prog)
	require.Empty(t, checker.Errors())

	diags := diag.NewCollector()
	b := NewBuilder(checker, diags)
	region := provenance.Stack
	b.AssumeParamRegion = &region
	b.BuildProgram(prog)

	all := diags.All()
	var warnings, errors int
	for _, d := range all {
		switch d.Code {
		case diag.CodeAssumePointerParam:
			warnings++
		case diag.CodeDerefUnknown, diag.CodeDerefMixed:
			errors++
		}
	}
	assert.Equal(t, 1, warnings)
	assert.Equal(t, 0, errors)
}

func TestBuildLogicalAndLowersToPhiOfBool(t *testing.T) {
	src := `
int both(int a, int b) {
    if (a && b) {
        return 1;
    }
    return 0;
}
`
	mod, diags, _ := lowerSource(t, src)
	assert.False(t, diags.HasErrors())
	fn := findFunc(mod, "both")
	require.NotNil(t, fn)

	var phis int
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			if _, ok := inst.(Phi); ok {
				phis++
			}
		}
	}
	assert.Equal(t, 1, phis)
}

func TestBuildWhileLoopHasBreakAndContinueTargets(t *testing.T) {
	src := `
int countdown(int n) {
    while (n > 0) {
        n = n - 1;
        if (n == 5) {
            continue;
        }
        if (n == 1) {
            break;
        }
    }
    return n;
}
`
	mod, diags, _ := lowerSource(t, src)
	assert.False(t, diags.HasErrors())
	fn := findFunc(mod, "countdown")
	require.NotNil(t, fn)
	assert.GreaterOrEqual(t, len(fn.Blocks), 4)
}

func TestBuildSwitchLowersToCompareChain(t *testing.T) {
	src := `
int classify(int n) {
    switch (n) {
        case 1:
            return 10;
        case 2:
            return 20;
        default:
            return 0;
    }
}
`
	mod, diags, _ := lowerSource(t, src)
	assert.False(t, diags.HasErrors())
	fn := findFunc(mod, "classify")
	require.NotNil(t, fn)

	var cmps int
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Insts {
			if c, ok := inst.(Cmp); ok {
				assert.Equal(t, CmpEq, c.Op)
				cmps++
			}
		}
	}
	assert.Equal(t, 2, cmps)
}

func TestStringLiteralsAreInterned(t *testing.T) {
	src := `
int useStrings() {
    char *a = "hi";
    char *b = "hi";
    return 0;
}
`
	mod, diags, _ := lowerSource(t, src)
	assert.False(t, diags.HasErrors())
	assert.Len(t, mod.Strings.Entries(), 1)
}
