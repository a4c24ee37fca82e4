// Package toolchain is the boundary to the external assembler and linker
// spec.md §4.8 names as collaborators whose interfaces are specified here
// but whose implementations are not this compiler's concern: "the
// assembler and linker for the target are external tools; this component
// only needs to hand them well-formed input and surface their failures."
//
// Design: exec.Command wrappers around configurable external binaries,
// grounded on the teacher's pkg/linker/linker.go (EmitObject/Link shape),
// generalized from the teacher's hardcoded host toolchain names
// ("as"/"ld.lld"/"ld") to this target's own assembler/linker, whose paths
// are supplied by the driver's Config rather than guessed from GOOS.
package toolchain

import (
	"os/exec"

	"github.com/pkg/errors"

	"github.com/rcc-project/rcc/pkg/logger"
)

// Toolchain names the external assembler and linker binaries for the
// target. Both are resolved via PATH if given as a bare name.
type Toolchain struct {
	AssemblerPath string
	LinkerPath    string
}

// Default assembler/linker names, overridable by driver.Config.
const (
	DefaultAssembler = "rcc-as"
	DefaultLinker    = "rcc-ld"
)

func New(assemblerPath, linkerPath string) *Toolchain {
	if assemblerPath == "" {
		assemblerPath = DefaultAssembler
	}
	if linkerPath == "" {
		linkerPath = DefaultLinker
	}
	return &Toolchain{AssemblerPath: assemblerPath, LinkerPath: linkerPath}
}

// Assemble hands asmPath to the external assembler and expects objPath to
// exist on success.
func (t *Toolchain) Assemble(asmPath, objPath string) error {
	logger.Debug("invoking external assembler", "assembler", t.AssemblerPath, "input", asmPath, "output", objPath)
	cmd := exec.Command(t.AssemblerPath, "-o", objPath, asmPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "assembling %s: %s", asmPath, out)
	}
	return nil
}

// Link hands a set of object files plus the runtime object to the
// external linker, producing outPath.
func (t *Toolchain) Link(objPaths []string, runtimeObj, outPath string) error {
	logger.Debug("invoking external linker", "linker", t.LinkerPath, "objects", len(objPaths), "output", outPath)
	args := append([]string{"-o", outPath}, objPaths...)
	if runtimeObj != "" {
		args = append(args, runtimeObj)
	}
	cmd := exec.Command(t.LinkerPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "linking %s: %s", outPath, out)
	}
	return nil
}
