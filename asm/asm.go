// Package asm runs the whole assembly pipeline for a PBJ program: parse,
// verify, then generate code with either backend.
package asm

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/sarchlab/pbj/codegen"
	"github.com/sarchlab/pbj/core"
	"github.com/sarchlab/pbj/verify"
)

// Extension is the file extension of PBJ source files.
const Extension = ".pbj"

// ErrNotPBJ is returned by AssembleFile for files without the .pbj extension.
var ErrNotPBJ = errors.New("source file should be a .pbj file")

// Assembly is a parsed and verified program.
type Assembly struct {
	name     string
	verified *verify.Verified
}

// Assemble parses and verifies a program read from r. The name is only used
// in error messages.
//
// The returned error, if not nil, is either a *core.ParseError or a
// *verify.Error, or an I/O error from r.
func Assemble(name string, r io.Reader) (*Assembly, error) {
	prog, err := core.ParseFile(name, r)
	if err != nil {
		return nil, err
	}

	v, err := verify.Verify(prog)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", name)
	}

	return &Assembly{name: name, verified: v}, nil
}

// AssembleFile assembles a .pbj file from disk.
func AssembleFile(path string) (*Assembly, error) {
	if filepath.Ext(path) != Extension {
		return nil, errors.Wrapf(ErrNotPBJ, "%s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open program file")
	}
	defer f.Close()

	return Assemble(path, f)
}

// Name returns the name the program was assembled from.
func (a *Assembly) Name() string {
	return a.name
}

// Program returns the assembled program.
func (a *Assembly) Program() *core.Program {
	return a.verified.Program()
}

// Report returns the verification report.
func (a *Assembly) Report() verify.Report {
	return a.verified.Report()
}

// Advisories returns the non-fatal findings of the verification.
func (a *Assembly) Advisories() []verify.Issue {
	return a.verified.Report().Advisories
}

// Source renders the program with the embedded-source backend.
func (a *Assembly) Source() []string {
	return codegen.ToSource(a.verified)
}

// Commands renders the program as wire-protocol frames.
func (a *Assembly) Commands() []string {
	return codegen.ToCommands(a.verified)
}
