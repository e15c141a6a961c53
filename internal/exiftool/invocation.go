// Package exiftool runs the external metadata tool: resolving how to launch it,
// building write arguments, and probing files for their real format.
package exiftool

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"metafix/internal/fixer"
)

// Invocation is how the tool is launched. When the tool is a script shipped
// with its library directory, the interpreter is started with that directory
// on its include path.
type Invocation struct {
	Program string
	Args    []string
}

// Resolve decides once how to launch the tool at toolPath. On Windows, or when
// no interpreter is configured, the tool is run directly. Elsewhere a "lib"
// directory next to the tool means it is an unpacked script distribution and
// is run as "<interpreter> -I <lib> <tool>".
func Resolve(toolPath, interpreter, goos string) (Invocation, error) {
	info, err := os.Stat(toolPath)
	if err != nil {
		return Invocation{}, fmt.Errorf("%w: %s: %v", fixer.ErrToolNotFound, toolPath, err)
	}
	if info.IsDir() {
		return Invocation{}, fmt.Errorf("%w: %s is a directory", fixer.ErrToolNotFound, toolPath)
	}

	if goos == "windows" || interpreter == "" || strings.EqualFold(filepath.Ext(toolPath), ".exe") {
		return Invocation{Program: toolPath}, nil
	}

	lib := filepath.Join(filepath.Dir(toolPath), "lib")
	if st, err := os.Stat(lib); err == nil && st.IsDir() {
		return Invocation{Program: interpreter, Args: []string{"-I", lib, toolPath}}, nil
	}
	return Invocation{Program: toolPath}, nil
}

// Direct reports whether the tool is started without an interpreter.
func (i Invocation) Direct() bool {
	return len(i.Args) == 0
}

// Command builds the process for one tool call.
func (i Invocation) Command(args ...string) *exec.Cmd {
	all := make([]string, 0, len(i.Args)+len(args))
	all = append(all, i.Args...)
	all = append(all, args...)
	return exec.Command(i.Program, all...)
}

func (i Invocation) String() string {
	if i.Direct() {
		return i.Program
	}
	return i.Program + " " + strings.Join(i.Args, " ")
}
