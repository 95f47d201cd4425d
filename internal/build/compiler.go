package build

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/landingkit/lander/internal/validation"
)

// allowedCompilers lists the stylesheet compilers that may be executed.
var allowedCompilers = map[string]bool{
	"lessc":  true,
	"sass":   true,
	"sassc":  true,
	"stylus": true,
	"npx":    true,
}

// StyleCompiler runs an external stylesheet compiler on one source file and
// captures the CSS it writes to stdout.
type StyleCompiler struct {
	command string
	args    []string
}

// NewStyleCompiler parses a command line such as "lessc --strict-math=on".
// An empty command line yields a nil compiler, meaning sources are used as CSS.
func NewStyleCompiler(commandLine string) (*StyleCompiler, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, nil
	}
	sc := &StyleCompiler{command: fields[0], args: fields[1:]}
	if err := sc.validateCommand(); err != nil {
		return nil, fmt.Errorf("command validation failed: %w", err)
	}
	return sc, nil
}

// Command returns the executable name.
func (sc *StyleCompiler) Command() string {
	return sc.command
}

// Compile runs the compiler on file, which is passed as the last argument.
func (sc *StyleCompiler) Compile(ctx context.Context, file string) ([]byte, error) {
	if err := validation.Argument(file); err != nil {
		return nil, fmt.Errorf("invalid source path '%s': %w", file, err)
	}

	args := append(append([]string{}, sc.args...), file)
	cmd := exec.CommandContext(ctx, sc.command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s timed out: %w", sc.command, ctx.Err())
		}
		return nil, fmt.Errorf("%s failed: %w\nOutput: %s", sc.command, err, stderr.String())
	}

	return stdout.Bytes(), nil
}

// validateCommand checks the executable against the allowlist and every
// argument for shell metacharacters.
func (sc *StyleCompiler) validateCommand() error {
	if err := validation.Command(sc.command, allowedCompilers); err != nil {
		return err
	}
	for _, arg := range sc.args {
		if err := validation.Argument(arg); err != nil {
			return fmt.Errorf("invalid argument '%s': %w", arg, err)
		}
	}
	return nil
}
