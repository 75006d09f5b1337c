package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/augr/internal/patch"
	"github.com/roach88/augr/internal/repository"
	"github.com/roach88/augr/internal/store"
)

// Validation problem codes that are not replay errors.
const (
	ErrCodeDecode      = "E_DECODE"
	ErrCodeBadRef      = "E_BAD_REF"
	ErrCodeEmptyPatch  = "E_EMPTY_PATCH"
	ErrCodePatchExists = "E_PATCH_EXISTS"
)

// ValidationProblem is one reason a patch file would not apply cleanly.
type ValidationProblem struct {
	File    string         `json:"file"`
	Patch   patch.PatchRef `json:"patch,omitempty"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Event   patch.EventRef `json:"event,omitempty"`
	Parent  patch.PatchRef `json:"parent,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Files    int                 `json:"files"`
	Problems []ValidationProblem `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <patch-file>...",
		Short: "Check patch files against the repository without committing",
		Long: `Check TOML patch files before they are dropped into the sync folder.

Each file is decoded with the store codec, named by its file name, and
validated against the replayed repository: parents must exist, modified
events must exist or be created by an earlier file, and created event ids
must be new. Files are checked in argument order and each valid file is
applied in memory, so a later file may build on an earlier one. Nothing is
written.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ts, _, err := a.load(ctx)
	if err != nil {
		return err
	}

	result := ValidationResult{Files: len(files)}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		problems, err := validatePatchFile(ctx, a.store, ts, file)
		if err != nil {
			return WrapExitError(ExitCommandError, "cannot validate "+file, err)
		}
		result.Problems = append(result.Problems, problems...)
	}
	result.Valid = len(result.Problems) == 0

	if result.Valid {
		return outputValidateSuccess(formatter, result)
	}
	return outputValidationErrors(formatter, result)
}

// validatePatchFile checks one file and, when it is clean, applies it to ts.
// Only unreadable files and store failures are returned as errors.
func validatePatchFile(ctx context.Context, s store.Store, ts *repository.PatchedTimesheet, file string) ([]ValidationProblem, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(file)
	ref := patch.PatchRef(strings.TrimSuffix(name, filepath.Ext(name)))
	problem := func(code, msg string) ValidationProblem {
		return ValidationProblem{File: file, Patch: ref, Code: code, Message: msg}
	}

	if err := patch.ValidateRef(string(ref)); err != nil {
		return []ValidationProblem{problem(ErrCodeBadRef, err.Error())}, nil
	}
	p, err := store.UnmarshalPatch(ref, data)
	if err != nil {
		return []ValidationProblem{problem(ErrCodeDecode, err.Error())}, nil
	}
	if p.IsEmpty() {
		return []ValidationProblem{problem(ErrCodeEmptyPatch, "patch has no operations")}, nil
	}

	var problems []ValidationProblem
	switch _, err := s.GetPatch(ctx, ref); {
	case err == nil:
		problems = append(problems, problem(ErrCodePatchExists, fmt.Sprintf("patch %s is already stored", ref)))
	case !store.IsNotFound(err):
		return nil, err
	}

	for _, parent := range p.Parents() {
		if ts.Applied(parent) {
			continue
		}
		e := &repository.Error{Code: repository.ErrCodeDependencyFailed, Patch: ref, Parent: parent, Err: store.ErrNotFound}
		vp := problem(string(e.Code), e.Error())
		vp.Parent = parent
		problems = append(problems, vp)
	}

	for _, e := range ts.Validate(p) {
		vp := problem(string(e.Code), e.Error())
		vp.Event = e.Event
		problems = append(problems, vp)
	}

	if len(problems) > 0 {
		return problems, nil
	}
	if err := ts.Apply(p); err != nil {
		var errs repository.Errors
		if errors.As(err, &errs) {
			for _, e := range errs {
				problems = append(problems, problem(string(e.Code), e.Error()))
			}
			return problems, nil
		}
		return nil, err
	}
	return nil, nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, okStyle.Render(fmt.Sprintf("✓ %d patch file(s) valid", result.Files)))
	return nil
}

// outputValidationErrors outputs every problem found.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	message := fmt.Sprintf("validation failed with %d problem(s)", len(result.Problems))

	if formatter.Format == "json" {
		if err := formatter.Failure(result.Problems[0].Code, message, result); err != nil {
			return err
		}
		return reportedFailure(message)
	}

	fmt.Fprintln(formatter.Writer, badStyle.Render("✗ Validation failed"))
	fmt.Fprintln(formatter.Writer)

	for _, p := range result.Problems {
		fmt.Fprintf(formatter.Writer, "%s\n", p.File)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", p.Code, p.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return reportedFailure(message)
}
