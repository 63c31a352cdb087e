// Package api provides the public API for checking WGSL programs.
//
// Programs are passed as JSON interchange documents (see internal/program
// for the format). This package is intended for programmatic use; for CLI
// usage, see cmd/wgslcheck.
package api

import (
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/HugoDaniel/wgslcheck/internal/ast"
	"github.com/HugoDaniel/wgslcheck/internal/config"
	"github.com/HugoDaniel/wgslcheck/internal/diagnostic"
	"github.com/HugoDaniel/wgslcheck/internal/layout"
	"github.com/HugoDaniel/wgslcheck/internal/program"
	"github.com/HugoDaniel/wgslcheck/internal/reflect"
	"github.com/HugoDaniel/wgslcheck/internal/resolver"
	"github.com/HugoDaniel/wgslcheck/internal/sem"
	"github.com/HugoDaniel/wgslcheck/internal/validator"
)

// Options controls checking behavior.
type Options struct {
	// Extensions are enabled in addition to the program's enable directives.
	Extensions []string

	// AllowedExtensions restricts which extensions a program may enable.
	// Empty allows all of them.
	AllowedExtensions []string

	// MaxErrors stops reporting after that many errors. Zero means no limit.
	MaxErrors int

	// MinProgramVersion is a semver constraint the document version must
	// satisfy, e.g. ">= 1.1.0".
	MinProgramVersion string
}

// Diagnostic is an error with its notes attached.
type Diagnostic = diagnostic.JSONDiagnostic

// CheckResult contains the outcome of checking one program.
type CheckResult struct {
	// Valid is true if no errors were found.
	Valid bool

	// Diagnostics lists the errors, each with its notes.
	Diagnostics []Diagnostic

	// Text is the diagnostics in the Tint text format, one per line.
	Text string

	// Aliases summarises the memory each function accesses, in
	// declaration order. Empty if resolution failed or the call graph
	// has a cycle.
	Aliases []AliasSummary

	list *diagnostic.List
}

// AliasSummary lists the module-scope variables and pointer parameters a
// function reads and writes, including through its callees.
type AliasSummary struct {
	Function          string   `json:"function"`
	ModuleScopeReads  []string `json:"moduleScopeReads"`
	ModuleScopeWrites []string `json:"moduleScopeWrites"`
	ParameterReads    []string `json:"parameterReads"`
	ParameterWrites   []string `json:"parameterWrites"`
}

// WriteText writes the diagnostics in the text format, each line prefixed
// with name when it is non-empty.
func (r *CheckResult) WriteText(w io.Writer, name string, color bool) error {
	f := diagnostic.Formatter{Name: name, Color: color}
	return f.WriteText(w, r.list)
}

// StructLayout describes the memory layout of a struct.
type StructLayout = layout.StructLayout

// FieldInfo describes a single struct field.
type FieldInfo = layout.FieldInfo

// ReflectResult contains binding, struct and entry point information.
type ReflectResult = reflect.Result

// BindingInfo describes a variable with @group/@binding attributes.
type BindingInfo = reflect.BindingInfo

// EntryPointInfo describes a shader entry point function.
type EntryPointInfo = reflect.EntryPointInfo

// StructDiagram pairs a struct's layout with its rendered diagram.
type StructDiagram struct {
	Name    string
	Diagram string
	Layout  StructLayout
}

// LayoutResult contains the struct layouts of a program.
type LayoutResult struct {
	// Structs in declaration order.
	Structs []StructDiagram

	// Reflection holds bindings and entry points.
	Reflection ReflectResult

	// Diagnostics is non-empty when the program failed to resolve, in
	// which case Structs and Reflection are empty.
	Diagnostics []Diagnostic
}

// SetLogger routes debug output of the resolver and validator to l.
// Passing nil discards it.
func SetLogger(l *slog.Logger) {
	resolver.SetLogger(l)
	validator.SetLogger(l)
}

// Check decodes a program document and validates it. The returned error
// is non-nil only when the document cannot be decoded or an internal
// invariant was violated; problems in the program are diagnostics.
func Check(data []byte, opts Options) (*CheckResult, error) {
	mod, err := program.DecodeWith(data, program.Options{Constraint: opts.MinProgramVersion})
	if err != nil {
		return nil, err
	}
	return check(mod, opts)
}

// CheckFile reads and checks the program document at path.
func CheckFile(path string, opts Options) (*CheckResult, error) {
	mod, err := program.ReadFile(path, program.Options{Constraint: opts.MinProgramVersion})
	if err != nil {
		return nil, err
	}
	return check(mod, opts)
}

func check(mod *ast.Module, opts Options) (*CheckResult, error) {
	vopts, err := validatorOptions(opts)
	if err != nil {
		return nil, err
	}

	res, err := resolver.Resolve(mod)
	if err != nil {
		return nil, errors.Wrap(err, "resolving program")
	}
	if res.Diagnostics.HasErrors() {
		// Validation assumes a fully resolved module
		res.Diagnostics.Truncate(vopts.MaxErrors)
		return newCheckResult(res.Diagnostics, nil), nil
	}

	v := validator.Validate(res.Module, vopts)
	list := res.Diagnostics
	list.Append(v.Diagnostics)
	return newCheckResult(list, aliasSummaries(res.Module, v.Aliases)), nil
}

func newCheckResult(list *diagnostic.List, aliases []AliasSummary) *CheckResult {
	var f diagnostic.Formatter
	var sb strings.Builder
	_ = f.WriteText(&sb, list)
	return &CheckResult{
		Valid:       !list.HasErrors(),
		Diagnostics: f.ToJSON(list),
		Text:        sb.String(),
		Aliases:     aliases,
		list:        list,
	}
}

// validatorOptions converts Options the same way a config file is read, so
// the two accept the same names.
func validatorOptions(opts Options) (validator.Options, error) {
	maxErrors := opts.MaxErrors
	cfg := &config.Config{
		Extensions:        opts.Extensions,
		AllowedExtensions: opts.AllowedExtensions,
		MaxErrors:         &maxErrors,
	}
	o, err := cfg.ToOptions()
	if err != nil {
		return validator.Options{}, errors.Wrap(err, "invalid options")
	}
	return o.Validator, nil
}

func aliasSummaries(m *sem.Module, infos map[*sem.Function]*validator.AliasInfo) []AliasSummary {
	var out []AliasSummary
	for _, f := range m.Functions {
		info, ok := infos[f]
		if !ok {
			continue
		}
		s := AliasSummary{
			Function:          f.Name,
			ModuleScopeReads:  []string{},
			ModuleScopeWrites: []string{},
			ParameterReads:    []string{},
			ParameterWrites:   []string{},
		}
		for v := range info.ModuleScopeReads {
			s.ModuleScopeReads = append(s.ModuleScopeReads, v.Name)
		}
		for v := range info.ModuleScopeWrites {
			s.ModuleScopeWrites = append(s.ModuleScopeWrites, v.Name)
		}
		for p := range info.ParameterReads {
			s.ParameterReads = append(s.ParameterReads, p.Name)
		}
		for p := range info.ParameterWrites {
			s.ParameterWrites = append(s.ParameterWrites, p.Name)
		}
		sort.Strings(s.ModuleScopeReads)
		sort.Strings(s.ModuleScopeWrites)
		sort.Strings(s.ParameterReads)
		sort.Strings(s.ParameterWrites)
		out = append(out, s)
	}
	return out
}

// Layout decodes a program document and returns its struct layouts and
// binding reflection. Layouts are reported even for programs that fail
// validation, as long as they resolve.
func Layout(data []byte, opts Options) (*LayoutResult, error) {
	mod, err := program.DecodeWith(data, program.Options{Constraint: opts.MinProgramVersion})
	if err != nil {
		return nil, err
	}
	return layoutOf(mod)
}

// LayoutFile reads the program document at path and returns its layouts.
func LayoutFile(path string, opts Options) (*LayoutResult, error) {
	mod, err := program.ReadFile(path, program.Options{Constraint: opts.MinProgramVersion})
	if err != nil {
		return nil, err
	}
	return layoutOf(mod)
}

func layoutOf(mod *ast.Module) (*LayoutResult, error) {
	res, err := resolver.Resolve(mod)
	if err != nil {
		return nil, errors.Wrap(err, "resolving program")
	}
	if res.Diagnostics.HasErrors() {
		var f diagnostic.Formatter
		return &LayoutResult{Diagnostics: f.ToJSON(res.Diagnostics)}, nil
	}

	out := &LayoutResult{Reflection: reflect.Module(res.Module)}
	for _, s := range res.Module.Structs {
		out.Structs = append(out.Structs, StructDiagram{
			Name:    s.Name,
			Diagram: layout.Diagram(s),
			Layout:  layout.Reflect(s),
		})
	}
	return out, nil
}
