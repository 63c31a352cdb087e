// Package validator checks a resolved module against the WGSL rules for
// address spaces, host-shareable memory layout and pointer aliasing.
//
// The validator is a read-only pass over a sem.Module. All state lives in
// one Validator value per call to Validate, so validating the same module
// twice yields the same diagnostics.
package validator

import (
	"github.com/HugoDaniel/wgslcheck/internal/diagnostic"
	"github.com/HugoDaniel/wgslcheck/internal/extension"
	"github.com/HugoDaniel/wgslcheck/internal/sem"
	"github.com/HugoDaniel/wgslcheck/internal/types"
)

// Options controls validation behavior. It is passed by value and never
// modified by the validator.
type Options struct {
	// Extensions are enabled in addition to the module's enable directives.
	Extensions extension.Set
	// Allowed is the set of extensions the environment permits. An empty
	// set permits every extension.
	Allowed extension.Set
	// MaxErrors stops reporting after that many errors. Zero means no limit.
	MaxErrors int
}

// Result contains validation results.
type Result struct {
	// Valid is true if no errors were found.
	Valid bool
	// Diagnostics contains all validation messages.
	Diagnostics *diagnostic.List
	// Aliases holds the per-function access summaries computed by the
	// alias analysis. It is empty if the call graph has a cycle.
	Aliases map[*sem.Function]*AliasInfo
}

// Validator holds the state of one validation run.
type Validator struct {
	module  *sem.Module
	diags   *diagnostic.List
	options Options

	// Module enables plus Options.Extensions.
	enabled extension.Set

	// (type, address space) pairs whose layout has been validated
	// successfully.
	validLayouts map[usageKey]bool

	// (struct, address space) pairs whose usage has been applied.
	structUsages map[usageKey]bool
}

type usageKey struct {
	id    types.ID
	space types.AddressSpace
}

// Validate checks module and returns the diagnostics. The module must come
// from a resolution without errors.
func Validate(module *sem.Module, options Options) *Result {
	v := &Validator{
		module:       module,
		diags:        diagnostic.NewList(),
		options:      options,
		enabled:      module.Extensions().Union(options.Extensions),
		validLayouts: make(map[usageKey]bool),
		structUsages: make(map[usageKey]bool),
	}

	// Phase 1: Enable directives against the environment
	v.validateEnables()

	// Phase 2: Extension-gated types and attributes
	v.validateFeatureUses()

	// Phase 3: Module-scope variables
	for _, g := range module.Globals {
		if g.Kind == sem.VarKindVar {
			v.validateVariable(g)
		}
	}

	// Phase 4: Pointer types
	for _, p := range module.PointerUses {
		v.validatePointer(p)
	}

	// Phase 5: Function-scope variables and builtin calls
	v.validateFunctions()

	// Phase 6: Pointer aliasing
	aa := NewAliasAnalyzer(module, v.diags)
	aa.Analyze()

	if options.MaxErrors > 0 {
		v.diags.Truncate(options.MaxErrors)
	}

	slogger().Debug("validator: module validated",
		"globals", len(module.Globals),
		"functions", len(module.Functions),
		"layouts", len(v.validLayouts),
		"errors", v.diags.ErrorCount())

	return &Result{
		Valid:       !v.diags.HasErrors(),
		Diagnostics: v.diags,
		Aliases:     aa.Infos(),
	}
}

// ----------------------------------------------------------------------------
// Phase 1-2: Extensions
// ----------------------------------------------------------------------------

func (v *Validator) validateEnables() {
	if len(v.options.Allowed) == 0 {
		return
	}
	for _, e := range v.module.Enables {
		if !v.options.Allowed.Contains(e.Extension) {
			v.errorf(diagnostic.CodeMissingExtension, e.Source,
				"extension '%s' is not allowed in the current environment", e.Name)
		}
	}
}

func (v *Validator) validateFeatureUses() {
	for _, f := range v.module.FeatureUses {
		if !v.enabled.Contains(f.Extension) {
			v.errorf(diagnostic.CodeMissingExtension, f.Source,
				"use of '%s' requires enabling extension '%s'", f.Name, f.Extension)
		}
	}
}

// ----------------------------------------------------------------------------
// Phase 5: Functions
// ----------------------------------------------------------------------------

func (v *Validator) validateFunctions() {
	for _, fn := range v.module.Functions {
		for _, local := range fn.Locals {
			if local.Kind == sem.VarKindVar {
				v.validateVariable(local)
			}
		}
		for _, c := range fn.Calls {
			if c.Builtin == nil || c.Builtin.Extension == extension.Undefined {
				continue
			}
			if !v.enabled.Contains(c.Builtin.Extension) {
				v.errorf(diagnostic.CodeMissingExtension, c.Expr.Source,
					"cannot call built-in function '%s' without extension '%s'", c.Builtin.Name, c.Builtin.Extension)
			}
		}
	}
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func (v *Validator) errorf(code diagnostic.Code, src diagnostic.Source, format string, args ...any) {
	v.diags.AddErrorf(code, src, format, args...)
}

func (v *Validator) notef(src diagnostic.Source, format string, args ...any) {
	v.diags.AddNotef(src, format, args...)
}

func (v *Validator) relaxedUniformLayout() bool {
	return v.enabled.Contains(extension.ChromiumInternalRelaxedUniformLayout)
}
