// Package reflect extracts binding and entry point information from a
// resolved module, with the memory layout of every host-shareable struct.
package reflect

import (
	"github.com/HugoDaniel/wgslcheck/internal/ast"
	"github.com/HugoDaniel/wgslcheck/internal/layout"
	"github.com/HugoDaniel/wgslcheck/internal/sem"
	"github.com/HugoDaniel/wgslcheck/internal/types"
)

// Result contains all reflection information for a module.
type Result struct {
	Bindings    []BindingInfo                  `json:"bindings"`
	Structs     map[string]layout.StructLayout `json:"structs"`
	EntryPoints []EntryPointInfo               `json:"entryPoints"`
}

// BindingInfo describes a single @group/@binding variable.
type BindingInfo struct {
	Group        int                  `json:"group"`
	Binding      int                  `json:"binding"`
	Name         string               `json:"name"`
	AddressSpace string               `json:"addressSpace"`
	AccessMode   string               `json:"accessMode,omitempty"`
	Type         string               `json:"type"`
	Size         int                  `json:"size,omitempty"`
	Layout       *layout.StructLayout `json:"layout"` // null for textures/samplers
}

// EntryPointInfo describes a shader entry point function.
type EntryPointInfo struct {
	Name          string `json:"name"`
	Stage         string `json:"stage"`         // "vertex", "fragment", "compute"
	WorkgroupSize []int  `json:"workgroupSize"` // null for vertex/fragment
}

// Module extracts reflection information from a resolved module. It
// assumes the module resolved without errors.
func Module(m *sem.Module) Result {
	result := Result{
		Bindings:    []BindingInfo{},
		Structs:     make(map[string]layout.StructLayout, len(m.Structs)),
		EntryPoints: []EntryPointInfo{},
	}

	for _, s := range m.Structs {
		result.Structs[s.Name] = layout.Reflect(s)
	}

	for _, v := range m.Globals {
		if b, ok := binding(v); ok {
			result.Bindings = append(result.Bindings, b)
		}
	}

	for _, f := range m.Functions {
		if f.IsEntryPoint() {
			result.EntryPoints = append(result.EntryPoints, entryPoint(f))
		}
	}

	return result
}

// binding returns the binding info of a resource variable.
func binding(v *sem.Variable) (BindingInfo, bool) {
	if v.Kind != sem.VarKindVar || !v.HasGroup || !v.HasBinding || v.Type == nil {
		return BindingInfo{}, false
	}

	space := v.EffectiveSpace()
	info := BindingInfo{
		Group:        v.Group,
		Binding:      v.Binding,
		Name:         v.Name,
		AddressSpace: space.String(),
		Type:         v.Type.String(),
	}

	// Access mode only means something for storage buffers
	if space == types.AddressSpaceStorage {
		info.AccessMode = v.EffectiveAccess().String()
	}

	if space.IsHostShareable() {
		info.Size = v.Type.Size()
		if s := layout.StructOf(v.Type); s != nil {
			l := layout.Reflect(s)
			info.Layout = &l
		}
	}

	return info, true
}

func entryPoint(f *sem.Function) EntryPointInfo {
	ep := EntryPointInfo{Name: f.Name, Stage: f.Stage}
	if f.Stage != "compute" {
		return ep
	}
	if a := ast.FindAttribute(f.Decl.Attributes, "workgroup_size"); a != nil {
		ep.WorkgroupSize = workgroupSize(a)
	}
	return ep
}

// workgroupSize parses @workgroup_size(x, y, z) arguments. Missing or
// non-literal dimensions default to 1.
func workgroupSize(a *ast.Attribute) []int {
	result := make([]int, 3)
	for i := range result {
		val, ok := a.IntArg(i)
		if !ok || val < 1 {
			val = 1
		}
		result[i] = val
	}
	return result
}
