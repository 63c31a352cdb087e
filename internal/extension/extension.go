// Package extension names the WGSL extensions that gate address spaces,
// types and attributes during validation.
package extension

import (
	"sort"
	"strings"
)

// Extension is a WGSL `enable` extension.
type Extension uint8

const (
	Undefined Extension = iota
	F16
	DualSourceBlending
	Subgroups
	ClipDistances
	ChromiumExperimentalImmediate
	ChromiumExperimentalPixelLocal
	ChromiumExperimentalFramebufferFetch
	ChromiumExperimentalSubgroupMatrix
	ChromiumInternalRelaxedUniformLayout
)

var names = [...]string{
	Undefined:                            "",
	F16:                                  "f16",
	DualSourceBlending:                   "dual_source_blending",
	Subgroups:                            "subgroups",
	ClipDistances:                        "clip_distances",
	ChromiumExperimentalImmediate:        "chromium_experimental_immediate",
	ChromiumExperimentalPixelLocal:       "chromium_experimental_pixel_local",
	ChromiumExperimentalFramebufferFetch: "chromium_experimental_framebuffer_fetch",
	ChromiumExperimentalSubgroupMatrix:   "chromium_experimental_subgroup_matrix",
	ChromiumInternalRelaxedUniformLayout: "chromium_internal_relaxed_uniform_layout",
}

func (e Extension) String() string {
	if int(e) < len(names) {
		return names[e]
	}
	return ""
}

// Parse returns the extension with the given name, or Undefined.
func Parse(name string) Extension {
	name = strings.TrimSpace(name)
	for i, n := range names {
		if n != "" && n == name {
			return Extension(i)
		}
	}
	return Undefined
}

// All returns every known extension.
func All() []Extension {
	out := make([]Extension, 0, len(names)-1)
	for i := 1; i < len(names); i++ {
		out = append(out, Extension(i))
	}
	return out
}

// Set is an immutable-by-convention set of extensions.
type Set map[Extension]struct{}

// NewSet returns a set holding exts.
func NewSet(exts ...Extension) Set {
	s := make(Set, len(exts))
	for _, e := range exts {
		s.Add(e)
	}
	return s
}

// Add inserts e into the set.
func (s Set) Add(e Extension) {
	if e != Undefined {
		s[e] = struct{}{}
	}
}

// Contains reports whether e is in the set.
func (s Set) Contains(e Extension) bool {
	_, ok := s[e]
	return ok
}

// Union returns a new set with the members of s and other.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for e := range s {
		out.Add(e)
	}
	for e := range other {
		out.Add(e)
	}
	return out
}

// Sorted returns the members in declaration order.
func (s Set) Sorted() []Extension {
	out := make([]Extension, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
