// Package program decodes the JSON interchange document that carries a
// resolved WGSL program model into an ast.Module.
//
// A document looks like:
//
//	{
//	  "version": "1.0.0",
//	  "enables": [{"src": [1, 1], "features": ["f16"]}],
//	  "decls": [
//	    {"kind": "struct", "name": "S", "src": [2, 1], "members": [
//	      {"name": "a", "type": {"type": "f32", "src": [3, 6]}, "src": [3, 3]}
//	    ]},
//	    {"kind": "var", "name": "s", "space": "storage", "type": "S",
//	     "attrs": [{"name": "group", "args": [0]}, {"name": "binding", "args": [0]}]}
//	  ]
//	}
//
// Sources are [line, column] pairs. Types, expressions and statements are
// objects tagged by "type", "expr" and "stmt". A bare string is shorthand
// for a named type or an identifier, and a bare number for a literal.
package program

import (
	"io"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/HugoDaniel/wgslcheck/internal/ast"
)

// Version is the interchange version this package writes and documents.
const Version = "1.0.0"

// Compatible is the range of document versions Decode accepts.
const Compatible = ">= 1.0.0, < 2.0.0"

// Options controls decoding.
type Options struct {
	// Constraint further restricts the accepted document versions, for
	// example ">= 1.2.0". Empty accepts every compatible version.
	Constraint string
}

// Decode decodes a document with default options.
func Decode(data []byte) (*ast.Module, error) {
	return DecodeWith(data, Options{})
}

// DecodeWith decodes a document. The version is checked before any
// declaration is decoded.
func DecodeWith(data []byte, opts Options) (*ast.Module, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	if err := CheckVersion(doc.Version, opts.Constraint); err != nil {
		return nil, err
	}
	return doc.module()
}

// Read decodes a document from r.
func Read(r io.Reader, opts Options) (*ast.Module, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading program")
	}
	return DecodeWith(data, opts)
}

// ReadFile decodes the document at path and records the path on the module.
func ReadFile(path string, opts Options) (*ast.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading program")
	}
	mod, err := DecodeWith(data, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	mod.Path = path
	return mod, nil
}

// CheckVersion reports whether version is a compatible document version
// that also satisfies constraint, if one is given.
func CheckVersion(version, constraint string) error {
	if version == "" {
		return errors.New("program document has no version")
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrapf(err, "invalid program version %q", version)
	}

	compatible, err := semver.NewConstraint(Compatible)
	if err != nil {
		return errors.Wrap(err, "internal version constraint")
	}
	if !compatible.Check(v) {
		return errors.Errorf("unsupported program version %s, expected %s", v, Compatible)
	}

	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(err, "invalid version constraint %q", constraint)
	}
	if ok, errs := c.Validate(v); !ok {
		if len(errs) > 0 {
			return errors.Wrapf(errs[0], "program version %s rejected", v)
		}
		return errors.Errorf("program version %s does not satisfy %s", v, constraint)
	}
	return nil
}
