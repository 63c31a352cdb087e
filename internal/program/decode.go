package program

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/HugoDaniel/wgslcheck/internal/ast"
	"github.com/HugoDaniel/wgslcheck/internal/types"
)

// ----------------------------------------------------------------------------
// Wire format
// ----------------------------------------------------------------------------

type document struct {
	Version string       `json:"version"`
	Enables []enableNode `json:"enables,omitempty"`
	Decls   []declNode   `json:"decls"`
}

// pos is a [line, column] pair.
type pos [2]int

func (p pos) source() ast.Source {
	return ast.Src(p[0], p[1])
}

type enableNode struct {
	Src      pos      `json:"src"`
	Features []string `json:"features"`
}

type attrNode struct {
	Src  pos               `json:"src"`
	Name string            `json:"name"`
	Args []json.RawMessage `json:"args,omitempty"`
}

type memberNode struct {
	Src   pos             `json:"src"`
	Name  string          `json:"name"`
	Type  json.RawMessage `json:"type"`
	Attrs []attrNode      `json:"attrs,omitempty"`
}

type paramNode struct {
	Src   pos             `json:"src"`
	Name  string          `json:"name"`
	Type  json.RawMessage `json:"type"`
	Attrs []attrNode      `json:"attrs,omitempty"`
}

type declNode struct {
	Kind    string            `json:"kind"`
	Src     pos               `json:"src"`
	Name    string            `json:"name"`
	Attrs   []attrNode        `json:"attrs,omitempty"`
	Type    json.RawMessage   `json:"type,omitempty"`
	Space   string            `json:"space,omitempty"`
	Access  string            `json:"access,omitempty"`
	Init    json.RawMessage   `json:"init,omitempty"`
	Members []memberNode      `json:"members,omitempty"`
	Params  []paramNode       `json:"params,omitempty"`
	Ret     json.RawMessage   `json:"ret,omitempty"`
	Body    []json.RawMessage `json:"body,omitempty"`
}

type typeNode struct {
	Type    string          `json:"type"`
	Src     pos             `json:"src"`
	Size    int             `json:"size,omitempty"`
	Cols    int             `json:"cols,omitempty"`
	Rows    int             `json:"rows,omitempty"`
	Elem    json.RawMessage `json:"elem,omitempty"`
	Count   json.RawMessage `json:"count,omitempty"`
	Attrs   []attrNode      `json:"attrs,omitempty"`
	Space   string          `json:"space,omitempty"`
	Access  string          `json:"access,omitempty"`
	Name    string          `json:"name,omitempty"`
	Sampled json.RawMessage `json:"sampled,omitempty"`
	Format  string          `json:"format,omitempty"`
	Kind    string          `json:"kind,omitempty"`
}

type exprNode struct {
	Expr     string            `json:"expr"`
	Src      pos               `json:"src"`
	Name     string            `json:"name,omitempty"`
	Value    string            `json:"value,omitempty"`
	Kind     string            `json:"kind,omitempty"`
	Op       string            `json:"op,omitempty"`
	Operand  json.RawMessage   `json:"operand,omitempty"`
	Left     json.RawMessage   `json:"left,omitempty"`
	Right    json.RawMessage   `json:"right,omitempty"`
	Base     json.RawMessage   `json:"base,omitempty"`
	Index    json.RawMessage   `json:"index,omitempty"`
	Member   string            `json:"member,omitempty"`
	Func     string            `json:"func,omitempty"`
	Template json.RawMessage   `json:"template,omitempty"`
	Args     []json.RawMessage `json:"args,omitempty"`
	Inner    json.RawMessage   `json:"inner,omitempty"`
}

type caseNode struct {
	Src       pos               `json:"src"`
	Selectors []json.RawMessage `json:"selectors,omitempty"`
	Body      []json.RawMessage `json:"body"`
}

type stmtNode struct {
	Stmt       string            `json:"stmt"`
	Src        pos               `json:"src"`
	Value      json.RawMessage   `json:"value,omitempty"`
	Cond       json.RawMessage   `json:"cond,omitempty"`
	Body       []json.RawMessage `json:"body,omitempty"`
	Else       json.RawMessage   `json:"else,omitempty"`
	Cases      []caseNode        `json:"cases,omitempty"`
	Init       json.RawMessage   `json:"init,omitempty"`
	Update     json.RawMessage   `json:"update,omitempty"`
	Continuing []json.RawMessage `json:"continuing,omitempty"`
	Lhs        json.RawMessage   `json:"lhs,omitempty"`
	Rhs        json.RawMessage   `json:"rhs,omitempty"`
	Op         string            `json:"op,omitempty"`
	Call       json.RawMessage   `json:"call,omitempty"`
	Name       string            `json:"name,omitempty"`
	Type       json.RawMessage   `json:"type,omitempty"`
	Space      string            `json:"space,omitempty"`
	Access     string            `json:"access,omitempty"`
}

func parseDocument(data []byte) (*document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decoding program document")
	}
	return &doc, nil
}

// present reports whether an optional raw field was given a value.
func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

func (doc *document) module() (*ast.Module, error) {
	mod := &ast.Module{}
	for _, e := range doc.Enables {
		mod.Enables = append(mod.Enables, &ast.EnableDirective{Source: e.Src.source(), Features: e.Features})
	}
	for i := range doc.Decls {
		d, err := doc.Decls[i].decl()
		if err != nil {
			return nil, errors.Wrapf(err, "decls[%d]", i)
		}
		mod.Declarations = append(mod.Declarations, d)
	}
	return mod, nil
}

func (n *declNode) decl() (ast.Decl, error) {
	src := n.Src.source()
	if n.Name == "" {
		return nil, errors.Errorf("%s declaration without a name", n.Kind)
	}

	attrs, err := attributes(n.Attrs)
	if err != nil {
		return nil, err
	}
	ty, err := optionalType(n.Type)
	if err != nil {
		return nil, errors.Wrap(err, "type")
	}
	init, err := optionalExpr(n.Init)
	if err != nil {
		return nil, errors.Wrap(err, "init")
	}

	switch n.Kind {
	case "struct":
		d := &ast.StructDecl{Source: src, Name: n.Name}
		for i, m := range n.Members {
			member, err := m.member()
			if err != nil {
				return nil, errors.Wrapf(err, "members[%d]", i)
			}
			d.Members = append(d.Members, member)
		}
		return d, nil

	case "alias":
		if ty == nil {
			return nil, errors.Errorf("alias '%s' without a type", n.Name)
		}
		return &ast.AliasDecl{Source: src, Name: n.Name, Type: ty}, nil

	case "var":
		space, access, err := spaceAccess(n.Space, n.Access)
		if err != nil {
			return nil, err
		}
		return &ast.VarDecl{
			Source:       src,
			Attributes:   attrs,
			AddressSpace: space,
			Access:       access,
			Name:         n.Name,
			Type:         ty,
			Initializer:  init,
		}, nil

	case "const":
		if init == nil {
			return nil, errors.Errorf("const '%s' without an initializer", n.Name)
		}
		return &ast.ConstDecl{Source: src, Name: n.Name, Type: ty, Initializer: init}, nil

	case "override":
		return &ast.OverrideDecl{Source: src, Attributes: attrs, Name: n.Name, Type: ty, Initializer: init}, nil

	case "fn":
		d := &ast.FunctionDecl{Source: src, Attributes: attrs, Name: n.Name}
		for i, p := range n.Params {
			param, err := p.param()
			if err != nil {
				return nil, errors.Wrapf(err, "params[%d]", i)
			}
			d.Parameters = append(d.Parameters, param)
		}
		if d.ReturnType, err = optionalType(n.Ret); err != nil {
			return nil, errors.Wrap(err, "ret")
		}
		if d.Body, err = block(src, n.Body); err != nil {
			return nil, errors.Wrap(err, "body")
		}
		return d, nil
	}
	return nil, errors.Errorf("unknown declaration kind %q", n.Kind)
}

func (m *memberNode) member() (*ast.StructMember, error) {
	ty, err := decodeType(m.Type)
	if err != nil {
		return nil, errors.Wrap(err, "type")
	}
	attrs, err := attributes(m.Attrs)
	if err != nil {
		return nil, err
	}
	return &ast.StructMember{Source: m.Src.source(), Name: m.Name, Type: ty, Attributes: attrs}, nil
}

func (p *paramNode) param() (*ast.Parameter, error) {
	ty, err := decodeType(p.Type)
	if err != nil {
		return nil, errors.Wrap(err, "type")
	}
	attrs, err := attributes(p.Attrs)
	if err != nil {
		return nil, err
	}
	return &ast.Parameter{Source: p.Src.source(), Name: p.Name, Type: ty, Attributes: attrs}, nil
}

func attributes(nodes []attrNode) ([]*ast.Attribute, error) {
	var attrs []*ast.Attribute
	for i, n := range nodes {
		a := &ast.Attribute{Source: n.Src.source(), Name: n.Name}
		for j, raw := range n.Args {
			arg, err := decodeExpr(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "attrs[%d].args[%d]", i, j)
			}
			a.Args = append(a.Args, arg)
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

func spaceAccess(space, access string) (types.AddressSpace, types.Access, error) {
	s, ok := types.ParseAddressSpace(space)
	if !ok {
		return 0, 0, errors.Errorf("unknown address space %q", space)
	}
	a, ok := types.ParseAccess(access)
	if !ok {
		return 0, 0, errors.Errorf("unknown access mode %q", access)
	}
	return s, a, nil
}

// ----------------------------------------------------------------------------
// Types
// ----------------------------------------------------------------------------

func optionalType(raw json.RawMessage) (ast.Type, error) {
	if !present(raw) {
		return nil, nil
	}
	return decodeType(raw)
}

func decodeType(raw json.RawMessage) (ast.Type, error) {
	if !present(raw) {
		return nil, errors.New("missing type")
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return &ast.IdentType{Name: name}, nil
	}
	var n typeNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, errors.Wrap(err, "decoding type")
	}
	return n.decode()
}

func (n *typeNode) decode() (ast.Type, error) {
	src := n.Src.source()

	elem := func() (ast.Type, error) {
		t, err := decodeType(n.Elem)
		return t, errors.Wrapf(err, "%s element", n.Type)
	}

	switch n.Type {
	case "":
		return nil, errors.New("type object without a \"type\" tag")

	case "vec":
		e, err := elem()
		if err != nil {
			return nil, err
		}
		if n.Size < 2 || n.Size > 4 {
			return nil, errors.Errorf("invalid vector size %d", n.Size)
		}
		return &ast.VecType{Source: src, Size: n.Size, ElemType: e}, nil

	case "mat":
		e, err := elem()
		if err != nil {
			return nil, err
		}
		if n.Cols < 2 || n.Cols > 4 || n.Rows < 2 || n.Rows > 4 {
			return nil, errors.Errorf("invalid matrix shape %dx%d", n.Cols, n.Rows)
		}
		return &ast.MatType{Source: src, Cols: n.Cols, Rows: n.Rows, ElemType: e}, nil

	case "array":
		e, err := elem()
		if err != nil {
			return nil, err
		}
		count, err := optionalExpr(n.Count)
		if err != nil {
			return nil, errors.Wrap(err, "array count")
		}
		attrs, err := attributes(n.Attrs)
		if err != nil {
			return nil, err
		}
		return &ast.ArrayType{Source: src, Attributes: attrs, ElemType: e, Size: count}, nil

	case "ptr":
		e, err := elem()
		if err != nil {
			return nil, err
		}
		space, access, err := spaceAccess(n.Space, n.Access)
		if err != nil {
			return nil, err
		}
		return &ast.PtrType{Source: src, AddressSpace: space, ElemType: e, Access: access}, nil

	case "atomic":
		e, err := elem()
		if err != nil {
			return nil, err
		}
		return &ast.AtomicType{Source: src, ElemType: e}, nil

	case "sampler", "sampler_comparison":
		return &ast.SamplerType{Source: src, Comparison: n.Type == "sampler_comparison"}, nil

	case "texture":
		if !strings.HasPrefix(n.Name, "texture_") {
			return nil, errors.Errorf("invalid texture name %q", n.Name)
		}
		sampled, err := optionalType(n.Sampled)
		if err != nil {
			return nil, errors.Wrap(err, "sampled type")
		}
		_, access, err := spaceAccess("", n.Access)
		if err != nil {
			return nil, err
		}
		return &ast.TextureType{Source: src, Name: n.Name, SampledType: sampled, TexelFormat: n.Format, Access: access}, nil

	case "subgroup_matrix":
		e, err := elem()
		if err != nil {
			return nil, err
		}
		var kind types.SubgroupMatrixKind
		switch n.Kind {
		case "left":
			kind = types.SubgroupMatrixLeft
		case "right":
			kind = types.SubgroupMatrixRight
		case "result":
			kind = types.SubgroupMatrixResult
		default:
			return nil, errors.Errorf("unknown subgroup matrix kind %q", n.Kind)
		}
		return &ast.SubgroupMatrixType{Source: src, Kind: kind, ElemType: e, Cols: n.Cols, Rows: n.Rows}, nil

	case "texel_buffer":
		_, access, err := spaceAccess("", n.Access)
		if err != nil {
			return nil, err
		}
		return &ast.TexelBufferType{Source: src, Format: n.Format, Access: access}, nil
	}

	// Anything else names a scalar, predeclared alias, struct or alias.
	return &ast.IdentType{Source: src, Name: n.Type}, nil
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

var binaryOps = map[string]ast.BinaryOp{
	"+": ast.BinOpAdd, "-": ast.BinOpSub, "*": ast.BinOpMul, "/": ast.BinOpDiv, "%": ast.BinOpMod,
	"&": ast.BinOpAnd, "|": ast.BinOpOr, "^": ast.BinOpXor, "<<": ast.BinOpShl, ">>": ast.BinOpShr,
	"&&": ast.BinOpLogicalAnd, "||": ast.BinOpLogicalOr,
	"==": ast.BinOpEq, "!=": ast.BinOpNe, "<": ast.BinOpLt, "<=": ast.BinOpLe, ">": ast.BinOpGt, ">=": ast.BinOpGe,
}

var unaryOps = map[string]ast.UnaryOp{
	"-": ast.UnaryOpNeg, "!": ast.UnaryOpNot, "~": ast.UnaryOpBitNot, "*": ast.UnaryOpDeref, "&": ast.UnaryOpAddr,
}

var assignOps = map[string]ast.AssignOp{
	"=": ast.AssignOpSimple, "+=": ast.AssignOpAdd, "-=": ast.AssignOpSub, "*=": ast.AssignOpMul,
	"/=": ast.AssignOpDiv, "%=": ast.AssignOpMod, "&=": ast.AssignOpAnd, "|=": ast.AssignOpOr,
	"^=": ast.AssignOpXor, "<<=": ast.AssignOpShl, ">>=": ast.AssignOpShr,
}

func optionalExpr(raw json.RawMessage) (ast.Expr, error) {
	if !present(raw) {
		return nil, nil
	}
	return decodeExpr(raw)
}

func decodeExpr(raw json.RawMessage) (ast.Expr, error) {
	if !present(raw) {
		return nil, errors.New("missing expression")
	}

	// Shorthands: "name", 42, 1.5, true.
	switch raw[0] {
	case '"':
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return nil, errors.Wrap(err, "decoding identifier")
		}
		return &ast.IdentExpr{Name: name}, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, errors.Wrap(err, "decoding bool literal")
		}
		return &ast.LiteralExpr{Kind: ast.LiteralBool, Value: string(raw)}, nil
	case '{':
	default:
		var num json.Number
		if err := json.Unmarshal(raw, &num); err != nil {
			return nil, errors.Wrap(err, "decoding literal")
		}
		return literal(ast.Source{}, "", num.String())
	}

	var n exprNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, errors.Wrap(err, "decoding expression")
	}
	return n.decode()
}

func (n *exprNode) decode() (ast.Expr, error) {
	src := n.Src.source()
	switch n.Expr {
	case "ident":
		return &ast.IdentExpr{Source: src, Name: n.Name}, nil

	case "lit":
		return literal(src, n.Kind, n.Value)

	case "unary":
		op, ok := unaryOps[n.Op]
		if !ok {
			return nil, errors.Errorf("unknown unary operator %q", n.Op)
		}
		operand, err := decodeExpr(n.Operand)
		if err != nil {
			return nil, errors.Wrap(err, "operand")
		}
		return &ast.UnaryExpr{Source: src, Op: op, Operand: operand}, nil

	case "binary":
		op, ok := binaryOps[n.Op]
		if !ok {
			return nil, errors.Errorf("unknown binary operator %q", n.Op)
		}
		left, err := decodeExpr(n.Left)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}
		right, err := decodeExpr(n.Right)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}
		return &ast.BinaryExpr{Source: src, Op: op, Left: left, Right: right}, nil

	case "call":
		call, err := n.call()
		if err != nil {
			return nil, err
		}
		return call, nil

	case "index":
		base, err := decodeExpr(n.Base)
		if err != nil {
			return nil, errors.Wrap(err, "base")
		}
		index, err := decodeExpr(n.Index)
		if err != nil {
			return nil, errors.Wrap(err, "index")
		}
		return &ast.IndexExpr{Source: src, Base: base, Index: index}, nil

	case "member":
		base, err := decodeExpr(n.Base)
		if err != nil {
			return nil, errors.Wrap(err, "base")
		}
		if n.Member == "" {
			return nil, errors.New("member expression without a member")
		}
		return &ast.MemberExpr{Source: src, Base: base, Member: n.Member}, nil

	case "paren":
		inner, err := decodeExpr(n.Inner)
		if err != nil {
			return nil, errors.Wrap(err, "inner")
		}
		return &ast.ParenExpr{Source: src, Expr: inner}, nil
	}
	return nil, errors.Errorf("unknown expression kind %q", n.Expr)
}

func (n *exprNode) call() (*ast.CallExpr, error) {
	src := n.Src.source()
	call := &ast.CallExpr{Source: src}
	switch {
	case present(n.Template):
		t, err := decodeType(n.Template)
		if err != nil {
			return nil, errors.Wrap(err, "template")
		}
		call.TemplateType = t
	case n.Func != "":
		call.Func = &ast.IdentExpr{Source: src, Name: n.Func}
	default:
		return nil, errors.New("call without \"func\" or \"template\"")
	}
	for i, raw := range n.Args {
		arg, err := decodeExpr(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "args[%d]", i)
		}
		call.Args = append(call.Args, arg)
	}
	return call, nil
}

// literal builds a literal from its raw text. An empty kind is inferred
// from the text.
func literal(src ast.Source, kind, value string) (ast.Expr, error) {
	if value == "" {
		return nil, errors.New("literal without a value")
	}
	if kind == "" {
		kind = literalKind(value)
	}
	switch kind {
	case "int":
		return &ast.LiteralExpr{Source: src, Kind: ast.LiteralInt, Value: value}, nil
	case "float":
		return &ast.LiteralExpr{Source: src, Kind: ast.LiteralFloat, Value: value}, nil
	case "bool":
		if value != "true" && value != "false" {
			return nil, errors.Errorf("invalid bool literal %q", value)
		}
		return &ast.LiteralExpr{Source: src, Kind: ast.LiteralBool, Value: value}, nil
	}
	return nil, errors.Errorf("unknown literal kind %q", kind)
}

func literalKind(value string) string {
	switch {
	case value == "true" || value == "false":
		return "bool"
	case strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X"):
		if strings.ContainsAny(value, ".pP") {
			return "float"
		}
		return "int"
	case strings.ContainsAny(value, ".eEfh"):
		return "float"
	}
	return "int"
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

func block(src ast.Source, raws []json.RawMessage) (*ast.CompoundStmt, error) {
	b := &ast.CompoundStmt{Source: src}
	for i, raw := range raws {
		s, err := decodeStmt(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "[%d]", i)
		}
		b.Stmts = append(b.Stmts, s)
	}
	return b, nil
}

func optionalStmt(raw json.RawMessage) (ast.Stmt, error) {
	if !present(raw) {
		return nil, nil
	}
	return decodeStmt(raw)
}

func decodeStmt(raw json.RawMessage) (ast.Stmt, error) {
	var n stmtNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, errors.Wrap(err, "decoding statement")
	}
	return n.decode()
}

func (n *stmtNode) decode() (ast.Stmt, error) {
	src := n.Src.source()
	switch n.Stmt {
	case "block":
		return block(src, n.Body)

	case "return":
		value, err := optionalExpr(n.Value)
		if err != nil {
			return nil, errors.Wrap(err, "value")
		}
		return &ast.ReturnStmt{Source: src, Value: value}, nil

	case "if":
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}
		body, err := block(src, n.Body)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}
		els, err := optionalStmt(n.Else)
		if err != nil {
			return nil, errors.Wrap(err, "else")
		}
		switch els.(type) {
		case nil, *ast.IfStmt, *ast.CompoundStmt:
		default:
			return nil, errors.New("else must be an if or block statement")
		}
		return &ast.IfStmt{Source: src, Condition: cond, Body: body, Else: els}, nil

	case "switch":
		value, err := decodeExpr(n.Value)
		if err != nil {
			return nil, errors.Wrap(err, "value")
		}
		s := &ast.SwitchStmt{Source: src, Expr: value}
		for i, c := range n.Cases {
			sc := &ast.SwitchCase{Source: c.Src.source()}
			for _, raw := range c.Selectors {
				sel, err := decodeExpr(raw)
				if err != nil {
					return nil, errors.Wrapf(err, "cases[%d] selector", i)
				}
				sc.Selectors = append(sc.Selectors, sel)
			}
			if sc.Body, err = block(sc.Source, c.Body); err != nil {
				return nil, errors.Wrapf(err, "cases[%d]", i)
			}
			s.Cases = append(s.Cases, sc)
		}
		return s, nil

	case "for":
		init, err := optionalStmt(n.Init)
		if err != nil {
			return nil, errors.Wrap(err, "init")
		}
		cond, err := optionalExpr(n.Cond)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}
		update, err := optionalStmt(n.Update)
		if err != nil {
			return nil, errors.Wrap(err, "update")
		}
		body, err := block(src, n.Body)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}
		return &ast.ForStmt{Source: src, Init: init, Condition: cond, Update: update, Body: body}, nil

	case "while":
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}
		body, err := block(src, n.Body)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}
		return &ast.WhileStmt{Source: src, Condition: cond, Body: body}, nil

	case "loop":
		body, err := block(src, n.Body)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}
		loop := &ast.LoopStmt{Source: src, Body: body}
		if n.Continuing != nil {
			if loop.Continuing, err = block(src, n.Continuing); err != nil {
				return nil, errors.Wrap(err, "continuing")
			}
		}
		return loop, nil

	case "break":
		return &ast.BreakStmt{Source: src}, nil

	case "break_if":
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}
		return &ast.BreakIfStmt{Source: src, Condition: cond}, nil

	case "continue":
		return &ast.ContinueStmt{Source: src}, nil

	case "discard":
		return &ast.DiscardStmt{Source: src}, nil

	case "assign":
		op := ast.AssignOpSimple
		if n.Op != "" {
			var ok bool
			if op, ok = assignOps[n.Op]; !ok {
				return nil, errors.Errorf("unknown assignment operator %q", n.Op)
			}
		}
		lhs, err := optionalExpr(n.Lhs)
		if err != nil {
			return nil, errors.Wrap(err, "lhs")
		}
		if lhs == nil && op != ast.AssignOpSimple {
			return nil, errors.New("phony assignment must use '='")
		}
		rhs, err := decodeExpr(n.Rhs)
		if err != nil {
			return nil, errors.Wrap(err, "rhs")
		}
		return &ast.AssignStmt{Source: src, Op: op, Left: lhs, Right: rhs}, nil

	case "incr", "decr":
		e, err := decodeExpr(n.Value)
		if err != nil {
			return nil, errors.Wrap(err, "value")
		}
		return &ast.IncrDecrStmt{Source: src, Expr: e, Increment: n.Stmt == "incr"}, nil

	case "call":
		e, err := decodeExpr(n.Call)
		if err != nil {
			return nil, errors.Wrap(err, "call")
		}
		call, ok := e.(*ast.CallExpr)
		if !ok {
			return nil, errors.New("call statement needs a call expression")
		}
		return &ast.CallStmt{Source: src, Call: call}, nil

	case "var", "let", "const":
		return n.local(src)
	}
	return nil, errors.Errorf("unknown statement kind %q", n.Stmt)
}

func (n *stmtNode) local(src ast.Source) (ast.Stmt, error) {
	if n.Name == "" {
		return nil, errors.Errorf("%s statement without a name", n.Stmt)
	}
	ty, err := optionalType(n.Type)
	if err != nil {
		return nil, errors.Wrap(err, "type")
	}
	init, err := optionalExpr(n.Value)
	if err != nil {
		return nil, errors.Wrap(err, "value")
	}

	switch n.Stmt {
	case "var":
		space, access, err := spaceAccess(n.Space, n.Access)
		if err != nil {
			return nil, err
		}
		return &ast.DeclStmt{Decl: &ast.VarDecl{
			Source:       src,
			AddressSpace: space,
			Access:       access,
			Name:         n.Name,
			Type:         ty,
			Initializer:  init,
		}}, nil
	case "let":
		if init == nil {
			return nil, errors.Errorf("let '%s' without a value", n.Name)
		}
		return &ast.DeclStmt{Decl: &ast.LetDecl{Source: src, Name: n.Name, Type: ty, Initializer: init}}, nil
	default:
		if init == nil {
			return nil, errors.Errorf("const '%s' without a value", n.Name)
		}
		return &ast.DeclStmt{Decl: &ast.ConstDecl{Source: src, Name: n.Name, Type: ty, Initializer: init}}, nil
	}
}
