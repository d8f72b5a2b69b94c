package rast

import "github.com/rustbootstrap/mrustc-core/internal/rspan"

// Expr is the expression-node marker interface. Concrete node types below
// follow a sum-type-via-marker-interface idiom.
type Expr interface {
	Node
	exprNode()
}

type exprBase struct{ span *rspan.Span }

func (e exprBase) Span() *rspan.Span { return e.span }
func (exprBase) exprNode()           {}

// PathExpr references a (possibly still-unresolved) path as a value.
type PathExpr struct {
	exprBase
	Path *Path
}

// LitKind enumerates literal expression kinds.
type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitStr
	LitByteStr
	LitChar
	LitBool
)

// LitExpr is an integer/float/string/bool/char literal.
type LitExpr struct {
	exprBase
	Kind  LitKind
	Value interface{}
}

// BlockExpr is `{ stmts...; tail }`.
type BlockExpr struct {
	exprBase
	Stmts []Stmt
	Tail  Expr // nil if the block has no trailing expression
}

// CallExpr is `f(args...)`.
type CallExpr struct {
	exprBase
	Func Expr
	Args []Expr
}

// MethodCallExpr is `recv.name::<targs>(args...)`.
type MethodCallExpr struct {
	exprBase
	Receiver Expr
	Name     string
	TypeArgs []TypeRef
	Args     []Expr
}

// FieldExpr is `recv.name` (or `recv.0` for tuple structs, Name holding the
// stringified index).
type FieldExpr struct {
	exprBase
	Receiver Expr
	Name     string
}

// RefExpr is `&expr` / `&mut expr`.
type RefExpr struct {
	exprBase
	Inner   Expr
	Mutable bool
}

// BinOpExpr is a binary operator application.
type BinOpExpr struct {
	exprBase
	Op          string
	Left, Right Expr
}

// UnOpExpr is a unary operator application (`-x`, `!x`).
type UnOpExpr struct {
	exprBase
	Op    string
	Inner Expr
}

// IfExpr is `if cond { then } else { else_ }`.
type IfExpr struct {
	exprBase
	Cond       Expr
	Then, Else Expr
}

// MatchArm is one `pattern if guard => body` arm.
type MatchArm struct {
	Pattern Pattern
	Guard   Expr // nil if no guard
	Body    Expr
}

// MatchExpr is `match scrutinee { arms... }`.
type MatchExpr struct {
	exprBase
	Scrutinee Expr
	Arms      []MatchArm
}

// ReturnExpr is `return value`.
type ReturnExpr struct {
	exprBase
	Value Expr // nil for bare `return`
}

// StructLitExpr is `Path { field: value, ... }`.
type StructLitExpr struct {
	exprBase
	Path   *Path
	Fields []FieldValue
	Rest   Expr // `..base`, nil if absent
}

// FieldValue is one `name: value` entry of a struct literal.
type FieldValue struct {
	Name  string
	Value Expr
}

// TupleExpr is `(a, b, c)`.
type TupleExpr struct {
	exprBase
	Elems []Expr
}

// MacroInvocationExpr is an as-yet-unexpanded macro call in expression
// position; also reachable from TypeRef.PendingMacro and item-level macro
// invocations (Module: "a list of macro-invocation expressions
// pending expansion").
type MacroInvocationExpr struct {
	exprBase
	Path   *Path
	Tokens []Token
}

// Stmt is the statement marker interface (expression-orientation does not
// hold for Rust; `let` and item declarations are genuine statements).
type Stmt interface {
	Node
	stmtNode()
}

type stmtBase struct{ span *rspan.Span }

func (s stmtBase) Span() *rspan.Span { return s.span }
func (stmtBase) stmtNode()           {}

// LetStmt is `let pattern: ty = value;`.
type LetStmt struct {
	stmtBase
	Pattern Pattern
	Type    *TypeRef // nil if elided
	Value   Expr     // nil for `let x;`
}

// ExprStmt wraps an expression used in statement position.
type ExprStmt struct {
	stmtBase
	Expr Expr
}

// ItemStmt wraps a local item declaration (e.g. a nested `fn` or `struct`).
type ItemStmt struct {
	stmtBase
	Item Item
}

