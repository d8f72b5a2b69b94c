package rast

// TokenClass enumerates the token classes exchanged with proc-macros on the
// wire (step 4 / §6 "Proc-macro child protocol"). The same
// classification is reused for the token trees carried inside an
// unexpanded macro_rules!/attribute-macro invocation so both built-in and
// external macro dispatch share one representation.
type TokenClass int

const (
	TokSymbol TokenClass = iota
	TokIdent
	TokLifetime
	TokString
	TokByteString
	TokChar
	TokUInt
	TokSInt
	TokFloat
	TokFragment
)

// Token is one element of a TokenStream.
type Token struct {
	Class TokenClass

	// TokSymbol / TokIdent / TokLifetime / TokString / TokByteString
	Text string

	// TokChar / TokUInt / TokSInt
	IntValue uint64
	Signed   bool // true if the original value was negative (TokSInt)

	// TokUInt / TokSInt / TokFloat
	BitSize uint8 // 0, 8, 16, 32, 64, 128 's size_byte

	// TokFloat
	FloatValue float64

	// TokFragment: an already-parsed AST fragment spliced back in by a
	// macro_rules! expansion (e.g. a captured `$e:expr`).
	Fragment Expr
}

// TokenStream is an ordered sequence of Tokens, the unit exchanged with
// proc-macro children and produced by macro_rules! substitution.
type TokenStream []Token

// IsEmptySymbol reports whether t is the empty Symbol token used as a
// stream terminator (step 4: "An empty Symbol terminates the
// send"; §6: "followed by an empty Symbol to mark end").
func (t Token) IsEmptySymbol() bool {
	return t.Class == TokSymbol && t.Text == ""
}
