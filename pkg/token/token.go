package token

type Type int

const (
	EOF Type = iota
	Comment
	Ident
	Number
	FloatNumber
	LParen
	RParen

	// Operator kinds carried by expression nodes
	Plus
	Minus
	Star
	Slash
	Div
	Mod
	And
	Or
	Eq
	Neq
	Lt
	Gt
	Not
	Neg
	Assign
)

// OperatorMap maps the spelling used in tree descriptions to operator kinds
var OperatorMap = map[string]Type{
	"+":   Plus,
	"-":   Minus,
	"*":   Star,
	"/":   Slash,
	"div": Div,
	"mod": Mod,
	"and": And,
	"or":  Or,
	"=":   Eq,
	"<>":  Neq,
	"<":   Lt,
	">":   Gt,
	"not": Not,
	"neg": Neg,
	":=":  Assign,
}

// Reverse mapping from Type to the operator spelling
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range OperatorMap {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	switch t {
	case EOF:
		return "end of file"
	case Comment:
		return "comment"
	case Ident:
		return "identifier"
	case Number:
		return "integer"
	case FloatNumber:
		return "real"
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	}
	return "unknown"
}

// IsRelation reports whether op compares its operands
func (t Type) IsRelation() bool { return t == Eq || t == Neq || t == Lt || t == Gt }

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}

// HasPos reports whether the token points into a source file
func (t Token) HasPos() bool { return t.Line > 0 }
