package frontend

// Token is one preprocessing token of a macro body.
type Token struct {
	Spelling     string
	LeadingSpace bool
}

// MacroDefinition is a #define as seen by the preprocessor.
type MacroDefinition struct {
	Name           string
	IsBuiltin      bool
	IsFunctionLike bool
	Params         []string
	IsC99Varargs   bool
	IsGNUVarargs   bool
	Tokens         []Token
}
