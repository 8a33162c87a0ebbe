package ir

// FunctionDeclaration describes a function signature.
type FunctionDeclaration struct {
	ID     FuncDeclID
	Name   string // empty for anonymous declarations
	Params TypeID
	Vararg bool
	Result TypeID
}

// Function is a function definition.
type Function struct {
	Name        string
	Declaration FuncDeclID
	Locals      TypeID
	Body        Block
}
