package ir

// Identifiers are opaque 64-bit keys, unique within their own table only.
type (
	// TypeID identifies an entry of the type table.
	TypeID uint64
	// FuncDeclID identifies a function declaration.
	FuncDeclID uint64
	// StringLiteralID identifies a string literal.
	StringLiteralID uint64
	// InlineAsmID identifies an inline assembly block.
	InlineAsmID uint64
	// AsmParamID identifies a parameter within one inline assembly block.
	AsmParamID uint64
	// AsmJumpTargetID identifies a jump target within one inline assembly block.
	AsmJumpTargetID uint64
)
