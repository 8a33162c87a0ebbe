package ir

import "fmt"

// SymbolKind distinguishes ordinary and thread-local symbols.
type SymbolKind uint8

const (
	SymbolGlobal SymbolKind = iota
	SymbolThreadLocal
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolGlobal:
		return "global"
	case SymbolThreadLocal:
		return "thread_local"
	default:
		return fmt.Sprintf("symbol(%d)", uint8(k))
	}
}

// Symbol is an exported or imported name.
type Symbol struct {
	Kind SymbolKind
	Name string
}
