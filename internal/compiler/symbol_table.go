package compiler

type SymbolScope string

const (
	GlobalScope   SymbolScope = "GLOBAL"
	LocalScope    SymbolScope = "LOCAL"
	BuiltinScope  SymbolScope = "BUILTIN"
	FreeScope     SymbolScope = "FREE"
	FunctionScope SymbolScope = "FUNCTION"
)

type Symbol struct {
	Name  string
	Scope SymbolScope
	Index int
}

// SymbolTable maps names to storage slots for one lexical scope. Outer is
// not owned; it always outlives the enclosed table.
type SymbolTable struct {
	Outer *SymbolTable

	// FreeSymbols lists, in capture order, the outer symbols this scope
	// closes over. The index of a Free symbol is its position here.
	FreeSymbols []Symbol

	store          map[string]Symbol
	numDefinitions int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		store:       make(map[string]Symbol),
		FreeSymbols: []Symbol{},
	}
}

func NewEnclosedSymbolTable(outer *SymbolTable) *SymbolTable {
	s := NewSymbolTable()
	s.Outer = outer
	return s
}

// Define binds name to the next slot of this scope. Redefining a name takes a
// fresh slot; references compiled earlier keep reading the old one.
func (s *SymbolTable) Define(name string) Symbol {
	symbol := Symbol{Name: name, Index: s.numDefinitions}
	if s.Outer == nil {
		symbol.Scope = GlobalScope
	} else {
		symbol.Scope = LocalScope
	}

	s.store[name] = symbol
	s.numDefinitions++
	return symbol
}

func (s *SymbolTable) DefineBuiltin(index int, name string) Symbol {
	symbol := Symbol{Name: name, Index: index, Scope: BuiltinScope}
	s.store[name] = symbol
	return symbol
}

// DefineFunctionName lets a function body refer to the closure being executed.
func (s *SymbolTable) DefineFunctionName(name string) Symbol {
	symbol := Symbol{Name: name, Index: 0, Scope: FunctionScope}
	s.store[name] = symbol
	return symbol
}

func (s *SymbolTable) defineFree(original Symbol) Symbol {
	s.FreeSymbols = append(s.FreeSymbols, original)

	symbol := Symbol{Name: original.Name, Index: len(s.FreeSymbols) - 1, Scope: FreeScope}
	s.store[original.Name] = symbol
	return symbol
}

// Resolve looks name up through the chain of enclosing scopes. A Local,
// Free or Function symbol found in an outer scope is captured: it is appended
// once to FreeSymbols and returned as a Free symbol of this scope.
func (s *SymbolTable) Resolve(name string) (Symbol, bool) {
	symbol, ok := s.store[name]
	if ok || s.Outer == nil {
		return symbol, ok
	}

	symbol, ok = s.Outer.Resolve(name)
	if !ok {
		return symbol, ok
	}
	if symbol.Scope == GlobalScope || symbol.Scope == BuiltinScope {
		return symbol, ok
	}
	return s.defineFree(symbol), true
}

// NumDefinitions is the number of slots Define has handed out.
func (s *SymbolTable) NumDefinitions() int { return s.numDefinitions }

// symbolTableState is enough to undo every Define made after it was taken.
type symbolTableState struct {
	store          map[string]Symbol
	numDefinitions int
	numFree        int
}

func (s *SymbolTable) snapshot() symbolTableState {
	store := make(map[string]Symbol, len(s.store))
	for k, v := range s.store {
		store[k] = v
	}
	return symbolTableState{store: store, numDefinitions: s.numDefinitions, numFree: len(s.FreeSymbols)}
}

func (s *SymbolTable) restore(state symbolTableState) {
	s.store = state.store
	s.numDefinitions = state.numDefinitions
	s.FreeSymbols = s.FreeSymbols[:state.numFree]
}
