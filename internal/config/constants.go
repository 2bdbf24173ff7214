package config

const SourceFileExt = ".mk"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".mk", ".monkey"}

// VM limits. Settings may lower or raise the stack and frame limits; the
// globals store size is fixed by the two byte OP_GET_GLOBAL operand.
const (
	StackSize   = 2048
	MaxFrames   = 1024
	GlobalsSize = 65536
)

// Compiler limits imposed by operand widths.
const (
	MaxConstants = 65536
	MaxLocals    = 256
	MaxFree      = 256
	MaxArgs      = 255
)

// REPL defaults
const (
	Prompt       = ">> "
	HistoryLimit = 1000
	HistoryFile  = ".monkey_history.db"
)

// Built-in function names, in builtin index order.
const (
	LenFuncName   = "len"
	PutsFuncName  = "puts"
	FirstFuncName = "first"
	LastFuncName  = "last"
	RestFuncName  = "rest"
	PushFuncName  = "push"
)

// Settings file names searched for by FindSettings, in priority order.
var SettingsFileNames = []string{"monkey.yaml", "monkey.yml", "monkey.toml"}

const Version = "0.1.0"
