package debug

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (mechanisms built, controllers found)
	LevelLive    = 2 // Live info (states armed, targets reached)
	LevelVerbose = 3 // Verbose (config details, per-cycle summaries)
	LevelTrace   = 4 // Trace (GPIO, serial, very low level)
)

var (
	mu     sync.Mutex
	level  int
	out    io.Writer = os.Stdout
	logger *zap.SugaredLogger
	once   = map[string]struct{}{}
)

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (mechanisms, controllers, configuration problems)
// 2 = live info (state changes, targets reached)
// 3 = verbose (config details, steps)
// 4 = trace (GPIO, serial, very low level)
func Init(debugLevel int) {
	mu.Lock()
	defer mu.Unlock()
	level = debugLevel
	once = map[string]struct{}{}
	rebuild()
}

// SetOutput redirects log output (e.g. to stdout and the web broadcaster).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	rebuild()
}

func rebuild() {
	if logger != nil {
		_ = logger.Sync()
	}
	if level <= LevelOff {
		logger = nil
		return
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05.000000")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.CallerKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(out), zapcore.DebugLevel)
	logger = zap.New(core).Named("MechGo").Sugar()
}

func get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Level returns the current debug level.
func Level() int {
	mu.Lock()
	defer mu.Unlock()
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return Level() >= minLevel
}

func logAt(minLevel int, tag, format string, args ...interface{}) {
	if !IsEnabled(minLevel) {
		return
	}
	if l := get(); l != nil {
		switch tag {
		case "ERROR":
			l.Errorf(format, args...)
		case "WARN":
			l.Warnf(format, args...)
		case "INFO":
			l.Infof(format, args...)
		default:
			l.Debugf("["+tag+"] "+format, args...)
		}
	}
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	logAt(LevelInfo, "INFO", format, args...)
}

// Warn prints a level 1 warning.
func Warn(format string, args ...interface{}) {
	logAt(LevelInfo, "WARN", format, args...)
}

// Summary prints an important summary (level 1).
func Summary(title string) {
	if l := get(); l != nil && IsEnabled(LevelInfo) {
		l.Info("═══════════════════════════════════════")
		l.Infof("  %s", title)
		l.Info("═══════════════════════════════════════")
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	logAt(LevelLive, "LIVE", format, args...)
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	logAt(LevelVerbose, "VERBOSE", format, args...)
}

// Printf is an alias for Verbose.
func Printf(format string, args ...interface{}) {
	Verbose(format, args...)
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	logAt(LevelVerbose, "VERBOSE", "%s: %+v", name, v)
}

// Section prints a section separator (level 3).
func Section(name string) {
	if l := get(); l != nil && IsEnabled(LevelVerbose) {
		l.Debug("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		l.Debugf("  %s", name)
		l.Debug("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	logAt(LevelVerbose, "VERBOSE", "Step %d: %s", num, description)
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	logAt(LevelInfo, "INFO", "  %s = %v", name, value)
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message (trace, GPIO, serial).
func Trace(format string, args ...interface{}) {
	logAt(LevelTrace, "TRACE", format, args...)
}

// GPIO prints a GPIO operation (level 4).
func GPIO(operation string, pin int, value interface{}) {
	logAt(LevelTrace, "GPIO", "%s pin=%d value=%v", operation, pin, value)
}

// --- General functions ---

// Error prints a debug error (level 1+).
func Error(err error) {
	logAt(LevelInfo, "ERROR", "%v", err)
}

// Errorf prints a formatted error (level 1+).
func Errorf(format string, args ...interface{}) {
	logAt(LevelInfo, "ERROR", format, args...)
}

// ErrorOnce prints an error the first time key is seen and stays silent
// afterwards. Used for configuration facts that must not spam the loop.
// It reports whether the message was emitted.
func ErrorOnce(key, format string, args ...interface{}) bool {
	mu.Lock()
	if _, seen := once[key]; seen {
		mu.Unlock()
		return false
	}
	once[key] = struct{}{}
	mu.Unlock()
	logAt(LevelInfo, "ERROR", format, args...)
	return true
}

// Fmt returns a formatted string only if debug is enabled
// (to avoid unnecessary allocations).
func Fmt(format string, args ...interface{}) string {
	if Level() > 0 {
		return fmt.Sprintf(format, args...)
	}
	return ""
}
