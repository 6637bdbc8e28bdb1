// Package log provides the module-scoped logger used across swapd.
//
// Call sites obtain a logger once per package with NewModuleLogger and use
// its keys-and-values methods, e.g. logger.Debugw("state transition", "from", a, "to", b).
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module names the subsystem a logger is scoped to. Kept as a distinct type
// (rather than a bare string) so call sites can't typo a module tag past the
// compiler.
type Module string

const (
	Orchestrator Module = "orchestrator"
	Registry     Module = "registry"
	Router       Module = "router"
	TradeFSM     Module = "trade"
	SyncerFSM    Module = "syncer"
	Progress     Module = "progress"
	Launcher     Module = "launch"
	GrpcFrontend Module = "grpcfrontend"
	Cleanup      Module = "cleanup"
)

var (
	baseOnce sync.Once
	base     *zap.Logger
)

func root() *zap.Logger {
	baseOnce.Do(func() {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(cfg),
			zapcore.Lock(os.Stderr),
			zapcore.DebugLevel,
		)
		base = zap.New(core)
	})
	return base
}

// NewModuleLogger returns a logger tagged with the given module name. Every
// log line it emits carries a "module" field so multiplexed orchestrator
// output can be filtered per subsystem.
func NewModuleLogger(m Module) *zap.SugaredLogger {
	return root().Sugar().With("module", string(m))
}
