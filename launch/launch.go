// Package launch spawns and probes the orchestrator's child microservices:
// walletd, peerd, syncerd, swapd, grpcd. Each child is discovered relative
// to the orchestrator's own executable and inherits the shared flags passed
// to the parent.
package launch

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkg/errors"

	swlog "github.com/swapd-project/swapd/log"
)

var logger = swlog.NewModuleLogger(swlog.Launcher)

// ErrInvalidEndpoint is returned when a spawned child exits within the
// crash-fast probe window, or when the spawn itself fails.
var ErrInvalidEndpoint = errors.New("launch: invalid endpoint")

// probeDelay is how long Launcher waits before checking whether a freshly
// spawned child has already exited. Kept as a var, not a const, so tests can
// shrink it.
var probeDelay = 500 * time.Millisecond

// SharedFlags are forwarded from the orchestrator's own command line to
// every child it spawns.
type SharedFlags struct {
	DataDir    string
	MsgSocket  string
	CtlSocket  string
	TorProxy   string
}

func (f SharedFlags) args() []string {
	args := []string{
		"--data-dir", f.DataDir,
		"--msg-socket", f.MsgSocket,
		"--ctl-socket", f.CtlSocket,
	}
	if f.TorProxy != "" {
		args = append(args, "--tor-proxy", f.TorProxy)
	}
	return args
}

// Launcher resolves child binaries relative to the orchestrator's own
// executable and spawns them with the crash-fast probe.
type Launcher struct {
	Shared SharedFlags

	binDir string
}

// NewLauncher resolves the directory the orchestrator binary lives in, once,
// at startup.
func NewLauncher(shared SharedFlags) (*Launcher, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, errors.Wrap(err, "launch: failed to resolve own executable")
	}
	return &Launcher{Shared: shared, binDir: filepath.Dir(exe)}, nil
}

func (l *Launcher) binaryPath(name string) string {
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(l.binDir, name)
}

// Launch spawns name with args appended after the shared flags, then probes
// it after probeDelay. If the child has already exited by the time the
// probe runs, Launch returns ErrInvalidEndpoint and the child's process is
// considered never to have started — callers must not mutate any
// registration state in that case.
func (l *Launcher) Launch(name string, args ...string) (*exec.Cmd, error) {
	full := append(l.Shared.args(), args...)
	cmd := exec.Command(l.binaryPath(name), full...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(ErrInvalidEndpoint, "launch: failed to start %s: %v", name, err)
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	select {
	case err := <-exited:
		logger.Errorw("child exited during crash-fast probe", "child", name, "err", err)
		return nil, errors.Wrapf(ErrInvalidEndpoint, "launch: %s exited immediately", name)
	case <-time.After(probeDelay):
		logger.Infow("child process launched", "child", name, "pid", cmd.Process.Pid)
		return cmd, nil
	}
}

// Walletd launches the wallet daemon.
func (l *Launcher) Walletd(token string) (*exec.Cmd, error) {
	return l.Launch("walletd", "--token", token)
}

// PeerdListen launches peerd in listener mode.
func (l *Launcher) PeerdListen(ip, port, secretKeyHex, token string) (*exec.Cmd, error) {
	return l.Launch("peerd", "--listen", ip, "--port", port, "--peer-secret-key", secretKeyHex, "--token", token)
}

// PeerdConnect launches peerd in client mode, connecting to nodeAddr.
func (l *Launcher) PeerdConnect(nodeAddr, secretKeyHex, token string) (*exec.Cmd, error) {
	return l.Launch("peerd", "--connect", nodeAddr, "--peer-secret-key", secretKeyHex, "--token", token)
}

// SyncerdBitcoin launches a Bitcoin chain syncer.
func (l *Launcher) SyncerdBitcoin(network, electrumServer string) (*exec.Cmd, error) {
	return l.Launch("syncerd", "--blockchain", "bitcoin", "--network", network, "--electrum-server", electrumServer)
}

// MoneroSyncerConfig carries the optional server URLs syncerd needs to watch
// Monero.
type MoneroSyncerConfig struct {
	Network       string
	Daemon        string
	RPCWallet     string
	LWS           string // optional
	WalletDirPath string // optional
}

// SyncerdMonero launches a Monero chain syncer.
func (l *Launcher) SyncerdMonero(cfg MoneroSyncerConfig) (*exec.Cmd, error) {
	args := []string{
		"--blockchain", "monero", "--network", cfg.Network,
		"--monero-daemon", cfg.Daemon,
		"--monero-rpc-wallet", cfg.RPCWallet,
	}
	if cfg.LWS != "" {
		args = append(args, "--monero-lws", cfg.LWS)
	}
	if cfg.WalletDirPath != "" {
		args = append(args, "--monero-wallet-dir-path", cfg.WalletDirPath)
	}
	return l.Launch("syncerd", args...)
}

// Swapd launches a per-swap protocol daemon.
func (l *Launcher) Swapd(swapIdHex, publicOffer, localTradeRole string) (*exec.Cmd, error) {
	return l.Launch("swapd", swapIdHex, publicOffer, localTradeRole)
}

// Grpcd launches the optional gRPC frontend.
func (l *Launcher) Grpcd(port string) (*exec.Cmd, error) {
	return l.Launch("grpcd", "--grpc-port", port)
}
