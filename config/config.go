// Package config parses the orchestrator's process configuration: a TOML
// file (github.com/naoina/toml, keeping field names as written so Go struct
// field names double as TOML keys) overlaid with CLI flags.
package config

import (
	"bufio"
	"os"
	"os/user"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"

	"github.com/naoina/toml"
	"github.com/pkg/errors"

	"github.com/swapd-project/swapd/launch"
)

// tomlSettings keeps TOML keys identical to the Go struct field names.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
}

// BitcoinNetwork carries one Bitcoin network's Electrum endpoint.
type BitcoinNetwork struct {
	Network string
	Electrum string
}

// MoneroNetwork carries one Monero network's daemon/wallet-RPC endpoints.
type MoneroNetwork struct {
	Network       string
	Daemon        string
	RPCWallet     string
	LWS           string
	WalletDirPath string
}

// Config is the orchestrator's full process configuration.
type Config struct {
	DataDir   string
	MsgSocket string
	CtlSocket string
	TorProxy  string

	GrpcEnabled bool
	GrpcPort    string

	AutoFund bool

	WalletToken string

	Bitcoin []BitcoinNetwork
	Monero  []MoneroNetwork
}

// DefaultDataDir returns a per-OS dotfolder under the user's home
// directory, named after the binary.
func DefaultDataDir() string {
	dirname := filepath.Base(os.Args[0])
	if dirname == "" {
		dirname = "swapd"
	}
	home := homeDir()
	if home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", strings.ToUpper(dirname))
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", strings.ToUpper(dirname))
	default:
		return filepath.Join(home, "."+dirname)
	}
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// Default returns reasonable defaults. It is a function rather than a
// package-level value since DefaultDataDir depends on os.Args at call
// time, not import time.
func Default() Config {
	return Config{
		DataDir:   DefaultDataDir(),
		MsgSocket: "msg.sock",
		CtlSocket: "ctl.sock",
		GrpcPort:  "8557",
	}
}

// Load reads a TOML file into cfg, starting from cfg's current values as
// defaults (fields the file omits are left untouched).
func Load(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "config: failed to open %s", path)
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg); err != nil {
		return errors.Wrapf(err, "config: failed to parse %s", path)
	}
	return nil
}

// SharedFlags projects the fields launch.SharedFlags needs out of Config.
func (c Config) SharedFlags() launch.SharedFlags {
	return launch.SharedFlags{
		DataDir:   c.DataDir,
		MsgSocket: c.MsgSocket,
		CtlSocket: c.CtlSocket,
		TorProxy:  c.TorProxy,
	}
}

// BitcoinElectrum builds the network->Electrum-URL map node.RuntimeConfig
// wants from the configured Bitcoin networks.
func (c Config) BitcoinElectrum() map[string]string {
	out := make(map[string]string, len(c.Bitcoin))
	for _, n := range c.Bitcoin {
		out[n.Network] = n.Electrum
	}
	return out
}

// MoneroSyncer builds the network->syncer-config map node.RuntimeConfig
// wants from the configured Monero networks.
func (c Config) MoneroSyncer() map[string]launch.MoneroSyncerConfig {
	out := make(map[string]launch.MoneroSyncerConfig, len(c.Monero))
	for _, n := range c.Monero {
		out[n.Network] = launch.MoneroSyncerConfig{
			Network:       n.Network,
			Daemon:        n.Daemon,
			RPCWallet:     n.RPCWallet,
			LWS:           n.LWS,
			WalletDirPath: n.WalletDirPath,
		}
	}
	return out
}
