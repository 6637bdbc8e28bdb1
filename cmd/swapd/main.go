package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/swapd-project/swapd/bus"
	"github.com/swapd-project/swapd/config"
	"github.com/swapd-project/swapd/grpcfrontend"
	"github.com/swapd-project/swapd/launch"
	swlog "github.com/swapd-project/swapd/log"
	"github.com/swapd-project/swapd/node"
)

var logger = swlog.NewModuleLogger(swlog.Orchestrator)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Usage: "data directory shared with every spawned child",
		Value: config.DefaultDataDir(),
	}
	msgSocketFlag = cli.StringFlag{
		Name:  "msg-socket",
		Usage: "message-bus socket path",
		Value: "msg.sock",
	}
	ctlSocketFlag = cli.StringFlag{
		Name:  "ctl-socket",
		Usage: "control-bus socket path",
		Value: "ctl.sock",
	}
	torProxyFlag = cli.StringFlag{
		Name:  "tor-proxy",
		Usage: "SOCKS5 proxy address for tor-routed peer connections",
	}
	walletTokenFlag = cli.StringFlag{
		Name:  "wallet-token",
		Usage: "bearer token forwarded to walletd and expected back in its GetKeys exchange",
	}
	grpcEnabledFlag = cli.BoolFlag{
		Name:  "grpc",
		Usage: "spawn the optional gRPC frontend",
	}
	grpcPortFlag = cli.StringFlag{
		Name:  "grpc-port",
		Usage: "port grpcd listens on",
		Value: "8557",
	}
	autoFundFlag = cli.BoolFlag{
		Name:  "auto-fund",
		Usage: "automatically request wallet funding when a swap reports FundingInfo",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "swapd"
	app.Usage = "cross-chain atomic swap orchestrator"
	app.Flags = []cli.Flag{
		configFileFlag, dataDirFlag, msgSocketFlag, ctlSocketFlag, torProxyFlag,
		walletTokenFlag, grpcEnabledFlag, grpcPortFlag, autoFundFlag,
	}
	app.Action = run
	app.Commands = []cli.Command{
		{
			Name:  "status",
			Usage: "query a running orchestrator's gRPC frontend for NodeInfo",
			Flags: []cli.Flag{grpcPortFlag},
			Action: func(ctx *cli.Context) error {
				return statusCmd(ctx.String(grpcPortFlag.Name))
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg := config.Default()
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := config.Load(file, &cfg); err != nil {
			return err
		}
	}
	applyFlags(ctx, &cfg)

	launcher, err := launch.NewLauncher(cfg.SharedFlags())
	if err != nil {
		return err
	}

	registry := node.NewRegistry(cfg.WalletToken)
	rt := node.NewRuntime(node.RuntimeConfig{
		GrpcEnabled:     cfg.GrpcEnabled,
		GrpcPort:        cfg.GrpcPort,
		AutoFund:        cfg.AutoFund,
		BitcoinElectrum: cfg.BitcoinElectrum(),
		MoneroSyncer:    cfg.MoneroSyncer(),
	}, registry, launcher)

	if _, err := launcher.Walletd(cfg.WalletToken); err != nil {
		return err
	}
	registry.MarkSpawning(bus.Wallet)
	logger.Infow("walletd spawned, awaiting registration")

	if cfg.GrpcEnabled {
		if _, err := launcher.Grpcd(cfg.GrpcPort); err != nil {
			return err
		}
		logger.Infow("grpcd spawned", "port", cfg.GrpcPort)
	}

	// databased's launch flags aren't part of the child-process contract
	// (only walletd/peerd/syncerd/swapd/grpcd are); it is expected to be
	// started out of band and announce itself with Hello like any other
	// service.
	logger.Infow("orchestrator ready, awaiting inbound bus traffic", "data-dir", cfg.DataDir)

	_ = rt // rt.Handle is the transport's callback for every inbound message

	waitForShutdown()
	return nil
}

func applyFlags(ctx *cli.Context, cfg *config.Config) {
	if ctx.IsSet(dataDirFlag.Name) {
		cfg.DataDir = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(msgSocketFlag.Name) {
		cfg.MsgSocket = ctx.String(msgSocketFlag.Name)
	}
	if ctx.IsSet(ctlSocketFlag.Name) {
		cfg.CtlSocket = ctx.String(ctlSocketFlag.Name)
	}
	if ctx.IsSet(torProxyFlag.Name) {
		cfg.TorProxy = ctx.String(torProxyFlag.Name)
	}
	if ctx.IsSet(walletTokenFlag.Name) {
		cfg.WalletToken = ctx.String(walletTokenFlag.Name)
	}
	if ctx.IsSet(grpcEnabledFlag.Name) {
		cfg.GrpcEnabled = ctx.Bool(grpcEnabledFlag.Name)
	}
	if ctx.IsSet(grpcPortFlag.Name) {
		cfg.GrpcPort = ctx.String(grpcPortFlag.Name)
	}
	if ctx.IsSet(autoFundFlag.Name) {
		cfg.AutoFund = ctx.Bool(autoFundFlag.Name)
	}
}

func statusCmd(grpcPort string) error {
	client, err := grpcfrontend.Dial("127.0.0.1:" + grpcPort)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := client.GetInfo(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("uptime=%ds peers=%d swaps=%d offers=%d listen=%v\n",
		info.UptimeSeconds, len(info.Peers), len(info.Swaps), len(info.Offers), info.Listen)
	return nil
}

func waitForShutdown() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	logger.Infow("received shutdown signal", "signal", sig)
}
