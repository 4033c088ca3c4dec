// Command witnessdag-node runs a full witnessdag node: it opens the
// bbolt-backed store, wires the consensus core and wire protocol together
// through node.Node, listens for inbound peers, dials any configured
// bootstrap peers, and serves until interrupted.
//
// Grounded on the teacher's cmd/rubin-node/main.go run(args, stdout,
// stderr) int shape, with the flag.FlagSet frontend replaced by cobra
// (orbas1-Synnergy/cmd/synnergy/main.go) and an optional YAML config file
// (orbas1-Synnergy/cmd/cli/devnet.go's yaml.Unmarshal-into-config-struct
// pattern) layered over the flags: a field the file sets wins.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"witnessdag.dev/core/crypto"
	"witnessdag.dev/core/node"
	"witnessdag.dev/core/node/p2p"
	"witnessdag.dev/core/node/store"
)

const userAgent = "witnessdag-node/0.1"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg := node.DefaultConfig()
	var peers []string
	var configPath string

	cmd := &cobra.Command{
		Use:           "witnessdag-node",
		Short:         "run a witnessdag DAG-ledger node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to a YAML config file, merged over flag values (fields it sets win)")
	flags.StringVar(&cfg.Network, "network", cfg.Network, "network name (devnet/testnet/mainnet)")
	flags.StringVar(&cfg.DataDir, "datadir", cfg.DataDir, "node data directory")
	flags.StringVar(&cfg.BindAddr, "bind", cfg.BindAddr, "bind address host:port")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug|info|warn|error")
	flags.StringArrayVar(&peers, "peer", nil, "bootstrap peer host:port (repeatable)")
	flags.IntVar(&cfg.MaxPeers, "max-peers", cfg.MaxPeers, "max connected peers")
	flags.StringVar(&cfg.StorageBackend, "storage-backend", cfg.StorageBackend, "storage backend (bbolt)")
	flags.IntVar(&cfg.MaxUnitLength, "max-unit-length", cfg.MaxUnitLength, "MAX_UNIT_LENGTH: max serialized unit size in bytes")
	flags.IntVar(&cfg.MaxComplexity, "max-complexity", cfg.MaxComplexity, "MAX_COMPLEXITY: validated and kept in config; the evaluator's ceiling stays the fixed C_MAX=100")
	flags.Int64Var(&cfg.WitnessListLockMCI, "witness-list-lock-mci", cfg.WitnessListLockMCI, "deployment witness-list lock MCI (Open Question 2)")
	flags.Int64Var(&cfg.SStep, "s-step", cfg.SStep, "main-chain skiplist interval (0 = default 10)")
	flags.StringVar(&cfg.GenesisUnit, "genesis-unit", cfg.GenesisUnit, "genesis unit id this deployment's handshake checks peers against")
	flags.Uint32Var(&cfg.Magic, "magic", cfg.Magic, "wire envelope magic number")
	dryRun := flags.Bool("dry-run", false, "validate config and exit without starting the node")

	cmd.RunE = func(c *cobra.Command, _ []string) error {
		if configPath != "" {
			if err := mergeConfigFile(&cfg, configPath); err != nil {
				return fmt.Errorf("config file: %w", err)
			}
		}
		cfg.Peers = node.NormalizePeers(append(append([]string{}, cfg.Peers...), peers...)...)
		if err := node.ValidateConfig(cfg); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if *dryRun {
			enc := yaml.NewEncoder(c.OutOrStdout())
			defer enc.Close()
			return enc.Encode(cfg)
		}
		return serve(c.Context(), cfg, c.OutOrStdout())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// mergeConfigFile decodes a YAML document over cfg: any field the file
// sets overwrites the flag-derived value already in cfg, matching
// devnet.go's yaml.Unmarshal-into-config-struct precedent (spec §6.4
// "node configuration as a single declarative document"). Pass only the
// fields the file is meant to own; --config is intended as the primary
// configuration source with flags for one-off overrides, not the reverse.
func mergeConfigFile(cfg *node.Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, cfg)
}

// serve opens storage, wires a node.Node, and runs its peer-accept loop
// and bootstrap dialer until ctx is canceled.
func serve(ctx context.Context, cfg node.Config, stdout io.Writer) error {
	log := logrus.New()
	log.SetOutput(stdout)
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("datadir create failed: %w", err)
	}
	db, err := store.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("store open failed: %w", err)
	}
	defer db.Close()

	cp := crypto.StdProvider{}
	n := node.New(cfg, db, db, cp, nil, log, nil)

	listener, err := net.Listen("tcp", cfg.BindAddr)
	if err != nil {
		return fmt.Errorf("listen %s failed: %w", cfg.BindAddr, err)
	}
	defer listener.Close()

	log.WithFields(logrus.Fields{
		"network":  cfg.Network,
		"bind":     cfg.BindAddr,
		"data_dir": cfg.DataDir,
	}).Info("witnessdag-node starting")

	go acceptLoop(ctx, listener, n, cfg, cp, log)
	for _, addr := range cfg.Peers {
		go dialPeer(ctx, addr, n, cfg, cp, log)
	}

	<-ctx.Done()
	log.Info("witnessdag-node stopping")
	return nil
}

func acceptLoop(ctx context.Context, listener net.Listener, n *node.Node, cfg node.Config, cp crypto.Provider, log *logrus.Logger) {
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("accept failed")
			continue
		}
		go runPeer(ctx, conn, p2p.PeerRoleInbound, n, cfg, cp, log)
	}
}

func dialPeer(ctx context.Context, addr string, n *node.Node, cfg node.Config, cp crypto.Provider, log *logrus.Logger) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		log.WithError(err).WithField("peer", addr).Warn("dial failed")
		return
	}
	runPeer(ctx, conn, p2p.PeerRoleOutbound, n, cfg, cp, log)
}

func runPeer(ctx context.Context, conn net.Conn, role p2p.PeerRole, n *node.Node, cfg node.Config, cp crypto.Provider, log *logrus.Logger) {
	defer conn.Close()
	peer, err := p2p.NewPeer(conn, role, cfg.PeerConfig(cp, userAgent))
	if err != nil {
		log.WithError(err).Warn("peer setup failed")
		return
	}
	if err := peer.Run(ctx, n); err != nil && ctx.Err() == nil {
		log.WithError(err).WithField("remote", conn.RemoteAddr()).Warn("peer disconnected")
	}
}
