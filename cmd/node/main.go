package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"powchain/logging"
	"powchain/node"
)

// flagKeys maps command line flags to their configuration keys
var flagKeys = map[string]string{
	"id":            "node_id",
	"listen":        "api.listen",
	"difficulty":    "mining.difficulty",
	"workers":       "mining.workers",
	"reward":        "mining.reward",
	"hash":          "mining.hash",
	"sync-interval": "consensus.sync_interval",
	"fetch-timeout": "consensus.fetch_timeout",
	"store":         "storage.backend",
	"data":          "storage.path",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"seeds":         "peers.seeds",
	"max-peers":     "peers.max_peers",
}

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	defaults := node.Default()

	cmd := &cobra.Command{
		Use:   "powchain-node",
		Short: "Run a proof-of-work ledger node",
		Long: `powchain-node keeps a proof-of-work chain, mines blocks on request and
reconciles with its peers by adopting the longest valid chain.`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := node.Default()
			if err := v.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("decode config: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfgFile, "config", "", "config file (default powchain.yaml in . or $HOME/.powchain)")
	f.String("id", "", "node identifier, also the reward recipient (generated when empty)")
	f.String("listen", defaults.API.ListenAddr, "HTTP API listen address")
	f.Int("difficulty", defaults.Mining.Difficulty, "leading zero hex characters a proof needs")
	f.Int("workers", defaults.Mining.Workers, "parallel proof search workers (0 = one per CPU)")
	f.Uint64("reward", defaults.Mining.Reward, "amount credited to this node per mined block")
	f.String("hash", defaults.Mining.Hash, "block digest algorithm (sha256, blake3)")
	f.Duration("sync-interval", defaults.Consensus.SyncInterval, "period of consensus rounds against peers (0 disables)")
	f.Duration("fetch-timeout", defaults.Consensus.FetchTimeout, "timeout for fetching a peer's chain")
	f.String("store", defaults.Storage.Backend, "chain store backend (memory, file, leveldb, pebble)")
	f.String("data", "", "chain store path")
	f.String("log-level", defaults.Log.Level, "log level")
	f.String("log-format", defaults.Log.Format, "log format (console, json)")
	f.StringSlice("seeds", nil, "peer addresses registered at startup")
	f.Int("max-peers", defaults.Peers.MaxPeers, "maximum number of registered peers (0 = unbounded)")

	return cmd
}

// initConfig layers flags over environment over the config file
func initConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("powchain")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.powchain")
	}

	v.SetEnvPrefix("POWCHAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			bindErr = errors.Join(bindErr, v.BindPFlag(key, f))
		}
	})
	if bindErr != nil {
		return bindErr
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func run(ctx context.Context, cfg node.Config) error {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := node.NewFullNode(cfg, log)
	if err != nil {
		return err
	}
	if err := n.Start(ctx); err != nil {
		n.Stop(context.Background())
		return err
	}
	log.Info("node running", zap.String("node_id", n.NodeID()), zap.String("api", n.Addr()))

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return n.Stop(shutdownCtx)
}
