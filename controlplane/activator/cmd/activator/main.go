package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/malbeclabs/doublezero-controlplane/config"
	"github.com/malbeclabs/doublezero-controlplane/controlplane/activator/internal/activator"
	dzsdk "github.com/malbeclabs/doublezero-controlplane/sdk/go"
)

const defaultInterval = 10 * time.Second

var (
	env                     = flag.String("env", "", "the environment to run the component in (devnet, testnet, mainnet)")
	interval                = flag.Duration("interval", defaultInterval, "polling interval for program snapshots")
	verbose                 = flag.Bool("verbose", false, "enable verbose logging")
	showVersion             = flag.Bool("version", false, "Print the version and exit")
	metricsAddr             = flag.String("metrics-addr", ":8080", "Address to listen on for prometheus metrics")
	ledgerRPCURL            = flag.String("ledger-rpc-url", "", "the url of the ledger rpc")
	ledgerWSRPCURL          = flag.String("ledger-ws-rpc-url", "", "the websocket url of the ledger rpc (optional, polling only when empty)")
	serviceabilityProgramID = flag.String("serviceability-program-id", "", "the id of the serviceability program")
	keypairPath             = flag.String("keypair", "", "path to the activator authority keypair")
	version                 = "dev"
	commit                  = "none"
	date                    = "unknown"
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("version: %s, commit: %s, date: %s\n", version, commit, date)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: logLevel,
	}))

	if *keypairPath == "" {
		log.Error("Missing required flag", "flag", "keypair")
		flag.Usage()
		os.Exit(1)
	}
	signer, err := solana.PrivateKeyFromSolanaKeygenFile(*keypairPath)
	if err != nil {
		log.Error("Failed to load activator keypair", "error", err)
		os.Exit(1)
	}

	// Initialize the serviceability program ID and ledger RPC URLs.
	var networkConfig *config.NetworkConfig
	if *env == "" {
		if *ledgerRPCURL == "" {
			log.Error("Missing required flag", "flag", "ledger-rpc-url|env")
			flag.Usage()
			os.Exit(1)
		}
		if *serviceabilityProgramID == "" {
			log.Error("Missing required flag", "flag", "serviceability-program-id|env")
			flag.Usage()
			os.Exit(1)
		}
		programID, err := solana.PublicKeyFromBase58(*serviceabilityProgramID)
		if err != nil {
			log.Error("Failed to parse serviceability program id", "error", err)
			flag.Usage()
			os.Exit(1)
		}
		networkConfig = &config.NetworkConfig{
			LedgerPublicRPCURL:      *ledgerRPCURL,
			LedgerPublicWSRPCURL:    *ledgerWSRPCURL,
			ServiceabilityProgramID: programID,
		}
	} else {
		networkConfig, err = config.NetworkConfigForEnv(*env)
		if err != nil {
			log.Error("Failed to get network config", "error", err)
			flag.Usage()
			os.Exit(1)
		}
		if *ledgerWSRPCURL != "" {
			networkConfig.LedgerPublicWSRPCURL = *ledgerWSRPCURL
		}
	}

	rpcClient := dzsdk.NewRPCClient(networkConfig.LedgerPublicRPCURL)
	serviceabilityClient := dzsdk.New(rpcClient, networkConfig.ServiceabilityProgramID)
	executor := dzsdk.NewExecutor(log, rpcClient, &signer, networkConfig.ServiceabilityProgramID)

	activator.MetricBuildInfo.WithLabelValues(version, commit, date).Set(1)
	go func() {
		listener, err := net.Listen("tcp", *metricsAddr)
		if err != nil {
			log.Error("Failed to start prometheus metrics server listener", "error", err)
			return
		}
		log.Info("Prometheus metrics server listening", "address", listener.Addr().String())
		http.Handle("/metrics", promhttp.Handler())
		if err := http.Serve(listener, nil); err != nil {
			log.Error("Failed to start prometheus metrics server", "error", err)
		}
	}()

	a, err := activator.New(activator.Config{
		Logger:         log,
		Serviceability: serviceabilityClient,
		Submitter:      &activator.ExecutorSubmitter{Executor: executor},
		SignerPK:       signer.PublicKey(),
		WSRPCURL:       networkConfig.LedgerPublicWSRPCURL,
		PollInterval:   *interval,
		Slots: func(ctx context.Context) (uint64, error) {
			info, err := rpcClient.GetEpochInfo(ctx, solanarpc.CommitmentConfirmed)
			if err != nil {
				return 0, err
			}
			return info.AbsoluteSlot, nil
		},
	})
	if err != nil {
		log.Error("Failed to create activator", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("Failed to run activator", "error", err)
		os.Exit(1)
	}
}
