// Command nanochain runs a single proof-of-work node: it mines,
// validates and gossips blocks with any peers it is pointed at, and
// exposes a line-oriented console for local operators.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nanochain/internal/blockchain"
	"nanochain/internal/gossip"
	"nanochain/internal/metrics"
	"nanochain/internal/node"
	"nanochain/internal/wallet"
)

// config is read entirely from the environment; none of this wiring
// is part of the node's own testable behavior (spec.md §1).
type config struct {
	p2pPort     string
	metricsPort string
	keyPath     string
}

func loadConfig() config {
	return config{
		p2pPort:     getenv("P2P_PORT", "6001"),
		metricsPort: getenv("METRICS_PORT", "9100"),
		keyPath:     getenv("KEY_PATH", "node/wallet/private_key"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := loadConfig()

	ks := wallet.NewKeystore(cfg.keyPath)
	priv, err := ks.LoadOrGenerate()
	if err != nil {
		logger.Fatal("load wallet key", zap.Error(err))
	}
	w := wallet.New(priv)
	logger.Info("wallet ready", zap.String("address", w.Address()))

	hub := gossip.NewHub(logger)
	mempool := blockchain.NewMempool()
	chain, err := blockchain.NewBlockchain(mempool, hub, logger)
	if err != nil {
		logger.Fatal("init chain", zap.Error(err))
	}

	rec := metrics.NewPrometheus()
	n := node.New(chain, w, hub, rec, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gossip.ServeHTTP(hub, n, logger))

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(rec.Registry(), promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe("127.0.0.1:"+cfg.metricsPort, metricsMux); err != nil {
			logger.Fatal("metrics listen", zap.Error(err))
		}
	}()

	go func() {
		addr := ":" + cfg.p2pPort
		logger.Info("listening", zap.String("addr", addr), zap.String("metricsPort", cfg.metricsPort))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	runConsole(n, logger)
}

// runConsole is a line-oriented operator console in the teacher's CLI
// idiom: one command per line, blocking reads off stdin.
func runConsole(n *node.Node, logger *zap.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("nanochain ready. commands: chain peers addpeer <host:port> mine mineraw <json> minetx <addr> <amount> send <addr> <amount> balance address unspent mine-unspent pool block <hash> tx <id> byaddr <addr> exit")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := fields[0]
		args := fields[1:]

		switch cmd {
		case "exit", "quit":
			return
		case "chain":
			for _, b := range n.Chain() {
				fmt.Printf("#%d %s (difficulty %d, %d tx)\n", b.Index, b.Hash, b.Difficulty, len(b.Data))
			}
		case "peers":
			fmt.Println(strings.Join(n.ListPeers(), ", "))
		case "addpeer":
			if len(args) != 1 {
				fmt.Println("usage: addpeer host:port")
				continue
			}
			if err := n.AddPeer(args[0]); err != nil {
				fmt.Println("error:", err)
			}
		case "mine":
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			b, err := n.MineBlock(ctx)
			cancel()
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("mined #%d %s\n", b.Index, b.Hash)
		case "mineraw":
			if len(args) == 0 {
				fmt.Println("usage: mineraw <json array of transactions>")
				continue
			}
			var data []blockchain.Transaction
			if err := json.Unmarshal([]byte(strings.Join(args, " ")), &data); err != nil {
				fmt.Println("bad json:", err)
				continue
			}
			mineAndReport(n, data)
		case "minetx":
			if len(args) != 2 {
				fmt.Println("usage: minetx address amount")
				continue
			}
			amount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				fmt.Println("bad amount:", err)
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			b, err := n.MineTransaction(ctx, args[0], amount)
			cancel()
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("mined #%d %s\n", b.Index, b.Hash)
		case "send":
			if len(args) != 2 {
				fmt.Println("usage: send address amount")
				continue
			}
			amount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				fmt.Println("bad amount:", err)
				continue
			}
			tx, err := n.SendTransaction(args[0], amount)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println("queued", tx.ID)
		case "balance":
			fmt.Println(n.Balance())
		case "address":
			fmt.Println(n.Address())
		case "unspent":
			if len(args) != 1 {
				fmt.Println("usage: unspent address")
				continue
			}
			for _, u := range n.ListUnspent(args[0]) {
				fmt.Printf("%s:%d %d\n", u.TxOutID, u.TxOutIndex, u.Amount)
			}
		case "mine-unspent":
			for _, u := range n.ListMyUnspent() {
				fmt.Printf("%s:%d %d\n", u.TxOutID, u.TxOutIndex, u.Amount)
			}
		case "pool":
			for _, tx := range n.ListMempool() {
				fmt.Println(tx.ID)
			}
		case "block":
			if len(args) != 1 {
				fmt.Println("usage: block hash")
				continue
			}
			b, err := n.GetBlockByHash(args[0])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("#%d %s\n", b.Index, b.Hash)
		case "tx":
			if len(args) != 1 {
				fmt.Println("usage: tx id")
				continue
			}
			tx, err := n.GetTransactionByID(args[0])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("%+v\n", tx)
		case "byaddr":
			if len(args) != 1 {
				fmt.Println("usage: byaddr address")
				continue
			}
			for _, o := range n.ListByAddress(args[0]) {
				fmt.Printf("%d\n", o.Amount)
			}
		default:
			fmt.Println("unknown command:", cmd)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("console read error", zap.Error(err))
	}
}

func mineAndReport(n *node.Node, data []blockchain.Transaction) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	b, err := n.MineRawBlock(ctx, data)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("mined #%d %s\n", b.Index, b.Hash)
}
