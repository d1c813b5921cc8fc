package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/presbrey/ircd/irc"
	"github.com/presbrey/ircd/irc/admin"
	"github.com/presbrey/ircd/irc/config"
	"github.com/presbrey/ircd/irc/metrics"
)

const usage = "usage: ircd <port> <password>"

func main() {
	log.SetFlags(0)

	port, password, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	cfg, err := config.Load(os.Getenv("IRCD_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	server := irc.NewServer(password, cfg.MOTD)
	server.SetMetrics(metrics.New(prometheus.DefaultRegisterer))
	server.SetReadBufBytes(cfg.ReadBufBytes)

	if cfg.AdminAddr != "" {
		admSrv := admin.New(statsAdapter{server})
		go func() {
			if err := admSrv.Serve(cfg.AdminAddr); err != nil {
				log.Printf("admin server stopped: %v", err)
			}
		}()
	}

	addr := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("listen on %s: %v", addr, err)
	}

	log.Printf("ircd listening on %s", addr)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("shutdown signal received, stopping server...")
		server.Stop()
	}()

	if err := server.Serve(ln); err != nil {
		log.Fatalf("serve: %v", err)
	}

	log.Println("server stopped")
}

// parseArgs enforces the CLI contract in §6: exactly two positional
// arguments, port in [1024, 2^31-1].
func parseArgs(args []string) (port int, password string, err error) {
	if len(args) != 2 {
		return 0, "", fmt.Errorf("expected 2 arguments, got %d", len(args))
	}

	port, err = strconv.Atoi(args[0])
	if err != nil {
		return 0, "", fmt.Errorf("invalid port %q: %w", args[0], err)
	}
	if port < 1024 || port > 2147483647 {
		return 0, "", fmt.Errorf("port %d out of range [1024, 2147483647]", port)
	}

	password = args[1]
	return port, password, nil
}

// statsAdapter satisfies admin.StatsSource without coupling irc/admin to
// the irc package's Stats type.
type statsAdapter struct {
	server *irc.Server
}

func (a statsAdapter) Snapshot() admin.Stats {
	s := a.server.Snapshot()
	return admin.Stats{
		Connections: s.Connections,
		Channels:    s.Channels,
		Uptime:      s.Uptime,
	}
}
