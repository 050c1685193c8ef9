package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"market-dashboard/src/grpc_control"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
)

const usage = `usage: dashctl [-addr host:port] <command>

commands:
  status              print server status
  refresh             force an update on every connection
  reload              make every client reload the config
  tickers A,B,C       replace the ticker list
`

// -----------------------------------------------------------------------------

func main() {
	addr := flag.String("addr", "127.0.0.1:50051", "control service address")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, grpc_control.NewControlClient(conn), flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

func run(ctx context.Context, client *grpc_control.ControlClient, args []string) error {
	pretty := protojson.MarshalOptions{Multiline: true, Indent: "  "}

	switch args[0] {
	case "status":
		st, err := client.GetStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Println(pretty.Format(st))

	case "refresh":
		n, err := client.ForceRefresh(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Refreshed %d connections\n", n)

	case "reload":
		if err := client.ReloadConfig(ctx); err != nil {
			return err
		}
		fmt.Println("Reload requested")

	case "tickers":
		if len(args) < 2 {
			return fmt.Errorf("tickers needs a comma separated list")
		}
		cfg, err := client.UpdateTickers(ctx, strings.Split(args[1], ","))
		if err != nil {
			return err
		}
		fmt.Println(pretty.Format(cfg))

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}
