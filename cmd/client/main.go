// Command ledgerctl calls ledgerd tools over gRPC:
//
//	ledgerctl [-a host:port] [-t seconds] [-c config.json] <tool> key=value ...
//
// Without a tool it starts an interactive prompt.
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/ledgerd/internal/client/cli"
	"github.com/dmitrijs2005/ledgerd/internal/client/config"
	"github.com/dmitrijs2005/ledgerd/internal/flagx"
)

func main() {

	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	os.Exit(app.Run(context.Background(), flagx.Positional(os.Args[1:], config.Flags)))

}
