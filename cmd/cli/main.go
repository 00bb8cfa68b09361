package main

import (
	"bufio"
	"context"
	"log"
	"os"

	"github.com/dkotenko/addrhub/internal/client/cli"
	"github.com/dkotenko/addrhub/internal/client/config"
)

func main() {
	ctx := context.Background()

	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx, bufio.NewScanner(os.Stdin))
}
