// Command server runs the GophChat relay: accounts, rooms and the ordered
// store of encrypted message envelopes.
package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/gophchat/internal/server"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
)

func main() {
	ctx := context.Background()

	app, err := server.NewApp(ctx, config.LoadConfig())
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	app.Run(ctx)
}
