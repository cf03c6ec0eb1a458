// Command client runs the thin TUI messenger shell against a running
// relay: load or create a local identity, seal/open messages for one
// peer conversation. Grounded on the teacher's cmd/client/main.go
// (Mongo bring-up, signal-based shutdown), generalized to optional
// Mongo (in-memory conversation history by default) since this
// client owns no server-side user directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ghostwire/internal/log"
	"ghostwire/internal/repository/conversation"
	"ghostwire/internal/service/app"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	log.SetLevel(os.Getenv("LOG_LEVEL"))
	defer log.Sync()

	if len(os.Args) < 2 {
		fmt.Println("usage: client <peer_public_key_hex>")
		os.Exit(1)
	}
	peerPubHex := os.Args[1]

	convRepo, closeRepo, err := buildConversationRepository()
	if err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(1)
	}
	defer closeRepo()

	a, err := app.New(relayAddr(), keysDir(), convRepo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := a.Run(ctx, peerPubHex); err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(1)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	<-done

	a.Stop()
}

func relayAddr() string {
	if v := os.Getenv("RELAY_ADDR"); v != "" {
		return v
	}
	return "localhost:9090"
}

func keysDir() string {
	if v := os.Getenv("KEYS_DIR"); v != "" {
		return v
	}
	return "keys"
}

func buildConversationRepository() (conversation.Repository, func(), error) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		return conversation.NewMemory(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, err
	}

	repo := conversation.NewMongo(client.Database("ghostwire"))
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}
	return repo, closeFn, nil
}
