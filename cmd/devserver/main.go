package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/pechorka/chatik/cmd/devserver/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", ":8081", "listen address")
	accessTTL := flag.Duration("access-ttl", 30*time.Second, "access token lifetime")
	flag.Parse()

	srv := server.New(server.Config{AccessTTL: *accessTTL})

	log.Printf("dev server listening on %s (access tokens expire after %s)", *addr, *accessTTL)
	log.Printf("seeded accounts: alice/correctpw, bob/hunter2")
	return http.ListenAndServe(*addr, srv.Router())
}
