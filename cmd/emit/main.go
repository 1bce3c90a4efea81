// Command emit publishes one command onto the engine's NATS subject. The
// payload passes through the same parser the engine runs, so a message this
// tool accepts is a message the engine will execute.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/nats-io/nats.go"

	"trade_exec/internal/modules/dispatcher/service"
)

func main() {
	var (
		url     = flag.String("url", envOr("NATS_URL", nats.DefaultURL), "NATS server url")
		subject = flag.String("subject", envOr("NATS_SUBJECT", "trade.commands"), "subject to publish on")
		file    = flag.String("file", "", "payload file; empty or - reads stdin")
	)
	flag.Parse()

	payload, err := readPayload(*file)
	if err != nil {
		log.Fatalf("read payload: %v", err)
	}

	cmd, err := service.ParseCommand(payload)
	if err != nil {
		log.Fatalf("refusing to publish: %v", err)
	}

	nc, err := nats.Connect(*url, nats.Name("trade-exec-emit"))
	if err != nil {
		log.Fatalf("connect %s: %v", *url, err)
	}
	defer nc.Close()

	if err := nc.Publish(*subject, payload); err != nil {
		log.Fatalf("publish: %v", err)
	}
	if err := nc.Flush(); err != nil {
		log.Fatalf("flush: %v", err)
	}

	what := string(cmd.Kind)
	if s := cmd.Symbol(); s != "" {
		what += " " + s
	}
	fmt.Printf("published %s to %q (%d bytes)\n", what, *subject, len(payload))
}

func readPayload(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
