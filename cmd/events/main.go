// Command events tails finished workflow runs from the NATS stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"study-assistant-be/internal/config"
	"study-assistant-be/pkg/events"
	pktNats "study-assistant-be/pkg/nats"

	"github.com/fatih/color"
)

func main() {
	durable := flag.String("durable", "workflow-tail", "durable consumer name")
	flag.Parse()

	cfg := config.Load()

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sub.Subscribe(ctx, pktNats.SubjectPrefix+".>", *durable, printEvent); err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}
	color.Cyan("Listening on %s.> (Ctrl+C to stop)", pktNats.SubjectPrefix)

	<-ctx.Done()
}

func printEvent(_ context.Context, e events.Event) error {
	p := e.Payload()
	ts := e.Timestamp().Format("15:04:05")
	line := fmt.Sprintf("%s %v intent=%v duration=%vms chunks=%v", ts, p["request_id"], p["intent"], p["duration_ms"], p["chunks"])

	switch {
	case e.EventType() == events.TypeWorkflowFailed:
		color.Red("%s FAILED %v at %v", line, p["error_kind"], p["error_stage"])
	case p["degraded"] == true:
		color.Yellow("%s DEGRADED %v", line, p["degradations"])
	default:
		color.Green("%s OK", line)
	}
	return nil
}
