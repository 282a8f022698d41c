package main

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devpulse/devpulse/internal/domain/event"
)

func main() {
	addr := flag.String("addr", "localhost:8000", "Collector address")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: tail [-addr host:port] <trace-id>")
		os.Exit(2)
	}
	traceID := flag.Arg(0)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/traces/" + traceID}
	log.Printf("Connecting to %s", u.String())

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var rec event.Record
			if err := conn.ReadJSON(&rec); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("Read error: %v", err)
				}
				return
			}
			printRecord(rec)
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		// Ask the server to close the connection cleanly.
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
			return
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func printRecord(rec event.Record) {
	ts := rec.Timestamp
	if t, ok := rec.Time(); ok {
		ts = t.Local().Format("15:04:05.000")
	}
	fmt.Printf("%s [%-7s] %-10s %s\n", ts, rec.Severity, rec.System, rec.Details)
	if rec.File != "" {
		fmt.Printf("    at %s:%d\n", rec.File, rec.Line)
	}
	for k, v := range rec.Locals {
		fmt.Printf("    %s=%s\n", k, v)
	}
	for _, frame := range rec.Stacktrace {
		fmt.Printf("    | %s\n", frame)
	}
}
