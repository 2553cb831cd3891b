// Command atrion-hub runs the standalone state-sync coordinator: the REST
// + websocket surface internal/syncprovider.Client talks to, backed by an
// in-memory, last-write-wins store. Equivalent to `atrion hub`.
package main

import (
	"flag"
	"log"

	"atrion/internal/atrionlog"
	"atrion/internal/hubrunner"
)

func main() {
	addr := flag.String("listen", ":9091", "address to serve the REST+websocket sync surface on")
	channel := flag.String("channel", "", "broadcast channel name (defaults to atrion:sync)")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	level := atrionlog.LevelInfo
	if *verbose {
		level = atrionlog.LevelDebug
	}
	logger := atrionlog.NewZerologLogger(atrionlog.Config{Level: level, Format: atrionlog.FormatText})

	if err := hubrunner.Run(hubrunner.Options{Addr: *addr, Channel: *channel, Logger: logger}); err != nil {
		log.Fatal(err)
	}
}
