package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	v1 "github.com/pojntfx/atorrent/pkg/api/http/v1"
	"github.com/pojntfx/atorrent/pkg/server"
)

func main() {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}

	storagePath := flag.String("storage", filepath.Join(home, ".local", "share", "atorrent", "var", "lib", "atorrent", "data"), "Path to store swarm metadata in")
	laddr := flag.String("laddr", ":1337", "Listen address")
	apiUsername := flag.String("api-username", "admin", "Username for the management API")
	apiPassword := flag.String("api-password", "", "Password for the management API")
	backendURL := flag.String("backend-url", "http://localhost:8080/api/v2", "URL of the download backend's WebUI API")
	backendUsername := flag.String("backend-username", "", "Username for the download backend")
	backendPassword := flag.String("backend-password", "", "Password for the download backend")
	resolveTimeout := flag.Duration("resolve-timeout", server.DefaultResolveTimeout, "Maximum duration to wait for swarm metadata or a torrent file")
	registrationAttempts := flag.Int("registration-attempts", server.DefaultRegistrationAttempts, "Maximum amount of times to poll the backend for a submitted torrent")
	registrationInterval := flag.Duration("registration-interval", server.DefaultRegistrationInterval, "Delay between backend registration polls")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gateway := server.NewGateway(
		*laddr,
		*storagePath,
		*apiUsername,
		*apiPassword,
		"",
		"",
		*verbose,

		*backendURL,
		*backendUsername,
		*backendPassword,

		*resolveTimeout,
		*registrationAttempts,
		*registrationInterval,

		func(result v1.AcquisitionResult) {
			if result.Error != "" {
				log.Println("Acquisition of", result.Hash, "halted at stage", result.Stage+":", result.Error)

				return
			}

			log.Println("Acquired", result.Hash)
		},

		ctx,
	)

	if err := gateway.Open(); err != nil {
		panic(err)
	}

	s := make(chan os.Signal, 1)
	signal.Notify(s, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-s

		if err := gateway.Close(); err != nil {
			panic(err)
		}

		cancel()
	}()

	log.Println("Listening on", *laddr)

	if err := gateway.Wait(); err != nil {
		panic(err)
	}
}
