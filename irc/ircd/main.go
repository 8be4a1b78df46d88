package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/andrzejkrzywda/ircd/irc"
	"github.com/andrzejkrzywda/ircd/irc/admind"
	"github.com/andrzejkrzywda/ircd/irc/config"
)

func main() {
	configSource := flag.String("config", "", "Configuration file or URL (yaml, toml or json)")
	host := flag.String("host", "", "Override listen host")
	port := flag.Int("port", 0, "Override listen port")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg := config.Default()
	if *configSource != "" {
		var err error
		cfg, err = config.Load(*configSource)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *debug {
		cfg.Debug = true
	}

	log.Printf("Starting %s on %s", cfg.Server.Name, cfg.ListenAddr())
	if cfg.TLS.Enabled {
		log.Printf("TLS bind address: %s", cfg.TLSListenAddr())
	}
	log.Printf("Debug logging: %v", cfg.Debug)

	server := irc.NewServer(cfg)
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	var admin *admind.Server
	if cfg.Admin.Enabled {
		admin = admind.New(server, cfg)
		go func() {
			if err := admin.Start(); err != nil {
				log.Printf("Admin API stopped: %v", err)
			}
		}()
		log.Printf("Admin API bind address: %s", cfg.AdminListenAddr())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	log.Println("Server is running. Press Ctrl+C to stop.")
	for sig := range sigChan {
		if sig != syscall.SIGHUP {
			break
		}
		if cfg.Source == "" {
			log.Println("SIGHUP received but no configuration source to reload")
			continue
		}
		if err := cfg.Reload(""); err != nil {
			log.Printf("Configuration reload failed: %v", err)
			continue
		}
		log.Printf("Configuration reloaded from %s", cfg.Source)
	}
	log.Println("Shutdown signal received, stopping server...")

	if admin != nil {
		if err := admin.Stop(); err != nil {
			log.Printf("Error stopping admin API: %v", err)
		}
	}
	if err := server.Stop(); err != nil {
		log.Printf("Error stopping server: %v", err)
	}

	log.Println("Server stopped. Goodbye!")
}
