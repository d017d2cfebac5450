// Command stresstest drives a fleet of simulated Etherpad/Etherdraw
// collaborators against an already-running pad server, each one
// connecting, fetching the pad's current revision, and then running a
// scripted editing behavior until the process is stopped.
package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/coreseekdev/etherdraw-stresstest/pkg/client"
	"github.com/coreseekdev/etherdraw-stresstest/pkg/logger"
	"github.com/coreseekdev/etherdraw-stresstest/pkg/transport"
)

// FleetSpec describes one group of identically-configured clients, the
// unit a YAML config file lists one or more of.
type FleetSpec struct {
	PadURL      string  `yaml:"padURL"`
	Count       int     `yaml:"count"`
	Logic       string  `yaml:"logic"`
	LogicScript string  `yaml:"logicScript"`
	Transport   string  `yaml:"transport"`
	RampSeconds float64 `yaml:"rampSeconds"`
}

// FleetConfig is the top-level shape of a --config YAML file.
type FleetConfig struct {
	Fleets []FleetSpec `yaml:"fleets"`
}

func main() {
	var (
		padURL      = flag.String("pad-url", "", "URL of the pad to connect to, e.g. http://localhost:9001/p/test")
		clientCount = flag.IntP("clients", "n", 1, "number of simulated clients to run")
		logicName   = flag.String("logic", "lurk", "built-in editing logic: lurk, draw, badfollow, oldreconnect, disconnect, blackhat")
		logicScript = flag.String("logic-script", "", "path to a JS file defining onKick(ctx), overriding --logic")
		transportK  = flag.String("transport", "xhrpoll", "transport to use: xhrpoll or websocket")
		ramp        = flag.Duration("ramp", time.Second, "delay between starting each successive client")
		seed        = flag.Int64("seed", 1, "seed for the random edit generator")
		configPath  = flag.String("config", "", "path to a YAML file describing a multi-fleet run, overriding the other flags")
		verbosity   = flag.CountP("verbose", "v", "increase log verbosity (repeatable, up to -vvvv)")
		duration    = flag.Duration("duration", 5*time.Minute, "stop the run after this long; 0 means run until interrupted")
	)
	flag.Parse()

	logger.SetGlobalLevel(logger.Level(int(logger.Error) + *verbosity))

	var fleets []FleetSpec
	if *configPath != "" {
		cfg, err := loadFleetConfig(*configPath)
		if err != nil {
			log.Fatalf("stresstest: %v", err)
		}
		fleets = cfg.Fleets
	} else {
		if *padURL == "" {
			log.Fatal("stresstest: --pad-url or --config is required")
		}
		fleets = []FleetSpec{{
			PadURL:      *padURL,
			Count:       *clientCount,
			Logic:       *logicName,
			LogicScript: *logicScript,
			Transport:   *transportK,
			RampSeconds: ramp.Seconds(),
		}}
	}

	ctx, cancel := context.WithCancel(context.Background())
	if *duration > 0 {
		var durationCancel context.CancelFunc
		ctx, durationCancel = context.WithTimeout(ctx, *duration)
		defer durationCancel()
	}
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("stresstest: shutting down")
		cancel()
	}()

	clients, err := spawnFleets(ctx, fleets, *seed)
	if err != nil {
		log.Fatalf("stresstest: %v", err)
	}

	log.Printf("stresstest: running %d clients, press Ctrl+C to stop", len(clients))
	<-ctx.Done()
	for _, c := range clients {
		c.Stop()
	}
}

func loadFleetConfig(path string) (*FleetConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	var cfg FleetConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// spawnFleets starts every client named by specs, staggered within
// each fleet by its RampSeconds, and returns them all so the caller can
// stop them on shutdown.
func spawnFleets(ctx context.Context, specs []FleetSpec, seed int64) ([]*client.Client, error) {
	var clients []*client.Client
	var idx int64

	for _, spec := range specs {
		u, err := url.Parse(spec.PadURL)
		if err != nil {
			return nil, fmt.Errorf("parsing pad URL %q: %w", spec.PadURL, err)
		}

		count := spec.Count
		if count <= 0 {
			count = 1
		}
		ramp := time.Duration(spec.RampSeconds * float64(time.Second))

		for i := 0; i < count; i++ {
			idx++
			name := fmt.Sprintf("%d", idx)
			t, err := newTransport(spec.Transport, u, name)
			if err != nil {
				return nil, err
			}

			c := client.New(u, name, t, seed+idx)
			if err := applyLogic(c, spec); err != nil {
				return nil, err
			}

			clients = append(clients, c)
			go c.Run(ctx)

			if ramp > 0 {
				time.Sleep(ramp)
			}
		}
	}

	return clients, nil
}

func applyLogic(c *client.Client, spec FleetSpec) error {
	if spec.LogicScript != "" {
		src, err := os.ReadFile(spec.LogicScript)
		if err != nil {
			return fmt.Errorf("reading logic script %q: %w", spec.LogicScript, err)
		}
		logic, err := client.ScriptedLogic(string(src))
		if err != nil {
			return fmt.Errorf("loading logic script %q: %w", spec.LogicScript, err)
		}
		c.SetScriptedLogic(logic)
		return nil
	}

	c.SetLogic(spec.Logic)
	return nil
}

func newTransport(kind string, padURL *url.URL, name string) (transport.Transport, error) {
	baseURL := *padURL
	baseURL.Path = trimToSiteRoot(padURL.Path)

	switch kind {
	case "", "xhrpoll":
		return transport.NewXhrPollTransport(padURL, &baseURL, name), nil
	case "websocket":
		return transport.NewWebSocketTransport(wsEndpoint(padURL)), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}
}

// trimToSiteRoot strips the trailing "p/PADNAME" segment off a pad
// path, the way the original client derived its socket.io base URL
// from the pad URL.
func trimToSiteRoot(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			rest := path[:i]
			for j := len(rest) - 1; j >= 0; j-- {
				if rest[j] == '/' {
					return rest[:j+1]
				}
			}
			return "/"
		}
	}
	return "/"
}

func wsEndpoint(padURL *url.URL) string {
	scheme := "ws"
	if padURL.Scheme == "https" {
		scheme = "wss"
	}
	u := *padURL
	u.Scheme = scheme
	u.Path = trimToSiteRoot(padURL.Path) + "socket.io/1/websocket"
	return u.String()
}
