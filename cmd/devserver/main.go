package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/livedev/devserver/internal/command"
	"github.com/livedev/devserver/internal/config"
	"github.com/livedev/devserver/internal/frontend"
	"github.com/livedev/devserver/internal/watcher"
	"github.com/livedev/devserver/internal/ws"
	"github.com/spf13/cobra"
)

var (
	configPath string
	rootDir    string
	host       string
	port       int
	shell      string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Watch a project and push live updates to connected browsers",
	Long: `devserver watches a project directory, classifies every change and pushes
it to connected WebSocket clients. Clients may also relay messages to each
other and run shell commands on the server.

Examples:
  devserver                          # watch . on 127.0.0.1:8080
  devserver --root ./site --port 3000
  devserver --config devserver.yaml --verbose`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	flags.StringVarP(&rootDir, "root", "r", "", "directory to watch (overrides watcher.root)")
	flags.StringVar(&host, "host", "", "listen host (overrides server.host)")
	flags.IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	flags.StringVar(&shell, "shell", "", "shell used for client commands (overrides command.shell)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log every change, push and relay")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	filter, err := watcher.NewFilter(cfg.Watcher.IgnoreDirs, cfg.Watcher.IgnoreSuffixes, cfg.Watcher.IgnorePatterns)
	if err != nil {
		return err
	}

	w, err := watcher.Start(watcher.Options{
		Root:      cfg.Watcher.Root,
		Filter:    filter,
		Debouncer: watcher.NewDebouncer(cfg.Watcher.DebounceCapacity),
		Window:    cfg.Watcher.Debounce,
		Verbose:   verbose,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(cfg.Server.MaxConnections, cfg.Server.SendBuffer)
	go ws.NewBroadcaster(hub, verbose).Run(ctx, w.Events())

	dir := cfg.Command.Dir
	if dir == "" {
		dir = w.Root()
	}
	bridge := command.NewBridge(cfg.Command.Shell, dir, cfg.Command.Timeout)

	site := frontend.New(w.Root(), cfg.Frontend.InjectDir, cfg.Frontend.WebDir)
	server := ws.NewServer(cfg, hub, bridge, w.Root(), site, verbose)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	log.Printf("Serving %s at http://%s/project/", w.Root(), cfg.Addr())
	err = ws.ListenAndServe(ctx, cfg.Addr(), ws.SecurityHeaders(mux))

	log.Println("Shutting down...")
	hub.CloseAll()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// applyFlags lets explicitly set flags win over the config file.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Watcher.Root = rootDir
	}
	if flags.Changed("host") {
		cfg.Server.Host = host
	}
	if flags.Changed("port") {
		cfg.Server.Port = port
	}
	if flags.Changed("shell") {
		cfg.Command.Shell = shell
	}
}
