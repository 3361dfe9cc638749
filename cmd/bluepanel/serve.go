package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chess10kp/bluepanel/internal/apps"
	"github.com/chess10kp/bluepanel/internal/config"
	"github.com/chess10kp/bluepanel/internal/history"
	"github.com/chess10kp/bluepanel/internal/panel"
	"github.com/chess10kp/bluepanel/internal/server"
	"github.com/chess10kp/bluepanel/internal/status"
)

type serveOptions struct {
	port    int
	logFile string
	pidFile string
	open    bool
}

func addServeFlags(flags *pflag.FlagSet, opts *serveOptions) {
	flags.IntVarP(&opts.port, "port", "p", 0, "override server.port")
	flags.StringVar(&opts.logFile, "log-file", "", "append logs to this file instead of stderr")
	flags.StringVar(&opts.pidFile, "pid-file", filepath.Join(os.TempDir(), "bluepanel.pid"), "replace any instance recorded in this pid file")
	flags.BoolVar(&opts.open, "open", false, "open the panel in the default browser once listening")
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP backend (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, opts)
		},
	}
	addServeFlags(cmd.Flags(), opts)
	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, opts *serveOptions) error {
	if opts.logFile != "" {
		logFile, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		log.SetOutput(logFile)
		defer logFile.Close()
	}

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if flagChanged(cmd.Flags(), "port") {
		cfg.Server.Port = opts.port
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	if opts.pidFile != "" {
		if err := ensureSingleInstance(opts.pidFile); err != nil {
			return fmt.Errorf("failed to ensure single instance: %w", err)
		}
		defer os.Remove(opts.pidFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader, err := apps.NewLoader(cfg, apps.NewIconResolver(cfg))
	if err != nil {
		return err
	}
	log.Printf("[APPS-LOADER] Application directories: %s", strings.Join(loader.Dirs(), ", "))
	if cfg.Apps.Watch {
		go func() {
			if err := loader.Watch(ctx); err != nil {
				log.Printf("[WATCH] %v", err)
			}
		}()
	}

	tracker := history.NewTracker(history.NewStore(cfg.History.Path), loader, cfg.History.QueueSize)
	go tracker.Run(ctx)

	panelStore := panel.NewStore(cfg.Panel.ConfigPath)
	panelStore.Load()

	bus := connectBus(cfg)
	if bus != nil {
		defer bus.Close()
	}
	collector := status.NewCollector(cfg, status.ShellRunner, bus)
	go func() {
		if err := collector.Watch(ctx); err != nil {
			log.Printf("[STATUS] %v", err)
		}
	}()

	ln, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr(), err)
	}

	if opts.open {
		url := cfg.Server.BaseURL() + "/"
		if err := browser.OpenURL(url); err != nil {
			log.Printf("Failed to open %s: %v", url, err)
		}
	}

	log.Printf("bluepanel serving %s", cfg.Server.BaseURL())
	return server.New(cfg, tracker, panelStore, collector).Serve(ctx, ln)
}

// connectBus returns nil when D-Bus is disabled or unreachable; the
// collector then falls back to commands and sysfs.
func connectBus(cfg *config.Config) *status.BusProbe {
	if !cfg.Status.UseDBus {
		return nil
	}
	bus, err := status.ConnectSystemBus()
	if err != nil {
		log.Printf("[STATUS] D-Bus unavailable, using command probes: %v", err)
		return nil
	}
	return bus
}

// ensureSingleInstance stops a previous daemon recorded in pidFile and
// records this process.
func ensureSingleInstance(pidFile string) error {
	if data, err := os.ReadFile(pidFile); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid != os.Getpid() {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					log.Printf("Stopping previous instance (pid %d)", pid)
					process.Signal(syscall.SIGTERM)
					waitForExit(process)
				}
			}
		}
	}
	return os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func waitForExit(process *os.Process) {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if err := process.Signal(syscall.Signal(0)); err != nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	process.Kill()
}
