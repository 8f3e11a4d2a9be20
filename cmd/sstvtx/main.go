/*
NAME
  main.go

DESCRIPTION
  sstvtx transmits pictures over SSTV using a radio in direct mode or an
  external transmitter fed with audio. Pictures come from an image file, a
  watched directory or a test pattern.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package sstvtx is the SSTV transmitter daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/fsnotify/fsnotify"
	_ "github.com/kidoman/embd/host/rpi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/ausocean/sstv/transmit"
	"github.com/ausocean/sstv/transmit/config"
	"github.com/ausocean/utils/logging"
)

// Current software version.
const version = "v0.1.0"

// Logging configuration.
const (
	logPath      = "/var/log/sstvtx/sstvtx.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

// Misc constants.
const (
	pkg          = "sstvtx: "
	settleTime   = time.Second // Time a new file must go unmodified before it is sent.
	pollInterval = 250 * time.Millisecond
)

// Image file extensions sent from a watched directory.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version")
		configPath  = flag.String("config", "", "YAML file of config variables")
		testPattern = flag.Bool("testpattern", false, "send the test pattern, repeating every Interval if set")
		logFile     = flag.String("log", logPath, "log file path")
		vars        = map[string]string{}
	)
	flag.Func("set", "set a config variable as Name=Value, may be repeated", func(s string) error {
		k, v, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("expected Name=Value, got %q", s)
		}
		vars[k] = v
		return nil
	})
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Create lumberjack logger to handle logging to file.
	fileLog := &lumberjack.Logger{
		Filename:   *logFile,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)
	log.Info("starting sstvtx", "version", version)

	if *configPath != "" {
		fileVars, err := readVars(*configPath)
		if err != nil {
			log.Fatal(pkg+"could not read config", "error", err.Error())
		}
		// Flags take precedence over the file.
		for k, v := range vars {
			fileVars[k] = v
		}
		vars = fileVars
	}

	cfg := config.Config{Logger: log, LogLevel: logVerbosity}
	cfg.Update(vars)

	log.Debug("initialising transmitter")
	tx, err := transmit.New(cfg)
	if err != nil {
		log.Fatal(pkg+"could not initialise transmitter", "error", err.Error())
	}
	defer func() {
		err := tx.Close()
		if err != nil {
			log.Error(pkg+"could not close transmitter", "error", err.Error())
		}
	}()
	cfg = tx.Config()
	log.SetLevel(cfg.LogLevel)

	if cfg.MetricsAddress != "" {
		go serveMetrics(cfg.MetricsAddress, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ok, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		log.Warning(pkg+"could not notify service manager", "error", err.Error())
	} else if ok {
		log.Debug(pkg + "notified service manager")
	}

	switch {
	case *testPattern:
		err = sendPattern(ctx, tx, cfg.Interval, log)
	case cfg.InputPath == "":
		err = errors.New("no input path and no test pattern requested")
	default:
		err = sendInput(ctx, tx, cfg.InputPath, log)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error(pkg+"transmission failed", "error", err.Error())
	}
	log.Info("stopping sstvtx")
}

// readVars reads a YAML mapping of config variable names to values.
func readVars(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	vars := map[string]string{}
	err = yaml.Unmarshal(b, &vars)
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal %s: %w", path, err)
	}
	return vars, nil
}

func serveMetrics(addr string, l logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	l.Info(pkg+"serving metrics", "address", addr)
	err := http.ListenAndServe(addr, mux)
	if err != nil {
		l.Error(pkg+"metrics server failed", "error", err.Error())
	}
}

// sendPattern sends the test pattern once, or every interval until the
// context is cancelled if interval is non-zero.
func sendPattern(ctx context.Context, tx *transmit.Transmitter, interval time.Duration, l logging.Logger) error {
	for {
		err := tx.TestPattern(ctx)
		if err != nil {
			return err
		}
		if interval == 0 {
			return nil
		}
		l.Debug(pkg+"waiting to repeat test pattern", "interval", interval.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// sendInput sends the image file at path, or watches path for new image files
// if it is a directory.
func sendInput(ctx context.Context, tx *transmit.Transmitter, path string, l logging.Logger) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return tx.SendFile(ctx, path)
	}
	return watch(ctx, tx, path, l)
}

// watch sends image files created in dir once they have settled, until the
// context is cancelled.
func watch(ctx context.Context, tx *transmit.Transmitter, dir string, l logging.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create watcher: %w", err)
	}
	defer w.Close()
	err = w.Add(dir)
	if err != nil {
		return fmt.Errorf("could not watch %s: %w", dir, err)
	}
	l.Info(pkg+"watching for images", "dir", dir)

	pending := map[string]time.Time{} // Last modification seen of each new file.
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case e, ok := <-w.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if !imageExts[strings.ToLower(filepath.Ext(e.Name))] {
				continue
			}
			switch {
			case e.Has(fsnotify.Create), e.Has(fsnotify.Write):
				pending[e.Name] = time.Now()
			case e.Has(fsnotify.Remove), e.Has(fsnotify.Rename):
				delete(pending, e.Name)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			l.Warning(pkg+"watch error", "error", err.Error())

		case now := <-tick.C:
			for name, t := range pending {
				if now.Sub(t) < settleTime {
					continue
				}
				delete(pending, name)
				l.Info(pkg+"sending image", "path", name)
				err := tx.SendFile(ctx, name)
				if errors.Is(err, context.Canceled) {
					return err
				}
				if err != nil {
					l.Error(pkg+"could not send image", "path", name, "error", err.Error())
				}
			}
		}
	}
}
