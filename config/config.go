// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config parses the node's command-line and configuration-file
// options.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/jessevdk/go-flags"
	"github.com/kaspoin/kaspoind/logs"
)

const (
	defaultConfigFilename = "kaspoind.conf"
	defaultDataDirname    = "data"
	defaultLogFilename    = "kaspoind.log"
	defaultLogLevel       = "info"
	defaultListenPort     = "28964"
	defaultRPCListen      = "127.0.0.1:28965"
	defaultMaxPeers       = 125
)

// Config holds every runtime option the node accepts, either via the
// command line or a configuration file.
type Config struct {
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir     string `short:"b" long:"datadir" description:"Directory to store block chain and mempool data"`
	LogDir      string `long:"logdir" description:"Directory to log output"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical}, or <subsystem>=<level>,... to set per-subsystem levels"`
	Listen      string `long:"listen" description:"Address to listen for incoming peer connections"`
	RPCListen   string `long:"rpclisten" description:"Address to listen for HTTP RPC and websocket connections"`
	AddPeer     []string `short:"a" long:"addpeer" description:"Add a peer to connect with at startup"`
	ConnectOnly []string `long:"connect" description:"Connect only to the specified peers at startup"`
	MaxPeers    int      `long:"maxpeers" description:"Maximum number of peers"`
	RegressionTest bool  `long:"regtest" description:"Regression test network flag (accepted but has no effect: the node has a single built-in network)"`
	LiveAccounting bool  `long:"liveaccounting" description:"Maintain a per-address accounting index of the mempool"`
}

func defaultHomeDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "Kaspoind")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".kaspoind")
}

// defaults returns a Config pre-populated with every default value, which
// Load then overrides from the config file and command line.
func defaults() *Config {
	homeDir := defaultHomeDir()
	return &Config{
		ConfigFile: filepath.Join(homeDir, defaultConfigFilename),
		DataDir:    filepath.Join(homeDir, defaultDataDirname),
		LogDir:     homeDir,
		DebugLevel: defaultLogLevel,
		Listen:     "0.0.0.0:" + defaultListenPort,
		RPCListen:  defaultRPCListen,
		MaxPeers:   defaultMaxPeers,
	}
}

// Load parses the command line, then the configuration file named by
// -C/--configfile if present, producing the effective Config. Flags
// given on the command line take precedence over the file.
func Load() (*Config, error) {
	preCfg := defaults()
	preParser := flags.NewParser(preCfg, flags.Default)
	if _, err := preParser.Parse(); err != nil {
		return nil, err
	}

	cfg := defaults()
	cfg.ConfigFile = preCfg.ConfigFile
	if _, err := os.Stat(cfg.ConfigFile); err == nil {
		fileParser := flags.NewParser(cfg, flags.Default)
		if err := flags.NewIniParser(fileParser).ParseFile(cfg.ConfigFile); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", cfg.ConfigFile, err)
		}
	}

	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", cfg.LogDir, err)
	}

	if err := logs.InitLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename)); err != nil {
		return nil, err
	}
	if err := logs.ParseAndSetLogLevels(cfg.DebugLevel); err != nil {
		return nil, err
	}

	return cfg, nil
}
