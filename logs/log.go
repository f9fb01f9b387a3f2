// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package logs wires up the per-subsystem loggers used across the chain
// and pool engine, backed by btclog and rotated to disk via
// jrick/logrotate.
package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// logWriter relays log output to both stdout and the rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if LogRotator != nil {
		LogRotator.Write(p)
	}
	return len(p), nil
}

// backendLog is the logging backend every subsystem logger is created
// from.
var backendLog = btclog.NewBackend(logWriter{})

// LogRotator rotates the log file on disk. It must be initialized with
// InitLogRotator before any subsystem logger is used, and closed on
// shutdown.
var LogRotator *rotator.Rotator

// Subsystem loggers, one per functional area of the engine.
var (
	chainLog = backendLog.Logger("CHAN")
	poolLog  = backendLog.Logger("TXMP")
	nodeLog  = backendLog.Logger("NODE")
	peerLog  = backendLog.Logger("PEER")
	cmgrLog  = backendLog.Logger("CMGR")
	amgrLog  = backendLog.Logger("AMGR")
	rpcsLog  = backendLog.Logger("RPCS")
	scrpLog  = backendLog.Logger("SCRP")
	indxLog  = backendLog.Logger("INDX")
	cnfgLog  = backendLog.Logger("CNFG")
)

// subsystemLoggers maps each subsystem tag to its logger, used for
// runtime level adjustment via SetLogLevels.
var subsystemLoggers = map[string]btclog.Logger{
	"CHAN": chainLog,
	"TXMP": poolLog,
	"NODE": nodeLog,
	"PEER": peerLog,
	"CMGR": cmgrLog,
	"AMGR": amgrLog,
	"RPCS": rpcsLog,
	"SCRP": scrpLog,
	"INDX": indxLog,
	"CNFG": cnfgLog,
}

// ChainLog returns the blockchain package's logger.
func ChainLog() btclog.Logger { return chainLog }

// PoolLog returns the mempool package's logger.
func PoolLog() btclog.Logger { return poolLog }

// NodeLog returns the node package's logger.
func NodeLog() btclog.Logger { return nodeLog }

// PeerLog returns the peer package's logger.
func PeerLog() btclog.Logger { return peerLog }

// ConnMgrLog returns the connmgr package's logger.
func ConnMgrLog() btclog.Logger { return cmgrLog }

// AddrMgrLog returns the addrmgr package's logger.
func AddrMgrLog() btclog.Logger { return amgrLog }

// RPCLog returns the rpcserver package's logger.
func RPCLog() btclog.Logger { return rpcsLog }

// ScriptLog returns the txscript package's logger.
func ScriptLog() btclog.Logger { return scrpLog }

// AddrIndexLog returns the addrindex package's logger.
func AddrIndexLog() btclog.Logger { return indxLog }

// ConfigLog returns the config package's logger.
func ConfigLog() btclog.Logger { return cnfgLog }

// InitLogRotator initializes the log rotator to write to logFile, rolling
// over at 10 MB and keeping a handful of historical files. It must be
// called before the log rotator is used.
func InitLogRotator(logFile string) error {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}
	LogRotator = r
	return nil
}

// SetLogLevel sets the logging level for a specific subsystem tag.
// Invalid subsystems are silently ignored.
func SetLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, ok := btclog.LevelFromString(logLevel)
	if !ok {
		return
	}
	logger.SetLevel(level)
}

// SetLogLevels sets the same logging level across every subsystem.
func SetLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
}

// SupportedSubsystems returns a sorted slice of every subsystem tag that
// can be passed to SetLogLevel.
func SupportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for tag := range subsystemLoggers {
		subsystems = append(subsystems, tag)
	}
	sort.Strings(subsystems)
	return subsystems
}

// ParseAndSetLogLevels parses a comma-separated debug level string, which
// may be either a single level applied to every subsystem, or a set of
// subsystem=level pairs. It is written in the "<subsystem>=<level>,..."
// shape accepted by config.DebugLevel.
func ParseAndSetLogLevels(debugLevel string) error {
	levelPairs := strings.Split(debugLevel, ",")
	if len(levelPairs) == 1 && !strings.Contains(debugLevel, "=") {
		if _, ok := btclog.LevelFromString(debugLevel); !ok {
			return fmt.Errorf("the specified debug level [%s] is invalid", debugLevel)
		}
		SetLogLevels(debugLevel)
		return nil
	}

	for _, logLevelPair := range levelPairs {
		fields := strings.Split(logLevelPair, "=")
		if len(fields) != 2 {
			return fmt.Errorf("the specified debug level contains an invalid subsystem/level pair [%s]", logLevelPair)
		}
		subsysID, level := fields[0], fields[1]
		if _, ok := subsystemLoggers[subsysID]; !ok {
			return fmt.Errorf("the specified subsystem [%s] is invalid", subsysID)
		}
		if _, ok := btclog.LevelFromString(level); !ok {
			return fmt.Errorf("the specified debug level [%s] is invalid", level)
		}
		SetLogLevel(subsysID, level)
	}
	return nil
}
