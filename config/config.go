//
// config.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

// Package config parses the command-line surface a party process
// needs: its role in the protocol, thread count, PRG seed material,
// network topology, optional TLS material, and the driver-only
// repeat/output knobs.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/markkurossi/graphsc/p2p"
	"github.com/markkurossi/graphsc/prg"
)

// ErrConfig is returned for any malformed or missing configuration
// value.
var ErrConfig = errors.New("config: invalid configuration")

// Config is the fully parsed, validated configuration for one party
// process.
type Config struct {
	PID       int
	Threads   int
	Seeds     prg.SeedWords
	Topology  p2p.Topology
	TLS       *p2p.TLSConfig
	Repeat    int
	OutputDir string
}

// seedFlags binds the five hi/lo seed word pairs to individual flags
// in the order self, all, p01, p02, p12, matching prg.SeedWords.
type seedFlags struct {
	selfHi, selfLo uint64
	allHi, allLo   uint64
	p01Hi, p01Lo   uint64
	p02Hi, p02Lo   uint64
	p12Hi, p12Lo   uint64
}

// netConfig is the decoded form of the -net-config JSON file: an
// array of exactly p2p.NumParties IP addresses, one per pid.
type netConfig []string

// Parse parses args (typically os.Args[1:]) into a Config. fs lets
// callers supply a fresh *flag.FlagSet per invocation, which keeps
// repeated calls (as tests make) from colliding on flag.CommandLine.
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	var (
		pid       = fs.Int("pid", -1, "party id: 0 (dealer), 1 or 2 (online)")
		threads   = fs.Int("threads", 6, "worker thread count")
		port      = fs.Int("port", 10000, "base TCP port")
		localhost = fs.Bool("localhost", false, "use 127.0.0.1 for all parties")
		netPath   = fs.String("net-config", "", "path to a JSON array of 3 party IPs")
		certPath  = fs.String("cert", "", "TLS certificate path")
		keyPath   = fs.String("key", "", "TLS private key path")
		caPath    = fs.String("ca", "", "TLS trusted CA certificate path")
		repeat    = fs.Int("repeat", 1, "number of times to repeat the run")
		output    = fs.String("output", "", "directory to write per-run statistics to")
		seeds     seedFlags
	)
	fs.Uint64Var(&seeds.selfHi, "seed-self-hi", 0, "self stream seed, high word")
	fs.Uint64Var(&seeds.selfLo, "seed-self-lo", 0, "self stream seed, low word (defaults to pid)")
	fs.Uint64Var(&seeds.allHi, "seed-all-hi", 0, "all-party stream seed, high word")
	fs.Uint64Var(&seeds.allLo, "seed-all-lo", 0, "all-party stream seed, low word")
	fs.Uint64Var(&seeds.p01Hi, "seed-01-hi", 0, "p01 stream seed, high word")
	fs.Uint64Var(&seeds.p01Lo, "seed-01-lo", 0, "p01 stream seed, low word")
	fs.Uint64Var(&seeds.p02Hi, "seed-02-hi", 0, "p02 stream seed, high word")
	fs.Uint64Var(&seeds.p02Lo, "seed-02-lo", 0, "p02 stream seed, low word")
	fs.Uint64Var(&seeds.p12Hi, "seed-12-hi", 0, "p12 stream seed, high word")
	fs.Uint64Var(&seeds.p12Lo, "seed-12-lo", 0, "p12 stream seed, low word")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfig, err)
	}

	if *pid < 0 || *pid >= p2p.NumParties {
		return nil, fmt.Errorf("%w: pid must be 0, 1 or 2", ErrConfig)
	}
	if *threads < 1 {
		return nil, fmt.Errorf("%w: threads must be positive", ErrConfig)
	}
	if *repeat < 1 {
		return nil, fmt.Errorf("%w: repeat must be positive", ErrConfig)
	}

	topology, err := resolveTopology(*localhost, *netPath, *port)
	if err != nil {
		return nil, err
	}

	tlsCfg, err := resolveTLS(*certPath, *keyPath, *caPath)
	if err != nil {
		return nil, err
	}

	return &Config{
		PID:     *pid,
		Threads: *threads,
		Seeds: prg.SeedWords{
			SelfHi: seeds.selfHi, SelfLo: seeds.selfLo,
			AllHi: seeds.allHi, AllLo: seeds.allLo,
			P01Hi: seeds.p01Hi, P01Lo: seeds.p01Lo,
			P02Hi: seeds.p02Hi, P02Lo: seeds.p02Lo,
			P12Hi: seeds.p12Hi, P12Lo: seeds.p12Lo,
		},
		Topology:  topology,
		TLS:       tlsCfg,
		Repeat:    *repeat,
		OutputDir: *output,
	}, nil
}

func resolveTopology(localhost bool, netPath string, port int) (p2p.Topology, error) {
	if localhost && netPath != "" {
		return p2p.Topology{}, fmt.Errorf("%w: -localhost and -net-config are mutually exclusive", ErrConfig)
	}
	if localhost || netPath == "" {
		return p2p.Localhost(port), nil
	}

	data, err := os.ReadFile(netPath)
	if err != nil {
		return p2p.Topology{}, fmt.Errorf("%w: reading -net-config: %s", ErrConfig, err)
	}
	var hosts netConfig
	if err := json.Unmarshal(data, &hosts); err != nil {
		return p2p.Topology{}, fmt.Errorf("%w: parsing -net-config: %s", ErrConfig, err)
	}
	if len(hosts) != p2p.NumParties {
		return p2p.Topology{}, fmt.Errorf("%w: -net-config must name exactly %d hosts, got %d",
			ErrConfig, p2p.NumParties, len(hosts))
	}

	var t p2p.Topology
	for i, h := range hosts {
		t.Host[i] = h
		t.Port[i] = port + i
	}
	return t, nil
}

func resolveTLS(certPath, keyPath, caPath string) (*p2p.TLSConfig, error) {
	if certPath == "" && keyPath == "" && caPath == "" {
		return nil, nil
	}
	if certPath == "" || keyPath == "" || caPath == "" {
		return nil, fmt.Errorf("%w: -cert, -key and -ca must all be set together", ErrConfig)
	}
	return &p2p.TLSConfig{
		CertificatePath: certPath,
		PrivateKeyPath:  keyPath,
		TrustedCertPath: caPath,
	}, nil
}
