// Package cluster names the public Solana clusters and picks the closest
// endpoint among several candidates.
package cluster

import (
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/go-ping/ping"
	"github.com/rs/zerolog"
)

type Name string

const (
	Mainnet  Name = "mainnet"
	Devnet   Name = "devnet"
	Localnet Name = "localnet"
)

type Endpoint struct {
	Rpc string `json:"rpc" mapstructure:"rpc"`
	Ws  string `json:"ws" mapstructure:"ws"`
}

type Preset struct {
	Name        Name
	Label       string
	Description string
	Endpoint    Endpoint
}

var presets = map[Name]Preset{
	Mainnet: {
		Name:        Mainnet,
		Label:       "Mainnet Beta",
		Description: "Production network",
		Endpoint:    Endpoint{Rpc: "https://api.mainnet-beta.solana.com", Ws: "wss://api.mainnet-beta.solana.com"},
	},
	Devnet: {
		Name:        Devnet,
		Label:       "Devnet",
		Description: "Development network",
		Endpoint:    Endpoint{Rpc: "https://api.devnet.solana.com", Ws: "wss://api.devnet.solana.com"},
	},
	Localnet: {
		Name:        Localnet,
		Label:       "Localnet",
		Description: "Local test network",
		Endpoint:    Endpoint{Rpc: "http://127.0.0.1:8899", Ws: "ws://127.0.0.1:8900"},
	},
}

func Lookup(name string) (Preset, error) {
	if name == "" {
		name = string(Mainnet)
	}
	p, ok := presets[Name(name)]
	if !ok {
		return Preset{}, fmt.Errorf("unknown cluster %q, expected mainnet, devnet or localnet", name)
	}
	return p, nil
}

func All() []Preset {
	return []Preset{presets[Mainnet], presets[Devnet], presets[Localnet]}
}

// Prober measures the round trip time to a host.
type Prober interface {
	Probe(host string) (time.Duration, error)
}

// Pinger probes with ICMP echo.
type Pinger struct {
	Count      int
	Timeout    time.Duration
	Privileged bool
}

func (p *Pinger) Probe(host string) (time.Duration, error) {
	pinger, err := ping.NewPinger(host)
	if err != nil {
		return 0, err
	}
	pinger.Count = p.Count
	pinger.Timeout = p.Timeout
	pinger.SetPrivileged(p.Privileged)
	if err := pinger.Run(); err != nil {
		return 0, err
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, fmt.Errorf("no reply from %s", host)
	}
	return stats.AvgRtt, nil
}

func NewPinger() *Pinger {
	return &Pinger{
		Count:   3,
		Timeout: 3 * time.Second,
	}
}

// Detector picks the lowest latency endpoint.
type Detector struct {
	prober Prober
	logger zerolog.Logger
}

func NewDetector(prober Prober, logger zerolog.Logger) *Detector {
	return &Detector{
		prober: prober,
		logger: logger.With().Str("component", "cluster").Logger(),
	}
}

// Detect returns the index of the fastest endpoint. Endpoints that cannot be
// probed rank last; when none answer the first one wins.
func (d *Detector) Detect(endpoints []Endpoint) (int, time.Duration) {
	best, bestRtt := 0, time.Duration(math.MaxInt64)
	for i, ep := range endpoints {
		host, err := hostOf(ep.Rpc)
		if err != nil {
			d.logger.Warn().Err(err).Str("rpc", ep.Rpc).Msg("skip endpoint")
			continue
		}
		rtt, err := d.prober.Probe(host)
		if err != nil {
			d.logger.Warn().Err(err).Str("host", host).Msg("probe failed")
			continue
		}
		d.logger.Info().Str("host", host).Dur("rtt", rtt).Msg("probe")
		if rtt < bestRtt {
			best, bestRtt = i, rtt
		}
	}
	return best, bestRtt
}

func hostOf(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("no host in %q", raw)
	}
	return u.Hostname(), nil
}
