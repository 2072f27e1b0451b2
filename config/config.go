package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/egaotan/solana-gold/address"
	"github.com/egaotan/solana-gold/cluster"
	"github.com/egaotan/solana-gold/program"
	"github.com/gagliardetto/solana-go"
)

var (
	LogPath     = "./logs/"
	BackendLog  = "backend"
	SyncLog     = "statesync"
	AppLog      = "app"
	StoreLog    = "store"
	NotifyLog   = "notify"
	ConfigFile  = "./config/config.json"
	EnvPrefix   = "GOLD"
	DefaultFeed = "0x765d2ba906dbc32ca17cc11f5310a89e9ee1f6420508c63861f2f8ba4ee34bb2"
)

const (
	DefaultConfirmTimeoutSeconds  = 60
	DefaultRefreshIntervalSeconds = 30
	DefaultListen                 = ":8080"
)

type Node struct {
	Rpc    string `json:"rpc" mapstructure:"rpc"`
	Ws     string `json:"ws" mapstructure:"ws"`
	Usable bool   `json:"usable" mapstructure:"usable"`
}

type Config struct {
	Cluster                string  `json:"cluster" mapstructure:"cluster"`
	Nodes                  []*Node `json:"nodes" mapstructure:"nodes"`
	NetStatus              bool    `json:"net_status" mapstructure:"net_status"`
	ProgramId              string  `json:"program_id" mapstructure:"program_id"`
	GoldMint               string  `json:"gold_mint" mapstructure:"gold_mint"`
	UsdcMint               string  `json:"usdc_mint" mapstructure:"usdc_mint"`
	PriceFeedId            string  `json:"price_feed_id" mapstructure:"price_feed_id"`
	PriceFeedShard         uint16  `json:"price_feed_shard" mapstructure:"price_feed_shard"`
	OracleProgram          string  `json:"oracle_program" mapstructure:"oracle_program"`
	Key                    string  `json:"key" mapstructure:"key"`
	KeypairFile            string  `json:"keypair_file" mapstructure:"keypair_file"`
	ConfirmTimeoutSeconds  int     `json:"confirm_timeout_seconds" mapstructure:"confirm_timeout_seconds"`
	RefreshIntervalSeconds int     `json:"refresh_interval_seconds" mapstructure:"refresh_interval_seconds"`
	Watch                  bool    `json:"watch" mapstructure:"watch"`
	Listen                 string  `json:"listen" mapstructure:"listen"`
	DingUrl                string  `json:"ding-url" mapstructure:"ding-url"`
	DBDriver               string  `json:"db_driver" mapstructure:"db_driver"`
	DBUrl                  string  `json:"db_url" mapstructure:"db_url"`
	DBScheme               string  `json:"db_scheme" mapstructure:"db_scheme"`
	DBUser                 string  `json:"db_user" mapstructure:"db_user"`
	DBPasswd               string  `json:"db_passwd" mapstructure:"db_passwd"`
	LogLevel               string  `json:"log_level" mapstructure:"log_level"`
	LogFormat              string  `json:"log_format" mapstructure:"log_format"`
	WorkSpace              string  `json:"workspace" mapstructure:"workspace"`
}

func (c *Config) applyDefaults() {
	if c.ConfirmTimeoutSeconds == 0 {
		c.ConfirmTimeoutSeconds = DefaultConfirmTimeoutSeconds
	}
	if c.RefreshIntervalSeconds == 0 {
		c.RefreshIntervalSeconds = DefaultRefreshIntervalSeconds
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.PriceFeedId == "" {
		c.PriceFeedId = DefaultFeed
	}
	if c.OracleProgram == "" {
		c.OracleProgram = program.PythPushOracle.String()
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DBDriver == "" && c.DBUrl != "" {
		c.DBDriver = "mysql"
	}
	if len(c.Nodes) == 0 {
		if preset, err := cluster.Lookup(c.Cluster); err == nil {
			c.Nodes = []*Node{{Rpc: preset.Endpoint.Rpc, Ws: preset.Endpoint.Ws, Usable: true}}
		}
	}
}

func (c *Config) Validate() error {
	if _, err := cluster.Lookup(c.Cluster); err != nil {
		return err
	}
	if c.ConfirmTimeoutSeconds < 0 || c.RefreshIntervalSeconds < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if len(c.UsableNodes()) == 0 {
		return fmt.Errorf("no usable node configured")
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}
	switch c.DBDriver {
	case "", "mysql", "sqlite":
	default:
		return fmt.Errorf("db driver must be 'mysql' or 'sqlite'")
	}
	if c.Key != "" && c.KeypairFile != "" {
		return fmt.Errorf("set either key or keypair_file, not both")
	}
	_, err := c.Protocol()
	return err
}

func (c *Config) UsableNodes() []*Node {
	nodes := make([]*Node, 0, len(c.Nodes))
	for _, node := range c.Nodes {
		if node != nil && node.Usable && node.Rpc != "" {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.ConfirmTimeoutSeconds) * time.Second
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// Protocol resolves the deployment identifiers used for every derivation.
func (c *Config) Protocol() (address.Params, error) {
	var params address.Params
	var err error
	if params.ProgramID, err = publicKey("program_id", c.ProgramId); err != nil {
		return params, err
	}
	if params.GoldMint, err = publicKey("gold_mint", c.GoldMint); err != nil {
		return params, err
	}
	usdc := c.UsdcMint
	if usdc == "" && (c.Cluster == "" || c.Cluster == string(cluster.Mainnet)) {
		usdc = program.USDCMainnet.String()
	}
	if params.UsdcMint, err = publicKey("usdc_mint", usdc); err != nil {
		return params, err
	}
	if params.OracleProgramID, err = publicKey("oracle_program", c.OracleProgram); err != nil {
		return params, err
	}
	if params.FeedID, err = address.ParseFeedID(c.PriceFeedId); err != nil {
		return params, fmt.Errorf("price_feed_id: %w", err)
	}
	params.Shard = c.PriceFeedShard
	return params, nil
}

func publicKey(field, value string) (solana.PublicKey, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return solana.PublicKey{}, fmt.Errorf("%s is required", field)
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", field, err)
	}
	return key, nil
}
