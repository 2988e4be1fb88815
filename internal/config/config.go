package config

import "github.com/zeromicro/go-zero/rest"

type ChainConf struct {
	Name    string `json:"Name"`
	RpcUrl  string `json:"RpcUrl"`
	ChainId int64  `json:"ChainId"`
}

// MonitorConf tunes the receipt poller. Zero values fall back to the
// defaults in the monitor package (5s interval, 5m timeout).
type MonitorConf struct {
	PollIntervalMs int64 `json:",optional"`
	TimeoutMs      int64 `json:",optional"`
}

type Config struct {
	rest.RestConf
	Postgres struct {
		DSN string
	}
	// Chains maps a chain name (e.g., "ETH") to its configuration.
	Chains map[string]ChainConf
	// DefaultChain selects the chain used when a request omits one.
	DefaultChain string      `json:",default=ETH"`
	Monitor      MonitorConf `json:",optional"`
}
