package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Port string `yaml:"port"`
}

type Fetch struct {
	MaxAttempts            int `yaml:"max_attempts"`
	ProviderTimeoutSeconds int `yaml:"provider_timeout_seconds"`
}

type IndexAPI struct {
	BaseURL       string `yaml:"base_url"`
	RatePerMinute int    `yaml:"rate_per_minute"`
	Burst         int    `yaml:"burst"`
}

type BOC struct {
	URL           string `yaml:"url"`
	RatePerMinute int    `yaml:"rate_per_minute"`
	Burst         int    `yaml:"burst"`
}

type MidRate struct {
	URL       string  `yaml:"url"`
	SpreadPct float64 `yaml:"spread_pct"` // synthetic bank spread, percent
}

type Sources struct {
	IndexAPI IndexAPI `yaml:"index_api"`
	BOC      BOC      `yaml:"boc"`
	MidRate  MidRate  `yaml:"mid_rate"`
}

type Root struct {
	IntervalSeconds int     `yaml:"interval_seconds"`
	Capacity        int     `yaml:"capacity"`
	Server          Server  `yaml:"server"`
	Fetch           Fetch   `yaml:"fetch"`
	Sources         Sources `yaml:"sources"`
}

// Load reads the config file and fills defaults. An empty path yields
// the defaults alone.
func Load(path string) (Root, error) {
	var c Root
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, err
		}
	}

	if c.IntervalSeconds == 0 {
		c.IntervalSeconds = 60
	}
	if c.IntervalSeconds < 0 {
		return c, fmt.Errorf("interval_seconds must be positive, got %d", c.IntervalSeconds)
	}
	if c.Capacity == 0 {
		c.Capacity = 120
	}
	if c.Capacity < 0 {
		return c, fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}

	if c.Server.Port == "" {
		c.Server.Port = "8090"
	}
	if c.Fetch.MaxAttempts == 0 {
		c.Fetch.MaxAttempts = 3
	}
	if c.Fetch.ProviderTimeoutSeconds == 0 {
		c.Fetch.ProviderTimeoutSeconds = 10
	}

	if c.Sources.IndexAPI.BaseURL == "" {
		c.Sources.IndexAPI.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Sources.IndexAPI.RatePerMinute == 0 {
		c.Sources.IndexAPI.RatePerMinute = 30
	}
	if c.Sources.BOC.URL == "" {
		c.Sources.BOC.URL = "https://srh.bankofchina.com/search/whpj/search.jsp"
	}
	if c.Sources.BOC.RatePerMinute == 0 {
		c.Sources.BOC.RatePerMinute = 12
	}
	if c.Sources.MidRate.URL == "" {
		c.Sources.MidRate.URL = "https://api.exchangerate.host/latest?base=USD&symbols=CNY"
	}
	if c.Sources.MidRate.SpreadPct == 0 {
		c.Sources.MidRate.SpreadPct = 0.3
	}

	return c, nil
}
