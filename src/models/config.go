package models

// MConfig Structure
type MConfig struct {
	Name        string          `yaml:"name"`
	Host        string          `yaml:"host"`
	Port        int             `yaml:"port"`
	LogLevel    string          `yaml:"log_level"`
	GrpcHost    string          `yaml:"grpc_host"`
	GrpcPort    int             `yaml:"grpc_port"`
	Storage     MStorageConfig  `yaml:"storage"`
	Network     MNetworkConfig  `yaml:"network"`
	Upstream    MUpstreamConfig `yaml:"upstream"`
	Market      MMarketConfig   `yaml:"market"`
	Stream      MStreamConfig   `yaml:"stream"`
	Cache       MCacheConfig    `yaml:"cache"`
	Client      MClientConfig   `yaml:"client"`
	Instruments []MInstrument   `yaml:"instruments"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MNetworkConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Proxies            []string `yaml:"proxies"`
	RequestTimeout     int      `yaml:"timeout"`
	MaxRetries         int      `yaml:"retries"`
	ConcurrentRequests int      `yaml:"concurrent_requests"`
	UserAgent          string   `yaml:"user_agent"`
}

// MUpstreamConfig points at the external price feeds.
type MUpstreamConfig struct {
	QuoteBaseURL      string `yaml:"quote_base_url"`
	HistoricalBaseURL string `yaml:"historical_base_url"`
	HistoricalKey     string `yaml:"historical_key"`
	WrongIDRetries    int    `yaml:"wrong_id_retries"`
}

type MMarketConfig struct {
	Calendar string `yaml:"calendar"` // "fx" or an ISO 10383 MIC such as "xnys"
}

type MStreamConfig struct {
	DelaySeconds     int `yaml:"delay_seconds"`
	PeriodSeconds    int `yaml:"period_seconds"`
	LeadMillis       int `yaml:"lead_ms"`
	ToleranceMillis  int `yaml:"tolerance_ms"`
	RecheckMillis    int `yaml:"recheck_ms"`
	KeepaliveSeconds int `yaml:"keepalive_seconds"`
}

type MCacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type MClientConfig struct {
	ServerURL            string   `yaml:"server_url"`
	Retention            int      `yaml:"retention"`
	DefaultSubscriptions []string `yaml:"default_subscriptions"`
}
