package config

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Services      ServicesConfig          `mapstructure:"services"`
	Localization  LocalizationConfig      `mapstructure:"localization"`
	Export        ExportConfig            `mapstructure:"export"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port          int    `mapstructure:"port"`
	GinMode       string `mapstructure:"gin_mode"`
	PublicBaseURL string `mapstructure:"public_base_url"` // used by the PDF exporter to reach the report page
	SessionTTL    int    `mapstructure:"session_ttl"`     // milliseconds
	FetchTimeout  int    `mapstructure:"fetch_timeout"`   // milliseconds, bound on background enrichment
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // single address shorthand
}

// GetURL returns the first address or the URL field.
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // for error handling
}

// --- External services ---

type ServicesConfig struct {
	Prediction PredictionServiceConfig `mapstructure:"prediction"`
	Weather    WeatherServiceConfig    `mapstructure:"weather"`
	Market     MarketServiceConfig     `mapstructure:"market"`
}

type PredictionServiceConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type WeatherServiceConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Timeout  int    `mapstructure:"timeout"`   // milliseconds
	CacheTTL int    `mapstructure:"cache_ttl"` // milliseconds
}

type MarketServiceConfig struct {
	Source   string `mapstructure:"source"` // "http" or "elasticsearch"
	BaseURL  string `mapstructure:"base_url"`
	Index    string `mapstructure:"index"`
	State    string `mapstructure:"state"`
	Timeout  int    `mapstructure:"timeout"`   // milliseconds
	CacheTTL int    `mapstructure:"cache_ttl"` // milliseconds
}

// --- Presentation ---

type LocalizationConfig struct {
	BaseLanguage string `mapstructure:"base_language"`
	OverlayDir   string `mapstructure:"overlay_dir"`
}

type ExportConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ChromeBin string `mapstructure:"chrome_bin"`
	Headless  bool   `mapstructure:"headless"`
	Timeout   int    `mapstructure:"timeout"` // milliseconds
	FileName  string `mapstructure:"file_name"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}
