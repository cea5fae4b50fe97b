package electrumx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/viper"
)

// Default indexer method names.
const (
	MethodRealmInfo   = "blockchain.atomicals.get_realm_info"
	MethodState       = "blockchain.atomicals.get_state"
	MethodGet         = "blockchain.atomicals.get"
	MethodTransaction = "blockchain.transaction.get"
)

// Config holds indexer client configuration.
type Config struct {
	Mirrors  []string      `mapstructure:"mirrors"`
	Timeout  time.Duration `mapstructure:"timeout"`
	TxMirror int           `mapstructure:"tx_mirror"` // Mirror pinned for raw transaction fetches
	Methods  Methods       `mapstructure:"methods"`
}

// Methods maps logical calls onto indexer method names.
type Methods struct {
	RealmInfo   string `mapstructure:"realm_info"`
	State       string `mapstructure:"state"`
	Get         string `mapstructure:"get"`
	Transaction string `mapstructure:"transaction"`
}

// SetDefaults sets viper defaults for indexer configuration.
func (c *Config) SetDefaults(v *viper.Viper, prefix string) {
	p := ""
	if prefix != "" {
		p = prefix + "."
	}
	v.SetDefault(p+"mirrors", []string{
		"https://ep.wizz.cash/proxy",
		"https://ep.atomicalmarket.com/proxy",
	})
	v.SetDefault(p+"timeout", 30*time.Second)
	v.SetDefault(p+"tx_mirror", 0)
	v.SetDefault(p+"methods.realm_info", MethodRealmInfo)
	v.SetDefault(p+"methods.state", MethodState)
	v.SetDefault(p+"methods.get", MethodGet)
	v.SetDefault(p+"methods.transaction", MethodTransaction)
}

// WithDefaults fills empty method names.
func (m Methods) WithDefaults() Methods {
	if m.RealmInfo == "" {
		m.RealmInfo = MethodRealmInfo
	}
	if m.State == "" {
		m.State = MethodState
	}
	if m.Get == "" {
		m.Get = MethodGet
	}
	if m.Transaction == "" {
		m.Transaction = MethodTransaction
	}
	return m
}

// Services holds the initialized indexer client.
type Services struct {
	Client   *Client
	Methods  Methods
	TxMirror int
}

// Initialize creates the indexer client from the configuration.
func (c *Config) Initialize(ctx context.Context, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	selector, err := NewSelector(c.Mirrors, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize indexer selector: %w", err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := NewClient(selector, &http.Client{Timeout: timeout}, logger)
	logger.Info("indexer client initialized", "mirrors", selector.Len(), "timeout", timeout)

	return &Services{
		Client:   client,
		Methods:  c.Methods.WithDefaults(),
		TxMirror: c.TxMirror,
	}, nil
}
