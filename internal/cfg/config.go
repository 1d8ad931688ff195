// Package cfg loads the autorebase configuration file.
package cfg

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml"
)

const (
	EnvGithubAPIToken      = "AUTOREBASE_GITHUB_API_TOKEN"
	EnvGithubWebhookSecret = "AUTOREBASE_GITHUB_WEBHOOK_SECRET"
)

const (
	defGithubWebhookEndpoint = "/listener/github"
	defMetricsEndpoint       = "/metrics"
	defLogFormat             = "logfmt"
	defLogTimeKey            = "time_iso8601"
	defLogLevel              = "info"
	defLabel                 = "autorebase"
	defSearchSettleDelay     = "1s"
	defMaxConcurrentEvents   = 16
	defRetryInitialInterval  = "500ms"
	defRetryMaxInterval      = "30s"
	defRetryMaxAttempts      = 10
	defCommitterName         = "autorebase"
	defCommitterEmail        = "autorebase@users.noreply.github.com"
)

var defOneTimeRebasePermissions = []string{"admin", "write"}

type Config struct {
	HTTPListenAddr            string           `toml:"http_server_listen_addr"`
	HTTPSListenAddr           string           `toml:"https_server_listen_addr"`
	HTTPSCertFile             string           `toml:"https_ssl_cert_file"`
	HTTPSKeyFile              string           `toml:"https_ssl_key_file"`
	HTTPGithubWebhookEndpoint string           `toml:"github_webhook_endpoint"`
	GithubWebHookSecret       string           `toml:"github_webhook_secret"`
	GithubAPIToken            string           `toml:"github_api_token"`
	PrometheusMetricsEndpoint string           `toml:"prometheus_metrics_endpoint"`
	LogFormat                 string           `toml:"log_format"`
	LogTimeKey                string           `toml:"log_time_key"`
	LogLevel                  string           `toml:"log_level"`
	DryRun                    bool             `toml:"dry_run"`
	Autorebase                Autorebase       `toml:"autorebase"`
	ActionHandlers            []*ActionHandler `toml:"action_handler"`
}

type GithubRepository struct {
	Owner          string `toml:"owner"`
	RepositoryName string `toml:"repository"`
}

type Autorebase struct {
	// Label is the name of the automation label. An empty string
	// disables automatic rebases and locking.
	Label                    string             `toml:"label"`
	OneTimeRebasePermissions []string           `toml:"one_time_rebase_permissions"`
	ForceRebaseQuery         string             `toml:"force_rebase_query"`
	SearchSettleDelay        string             `toml:"search_settle_delay"`
	MaxConcurrentEvents      int                `toml:"max_concurrent_events"`
	MergeableStateRetry      Retry              `toml:"mergeable_state_retry"`
	Git                      Git                `toml:"git"`
	Repositories             []GithubRepository `toml:"repository"`

	// SearchSettleDelayDuration is the parsed SearchSettleDelay value.
	SearchSettleDelayDuration time.Duration `toml:"-"`
}

type Retry struct {
	InitialInterval string `toml:"initial_interval"`
	MaxInterval     string `toml:"max_interval"`
	MaxAttempts     int    `toml:"max_attempts"`

	InitialIntervalDuration time.Duration `toml:"-"`
	MaxIntervalDuration     time.Duration `toml:"-"`
}

type Git struct {
	WorkDir        string `toml:"work_dir"`
	CommitterName  string `toml:"committer_name"`
	CommitterEmail string `toml:"committer_email"`
}

// ActionHandler is a rule that runs actions when the decision engine
// produced an action that matches FilterQuery.
type ActionHandler struct {
	Name        string           `toml:"name"`
	FilterQuery string           `toml:"filter_query"`
	Actions     []map[string]any `toml:"action"`
}

// Load reads the configuration from reader, applies default values for unset
// options and validates it.
func Load(reader io.Reader) (*Config, error) {
	var result Config

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	result.setDefaults()

	if err := result.parseDurations(); err != nil {
		return nil, err
	}

	if err := result.validate(); err != nil {
		return nil, err
	}

	return &result, nil
}

// OverrideFromEnv replaces the secrets in the config with the values of the
// environment variables EnvGithubAPIToken and EnvGithubWebhookSecret when
// they are set.
func (c *Config) OverrideFromEnv(lookupEnv func(string) (string, bool)) {
	if val, exist := lookupEnv(EnvGithubAPIToken); exist {
		c.GithubAPIToken = val
	}

	if val, exist := lookupEnv(EnvGithubWebhookSecret); exist {
		c.GithubWebHookSecret = val
	}
}

func (c *Config) setDefaults() {
	if c.HTTPGithubWebhookEndpoint == "" {
		c.HTTPGithubWebhookEndpoint = defGithubWebhookEndpoint
	}

	if c.PrometheusMetricsEndpoint == "" {
		c.PrometheusMetricsEndpoint = defMetricsEndpoint
	}

	if c.LogFormat == "" {
		c.LogFormat = defLogFormat
	}

	if c.LogTimeKey == "" {
		c.LogTimeKey = defLogTimeKey
	}

	if c.LogLevel == "" {
		c.LogLevel = defLogLevel
	}

	a := &c.Autorebase

	if a.OneTimeRebasePermissions == nil {
		a.OneTimeRebasePermissions = defOneTimeRebasePermissions
	}

	if a.SearchSettleDelay == "" {
		a.SearchSettleDelay = defSearchSettleDelay
	}

	if a.MaxConcurrentEvents == 0 {
		a.MaxConcurrentEvents = defMaxConcurrentEvents
	}

	if a.MergeableStateRetry.InitialInterval == "" {
		a.MergeableStateRetry.InitialInterval = defRetryInitialInterval
	}

	if a.MergeableStateRetry.MaxInterval == "" {
		a.MergeableStateRetry.MaxInterval = defRetryMaxInterval
	}

	if a.MergeableStateRetry.MaxAttempts == 0 {
		a.MergeableStateRetry.MaxAttempts = defRetryMaxAttempts
	}

	if a.Git.CommitterName == "" {
		a.Git.CommitterName = defCommitterName
	}

	if a.Git.CommitterEmail == "" {
		a.Git.CommitterEmail = defCommitterEmail
	}
}

// DefaultLabel is the automation label name that is used in the example
// configuration.
const DefaultLabel = defLabel

func parseDuration(key, val string) (time.Duration, error) {
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}

	if d < 0 {
		return 0, fmt.Errorf("%s: must be positive, is %s", key, d)
	}

	return d, nil
}

func (c *Config) parseDurations() error {
	var err error
	a := &c.Autorebase

	a.SearchSettleDelayDuration, err = parseDuration("autorebase.search_settle_delay", a.SearchSettleDelay)
	if err != nil {
		return err
	}

	a.MergeableStateRetry.InitialIntervalDuration, err = parseDuration(
		"autorebase.mergeable_state_retry.initial_interval",
		a.MergeableStateRetry.InitialInterval,
	)
	if err != nil {
		return err
	}

	a.MergeableStateRetry.MaxIntervalDuration, err = parseDuration(
		"autorebase.mergeable_state_retry.max_interval",
		a.MergeableStateRetry.MaxInterval,
	)
	if err != nil {
		return err
	}

	return nil
}

func (c *Config) validate() error {
	a := &c.Autorebase

	if a.MaxConcurrentEvents < 0 {
		return errors.New("autorebase.max_concurrent_events: must be positive")
	}

	if a.MergeableStateRetry.MaxAttempts < 0 {
		return errors.New("autorebase.mergeable_state_retry.max_attempts: must be positive")
	}

	if a.MergeableStateRetry.MaxIntervalDuration < a.MergeableStateRetry.InitialIntervalDuration {
		return errors.New("autorebase.mergeable_state_retry: max_interval must be greater or equal than initial_interval")
	}

	for i, r := range a.Repositories {
		if r.Owner == "" || r.RepositoryName == "" {
			return fmt.Errorf("autorebase.repository[%d]: owner and repository must be set", i)
		}
	}

	for i, h := range c.ActionHandlers {
		if h.Name == "" {
			return fmt.Errorf("action_handler[%d]: missing field: 'name'", i)
		}

		if len(h.Actions) == 0 {
			return fmt.Errorf("action_handler %s: missing array field: 'action'", h.Name)
		}
	}

	return nil
}
