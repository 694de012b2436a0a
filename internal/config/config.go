package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/lc/podcfg/internal/dialect"
	"github.com/lc/podcfg/internal/filesys"
	"github.com/lc/podcfg/internal/jid"
	"github.com/lc/podcfg/internal/secret"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoConfig is returned when the configuration file is not found.
	ErrNoConfig = errors.New("configuration file not found")
)

const (
	// DefaultPath is where podcfgd looks for its configuration.
	DefaultPath = "/etc/podcfg/config.yaml"
	// DefaultSocketPath is the control socket.
	DefaultSocketPath = "/var/run/podcfgd.socket"
	// DefaultProsodyConfigPath is the file podcfgd owns and rewrites.
	DefaultProsodyConfigPath = "/etc/prosody/prosody.cfg.lua"
	// DefaultProsodyProcess is the executable name looked up before reloading.
	DefaultProsodyProcess = "prosody"
	// DefaultSettingsPath is where the pod settings overrides are stored.
	DefaultSettingsPath = "/var/lib/podcfg/settings.yaml"
)

// DefaultReloadCommand asks a running Prosody to re-read its configuration.
var DefaultReloadCommand = []string{"prosodyctl", "reload"}

// Config is the daemon configuration.
type Config struct {
	Socket   SocketConfig   `yaml:"socket"`
	Prosody  ProsodyConfig  `yaml:"prosody"`
	Settings SettingsConfig `yaml:"settings"`
	Pod      PodConfig      `yaml:"pod"`
}

// SocketConfig holds socket-related configuration.
type SocketConfig struct {
	Path string `yaml:"path"`
}

// ProsodyConfig tells podcfgd where the server configuration lives and how
// to make the server pick it up.
type ProsodyConfig struct {
	ConfigPath    string   `yaml:"config_path"`
	ProcessName   string   `yaml:"process_name"`
	ReloadCommand []string `yaml:"reload_command"`
}

// SettingsConfig locates the stored settings overrides.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

// PodConfig is the deployment-specific part of the server configuration
// that is not a pod setting.
type PodConfig struct {
	Admins     []string          `yaml:"admins"`
	Components []ComponentConfig `yaml:"components"`
}

// ComponentConfig is an external component mounted under the pod domain.
type ComponentConfig struct {
	Subdomain string        `yaml:"subdomain"`
	Plugin    string        `yaml:"plugin"`
	Name      string        `yaml:"name"`
	Secret    secret.String `yaml:"secret"`
}

// Provider loads configuration.
type Provider interface {
	Load() (*Config, error)
}

// FSProvider loads configuration from a YAML file.
type FSProvider struct {
	fs   filesys.ReadWriteFS
	path string
}

var _ Provider = (*FSProvider)(nil)

// New returns a provider reading DefaultPath from the local disk.
func New() Provider {
	return NewWithPath(filesys.OS(), DefaultPath)
}

// NewWithPath returns a provider reading path through fs.
func NewWithPath(fs filesys.ReadWriteFS, path string) Provider {
	return &FSProvider{fs: fs, path: path}
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Socket: SocketConfig{Path: DefaultSocketPath},
		Prosody: ProsodyConfig{
			ConfigPath:    DefaultProsodyConfigPath,
			ProcessName:   DefaultProsodyProcess,
			ReloadCommand: append([]string(nil), DefaultReloadCommand...),
		},
		Settings: SettingsConfig{Path: DefaultSettingsPath},
	}
}

// Load reads the file over Default, so keys the file leaves out keep their
// default value. A missing file yields Default.
func (p *FSProvider) Load() (*Config, error) {
	cfg, err := p.loadAndParse()
	if err != nil {
		if errors.Is(err, ErrNoConfig) {
			return Default(), nil
		}
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Validate reports every problem in the configuration.
func (c *Config) Validate() error {
	var errs error
	if strings.TrimSpace(c.Socket.Path) == "" {
		errs = multierr.Append(errs, errors.New("socket path cannot be empty"))
	}
	if strings.TrimSpace(c.Prosody.ConfigPath) == "" {
		errs = multierr.Append(errs, errors.New("prosody config path cannot be empty"))
	}
	if len(c.Prosody.ReloadCommand) == 0 || strings.TrimSpace(c.Prosody.ReloadCommand[0]) == "" {
		errs = multierr.Append(errs, errors.New("prosody reload command cannot be empty"))
	}
	if strings.TrimSpace(c.Settings.Path) == "" {
		errs = multierr.Append(errs, errors.New("settings path cannot be empty"))
	}
	if filepath.Clean(c.Settings.Path) == filepath.Clean(c.Prosody.ConfigPath) {
		errs = multierr.Append(errs, errors.New("settings path and prosody config path must differ"))
	}
	for _, a := range c.Pod.Admins {
		if _, err := jid.Parse(a); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("admin: %w", err))
		}
	}

	seen := make(map[string]struct{}, len(c.Pod.Components))
	for i, comp := range c.Pod.Components {
		if !validLabel(comp.Subdomain) {
			errs = multierr.Append(errs, fmt.Errorf("component %d: invalid subdomain %q", i, comp.Subdomain))
			continue
		}
		if strings.EqualFold(comp.Subdomain, dialect.UploadSubdomain) {
			errs = multierr.Append(errs, fmt.Errorf("component %d: subdomain %q is reserved for file upload", i, comp.Subdomain))
			continue
		}
		if _, dup := seen[comp.Subdomain]; dup {
			errs = multierr.Append(errs, fmt.Errorf("component %d: duplicate subdomain %q", i, comp.Subdomain))
		}
		seen[comp.Subdomain] = struct{}{}
	}
	return errs
}

// validLabel checks the subdomain on its own; the full name is checked
// again once the pod domain is known.
func validLabel(label string) bool {
	if label == "" || strings.Contains(label, ".") {
		return false
	}
	_, err := jid.ParseDomain(label + ".invalid")
	return err == nil
}

// StaticSections converts the pod section into emitter input for domain.
// Components are mounted at <subdomain>.<domain>.
func (p PodConfig) StaticSections(domain jid.Domain) (dialect.Static, error) {
	var st dialect.Static
	for _, a := range p.Admins {
		j, err := jid.Parse(a)
		if err != nil {
			return dialect.Static{}, fmt.Errorf("admin: %w", err)
		}
		st.Admins = append(st.Admins, j)
	}
	for _, c := range p.Components {
		d, err := domain.Sub(c.Subdomain)
		if err != nil {
			return dialect.Static{}, fmt.Errorf("component %q: %w", c.Subdomain, err)
		}
		st.Components = append(st.Components, dialect.Component{
			Domain: d,
			Plugin: c.Plugin,
			Name:   c.Name,
			Secret: c.Secret,
		})
	}
	return st, nil
}

// Wipe zeroes every component secret. The config must not be rendered afterwards.
func (p PodConfig) Wipe() {
	for _, c := range p.Components {
		c.Secret.Wipe()
	}
}

func (p *FSProvider) loadAndParse() (*Config, error) {
	f, err := p.fs.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	cfg := Default()
	// An empty file is a valid, all-default configuration.
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding config file: %w", err)
	}
	return cfg, nil
}
