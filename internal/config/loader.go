package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".phpbbdump"

// LoadConfigFile loads host configurations from a YAML file. If the
// file does not exist it returns ErrConfigNotFound; callers decide
// whether that matters based on whether the path was explicit.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	if cf.Hosts == nil {
		cf.Hosts = make(map[string]HostConfig)
	}
	return &cf, nil
}

// FindConfigFile locates the configuration file: the explicit path if
// given, then .phpbbdump in the current directory, then in the home
// directory. Returns empty when none exists.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// ApplyHostConfig overlays the merged host entry from the configuration
// file onto the Config. Flag values win: only unset Config fields are
// filled in.
func (c *Config) ApplyHostConfig(hc HostConfig) {
	if c.Cookie == "" {
		c.Cookie = hc.Cookie
	}
	if c.UserAgent == "" {
		c.UserAgent = hc.UserAgent
	}
	if hc.Charset != "" && c.Charset == DefaultCharset {
		c.Charset = hc.Charset
	}
	for k, v := range hc.Headers {
		if _, ok := c.Headers[k]; !ok {
			c.Headers[k] = v
		}
	}
	for id, pw := range hc.ForumPasswords {
		if _, ok := c.ForumPasswords[id]; !ok {
			c.ForumPasswords[id] = pw
		}
	}
	for id, pw := range hc.TopicPasswords {
		if _, ok := c.TopicPasswords[id]; !ok {
			c.TopicPasswords[id] = pw
		}
	}
}
