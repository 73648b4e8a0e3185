package config

// HostConfig holds per-host settings from the configuration file:
// request headers and the passwords unlocking protected forums and
// topics.
type HostConfig struct {
	// Cookie is sent verbatim as the Cookie request header.
	Cookie string `yaml:"cookie,omitempty"`

	// UserAgent overrides the User-Agent request header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Charset is assumed for responses without a declared charset.
	Charset string `yaml:"charset,omitempty"`

	// Headers are extra request headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// ForumPasswords maps forum id to the password unlocking it.
	ForumPasswords map[int]string `yaml:"forumPasswords,omitempty"`

	// TopicPasswords maps topic id to the password unlocking it.
	TopicPasswords map[int]string `yaml:"topicPasswords,omitempty"`
}

// File is the structure of the .phpbbdump configuration file.
type File struct {
	// Hosts maps a forum host (e.g. "board.example.net") to its
	// settings.
	Hosts map[string]HostConfig `yaml:"hosts,omitempty"`

	// Defaults applies to every host unless overridden.
	Defaults HostConfig `yaml:"defaults,omitempty"`
}

// HostConfig returns the merged configuration for one host: defaults
// overlaid with the host-specific entry.
func (cf *File) HostConfig(host string) HostConfig {
	result := cf.Defaults

	hc, ok := cf.Hosts[host]
	if !ok {
		return result
	}
	if hc.Cookie != "" {
		result.Cookie = hc.Cookie
	}
	if hc.UserAgent != "" {
		result.UserAgent = hc.UserAgent
	}
	if hc.Charset != "" {
		result.Charset = hc.Charset
	}
	if len(hc.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range hc.Headers {
			result.Headers[k] = v
		}
	}
	if len(hc.ForumPasswords) > 0 {
		if result.ForumPasswords == nil {
			result.ForumPasswords = make(map[int]string)
		}
		for id, pw := range hc.ForumPasswords {
			result.ForumPasswords[id] = pw
		}
	}
	if len(hc.TopicPasswords) > 0 {
		if result.TopicPasswords == nil {
			result.TopicPasswords = make(map[int]string)
		}
		for id, pw := range hc.TopicPasswords {
			result.TopicPasswords[id] = pw
		}
	}
	return result
}
