package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Headers resolves per-domain HTTP request headers for the primary fetch
// tier. A default profile applies everywhere; domain profiles override it
// key by key. Hosts match exactly first, then by parent domain, so a profile
// for example.com also covers news.example.com.
type Headers struct {
	defaults map[string]string
	domains  map[string]map[string]string
}

type headersFile struct {
	Default map[string]string            `yaml:"default"`
	Domains map[string]map[string]string `yaml:"domains"`
}

// LoadHeaders reads a header-profiles YAML file. An empty path yields an
// empty profile set.
func LoadHeaders(path string) (Headers, error) {
	if path == "" {
		return Headers{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Headers{}, fmt.Errorf("read headers file: %w", err)
	}
	var parsed headersFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return Headers{}, fmt.Errorf("parse headers file %s: %w", path, err)
	}
	h := Headers{
		defaults: parsed.Default,
		domains:  make(map[string]map[string]string, len(parsed.Domains)),
	}
	for domain, profile := range parsed.Domains {
		h.domains[strings.ToLower(domain)] = profile
	}
	return h, nil
}

// ForURL returns the merged header set for a URL's host. Invalid URLs get the
// default profile only.
func (h Headers) ForURL(rawURL string) map[string]string {
	merged := make(map[string]string, len(h.defaults))
	for k, v := range h.defaults {
		merged[k] = v
	}
	host := hostOf(rawURL)
	if host == "" {
		return merged
	}
	if profile := h.lookup(host); profile != nil {
		for k, v := range profile {
			merged[k] = v
		}
	}
	return merged
}

func (h Headers) lookup(host string) map[string]string {
	if profile, ok := h.domains[host]; ok {
		return profile
	}
	// Walk up the domain: news.example.com -> example.com.
	parts := strings.Split(host, ".")
	for i := 1; i < len(parts)-1; i++ {
		if profile, ok := h.domains[strings.Join(parts[i:], ".")]; ok {
			return profile
		}
	}
	return nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
