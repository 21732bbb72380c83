// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plugin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/go-strange/strange/pkg/log"
	"github.com/go-strange/strange/pkg/retry"
	"golang.org/x/sync/singleflight"
	"sigs.k8s.io/yaml"
)

// Source yields the registry descriptors in registry order.
type Source interface {
	Fetch(ctx context.Context) ([]Descriptor, error)
}

// RegistryClient reads the registry from a local file or an HTTP(S) URL.
// Every call reads the source again; concurrent calls share one read.
type RegistryClient struct {
	source   string
	client   *resty.Client
	attempts int
	backoff  retry.Backoff
	group    singleflight.Group
}

type RegistryOption func(*RegistryClient)

// WithFetchAttempts bounds remote fetch attempts.
func WithFetchAttempts(n int) RegistryOption {
	return func(c *RegistryClient) {
		if n > 0 {
			c.attempts = n
		}
	}
}

func WithFetchBackoff(b retry.Backoff) RegistryOption {
	return func(c *RegistryClient) {
		c.backoff = b
	}
}

func WithHTTPClient(client *resty.Client) RegistryOption {
	return func(c *RegistryClient) {
		c.client = client
	}
}

func NewRegistryClient(source string, opts ...RegistryOption) *RegistryClient {
	c := &RegistryClient{
		source:   source,
		client:   resty.New().SetTimeout(15 * time.Second),
		attempts: 3,
		backoff:  retry.Exponential(500*time.Millisecond, 4*time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RegistryClient) Source() string {
	return c.source
}

// Fetch returns the parsed registry.
func (c *RegistryClient) Fetch(ctx context.Context) ([]Descriptor, error) {
	v, err, _ := c.group.Do(c.source, func() (any, error) {
		if IsURL(c.source) {
			return c.fetchRemote(ctx)
		}
		return c.readLocal()
	})
	if err != nil {
		return nil, err
	}
	descs := v.([]Descriptor)
	// shared result, copy before handing out
	out := make([]Descriptor, len(descs))
	copy(out, descs)
	return out, nil
}

func (c *RegistryClient) readLocal() ([]Descriptor, error) {
	data, err := os.ReadFile(c.source)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", c.source, err)
	}
	ext := strings.ToLower(filepath.Ext(c.source))
	return ParseRegistry(data, ext == ".yaml" || ext == ".yml")
}

func (c *RegistryClient) fetchRemote(ctx context.Context) ([]Descriptor, error) {
	var body []byte
	err := retry.Do(ctx, func(ctx context.Context) error {
		resp, err := c.client.R().SetContext(ctx).Get(c.source)
		if err != nil {
			return err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("registry %s: status %d", c.source, resp.StatusCode())
		}
		if resp.IsError() {
			return retry.Permanent(fmt.Errorf("registry %s: status %d", c.source, resp.StatusCode()))
		}
		body = resp.Body()
		return nil
	},
		retry.WithMaxAttempts(c.attempts),
		retry.WithBackoff(c.backoff),
		retry.WithNotify(func(attempt int, err error, wait time.Duration) {
			log.Warnw("registry fetch failed, retrying", "source", c.source, "attempt", attempt, "wait", wait, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch registry: %w", err)
	}
	return ParseRegistry(body, false)
}

// ParseRegistry decodes a JSON array of descriptors, or YAML when isYAML is
// set. Invalid entries and duplicate names fail the whole document.
func ParseRegistry(data []byte, isYAML bool) ([]Descriptor, error) {
	if isYAML {
		j, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parse registry yaml: %w", err)
		}
		data = j
	}

	var descs []Descriptor
	if err := sonic.Unmarshal(data, &descs); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	seen := make(map[string]struct{}, len(descs))
	for _, d := range descs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("duplicate registry entry: %s", d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return descs, nil
}

// IsURL reports whether s parses as an absolute http or https URL.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Find returns the descriptor named name.
func Find(descs []Descriptor, name string) (Descriptor, bool) {
	for _, d := range descs {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}
