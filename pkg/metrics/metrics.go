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

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-strange/strange/pkg/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Conf struct {
	Enable bool
	Host   string
	Port   int
	Path   string
}

// Server exposes the process registry over HTTP.
type Server struct {
	conf     Conf
	server   *http.Server
	registry *prometheus.Registry
}

// NewServer creates a registry with the runtime and plugin collectors.
func NewServer(conf Conf) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	Register(registry)
	if conf.Path == "" {
		conf.Path = "/metrics"
	}
	return &Server{conf: conf, registry: registry}
}

// Start serves the registry in the background; it is a no-op when disabled.
func (s *Server) Start() error {
	if !s.conf.Enable {
		log.Info("metrics server is disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(s.conf.Path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	addr := fmt.Sprintf("%s:%d", s.conf.Host, s.conf.Port)
	s.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Infow("metrics server started", "address", addr, "path", s.conf.Path)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("metrics server failed", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}
