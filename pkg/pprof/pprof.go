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

// Package pprof serves the runtime profiles on a separate listener so the
// admin API and the IPC port never expose them.
package pprof

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/go-strange/strange/pkg/log"
)

const defaultPrefix = "/debug/pprof"

type Conf struct {
	Enable bool
	Host   string
	Port   int
	Prefix string
}

type Server struct {
	conf   Conf
	server *http.Server
	addr   string
}

func NewServer(conf Conf) *Server {
	conf.Prefix = strings.TrimRight(conf.Prefix, "/")
	if conf.Prefix == "" {
		conf.Prefix = defaultPrefix
	}
	return &Server{conf: conf}
}

// Handler routes the profiles under the configured prefix.
func (s *Server) Handler() http.Handler {
	p := s.conf.Prefix
	mux := http.NewServeMux()
	mux.HandleFunc(p+"/", pprof.Index)
	mux.HandleFunc(p+"/cmdline", pprof.Cmdline)
	mux.HandleFunc(p+"/profile", pprof.Profile)
	mux.HandleFunc(p+"/symbol", pprof.Symbol)
	mux.HandleFunc(p+"/trace", pprof.Trace)
	return mux
}

// Start listens in the background; it is a no-op when disabled.
func (s *Server) Start() error {
	if !s.conf.Enable {
		log.Debugw("pprof server is disabled")
		return nil
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.conf.Host, s.conf.Port))
	if err != nil {
		return fmt.Errorf("listen pprof: %w", err)
	}
	s.addr = ln.Addr().String()
	s.server = &http.Server{Handler: s.Handler()}

	go func() {
		log.Infow("pprof server started", "address", s.addr, "prefix", s.conf.Prefix)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("pprof server failed", "error", err)
		}
	}()
	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
