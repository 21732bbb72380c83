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
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "strange"

var (
	// PluginLifecycleTotal counts lifecycle actions by outcome.
	PluginLifecycleTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plugin_lifecycle_total",
			Help:      "Plugin lifecycle actions by action, plugin and result",
		},
		[]string{"action", "plugin", "result"},
	)

	// PluginInstallDurationSeconds measures install and update runs.
	PluginInstallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plugin_install_duration_seconds",
			Help:      "Duration of plugin installs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"plugin"},
	)

	// PluginsEnabled is the number of globally enabled plugins.
	PluginsEnabled = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plugins_enabled",
			Help:      "Number of globally enabled plugins",
		},
	)

	// EventDispatchTotal counts per-plugin handler runs.
	EventDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_dispatch_total",
			Help:      "Event handler invocations by event and result",
		},
		[]string{"event", "result"},
	)

	// EventDispatchDurationSeconds measures a full dispatch of one event.
	EventDispatchDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_dispatch_duration_seconds",
			Help:      "Duration of event dispatch across all plugins",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"event"},
	)

	// IPCMessagesTotal counts IPC messages by direction and result.
	IPCMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ipc_messages_total",
			Help:      "IPC messages by direction, event and result",
		},
		[]string{"direction", "event", "result"},
	)

	// IPCClients is the number of shard connections held by the server.
	IPCClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ipc_clients",
			Help:      "Connected IPC clients",
		},
	)

	// RegistrationQueueDepth is the number of tenants waiting for registration.
	RegistrationQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registration_queue_depth",
			Help:      "Tenants waiting for command registration",
		},
	)

	// RegistrationsTotal counts drained registration requests by result.
	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Command registrations by result",
		},
		[]string{"result"},
	)

	registerOnce sync.Once
)

// Register adds every plugin collector to registry once per process.
func Register(registry prometheus.Registerer) {
	registerOnce.Do(func() {
		registry.MustRegister(
			PluginLifecycleTotal,
			PluginInstallDurationSeconds,
			PluginsEnabled,
			EventDispatchTotal,
			EventDispatchDurationSeconds,
			IPCMessagesTotal,
			IPCClients,
			RegistrationQueueDepth,
			RegistrationsTotal,
		)
	})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordLifecycle records one lifecycle action.
func RecordLifecycle(action, plugin string, err error) {
	PluginLifecycleTotal.WithLabelValues(action, plugin, result(err)).Inc()
}

func RecordInstall(plugin string, d time.Duration) {
	PluginInstallDurationSeconds.WithLabelValues(plugin).Observe(d.Seconds())
}

func RecordDispatch(event string, ok, failed int, d time.Duration) {
	EventDispatchTotal.WithLabelValues(event, "ok").Add(float64(ok))
	EventDispatchTotal.WithLabelValues(event, "error").Add(float64(failed))
	EventDispatchDurationSeconds.WithLabelValues(event).Observe(d.Seconds())
}

func RecordIPC(direction, event string, err error) {
	IPCMessagesTotal.WithLabelValues(direction, event, result(err)).Inc()
}

func RecordRegistration(result string) {
	RegistrationsTotal.WithLabelValues(result).Inc()
}
