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

package cache

import (
	"github.com/go-strange/strange/pkg/log"
	"github.com/google/wire"
)

// ProviderSet provides the ICache used by the plugin stores.
var ProviderSet = wire.NewSet(ProvideICache)

// ProvideICache returns a Redis backed cache when Redis is enabled and a
// local fastcache otherwise. The cleanup closes the Redis client.
func ProvideICache(conf Redis) (ICache, func(), error) {
	if !conf.Enabled {
		log.Infow("redis disabled, using local cache")
		return NewFastCache(defaultLocalMaxBytes), func() {}, nil
	}
	client, err := NewRedis(conf)
	if err != nil {
		return nil, nil, err
	}
	return NewRedisCache(client, conf.KeyPrefix), func() { _ = client.Close() }, nil
}
