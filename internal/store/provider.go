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

package store

import (
	"context"
	"time"

	"github.com/go-strange/strange/pkg/cache"
	"github.com/go-strange/strange/pkg/database"
	"github.com/go-strange/strange/pkg/log"
	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(
	ProvideBackend,
	wire.Bind(new(ConfigStore), new(Backend)),
	wire.Bind(new(SettingsStore), new(Backend)),
)

// ProvideBackend opens the configured database and puts the cache in front
// of it. The memory driver is never cached.
func ProvideBackend(conf database.Database, c cache.ICache) (Backend, func(), error) {
	switch conf.Driver {
	case database.DriverMongo:
		client, err := database.NewMongoDB(context.Background(), conf.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Close(ctx); err != nil {
				log.Warnw("failed to close mongodb", "error", err)
			}
		}
		return NewCached(NewMongo(client), c, defaultCacheTTL), cleanup, nil
	case database.DriverMySQL:
		db, err := database.NewMySQL(conf.MySQL)
		if err != nil {
			return nil, nil, err
		}
		g, err := NewGorm(db)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return NewCached(g, c, defaultCacheTTL), cleanup, nil
	default:
		log.Infow("using in-memory plugin store")
		return NewMemory(), func() {}, nil
	}
}
