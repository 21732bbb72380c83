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
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/go-strange/strange/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	configCollection   = "configs"
	settingsCollection = "settings"
)

type configDoc struct {
	Plugin string         `bson:"_id"`
	Data   map[string]any `bson:"data"`
}

type settingsDoc struct {
	Tenant   string `bson:"_id"`
	Settings `bson:",inline"`
}

// Mongo keeps one document per plugin in "configs" and one per tenant in
// "settings".
type Mongo struct {
	configs  *mongo.Collection
	settings *mongo.Collection
}

func NewMongo(client *database.MongoClient) *Mongo {
	return &Mongo{
		configs:  client.GetCollection(configCollection),
		settings: client.GetCollection(settingsCollection),
	}
}

func (m *Mongo) LoadConfig(ctx context.Context, plugin string) (ConfigData, error) {
	var doc configDoc
	err := m.configs.FindOne(ctx, bson.M{"_id": plugin}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ConfigData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", plugin, err)
	}
	return normalize(doc.Data)
}

func (m *Mongo) SaveConfig(ctx context.Context, plugin string, data ConfigData) error {
	_, err := m.configs.ReplaceOne(ctx,
		bson.M{"_id": plugin},
		configDoc{Plugin: plugin, Data: data},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save config %s: %w", plugin, err)
	}
	return nil
}

func (m *Mongo) LoadSettings(ctx context.Context, tenant string) (Settings, error) {
	var doc settingsDoc
	err := m.settings.FindOne(ctx, bson.M{"_id": tenant}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings %s: %w", tenant, err)
	}
	return doc.Settings, nil
}

func (m *Mongo) SaveSettings(ctx context.Context, tenant string, s Settings) error {
	_, err := m.settings.ReplaceOne(ctx,
		bson.M{"_id": tenant},
		settingsDoc{Tenant: tenant, Settings: s},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save settings %s: %w", tenant, err)
	}
	return nil
}

// normalize turns bson decoded values (primitive.A, primitive.D) into plain
// JSON shapes so callers see the same types from every backend.
func normalize(in map[string]any) (ConfigData, error) {
	if in == nil {
		return ConfigData{}, nil
	}
	raw, err := sonic.Marshal(in)
	if err != nil {
		return nil, err
	}
	out := ConfigData{}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
