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
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PluginConfig is one row of t_plugin_config.
type PluginConfig struct {
	Plugin string `gorm:"column:plugin;primaryKey;size:128"`
	Data   string `gorm:"column:data;type:text"`
}

// TenantSettings is one row of t_tenant_settings.
type TenantSettings struct {
	Tenant string `gorm:"column:tenant;primaryKey;size:64"`
	Data   string `gorm:"column:data;type:text"`
}

// Gorm stores both documents as JSON text columns.
type Gorm struct {
	db *gorm.DB
}

// NewGorm migrates the two tables.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&PluginConfig{}, &TenantSettings{}); err != nil {
		return nil, fmt.Errorf("migrate plugin tables: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) LoadConfig(ctx context.Context, plugin string) (ConfigData, error) {
	var row PluginConfig
	err := g.db.WithContext(ctx).Where("plugin = ?", plugin).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ConfigData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", plugin, err)
	}
	data := ConfigData{}
	if row.Data != "" {
		if err := sonic.UnmarshalString(row.Data, &data); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", plugin, err)
		}
	}
	return data, nil
}

func (g *Gorm) SaveConfig(ctx context.Context, plugin string, data ConfigData) error {
	raw, err := sonic.MarshalString(data)
	if err != nil {
		return err
	}
	return g.upsert(ctx, &PluginConfig{Plugin: plugin, Data: raw})
}

func (g *Gorm) LoadSettings(ctx context.Context, tenant string) (Settings, error) {
	var row TenantSettings
	err := g.db.WithContext(ctx).Where("tenant = ?", tenant).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings %s: %w", tenant, err)
	}
	var s Settings
	if row.Data != "" {
		if err := sonic.UnmarshalString(row.Data, &s); err != nil {
			return Settings{}, fmt.Errorf("decode settings %s: %w", tenant, err)
		}
	}
	return s, nil
}

func (g *Gorm) SaveSettings(ctx context.Context, tenant string, s Settings) error {
	raw, err := sonic.MarshalString(s)
	if err != nil {
		return err
	}
	return g.upsert(ctx, &TenantSettings{Tenant: tenant, Data: raw})
}

func (g *Gorm) upsert(ctx context.Context, row any) error {
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
}
