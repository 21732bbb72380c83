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

package database

import (
	"fmt"
	"time"
)

const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"
	DriverMySQL  = "mysql"
)

// Database selects and configures the persistence backend of the plugin stores.
type Database struct {
	Driver  string      `mapstructure:"driver"`
	MongoDB MongoDB     `mapstructure:"mongodb"`
	MySQL   MySQLConfig `mapstructure:"mysql"`
}

// MySQLConfig holds the gorm/mysql data source and pool settings.
type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	OutPut       bool   `mapstructure:"output"`
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
	MaxIdleConns int    `mapstructure:"maxIdleConns"`
	MaxLifetime  int    `mapstructure:"maxLifeTime"`
	MaxIdleTime  int    `mapstructure:"maxIdleTime"`
}

// Validate checks that the selected driver has the settings it needs.
func (d Database) Validate() error {
	switch d.Driver {
	case "", DriverMemory:
		return nil
	case DriverMongo:
		if d.MongoDB.Uri == "" || d.MongoDB.DB == "" {
			return fmt.Errorf("mongodb uri and db are required")
		}
		return nil
	case DriverMySQL:
		if d.MySQL.Host == "" || d.MySQL.User == "" || d.MySQL.DBName == "" {
			return fmt.Errorf("mysql host, user and dbname are required")
		}
		return nil
	default:
		return fmt.Errorf("unsupported database driver: %s", d.Driver)
	}
}

func connMaxLifetime(seconds int) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 300 * time.Second
}

func connMaxIdleTime(seconds int) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 60 * time.Second
}

func buildMySQLDSN(c MySQLConfig) string {
	port := c.Port
	if port == "" {
		port = "3306"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, port, c.DBName)
}
