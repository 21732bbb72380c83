package database

import (
	"context"
	"time"

	"github.com/go-strange/strange/pkg/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	Uri         string   `mapstructure:"uri"`
	DB          string   `mapstructure:"db"`
	Compressors []string `mapstructure:"compressors"`
	PoolSize    uint64   `mapstructure:"poolSize"`
}

// MongoClient wraps the client and its default database.
type MongoClient struct {
	Client *mongo.Client
	DB     *mongo.Database
}

func NewMongoDB(ctx context.Context, cfg MongoDB) (*MongoClient, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	clientOption := options.Client().ApplyURI(cfg.Uri)
	if len(cfg.Compressors) > 0 {
		clientOption.SetCompressors(cfg.Compressors)
	}
	if cfg.PoolSize > 0 {
		clientOption.SetMaxPoolSize(cfg.PoolSize)
	}
	client, err := mongo.Connect(ctx, clientOption)
	if err != nil {
		return nil, err
	}

	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Infow("mongodb connected", "db", cfg.DB)
	return &MongoClient{
		Client: client,
		DB:     client.Database(cfg.DB),
	}, nil
}

// GetCollection returns a collection of the default database.
func (mc *MongoClient) GetCollection(name string) *mongo.Collection {
	return mc.DB.Collection(name)
}

func (mc *MongoClient) Close(ctx context.Context) error {
	return mc.Client.Disconnect(ctx)
}
