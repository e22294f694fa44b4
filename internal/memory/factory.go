package memory

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"

	"github.com/j0lvera/echobot/internal/db"
	"github.com/j0lvera/echobot/internal/memory/consts"
	gormmem "github.com/j0lvera/echobot/internal/memory/gorm"
	"github.com/j0lvera/echobot/internal/memory/inmemory"
	mongomem "github.com/j0lvera/echobot/internal/memory/mongo"
	"github.com/j0lvera/echobot/internal/memory/neo4j"
	"github.com/j0lvera/echobot/internal/memory/postgres"
	"github.com/j0lvera/echobot/internal/memory/redis"
)

type Type string

const (
	TypeInMemory  Type = "inmemory"
	TypeRedis     Type = "redis"
	TypePostgres  Type = "postgres"
	TypeSQLite    Type = "sqlite"
	TypeMySQL     Type = "mysql"
	TypeSQLServer Type = "sqlserver"
	TypeMongo     Type = "mongo"
	TypeNeo4j     Type = "neo4j"
)

// BackendConfig holds configuration for memory backends.
type BackendConfig struct {
	Type             Type
	ConnectionString string
	Username         string
	Password         string
	DBName           string
	// TTL is honoured by backends with native expiry (redis).
	TTL time.Duration
}

// NewBackend creates a memory backend based on the configuration.
func NewBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	switch cfg.Type {
	case TypeInMemory, "":
		return inmemory.New(), nil

	case TypeRedis:
		opts, err := goredis.ParseURL(cfg.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := goredis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return redis.New(client, cfg.TTL), nil

	case TypePostgres:
		client, err := db.Open(ctx, cfg.ConnectionString)
		if err != nil {
			return nil, err
		}
		return postgres.New(client), nil

	case TypeSQLite:
		return gormmem.Open(sqlite.Open(cfg.ConnectionString))

	case TypeMySQL:
		return gormmem.Open(mysql.Open(cfg.ConnectionString))

	case TypeSQLServer:
		return gormmem.Open(sqlserver.Open(cfg.ConnectionString))

	case TypeMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.ConnectionString))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("failed to ping mongo: %w", err)
		}
		dbName := consts.DefaultDBName
		if cfg.DBName != "" {
			dbName = cfg.DBName
		}
		return mongomem.New(client, dbName, consts.TableNameConversations), nil

	case TypeNeo4j:
		dbName := "neo4j" // default database of a Neo4j install
		if cfg.DBName != "" {
			dbName = cfg.DBName
		}
		return neo4j.New(ctx, cfg.ConnectionString, cfg.Username, cfg.Password, dbName)

	default:
		return nil, fmt.Errorf("unsupported memory type: %s", cfg.Type)
	}
}
