package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/clipshare/apiserver/config"
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	defaultDBDriver     = "postgres"
	defaultPingTimeout  = 5 * time.Second
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultMaxOpenConns = 25

	connectTimeout         = 10 * time.Second
	serverSelectionTimeout = 10 * time.Second
	operationTimeout       = 20 * time.Second
	mongoMaxPoolSize       = 10
)

// PostgresDSN returns the connection string for cfg with connect and
// statement timeouts applied unless the caller already set them.
func PostgresDSN(cfg config.DatabaseConfig) (string, error) {
	var u *url.URL
	if cfg.URL != "" {
		parsed, err := url.Parse(cfg.URL)
		if err != nil {
			return "", fmt.Errorf("invalid database url: %w", err)
		}
		u = parsed
	} else {
		u = &url.URL{
			Scheme: "postgres",
			Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			User:   url.UserPassword(cfg.User, cfg.Password),
			Path:   cfg.DBName,
		}
	}

	q := u.Query()
	if q.Get("sslmode") == "" {
		sslmode := "disable"
		if cfg.UseSSL {
			sslmode = "require"
		}
		q.Set("sslmode", sslmode)
	}
	if q.Get("connect_timeout") == "" {
		q.Set("connect_timeout", strconv.Itoa(int(connectTimeout/time.Second)))
	}
	if q.Get("statement_timeout") == "" {
		q.Set("statement_timeout", strconv.FormatInt(operationTimeout.Milliseconds(), 10))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// OpenPostgres opens and pings a PostgreSQL connection pool.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn, err := PostgresDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(defaultDBDriver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetConnMaxIdleTime(defaultConnMaxIdle)
	db.SetConnMaxLifetime(defaultConnMaxLife)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetMaxOpenConns(defaultMaxOpenConns)

	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// OpenMongo connects to MongoDB and verifies the primary is reachable.
func OpenMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URL).
		SetMaxPoolSize(mongoMaxPoolSize).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(serverSelectionTimeout).
		SetTimeout(operationTimeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, serverSelectionTimeout)
	defer cancel()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return client, nil
}

// NewPostgresPool returns a lazily opened PostgreSQL pool.
func NewPostgresPool(cfg config.DatabaseConfig) *Pool[*sql.DB] {
	return NewPool(func(ctx context.Context) (*sql.DB, error) {
		return OpenPostgres(ctx, cfg)
	}, func(db *sql.DB) error {
		return db.Close()
	})
}

// NewMongoPool returns a lazily connected MongoDB client.
func NewMongoPool(cfg config.MongoConfig) *Pool[*mongo.Client] {
	return NewPool(func(ctx context.Context) (*mongo.Client, error) {
		return OpenMongo(ctx, cfg)
	}, func(client *mongo.Client) error {
		ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
		defer cancel()
		return client.Disconnect(ctx)
	})
}
