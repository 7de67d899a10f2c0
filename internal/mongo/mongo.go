package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type CollectionName string

const (
	CollectionNameUsers         CollectionName = "users"
	CollectionNamePages         CollectionName = "pages"
	CollectionNameNotifications CollectionName = "notifications"
	CollectionNameSessions      CollectionName = "sessions"
)

type Instance interface {
	Collection(CollectionName) *mongo.Collection
	RawClient() *mongo.Client
	RawDatabase() *mongo.Database
	Ping(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

type SetupOptions struct {
	URI      string
	Username string
	Password string
	DB       string
	Direct   bool
}

type inst struct {
	client *mongo.Client
	db     *mongo.Database
}

func Setup(ctx context.Context, opt SetupOptions) (Instance, error) {
	clientOpt := options.Client().ApplyURI(opt.URI).SetDirect(opt.Direct)
	if opt.Username != "" || opt.Password != "" {
		clientOpt = clientOpt.SetAuth(options.Credential{
			Username: opt.Username,
			Password: opt.Password,
		})
	}

	client, err := mongo.Connect(ctx, clientOpt)
	if err != nil {
		return nil, err
	}

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}

	zap.S().Infow("mongo connected",
		"db", opt.DB,
	)

	return &inst{
		client: client,
		db:     client.Database(opt.DB),
	}, nil
}

func (i *inst) Collection(name CollectionName) *mongo.Collection {
	return i.db.Collection(string(name))
}

func (i *inst) RawClient() *mongo.Client {
	return i.client
}

func (i *inst) RawDatabase() *mongo.Database {
	return i.db
}

func (i *inst) Ping(ctx context.Context) error {
	return i.client.Ping(ctx, readpref.Primary())
}

func (i *inst) Disconnect(ctx context.Context) error {
	return i.client.Disconnect(ctx)
}
