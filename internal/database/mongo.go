package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codegate/entity"
	"codegate/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionCodes        = "codes"
	collectionAllowedUsers = "allowed_users"
)

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
	return client
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	_ = connection.Disconnect(m.ctx)
}

func (m *MongoDB) SaveCode(code *entity.Code) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{Key: "code", Value: code.Code}}
	update := bson.D{{Key: "$set", Value: code}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(m.ctx, filter, update, opts)
	return err
}

func (m *MongoDB) GetCode(value string) (*entity.Code, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{Key: "code", Value: value}}
	var code entity.Code
	err = collection.FindOne(m.ctx, filter).Decode(&code)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return &code, nil
}

func (m *MongoDB) GetCodes() ([]*entity.Code, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	opts := options.Find().SetSort(bson.D{{Key: "added_at", Value: 1}})
	cursor, err := collection.Find(m.ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var codes []*entity.Code
	err = cursor.All(m.ctx, &codes)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (m *MongoDB) MarkCodeUsed(value string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{Key: "code", Value: value}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "used", Value: true}}}}
	_, err = collection.UpdateOne(m.ctx, filter, update)
	return err
}

func (m *MongoDB) DeleteCode(value string) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{Key: "code", Value: value}}
	result, err := collection.DeleteOne(m.ctx, filter)
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (m *MongoDB) DeleteCodesAddedBefore(cutoff time.Time) (int64, error) {
	connection, err := m.connect()
	if err != nil {
		return 0, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCodes)
	filter := bson.D{{Key: "added_at", Value: bson.D{{Key: "$lt", Value: cutoff}}}}
	result, err := collection.DeleteMany(m.ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (m *MongoDB) GetAllowedUsers() ([]*entity.AllowedUser, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAllowedUsers)
	opts := options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}})
	cursor, err := collection.Find(m.ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(m.ctx)

	var users []*entity.AllowedUser
	err = cursor.All(m.ctx, &users)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// SaveAllowedUser is an idempotent insert: re-granting a member keeps the
// original granted_at.
func (m *MongoDB) SaveAllowedUser(user *entity.AllowedUser) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAllowedUsers)
	filter := bson.D{{Key: "user_id", Value: user.UserId}}
	update := bson.D{{Key: "$setOnInsert", Value: user}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(m.ctx, filter, update, opts)
	return err
}

func (m *MongoDB) DeleteAllowedUser(userId int64) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAllowedUsers)
	filter := bson.D{{Key: "user_id", Value: userId}}
	result, err := collection.DeleteOne(m.ctx, filter)
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (m *MongoDB) IsAllowedUser(userId int64) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionAllowedUsers)
	filter := bson.D{{Key: "user_id", Value: userId}}
	var user entity.AllowedUser
	err = collection.FindOne(m.ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mongodb find: %w", err)
	}
	return true, nil
}
