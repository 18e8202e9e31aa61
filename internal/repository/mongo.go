package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bolingo/bolingo-backend/internal/model"
)

const usersCollection = "users"

// userDocument is the BSON shape of a user in MongoDB.
type userDocument struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name,omitempty"`
	Phone        string    `bson:"phone,omitempty"`
	Country      string    `bson:"country,omitempty"`
	Plan         string    `bson:"plan"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

func newUserDocument(u *model.User) userDocument {
	return userDocument{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Phone:        u.Phone,
		Country:      u.Country,
		Plan:         u.Plan,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func (d userDocument) user() *model.User {
	return &model.User{
		ID:           d.ID,
		Email:        d.Email,
		Name:         d.Name,
		Phone:        d.Phone,
		Country:      d.Country,
		Plan:         d.Plan,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

// NewMongoClient connects to MongoDB and verifies the connection.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}
	return client, nil
}

// MongoUserRepository handles user persistence operations on MongoDB.
type MongoUserRepository struct {
	users *mongo.Collection
}

// NewMongoUserRepository creates a MongoUserRepository and ensures the
// unique index on email exists.
func NewMongoUserRepository(ctx context.Context, db *mongo.Database) (*MongoUserRepository, error) {
	users := db.Collection(usersCollection)

	_, err := users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uq_users_email"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating email index: %w", err)
	}

	return &MongoUserRepository{users: users}, nil
}

// Create inserts a new user and sets the generated ID and creation time on the user struct.
func (r *MongoUserRepository) Create(ctx context.Context, user *model.User) error {
	doc := newUserDocument(user)
	doc.ID = uuid.NewString()
	// BSON dates carry millisecond precision.
	doc.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return err
	}

	user.ID = doc.ID
	user.CreatedAt = doc.CreatedAt
	return nil
}

// GetByEmail retrieves a user by their email address.
func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

// GetByID retrieves a user by their ID.
func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.D) (*model.User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return doc.user(), nil
}
