package conversation

import (
	"context"
	"fmt"

	"ghostwire/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository is the optional durable backend, grounded on the
// teacher's user.UserRepo: a single collection, bson.M filters,
// FindOne/InsertOne, generalized here to an upsert-on-append pattern
// since a conversation accumulates rather than being created once.
type MongoRepository struct {
	collection *mongo.Collection
}

// NewMongo constructs a MongoRepository backed by db's "conversations"
// collection.
func NewMongo(db *mongo.Database) *MongoRepository {
	return &MongoRepository{collection: db.Collection("conversations")}
}

func (r *MongoRepository) Append(ctx context.Context, selfPub, peerPub string, msg model.ChatMessage) error {
	filter := bson.M{"self_pub": selfPub, "peer_pub": peerPub}
	update := bson.M{
		"$push":        bson.M{"history": msg},
		"$setOnInsert": bson.M{"self_pub": selfPub, "peer_pub": peerPub},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("conversation: append: %w", err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, selfPub, peerPub string) (*model.Conversation, error) {
	filter := bson.M{"self_pub": selfPub, "peer_pub": peerPub}

	var conv model.Conversation
	err := r.collection.FindOne(ctx, filter).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return &model.Conversation{SelfPub: selfPub, PeerPub: peerPub}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: get: %w", err)
	}
	return &conv, nil
}

func (r *MongoRepository) ListPeers(ctx context.Context, selfPub string) ([]string, error) {
	cur, err := r.collection.Find(ctx, bson.M{"self_pub": selfPub})
	if err != nil {
		return nil, fmt.Errorf("conversation: list peers: %w", err)
	}
	defer cur.Close(ctx)

	var peers []string
	for cur.Next(ctx) {
		var conv model.Conversation
		if err := cur.Decode(&conv); err != nil {
			return nil, fmt.Errorf("conversation: list peers decode: %w", err)
		}
		peers = append(peers, conv.PeerPub)
	}
	return peers, cur.Err()
}
