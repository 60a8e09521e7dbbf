package mongo

import (
	"context"
	"time"

	"github.com/interpretd/speechrelay/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// bufferTTL mirrors the TTL index on expires_at; documents vanish
// server-side shortly after.
const bufferTTL = 10 * time.Minute

type TranscriptBufferRepo interface {
	InsertChunk(ctx context.Context, c *models.TranscriptChunk) error
	ReplaceChunks(ctx context.Context, eventID string, replacedIDs []string, enhanced *models.TranscriptChunk) error
	SetTranslation(ctx context.Context, eventID, chunkID, lang, text string) error
	ListByEvent(ctx context.Context, eventID string, limit int64) ([]models.TranscriptChunk, error)
	DeleteByEvent(ctx context.Context, eventID string) error
}

type transcriptBufferRepo struct {
	col *mongo.Collection
}

func NewTranscriptBufferRepo(db *mongo.Database) TranscriptBufferRepo {
	return &transcriptBufferRepo{col: db.Collection("transcript_chunks")}
}

func (r *transcriptBufferRepo) InsertChunk(ctx context.Context, c *models.TranscriptChunk) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = c.Timestamp.Add(bufferTTL)
	}
	_, err := r.col.InsertOne(ctx, c)
	return err
}

// ReplaceChunks removes the chunks an enhanced result supersedes and
// inserts the replacement in their place.
func (r *transcriptBufferRepo) ReplaceChunks(ctx context.Context, eventID string, replacedIDs []string, enhanced *models.TranscriptChunk) error {
	if len(replacedIDs) > 0 {
		if _, err := r.col.DeleteMany(ctx, bson.M{
			"event_id": eventID,
			"chunk_id": bson.M{"$in": replacedIDs},
		}); err != nil {
			return err
		}
	}
	return r.InsertChunk(ctx, enhanced)
}

func (r *transcriptBufferRepo) SetTranslation(ctx context.Context, eventID, chunkID, lang, text string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"event_id": eventID, "chunk_id": chunkID},
		bson.M{"$set": bson.M{"translations." + lang: text}},
	)
	return err
}

func (r *transcriptBufferRepo) ListByEvent(ctx context.Context, eventID string, limit int64) ([]models.TranscriptChunk, error) {
	if limit <= 0 {
		limit = 200
	}

	cur, err := r.col.Find(ctx,
		bson.M{"event_id": eventID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TranscriptChunk
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *transcriptBufferRepo) DeleteByEvent(ctx context.Context, eventID string) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"event_id": eventID})
	return err
}
