package vector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"
)

const payloadUserID = "user_id"

// QdrantIndex stores vectors in a Qdrant collection over gRPC. Point ids are the note UUIDs.
type QdrantIndex struct {
	client *qdrant.Client
	config Config
}

// NewQdrantIndex connects to Qdrant.
func NewQdrantIndex(cfg Config) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		APIKey: cfg.QdrantAPIKey,
		UseTLS: cfg.QdrantUseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &QdrantIndex{client: client, config: cfg}, nil
}

func (q *QdrantIndex) EnsureCollection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, q.config.timeout())
	defer cancel()

	exists, err := q.client.CollectionExists(ctx, q.config.Collection)
	if err != nil {
		return indexError(ctx, "failed to check collection", err)
	}

	if exists {
		info, err := q.client.GetCollectionInfo(ctx, q.config.Collection)
		if err != nil {
			return indexError(ctx, "failed to get collection info", err)
		}
		if size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize(); size != 0 && size != uint64(q.config.Dimensions) {
			return indexError(ctx, "collection dimension mismatch",
				fmt.Errorf("collection %s has dimension %d, expected %d", q.config.Collection, size, q.config.Dimensions))
		}
	} else {
		slog.Info("creating vector collection", "collection", q.config.Collection, "dimensions", q.config.Dimensions)
		err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: q.config.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(q.config.Dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return indexError(ctx, "failed to create collection", err)
		}
	}

	// Creating an existing payload index is a no-op in Qdrant.
	_, err = q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: q.config.Collection,
		FieldName:      payloadUserID,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return indexError(ctx, "failed to create user_id payload index", err)
	}
	return nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, id, userID string, vector []float32) error {
	if err := checkDimensions(vector, q.config.Dimensions); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, q.config.timeout())
	defer cancel()

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.config.Collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{payloadUserID: userID}),
			},
		},
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return indexError(ctx, "failed to upsert vector", err)
	}
	return nil
}

func (q *QdrantIndex) Search(ctx context.Context, userID string, vector []float32, limit int) ([]string, error) {
	if err := checkDimensions(vector, q.config.Dimensions); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []string{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, q.config.timeout())
	defer cancel()

	resp, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.config.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatchKeyword(payloadUserID, userID),
			},
		},
	})
	if err != nil {
		return nil, indexError(ctx, "failed to search vectors", err)
	}

	matches := make([]Match, 0, len(resp))
	for _, scored := range resp {
		matches = append(matches, Match{ID: scored.GetId().GetUuid(), Score: scored.GetScore()})
	}
	sortMatches(matches)
	return matchIDs(matches), nil
}

func (q *QdrantIndex) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, q.config.timeout())
	defer cancel()

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.config.Collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewID(id)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return indexError(ctx, "failed to delete vector", err)
	}
	return nil
}

func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

var _ Index = (*QdrantIndex)(nil)
