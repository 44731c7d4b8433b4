// Package qdrant is the Qdrant-backed semantic.Store, selected with
// VECTOR_STORE=qdrant. Point IDs are derived deterministically from the
// chunk coordinates so re-ingesting a file overwrites its points instead
// of duplicating them.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/askdocs-ai/askdocs/engine/domain"
	"github.com/askdocs-ai/askdocs/engine/semantic"
)

const metaPrefix = "meta_"

// pointsAPI and collectionsAPI narrow the generated qdrant clients to the
// calls this store makes, which keeps test mocks small.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
}

type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

type Store struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
}

// New connects to Qdrant at the given gRPC address.
func New(addr, collection string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, &domain.StoreError{Op: "dial", Err: fmt.Errorf("qdrant %s: %w", addr, err)}
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// NewWithClients wires explicit clients. Used by tests.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string) *Store {
	return &Store{points: points, collections: collections, collection: collection}
}

func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Init creates the collection with cosine distance if it does not exist.
func (s *Store) Init(ctx context.Context, dim int) error {
	if dim <= 0 {
		return &domain.StoreError{Op: "init", Err: fmt.Errorf("invalid dimension %d", dim)}
	}
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return &domain.StoreError{Op: "list collections", Err: err}
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dim),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return &domain.StoreError{Op: "create collection", Err: err}
	}
	return nil
}

// pointID derives a stable UUID from the chunk coordinates.
func pointID(c domain.Chunk) string {
	page := -1
	if c.PageNumber != nil {
		page = *c.PageNumber
	}
	key := fmt.Sprintf("%s|%d|%d", c.SourceFile, page, c.ChunkIndex)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func (s *Store) Upsert(ctx context.Context, records []semantic.Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		c := r.Chunk
		payload := map[string]*pb.Value{
			"chunk_text":  {Kind: &pb.Value_StringValue{StringValue: c.Text}},
			"source_file": {Kind: &pb.Value_StringValue{StringValue: c.SourceFile}},
			"chunk_index": {Kind: &pb.Value_IntegerValue{IntegerValue: int64(c.ChunkIndex)}},
		}
		if c.FolderPath != "" {
			payload["folder_path"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: c.FolderPath}}
		}
		if c.PageNumber != nil {
			payload["page_number"] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(*c.PageNumber)}}
		}
		for k, v := range c.Metadata {
			payload[metaPrefix+k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(c)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: r.Embedding}}},
			Payload: payload,
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return &domain.StoreError{Op: "upsert", Err: err}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, embedding []float32, topK int, threshold float64) ([]semantic.SearchResult, error) {
	score := float32(threshold)
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		ScoreThreshold: &score,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, &domain.StoreError{Op: "search", Err: err}
	}

	hits := make([]semantic.SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		hit := semantic.SearchResult{Similarity: float64(r.GetScore())}
		for k, v := range r.GetPayload() {
			switch k {
			case "chunk_text":
				hit.Chunk.Text = v.GetStringValue()
			case "source_file":
				hit.Chunk.SourceFile = v.GetStringValue()
			case "folder_path":
				hit.Chunk.FolderPath = v.GetStringValue()
			case "page_number":
				n := int(v.GetIntegerValue())
				hit.Chunk.PageNumber = &n
			case "chunk_index":
				hit.Chunk.ChunkIndex = int(v.GetIntegerValue())
			default:
				if len(k) > len(metaPrefix) && k[:len(metaPrefix)] == metaPrefix {
					if hit.Chunk.Metadata == nil {
						hit.Chunk.Metadata = make(map[string]string)
					}
					hit.Chunk.Metadata[k[len(metaPrefix):]] = v.GetStringValue()
				}
			}
		}
		hits[i] = hit
	}
	return hits, nil
}

// Clear deletes every point but keeps the collection.
func (s *Store) Clear(ctx context.Context) error {
	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{Filter: &pb.Filter{}},
		},
	})
	if err != nil {
		return &domain.StoreError{Op: "clear", Err: err}
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, &domain.StoreError{Op: "count", Err: err}
	}
	return int64(resp.GetResult().GetCount()), nil
}

func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.collections.List(ctx, &pb.ListCollectionsRequest{}); err != nil {
		return &domain.StoreError{Op: "ping", Err: err}
	}
	return nil
}
