package qdrant

import (
	"context"
	"errors"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/askdocs-ai/askdocs/engine/domain"
	"github.com/askdocs-ai/askdocs/engine/semantic"
)

type mockPoints struct {
	upsertReq  *pb.UpsertPoints
	upsertErr  error
	deleteErr  error
	searchResp *pb.SearchResponse
	searchErr  error
	countResp  *pb.CountResponse
}

func (m *mockPoints) Upsert(_ context.Context, in *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.upsertReq = in
	return &pb.PointsOperationResponse{}, m.upsertErr
}
func (m *mockPoints) Delete(_ context.Context, _ *pb.DeletePoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	return &pb.PointsOperationResponse{}, m.deleteErr
}
func (m *mockPoints) Search(_ context.Context, _ *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	return m.searchResp, m.searchErr
}
func (m *mockPoints) Count(_ context.Context, _ *pb.CountPoints, _ ...grpc.CallOption) (*pb.CountResponse, error) {
	return m.countResp, nil
}

type mockCollections struct {
	listResp  *pb.ListCollectionsResponse
	listErr   error
	created   bool
	createErr error
}

func (m *mockCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	return m.listResp, m.listErr
}
func (m *mockCollections) Create(_ context.Context, _ *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.created = true
	return &pb.CollectionOperationResponse{Result: true}, m.createErr
}

func TestInitSkipsExistingCollection(t *testing.T) {
	cols := &mockCollections{
		listResp: &pb.ListCollectionsResponse{
			Collections: []*pb.CollectionDescription{{Name: "docs"}},
		},
	}
	s := NewWithClients(&mockPoints{}, cols, "docs")
	if err := s.Init(context.Background(), 4); err != nil {
		t.Fatal(err)
	}
	if cols.created {
		t.Error("existing collection recreated")
	}
}

func TestInitCreatesMissingCollection(t *testing.T) {
	cols := &mockCollections{listResp: &pb.ListCollectionsResponse{}}
	s := NewWithClients(&mockPoints{}, cols, "docs")
	if err := s.Init(context.Background(), 4); err != nil {
		t.Fatal(err)
	}
	if !cols.created {
		t.Error("collection not created")
	}
}

func TestPointIDDeterministic(t *testing.T) {
	page := 3
	a := domain.Chunk{SourceFile: "a.pdf", PageNumber: &page, ChunkIndex: 1}
	b := domain.Chunk{SourceFile: "a.pdf", PageNumber: &page, ChunkIndex: 1}
	if pointID(a) != pointID(b) {
		t.Error("same coordinates produced different ids")
	}
	c := domain.Chunk{SourceFile: "a.pdf", PageNumber: &page, ChunkIndex: 2}
	if pointID(a) == pointID(c) {
		t.Error("different coordinates produced same id")
	}
}

func TestUpsertBuildsPayload(t *testing.T) {
	pts := &mockPoints{}
	s := NewWithClients(pts, &mockCollections{}, "docs")
	page := 2
	err := s.Upsert(context.Background(), []semantic.Record{{
		Chunk: domain.Chunk{
			Text:       "body",
			SourceFile: "guide.pdf",
			FolderPath: "hr",
			PageNumber: &page,
			ChunkIndex: 0,
			Metadata:   map[string]string{"file_type": "pdf"},
		},
		Embedding: []float32{0.1, 0.2},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if len(pts.upsertReq.GetPoints()) != 1 {
		t.Fatalf("expected 1 point")
	}
	payload := pts.upsertReq.GetPoints()[0].GetPayload()
	if payload["chunk_text"].GetStringValue() != "body" {
		t.Error("chunk_text missing")
	}
	if payload["page_number"].GetIntegerValue() != 2 {
		t.Error("page_number missing")
	}
	if payload["meta_file_type"].GetStringValue() != "pdf" {
		t.Error("metadata not flattened")
	}
}

func TestUpsertEmptyIsNoop(t *testing.T) {
	s := NewWithClients(&mockPoints{upsertErr: errors.New("should not be called")}, &mockCollections{}, "docs")
	if err := s.Upsert(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
}

func TestSearchRebuildsChunks(t *testing.T) {
	pts := &mockPoints{
		searchResp: &pb.SearchResponse{
			Result: []*pb.ScoredPoint{{
				Score: 0.9,
				Payload: map[string]*pb.Value{
					"chunk_text":     {Kind: &pb.Value_StringValue{StringValue: "hello"}},
					"source_file":    {Kind: &pb.Value_StringValue{StringValue: "a.pdf"}},
					"page_number":    {Kind: &pb.Value_IntegerValue{IntegerValue: 4}},
					"chunk_index":    {Kind: &pb.Value_IntegerValue{IntegerValue: 1}},
					"meta_file_type": {Kind: &pb.Value_StringValue{StringValue: "pdf"}},
				},
			}},
		},
	}
	s := NewWithClients(pts, &mockCollections{}, "docs")
	hits, err := s.Search(context.Background(), []float32{1, 0}, 5, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit")
	}
	h := hits[0]
	if h.Similarity != 0.9 || h.Chunk.Text != "hello" || h.Chunk.SourceFile != "a.pdf" {
		t.Errorf("hit mismatch: %+v", h)
	}
	if h.Chunk.PageNumber == nil || *h.Chunk.PageNumber != 4 {
		t.Error("page number lost")
	}
	if h.Chunk.Metadata["file_type"] != "pdf" {
		t.Error("metadata lost")
	}
}

func TestCount(t *testing.T) {
	pts := &mockPoints{countResp: &pb.CountResponse{Result: &pb.CountResult{Count: 7}}}
	s := NewWithClients(pts, &mockCollections{}, "docs")
	n, err := s.Count(context.Background())
	if err != nil || n != 7 {
		t.Fatalf("count = %d, %v", n, err)
	}
}
