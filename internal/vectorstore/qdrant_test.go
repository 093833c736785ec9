package vectorstore

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	apperrors "github.com/aihub/loganomaly/internal/errors"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

// fakeQdrant 进程内的 Qdrant gRPC 服务，只实现本包用到的方法
type fakeQdrant struct {
	mu sync.Mutex

	exists       bool
	deleteResult bool
	deleteErr    error
	queryErr     error
	queryResult  []*qdrant.ScoredPoint
	count        uint64

	calls    []string
	apiKeys  []string
	requests map[string]proto.Message
}

func (f *fakeQdrant) handle(srv interface{}, stream grpc.ServerStream) error {
	method, _ := grpc.MethodFromServerStream(stream)

	var req, resp proto.Message
	var err error
	switch method {
	case "/qdrant.Collections/CollectionExists":
		req = &qdrant.CollectionExistsRequest{}
		resp = &qdrant.CollectionExistsResponse{Result: &qdrant.CollectionExists{Exists: f.exists}}
	case "/qdrant.Collections/Delete":
		req = &qdrant.DeleteCollection{}
		resp, err = &qdrant.CollectionOperationResponse{Result: f.deleteResult}, f.deleteErr
	case "/qdrant.Collections/Create":
		req = &qdrant.CreateCollection{}
		resp = &qdrant.CollectionOperationResponse{Result: true}
	case "/qdrant.Points/Upsert":
		req = &qdrant.UpsertPoints{}
		resp = &qdrant.PointsOperationResponse{Result: &qdrant.UpdateResult{Status: qdrant.UpdateStatus_Completed}}
	case "/qdrant.Points/Query":
		req = &qdrant.QueryPoints{}
		resp, err = &qdrant.QueryResponse{Result: f.queryResult}, f.queryErr
	case "/qdrant.Points/Count":
		req = &qdrant.CountPoints{}
		resp = &qdrant.CountResponse{Result: &qdrant.CountResult{Count: f.count}}
	default:
		return status.Errorf(codes.Unimplemented, "unexpected method %s", method)
	}

	if recvErr := stream.RecvMsg(req); recvErr != nil {
		return recvErr
	}

	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.requests[method] = req
	if md, ok := metadata.FromIncomingContext(stream.Context()); ok {
		f.apiKeys = append(f.apiKeys, md.Get("api-key")...)
	}
	f.mu.Unlock()

	if err != nil {
		return err
	}
	return stream.SendMsg(resp)
}

func (f *fakeQdrant) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeQdrant) request(method string) proto.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method]
}

func startFakeQdrant(t *testing.T, f *fakeQdrant) *QdrantStore {
	t.Helper()
	f.requests = make(map[string]proto.Message)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer(grpc.UnknownServiceHandler(f.handle))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	store, err := NewQdrantStore(Options{Endpoint: "http://" + lis.Addr().String(), Timeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestQdrantStore_ReplaceCollectionOnFreshServer(t *testing.T) {
	// 真实服务端删除不存在的集合会返回 Result=false
	fake := &fakeQdrant{exists: false, deleteResult: false}
	store := startFakeQdrant(t, fake)

	require.NoError(t, store.ReplaceCollection(context.Background(), "normal_server_logs_axum", 1024, DistanceCosine))

	assert.Equal(t, []string{"/qdrant.Collections/CollectionExists", "/qdrant.Collections/Create"}, fake.recorded())
	create := fake.request("/qdrant.Collections/Create").(*qdrant.CreateCollection)
	assert.Equal(t, "normal_server_logs_axum", create.GetCollectionName())
	params := create.GetVectorsConfig().GetParams()
	assert.Equal(t, uint64(1024), params.GetSize())
	assert.Equal(t, qdrant.Distance_Cosine, params.GetDistance())
}

func TestQdrantStore_ReplaceCollectionDropsExisting(t *testing.T) {
	fake := &fakeQdrant{exists: true, deleteResult: true}
	store := startFakeQdrant(t, fake)

	require.NoError(t, store.ReplaceCollection(context.Background(), "logs", 4, DistanceCosine))

	assert.Equal(t, []string{
		"/qdrant.Collections/CollectionExists",
		"/qdrant.Collections/Delete",
		"/qdrant.Collections/Create",
	}, fake.recorded())
	assert.Equal(t, "logs", fake.request("/qdrant.Collections/Delete").(*qdrant.DeleteCollection).GetCollectionName())
}

func TestQdrantStore_ReplaceCollectionToleratesConcurrentDelete(t *testing.T) {
	fake := &fakeQdrant{exists: true, deleteErr: status.Error(codes.NotFound, "Collection `logs` doesn't exist!")}
	store := startFakeQdrant(t, fake)

	require.NoError(t, store.ReplaceCollection(context.Background(), "logs", 4, DistanceCosine))
	assert.Contains(t, fake.recorded(), "/qdrant.Collections/Create")
}

func TestQdrantStore_ReplaceCollectionFailsOnServerError(t *testing.T) {
	fake := &fakeQdrant{exists: true, deleteErr: status.Error(codes.Internal, "disk full")}
	store := startFakeQdrant(t, fake)

	err := store.ReplaceCollection(context.Background(), "logs", 4, DistanceCosine)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeVectorStoreInternal), err.Error())
	assert.NotContains(t, fake.recorded(), "/qdrant.Collections/Create")
}

func TestQdrantStore_UpsertWaits(t *testing.T) {
	fake := &fakeQdrant{}
	store := startFakeQdrant(t, fake)

	err := store.Upsert(context.Background(), "logs", []Point{
		{ID: 0, Vector: []float32{1, 0}, Payload: map[string]interface{}{PayloadLogKey: `INFO: "quoted" \ path`}},
		{ID: 1, Vector: []float32{0, 1}, Payload: map[string]interface{}{PayloadLogKey: "second"}},
	}, true)
	require.NoError(t, err)

	upsert := fake.request("/qdrant.Points/Upsert").(*qdrant.UpsertPoints)
	assert.Equal(t, "logs", upsert.GetCollectionName())
	assert.True(t, upsert.GetWait())
	require.Len(t, upsert.GetPoints(), 2)

	first := upsert.GetPoints()[0]
	assert.Equal(t, uint64(0), first.GetId().GetNum())
	assert.Equal(t, []float32{1, 0}, first.GetVectors().GetVector().GetData())
	assert.Equal(t, `INFO: "quoted" \ path`, first.GetPayload()[PayloadLogKey].GetStringValue())
	assert.Equal(t, uint64(1), upsert.GetPoints()[1].GetId().GetNum())
}

func TestQdrantStore_SearchMapsResults(t *testing.T) {
	fake := &fakeQdrant{queryResult: []*qdrant.ScoredPoint{
		{Id: qdrant.NewIDNum(3), Score: 0.91, Payload: qdrant.NewValueMap(map[string]any{PayloadLogKey: "INFO: matched"})},
	}}
	store := startFakeQdrant(t, fake)

	results, err := store.Search(context.Background(), SearchRequest{
		Collection:  "logs",
		Vector:      []float32{0.5, 0.5},
		Limit:       1,
		WithPayload: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(3), results[0].ID)
	assert.InDelta(t, 0.91, results[0].Score, 1e-6)
	assert.Equal(t, "INFO: matched", results[0].Log())

	query := fake.request("/qdrant.Points/Query").(*qdrant.QueryPoints)
	assert.Equal(t, uint64(1), query.GetLimit())
	assert.True(t, query.GetWithPayload().GetEnable())
	assert.Equal(t, []float32{0.5, 0.5}, query.GetQuery().GetNearest().GetDense().GetData())
}

func TestQdrantStore_SearchEmptyCollection(t *testing.T) {
	store := startFakeQdrant(t, &fakeQdrant{})

	results, err := store.Search(context.Background(), SearchRequest{Collection: "logs", Vector: []float32{1, 0}, Limit: 1})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQdrantStore_SearchMissingCollectionIsRejected(t *testing.T) {
	fake := &fakeQdrant{queryErr: status.Error(codes.NotFound, "Collection `logs` doesn't exist!")}
	store := startFakeQdrant(t, fake)

	_, err := store.Search(context.Background(), SearchRequest{Collection: "logs", Vector: []float32{1, 0}, Limit: 1})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeVectorStoreRejected), err.Error())
}

func TestQdrantStore_Count(t *testing.T) {
	fake := &fakeQdrant{count: 5}
	store := startFakeQdrant(t, fake)

	count, err := store.Count(context.Background(), "logs")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)
	assert.True(t, fake.request("/qdrant.Points/Count").(*qdrant.CountPoints).GetExact())
}

func TestQdrantStore_SendsAPIKey(t *testing.T) {
	fake := &fakeQdrant{count: 1}
	fake.requests = make(map[string]proto.Message)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer(grpc.UnknownServiceHandler(fake.handle))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	store, err := NewQdrantStore(Options{Endpoint: lis.Addr().String(), APIKey: "secret", Timeout: 2 * time.Second})
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Count(context.Background(), "logs")
	require.NoError(t, err)
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"secret"}, fake.apiKeys)
}
