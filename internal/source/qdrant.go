package source

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/hyperjump/mxrag/internal/models"
)

// pointsSearcher is the subset of qdrant.PointsClient the source needs.
type pointsSearcher interface {
	Search(ctx context.Context, in *qdrant.SearchPoints, opts ...grpc.CallOption) (*qdrant.SearchResponse, error)
}

// QdrantSource searches one Qdrant collection over gRPC.
type QdrantSource struct {
	name       string
	collection string
	apiKey     string
	points     pointsSearcher
	conn       *grpc.ClientConn
}

// QdrantOptions configures the connection to a Qdrant server.
type QdrantOptions struct {
	Address    string
	Collection string
	APIKey     string
	UseTLS     bool
}

// NewQdrantSource connects to the Qdrant server at opts.Address.
func NewQdrantSource(name string, opts QdrantOptions) (*QdrantSource, error) {
	creds := insecure.NewCredentials()
	if opts.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	conn, err := grpc.NewClient(opts.Address, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s: %w", opts.Address, err)
	}
	s := newQdrantSource(name, opts.Collection, opts.APIKey, qdrant.NewPointsClient(conn))
	s.conn = conn
	return s, nil
}

func newQdrantSource(name, collection, apiKey string, points pointsSearcher) *QdrantSource {
	return &QdrantSource{name: name, collection: collection, apiKey: apiKey, points: points}
}

// Name returns the source identifier.
func (s *QdrantSource) Name() string {
	return s.name
}

// Search returns the limit nearest points with their payloads.
func (s *QdrantSource) Search(ctx context.Context, vector []float32, limit int) ([]*models.RawHit, error) {
	if s.apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", s.apiKey)
	}
	resp, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%s: %w", s.collection, ErrCollectionNotFound)
		}
		if errors.Is(err, context.DeadlineExceeded) || status.Code(err) == codes.DeadlineExceeded {
			return nil, fmt.Errorf("search %s: %w", s.collection, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("search %s: %w", s.collection, err)
	}

	hits := make([]*models.RawHit, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		payload := make(map[string]any, len(p.GetPayload()))
		for k, v := range p.GetPayload() {
			payload[k] = valueToAny(v)
		}
		hits = append(hits, &models.RawHit{ID: pointID(p.GetId()), Score: unitScore(float64(p.GetScore())), Payload: payload})
	}
	return hits, nil
}

// Close releases the gRPC connection.
func (s *QdrantSource) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

func valueToAny(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_StructValue:
		out := make(map[string]any, len(k.StructValue.GetFields()))
		for name, f := range k.StructValue.GetFields() {
			out[name] = valueToAny(f)
		}
		return out
	case *qdrant.Value_ListValue:
		out := make([]any, 0, len(k.ListValue.GetValues()))
		for _, item := range k.ListValue.GetValues() {
			out = append(out, valueToAny(item))
		}
		return out
	default:
		return nil
	}
}
