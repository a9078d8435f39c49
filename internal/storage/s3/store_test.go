package s3

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ridepulse/ridepulse/internal/storage"
)

func TestGetUsesPrefixAndNormalizedKey(t *testing.T) {
	fake := &fakeClient{}
	store, err := NewWithClient("bucket-a", "datasets/fhvhv", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	reader, err := store.Get(context.Background(), "/2023/fhvhv_tripdata_2023-01.parquet")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer func() { _ = reader.Close() }()
	if fake.lastGetBucket != "bucket-a" {
		t.Fatalf("bucket = %q", fake.lastGetBucket)
	}
	if fake.lastGetKey != "datasets/fhvhv/2023/fhvhv_tripdata_2023-01.parquet" {
		t.Fatalf("key = %q", fake.lastGetKey)
	}
}

func TestGetRejectsPathTraversal(t *testing.T) {
	fake := &fakeClient{}
	store, err := NewWithClient("bucket-a", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if _, err := store.Get(context.Background(), "../secrets.txt"); err == nil {
		t.Fatal("expected path traversal validation error")
	}
}

func TestListStripsStorePrefix(t *testing.T) {
	fake := &fakeClient{listObjects: []storage.ObjectInfo{
		{Key: "datasets/fhvhv/fhvhv_tripdata_2023-01.parquet", Size: 100},
		{Key: "datasets/fhvhv/fhvhv_tripdata_2023-02.parquet", Size: 200},
	}}
	store, err := NewWithClient("bucket-a", "datasets/fhvhv", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	objects, err := store.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if fake.lastListPrefix != "datasets/fhvhv" {
		t.Fatalf("list prefix = %q", fake.lastListPrefix)
	}
	if len(objects) != 2 || objects[0].Key != "fhvhv_tripdata_2023-01.parquet" {
		t.Fatalf("objects = %+v", objects)
	}
}

func TestStatMapsMissingObject(t *testing.T) {
	fake := &fakeClient{statErr: storage.ErrObjectNotFound}
	store, err := NewWithClient("bucket-a", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if _, err := store.Stat(context.Background(), "missing.parquet"); err != storage.ErrObjectNotFound {
		t.Fatalf("Stat() error = %v, want ErrObjectNotFound", err)
	}
}

func TestParseEndpoint(t *testing.T) {
	endpoint, secure, err := parseEndpoint("https://minio.example.com", false)
	if err != nil {
		t.Fatalf("parseEndpoint() error = %v", err)
	}
	if endpoint != "minio.example.com" || !secure {
		t.Fatalf("endpoint/secure = %q/%v", endpoint, secure)
	}
}

type fakeClient struct {
	lastGetBucket  string
	lastGetKey     string
	lastListPrefix string
	listObjects    []storage.ObjectInfo
	statErr        error
}

func (f *fakeClient) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	f.lastGetBucket = bucket
	f.lastGetKey = key
	return io.NopCloser(strings.NewReader(key)), nil
}

func (f *fakeClient) Stat(_ context.Context, _, key string) (storage.ObjectInfo, error) {
	if f.statErr != nil {
		return storage.ObjectInfo{}, f.statErr
	}
	return storage.ObjectInfo{Key: key, Size: 10, LastModified: time.Now().UTC()}, nil
}

func (f *fakeClient) List(_ context.Context, _, prefix string) ([]storage.ObjectInfo, error) {
	f.lastListPrefix = prefix
	return f.listObjects, nil
}
