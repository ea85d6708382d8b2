package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/go-cmp/cmp"
)

func sampleValues() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"cellA-slider": json.RawMessage(`42`),
		"cellA-text":   json.RawMessage(`"hello"`),
		"cellB-plot":   json.RawMessage(`{"points":[1,2,3]}`),
	}
}

func TestBoltStoreRoundTrip(t *testing.T) {
	store, err := OpenBolt(filepath.Join(t.TempDir(), "snap.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	want := sampleValues()
	if err := store.Save(ctx, "sess1", want); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(ctx, "sess1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestBoltStoreMissingSession(t *testing.T) {
	store, err := OpenBolt(filepath.Join(t.TempDir(), "snap.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	_, err = store.Load(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestBoltStoreDelete(t *testing.T) {
	store, err := OpenBolt(filepath.Join(t.TempDir(), "snap.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Save(ctx, "sess1", sampleValues()); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "sess1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx, "sess1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err after delete = %v, want ErrNotFound", err)
	}
}

// memS3 is an in-memory s3API.
type memS3 struct {
	objects map[string][]byte
}

func newMemS3() *memS3 { return &memS3{objects: make(map[string][]byte)} }

func (m *memS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.objects[*params.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(m.objects, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	api := newMemS3()
	store := NewS3Store(api, "bucket", "snapshots/")

	ctx := context.Background()
	want := sampleValues()
	if err := store.Save(ctx, "sess1", want); err != nil {
		t.Fatal(err)
	}
	if _, ok := api.objects["snapshots/sess1.json"]; !ok {
		t.Fatal("object not written under expected key")
	}
	got, err := store.Load(ctx, "sess1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestS3StoreMissingSession(t *testing.T) {
	store := NewS3Store(newMemS3(), "bucket", "snapshots/")
	_, err := store.Load(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestS3StoreDelete(t *testing.T) {
	api := newMemS3()
	store := NewS3Store(api, "bucket", "snapshots/")

	ctx := context.Background()
	if err := store.Save(ctx, "sess1", sampleValues()); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "sess1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx, "sess1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err after delete = %v, want ErrNotFound", err)
	}
}
