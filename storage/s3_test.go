package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

type apiError struct{ code string }

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// mockS3 is an in-memory S3 backend.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockS3() *mockS3 { return &mockS3{objects: map[string][]byte{}} }

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[*in.Key]; !ok {
		return nil, &apiError{code: "NotFound"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3WriteReadWithPrefix(t *testing.T) {
	mock := newMockS3()
	store := NewS3(mock, "bucket", "runs")
	ctx := context.Background()

	writeString(t, store, "session_1/merged_emotions.csv", "timestamp\n")
	if _, ok := mock.objects["runs/session_1/merged_emotions.csv"]; !ok {
		t.Fatalf("objects = %v, want prefixed key", mock.objects)
	}
	if got := readString(t, store, "session_1/merged_emotions.csv"); got != "timestamp\n" {
		t.Fatalf("Read = %q", got)
	}
	ok, err := store.Exists(ctx, "session_1/merged_emotions.csv")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
}

func TestS3Missing(t *testing.T) {
	store := NewS3(newMockS3(), "bucket", "")
	ctx := context.Background()
	if _, err := store.Read(ctx, "nope.csv"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Read err = %v, want ErrNotExist", err)
	}
	ok, err := store.Exists(ctx, "nope.csv")
	if err != nil || ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
}

func TestS3PutFailureSurfacesOnClose(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("access denied")
	store := NewS3(mock, "bucket", "")
	w, err := store.Write(context.Background(), "a.csv")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "data")
	if err := w.Close(); err == nil {
		t.Fatal("Close succeeded, want upload error")
	}
	if err := w.Close(); !errors.Is(err, fs.ErrClosed) {
		t.Fatalf("second Close err = %v", err)
	}
}

func TestS3AbortUploadsNothing(t *testing.T) {
	mock := newMockS3()
	store := NewS3(mock, "bucket", "runs")
	w, err := store.Write(context.Background(), "a.csv")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "partial")
	if err := w.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if err := w.Close(); !errors.Is(err, fs.ErrClosed) {
		t.Fatalf("Close after Abort err = %v, want ErrClosed", err)
	}
	if len(mock.objects) != 0 {
		t.Fatalf("objects = %v, want none", mock.objects)
	}
}
