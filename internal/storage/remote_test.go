package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"demix/internal/config"
	"demix/internal/jobs"
	"demix/internal/services"
)

type fakeObjects struct {
	uploads map[string][]byte
	putErr  error
}

func (f *fakeObjects) PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	if f.uploads == nil {
		f.uploads = make(map[string][]byte)
	}
	f.uploads[*input.Key] = body
	return &s3.PutObjectOutput{}, nil
}

type fakePresigner struct {
	lastKey string
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, input *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*signedRequest, error) {
	f.lastKey = *input.Key
	return &signedRequest{URL: "https://signed.example.com/" + *input.Key}, nil
}

func newRemoteForTest(t *testing.T, objects *fakeObjects, presigner *fakePresigner) (*Remote, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.MediaRoot = t.TempDir()
	cfg.Paths.LogDir = filepath.Join(cfg.Paths.MediaRoot, "logs")
	cfg.Storage.Backend = config.BackendS3
	cfg.Storage.Bucket = "demix-media"
	return &Remote{cfg: &cfg, objects: objects, presigner: presigner}, &cfg
}

func TestRemoteCommitUploadsAndRemovesLocal(t *testing.T) {
	objects := &fakeObjects{}
	gw, _ := newRemoteForTest(t, objects, &fakePresigner{})

	job := &jobs.Job{ID: "job-1", Kind: jobs.KindDynamicMix, Artist: "A", Title: "B"}
	work := gw.WorkDir(job)
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatalf("mkdir workdir: %v", err)
	}
	artifact := filepath.Join(work, "vocals.mp3")
	if err := os.WriteFile(artifact, []byte("audio-bytes"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	ref, err := gw.Commit(context.Background(), job, jobs.OutputVocals, artifact)
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if ref != "separated/job-1/vocals.mp3" {
		t.Fatalf("unexpected ref %q", ref)
	}
	if string(objects.uploads[ref]) != "audio-bytes" {
		t.Fatalf("upload body mismatch: %q", objects.uploads[ref])
	}
	if _, err := os.Stat(artifact); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected local artifact removed, stat err %v", err)
	}

	if err := gw.CleanupWorkDir(job); err != nil {
		t.Fatalf("CleanupWorkDir failed: %v", err)
	}
	if _, err := os.Stat(work); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected workdir removed, stat err %v", err)
	}
}

func TestRemoteCommitUploadFailureKeepsLocal(t *testing.T) {
	objects := &fakeObjects{putErr: errors.New("connection reset")}
	gw, _ := newRemoteForTest(t, objects, &fakePresigner{})

	job := &jobs.Job{ID: "job-2", Kind: jobs.KindDynamicMix}
	work := gw.WorkDir(job)
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatalf("mkdir workdir: %v", err)
	}
	artifact := filepath.Join(work, "drums.mp3")
	if err := os.WriteFile(artifact, []byte("x"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	_, err := gw.Commit(context.Background(), job, jobs.OutputDrums, artifact)
	if !errors.Is(err, services.ErrIOFailure) {
		t.Fatalf("expected ErrIOFailure, got %v", err)
	}
	if _, statErr := os.Stat(artifact); statErr != nil {
		t.Fatalf("expected local artifact kept after failed upload: %v", statErr)
	}
	// cleanup leaves the non-empty workdir alone
	if err := gw.CleanupWorkDir(job); err != nil {
		t.Fatalf("CleanupWorkDir failed: %v", err)
	}
	if _, statErr := os.Stat(work); statErr != nil {
		t.Fatalf("expected workdir kept: %v", statErr)
	}
}

func TestRemoteResolveSourcePresigns(t *testing.T) {
	presigner := &fakePresigner{}
	gw, _ := newRemoteForTest(t, &fakeObjects{}, presigner)

	src := &jobs.Source{ID: "src-1", OutputRef: "uploads/src-1/track.mp3"}
	url, err := gw.ResolveSource(context.Background(), src)
	if err != nil {
		t.Fatalf("ResolveSource failed: %v", err)
	}
	if url != "https://signed.example.com/uploads/src-1/track.mp3" {
		t.Fatalf("unexpected url %q", url)
	}
	if presigner.lastKey != src.OutputRef {
		t.Fatalf("presigned wrong key %q", presigner.lastKey)
	}
}

func TestRemoteResolveSourcePublicURL(t *testing.T) {
	gw, cfg := newRemoteForTest(t, &fakeObjects{}, &fakePresigner{})
	cfg.Storage.PublicURL = "https://cdn.example.com"

	src := &jobs.Source{ID: "src-2", OutputRef: "uploads/src-2/track.mp3"}
	url, err := gw.ResolveSource(context.Background(), src)
	if err != nil {
		t.Fatalf("ResolveSource failed: %v", err)
	}
	if url != "https://cdn.example.com/uploads/src-2/track.mp3" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestRemoteImportSourceKeepsOriginal(t *testing.T) {
	objects := &fakeObjects{}
	gw, _ := newRemoteForTest(t, objects, &fakePresigner{})

	upload := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(upload, []byte("source-audio"), 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}

	src := &jobs.Source{ID: "src-7"}
	ref, err := gw.ImportSource(context.Background(), src, upload)
	if err != nil {
		t.Fatalf("ImportSource failed: %v", err)
	}
	if ref != "uploads/src-7/track.mp3" {
		t.Fatalf("unexpected ref %q", ref)
	}
	if string(objects.uploads[ref]) != "source-audio" {
		t.Fatalf("upload body mismatch")
	}
	if _, err := os.Stat(upload); err != nil {
		t.Fatalf("original file must stay in place: %v", err)
	}
}
