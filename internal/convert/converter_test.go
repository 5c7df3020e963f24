package convert_test

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"rawwatch/internal/convert"
	"rawwatch/internal/jpegenc"
	"rawwatch/internal/rawdecode"
	"rawwatch/internal/testsupport"
)

type fakeDecoder struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	panic map[string]bool
}

func (f *fakeDecoder) Decode(_ context.Context, path string, _ rawdecode.Profile) (*rawdecode.Image, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()
	if f.panic[filepath.Base(path)] {
		panic("corrupt sensor data")
	}
	if err := f.fail[filepath.Base(path)]; err != nil {
		return nil, err
	}
	return &rawdecode.Image{Width: 2, Height: 2, BitDepth: 16, Pix: make([]uint16, 12)}, nil
}

func (f *fakeDecoder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type failingEncoder struct{ err error }

func (e failingEncoder) Encode(context.Context, *image.RGBA, string, int) error { return e.err }

type recordingRecorder struct {
	outcomes []convert.Outcome
	err      error
}

func (r *recordingRecorder) RecordOutcome(_ context.Context, outcome convert.Outcome) error {
	r.outcomes = append(r.outcomes, outcome)
	return r.err
}

func writeRaw(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("raw"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvertWritesFlattenedTarget(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	raw := writeRaw(t, in, "sub/dir/IMG_1.ARW")
	dec := &fakeDecoder{}
	c := convert.New(dec, jpegenc.FileEncoder{}, out)

	outcome := c.Convert(context.Background(), raw)
	if outcome.Status != convert.StatusConverted {
		t.Fatalf("status = %s, err = %v", outcome.Status, outcome.Err)
	}
	want := filepath.Join(out, "IMG_1.jpeg")
	if outcome.OutputPath != want {
		t.Fatalf("output path = %q, want %q", outcome.OutputPath, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if outcome.RawSize != 3 {
		t.Fatalf("raw size = %d", outcome.RawSize)
	}
	if outcome.ProfileVersion != rawdecode.ProfileVersion {
		t.Fatalf("profile version = %q", outcome.ProfileVersion)
	}
}

func TestConvertSkipsExistingTargetWithoutDecoding(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	raw := writeRaw(t, in, "a.dng")
	// An empty target still counts as converted.
	if err := os.WriteFile(filepath.Join(out, "a.jpeg"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	dec := &fakeDecoder{}
	c := convert.New(dec, jpegenc.FileEncoder{}, out)

	outcome := c.Convert(context.Background(), raw)
	if outcome.Status != convert.StatusSkipped {
		t.Fatalf("status = %s", outcome.Status)
	}
	if dec.Calls() != 0 {
		t.Fatalf("decoder called %d times for existing target", dec.Calls())
	}
	info, _ := os.Stat(filepath.Join(out, "a.jpeg"))
	if info.Size() != 0 {
		t.Fatal("existing target was modified")
	}
}

func TestConvertIsIdempotent(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	raw := writeRaw(t, in, "a.gpr")
	dec := &fakeDecoder{}
	c := convert.New(dec, jpegenc.FileEncoder{}, out)

	first := c.Convert(context.Background(), raw)
	second := c.Convert(context.Background(), raw)
	if first.Status != convert.StatusConverted || second.Status != convert.StatusSkipped {
		t.Fatalf("statuses = %s, %s", first.Status, second.Status)
	}
	if dec.Calls() != 1 {
		t.Fatalf("decoder calls = %d, want 1", dec.Calls())
	}
}

func TestConvertRecordsAttemptsButNotSkips(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	raw := writeRaw(t, in, "a.dng")
	rec := &recordingRecorder{}
	c := convert.New(&fakeDecoder{}, jpegenc.FileEncoder{}, out, convert.WithRecorder(rec))

	for i := 0; i < 3; i++ {
		c.Convert(context.Background(), raw)
	}
	if len(rec.outcomes) != 1 || rec.outcomes[0].Status != convert.StatusConverted {
		t.Fatalf("recorded outcomes = %+v", rec.outcomes)
	}
}

func TestConvertDecodeFailure(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	raw := writeRaw(t, in, "b.dng")
	dec := &fakeDecoder{fail: map[string]error{"b.dng": errors.New("exit status 1")}}
	rec := &recordingRecorder{}
	c := convert.New(dec, jpegenc.FileEncoder{}, out, convert.WithRecorder(rec))

	outcome := c.Convert(context.Background(), raw)
	if outcome.Status != convert.StatusFailed {
		t.Fatalf("status = %s", outcome.Status)
	}
	var decodeErr *convert.DecodeError
	if !errors.As(outcome.Err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %T %v", outcome.Err, outcome.Err)
	}
	if outcome.ErrorKind() != "decode" {
		t.Fatalf("error kind = %q", outcome.ErrorKind())
	}
	if _, err := os.Stat(outcome.OutputPath); !os.IsNotExist(err) {
		t.Fatal("failed conversion must not create a target")
	}
	if len(rec.outcomes) != 1 || rec.outcomes[0].Status != convert.StatusFailed {
		t.Fatalf("recorded outcomes = %+v", rec.outcomes)
	}
}

func TestConvertRecoversDecoderPanic(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	raw := writeRaw(t, in, "c.arw")
	dec := &fakeDecoder{panic: map[string]bool{"c.arw": true}}
	c := convert.New(dec, jpegenc.FileEncoder{}, out)

	outcome := c.Convert(context.Background(), raw)
	var decodeErr *convert.DecodeError
	if outcome.Status != convert.StatusFailed || !errors.As(outcome.Err, &decodeErr) {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestConvertEncodeFailure(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	raw := writeRaw(t, in, "d.arw")
	boom := errors.New("disk full")
	c := convert.New(&fakeDecoder{}, failingEncoder{err: boom}, out)

	outcome := c.Convert(context.Background(), raw)
	var encodeErr *convert.EncodeError
	if !errors.As(outcome.Err, &encodeErr) {
		t.Fatalf("expected EncodeError, got %v", outcome.Err)
	}
	if !errors.Is(outcome.Err, boom) {
		t.Fatal("EncodeError must unwrap to the encoder error")
	}
	if outcome.ErrorKind() != "encode" {
		t.Fatalf("error kind = %q", outcome.ErrorKind())
	}
}

func TestRecorderErrorDoesNotChangeOutcome(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	raw := writeRaw(t, in, "e.arw")
	rec := &recordingRecorder{err: errors.New("database is locked")}
	c := convert.New(&fakeDecoder{}, jpegenc.FileEncoder{}, out, convert.WithRecorder(rec))

	outcome := c.Convert(context.Background(), raw)
	if outcome.Status != convert.StatusConverted {
		t.Fatalf("status = %s, err = %v", outcome.Status, outcome.Err)
	}
}

// cancelingDecoder cancels the caller's context mid-decode and reports
// whether the cancellation reached it.
type cancelingDecoder struct {
	cancel context.CancelFunc
}

func (d cancelingDecoder) Decode(ctx context.Context, _ string, _ rawdecode.Profile) (*rawdecode.Image, error) {
	d.cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &rawdecode.Image{Width: 1, Height: 1, BitDepth: 8, Pix: []uint16{10, 20, 30}}, nil
}

func TestConvertFinishesAfterCancellation(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	raw := writeRaw(t, in, "a.arw")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outcome := convert.New(cancelingDecoder{cancel: cancel}, jpegenc.FileEncoder{}, out).Convert(ctx, raw)
	if outcome.Status != convert.StatusConverted {
		t.Fatalf("status = %s, err = %v", outcome.Status, outcome.Err)
	}
	if _, err := os.Stat(filepath.Join(out, "a.jpeg")); err != nil {
		t.Fatalf("expected a.jpeg: %v", err)
	}
}

func TestConvertKeepsSlowDecoderRunningAfterCancellation(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	raw := writeRaw(t, in, "slow/a.arw")
	stub := testsupport.WriteStubDecoder(t, t.TempDir())
	c := convert.New(rawdecode.NewCommandDecoder(stub, 0), jpegenc.FileEncoder{}, out)

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(200*time.Millisecond, cancel)
	defer timer.Stop()

	outcome := c.Convert(ctx, raw)
	if outcome.Status != convert.StatusConverted {
		t.Fatalf("status = %s, err = %v", outcome.Status, outcome.Err)
	}
	if ctx.Err() == nil {
		t.Fatal("expected context to be cancelled while decoding")
	}
}

func TestStatusString(t *testing.T) {
	cases := map[convert.Status]string{
		convert.StatusSkipped:   "skipped",
		convert.StatusConverted: "converted",
		convert.StatusFailed:    "failed",
		convert.Status(42):      "unknown",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Fatalf("Status(%d).String() = %q, want %q", int(status), got, want)
		}
	}
}
