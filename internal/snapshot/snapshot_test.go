package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/shopspring/decimal"

	"niftyflow/models"
)

// countingStore records writes made through it.
type countingStore struct {
	Store
	writes int
}

func (s *countingStore) Write(ctx context.Context, data []byte) error {
	s.writes++
	return s.Store.Write(ctx, data)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func row(strike string, ce, pe int64, ceLTP, peLTP string) models.AnnotatedRow {
	return models.AnnotatedRow{StrikeRow: models.StrikeRow{
		Strike: strike, CallOI: ce, PutOI: pe, CallLTP: dec(ceLTP), PutLTP: dec(peLTP),
	}}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: NewFileStore(filepath.Join(t.TempDir(), "state", "last_oi.json"))}
	cache := NewCache(store)

	rows := []models.AnnotatedRow{
		row("22000", 120000, 80000, "101.5", "12.05"),
		row("22050", 50000, 60000, "80", "20.4"),
		row("22000", 125000, 81000, "99.25", "13"),
	}
	if !cache.Save(ctx, rows) {
		t.Fatalf("save failed")
	}

	got := cache.Load(ctx)
	want := Snapshot{
		"22000": {CallOI: 125000, PutOI: 81000, CallLTP: dec("99.25"), PutLTP: dec("13")},
		"22050": {CallOI: 50000, PutOI: 60000, CallLTP: dec("80"), PutLTP: dec("20.4")},
	}
	if len(got) != len(want) {
		t.Fatalf("loaded %d strikes, want %d", len(got), len(want))
	}
	for k, w := range want {
		if !got[k].Equal(w) {
			t.Errorf("strike %s = %+v, want %+v", k, got[k], w)
		}
	}
	if store.writes != 1 {
		t.Errorf("load of canonical snapshot wrote %d times", store.writes-1)
	}
}

func TestSavedDocumentShape(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "last_oi.json")
	cache := NewCache(NewFileStore(path))
	cache.Save(ctx, []models.AnnotatedRow{row("22000", 120000, 80000, "0", "1.5")})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc map[string]map[string]json.Number
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	entry := doc["22000"]
	if len(doc) != 1 || len(entry) != 4 {
		t.Fatalf("unexpected document: %s", data)
	}
	if entry["ce"] != "120000" || entry["pe"] != "80000" || entry["ce_ltp"] != "0" || entry["pe_ltp"] != "1.5" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestLoadMigratesLegacyEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "last_oi.json")
	legacy := `{
		"22000": {"ce_oi": 100, "pe_oi": 50},
		"22050": "placeholder",
		"22100": {"ce": 1, "pe": 2, "ce_ltp": 3.5, "pe_ltp": 4},
		"22150": {"ce": "7", "pe": null, "ce_ltp_num": 1.25, "put_ltp": 2},
		"22200": {"ce": true, "pe": 3},
		"22250": {"call_oi": 10, "put_oi": 20, "call_ltp": 1, "put_ltp": 2, "extra": 9},
		"22300": {"ce": 12.9, "pe": 0, "ce_ltp": 0, "pe_ltp": 0}
	}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := &countingStore{Store: NewFileStore(path)}
	cache := NewCache(store)
	got := cache.Load(ctx)

	want := Snapshot{
		"22000": {CallOI: 100, PutOI: 50},
		"22050": {},
		"22100": {CallOI: 1, PutOI: 2, CallLTP: dec("3.5"), PutLTP: dec("4")},
		"22150": {CallOI: 7, CallLTP: dec("1.25"), PutLTP: dec("2")},
		"22200": {},
		"22250": {CallOI: 10, PutOI: 20, CallLTP: dec("1"), PutLTP: dec("2")},
		"22300": {CallOI: 12},
	}
	if len(got) != len(want) {
		t.Fatalf("loaded %d strikes, want %d", len(got), len(want))
	}
	for k, w := range want {
		if !got[k].Equal(w) {
			t.Errorf("strike %s = %+v, want %+v", k, got[k], w)
		}
	}
	if store.writes != 1 {
		t.Fatalf("expected one migration write, got %d", store.writes)
	}

	data, _ := os.ReadFile(path)
	if _, migrated, err := Decode(data); err != nil || migrated {
		t.Fatalf("migrated document not canonical (migrated=%v err=%v): %s", migrated, err, data)
	}

	again := cache.Load(ctx)
	if store.writes != 1 {
		t.Errorf("second load wrote again")
	}
	for k, w := range want {
		if !again[k].Equal(w) {
			t.Errorf("second load strike %s = %+v, want %+v", k, again[k], w)
		}
	}
}

// readOnlyStore serves a fixed document and rejects every write.
type readOnlyStore struct {
	data   []byte
	writes int
}

func (s *readOnlyStore) Read(context.Context) ([]byte, error) { return s.data, nil }

func (s *readOnlyStore) Write(context.Context, []byte) error {
	s.writes++
	return errors.New("read-only file system")
}

func (s *readOnlyStore) Location() string { return "readonly" }

func TestLoadReturnsMigratedEntriesWhenWriteBackFails(t *testing.T) {
	store := &readOnlyStore{data: []byte(`{"22000":{"ce_oi":100,"pe_oi":5}}`)}
	got := NewCache(store).Load(context.Background())

	if store.writes != 1 {
		t.Fatalf("expected one write-back attempt, got %d", store.writes)
	}
	if len(got) != 1 || !got["22000"].Equal(Entry{CallOI: 100, PutOI: 5}) {
		t.Fatalf("unexpected snapshot after failed write-back: %+v", got)
	}
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	missing := NewCache(NewFileStore(filepath.Join(dir, "none.json")))
	if got := missing.Load(ctx); len(got) != 0 {
		t.Errorf("missing snapshot loaded %v", got)
	}

	for name, content := range map[string]string{
		"garbage": "{not json",
		"array":   `[1,2,3]`,
		"number":  `42`,
	} {
		path := filepath.Join(dir, name+".json")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		store := &countingStore{Store: NewFileStore(path)}
		if got := NewCache(store).Load(ctx); got == nil || len(got) != 0 {
			t.Errorf("%s: expected empty snapshot, got %v", name, got)
		}
		if store.writes != 0 {
			t.Errorf("%s: corrupt snapshot should not be rewritten", name)
		}
	}
}

func TestSaveFailureReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cache := NewCache(NewFileStore(filepath.Join(blocker, "last_oi.json")))
	if cache.Save(context.Background(), []models.AnnotatedRow{row("1", 1, 1, "1", "1")}) {
		t.Fatalf("expected save to fail when parent is a file")
	}
}

type fakeObjectAPI struct {
	objects map[string][]byte
	getErr  error
}

func (f *fakeObjectAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	api := &fakeObjectAPI{objects: map[string][]byte{}}
	store := NewS3StoreWithClient(api, "nifty-cache", "bot/last_oi.json")

	if _, err := store.Read(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	cache := NewCache(store)
	if !cache.Save(ctx, []models.AnnotatedRow{row("22000", 5, 6, "7.5", "8")}) {
		t.Fatalf("save failed")
	}
	if _, ok := api.objects["nifty-cache/bot/last_oi.json"]; !ok {
		t.Fatalf("object not written: %v", api.objects)
	}
	got := cache.Load(ctx)
	if !got["22000"].Equal(Entry{CallOI: 5, PutOI: 6, CallLTP: dec("7.5"), PutLTP: dec("8")}) {
		t.Errorf("unexpected entry %+v", got["22000"])
	}
	if store.Location() != "s3://nifty-cache/bot/last_oi.json" {
		t.Errorf("location = %s", store.Location())
	}
}

func TestS3StoreReadError(t *testing.T) {
	api := &fakeObjectAPI{getErr: errors.New("boom")}
	store := NewS3StoreWithClient(api, "b", "k")
	_, err := store.Read(context.Background())
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
	if got := NewCache(store).Load(context.Background()); len(got) != 0 {
		t.Errorf("expected empty snapshot on read error")
	}
}
