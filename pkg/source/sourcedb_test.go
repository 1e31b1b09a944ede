package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/co2-ledger/pkg/dataset"
)

func tempSourceDB(t *testing.T) *SourceDB {
	t.Helper()
	dir := t.TempDir()
	sdb, err := OpenSourceDB(filepath.Join(dir, "sources.db"))
	if err != nil {
		t.Fatalf("OpenSourceDB: %v", err)
	}
	t.Cleanup(func() { sdb.Close() })
	return sdb
}

func seededSourceDB(t *testing.T) *SourceDB {
	t.Helper()
	sdb := tempSourceDB(t)
	if err := sdb.Seed(dataset.All()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return sdb
}

func TestOpenSourceDB_CreatesTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	sdb, err := OpenSourceDB(path)
	if err != nil {
		t.Fatalf("OpenSourceDB: %v", err)
	}
	defer sdb.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created: %v", err)
	}

	sources, err := sdb.ListSources()
	if err != nil {
		t.Fatalf("ListSources on empty db: %v", err)
	}
	if len(sources) != 0 {
		t.Fatalf("expected 0 sources, got %d", len(sources))
	}
}

func TestSeed_KeepsOverrides(t *testing.T) {
	sdb := seededSourceDB(t)

	if err := sdb.SetURL(dataset.Storage, "https://mirror.example.com/Storage.json"); err != nil {
		t.Fatalf("SetURL: %v", err)
	}
	if err := sdb.Seed(dataset.All()); err != nil {
		t.Fatalf("Seed again: %v", err)
	}

	url, err := sdb.GetURL(dataset.Storage)
	if err != nil {
		t.Fatalf("GetURL: %v", err)
	}
	if url != "https://mirror.example.com/Storage.json" {
		t.Fatalf("re-seed should not overwrite, got %s", url)
	}
}

func TestSetURL_ResetAndOverrides(t *testing.T) {
	sdb := seededSourceDB(t)
	lookup := sdb.Overrides()

	if got := lookup(dataset.Blowdowns); got != "" {
		t.Fatalf("default override = %q, want empty", got)
	}
	if err := sdb.SetURL(dataset.Blowdowns, "/srv/blowdowns.json"); err != nil {
		t.Fatalf("SetURL: %v", err)
	}
	if got := lookup(dataset.Blowdowns); got != "/srv/blowdowns.json" {
		t.Fatalf("override = %q", got)
	}
	if err := sdb.SetURL(dataset.Blowdowns, ""); err != nil {
		t.Fatalf("SetURL reset: %v", err)
	}
	if got := lookup(dataset.Blowdowns); got != "" {
		t.Fatalf("override after reset = %q, want empty", got)
	}
}

func TestSetURL_NotFound(t *testing.T) {
	sdb := tempSourceDB(t)

	if err := sdb.SetURL("nonexistent", "https://example.com"); err == nil {
		t.Fatal("expected error for unknown dataset")
	}
}

func TestRecordLoad(t *testing.T) {
	sdb := seededSourceDB(t)

	at := time.Unix(1_750_000_000, 0)
	outcomes := []dataset.Outcome{
		{Dataset: dataset.FlareStacks, Status: dataset.StatusOK, Records: 12},
		{Dataset: dataset.EquipLeaks, Status: dataset.StatusNotFound, Error: "resource not found"},
	}
	if err := sdb.RecordLoad(outcomes, at); err != nil {
		t.Fatalf("RecordLoad: %v", err)
	}

	sources, err := sdb.ListSources()
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	byName := make(map[dataset.Name]Source)
	for _, s := range sources {
		byName[s.Dataset] = s
	}

	flare := byName[dataset.FlareStacks]
	if flare.LoadStatus == nil || *flare.LoadStatus != "ok" {
		t.Errorf("flare load_status = %v", flare.LoadStatus)
	}
	if flare.LoadRecords == nil || *flare.LoadRecords != 12 {
		t.Errorf("flare load_records = %v", flare.LoadRecords)
	}
	if flare.LoadError != nil {
		t.Errorf("flare load_error = %q, want nil", *flare.LoadError)
	}
	if flare.LastLoad == nil || *flare.LastLoad != at.Unix() {
		t.Errorf("flare last_load = %v", flare.LastLoad)
	}

	leaks := byName[dataset.EquipLeaks]
	if leaks.LoadStatus == nil || *leaks.LoadStatus != "not_found" {
		t.Errorf("leaks load_status = %v", leaks.LoadStatus)
	}
	if leaks.LoadError == nil || *leaks.LoadError != "resource not found" {
		t.Errorf("leaks load_error = %v", leaks.LoadError)
	}

	if byName[dataset.Storage].LoadStatus != nil {
		t.Error("storage was not in the outcomes and should have no load status")
	}
}

func TestUpdateCheck(t *testing.T) {
	sdb := seededSourceDB(t)

	if err := sdb.UpdateCheck(dataset.Transport, 200, ""); err != nil {
		t.Fatalf("UpdateCheck: %v", err)
	}
	src := findSource(t, sdb, dataset.Transport)
	if src.CheckStatus == nil || *src.CheckStatus != 200 {
		t.Fatalf("expected check_status=200, got %v", src.CheckStatus)
	}
	if src.LastCheck == nil || *src.LastCheck == 0 {
		t.Fatal("expected last_check to be set")
	}
	if src.CheckError != nil {
		t.Fatalf("expected nil check_error, got %v", *src.CheckError)
	}

	if err := sdb.UpdateCheck(dataset.Transport, 404, "not found"); err != nil {
		t.Fatalf("UpdateCheck with error: %v", err)
	}
	src = findSource(t, sdb, dataset.Transport)
	if src.CheckStatus == nil || *src.CheckStatus != 404 {
		t.Fatalf("expected check_status=404, got %v", src.CheckStatus)
	}
	if src.CheckError == nil || *src.CheckError != "not found" {
		t.Fatalf("expected check_error='not found', got %v", src.CheckError)
	}
}

func TestListSources_OrderAndLocation(t *testing.T) {
	sdb := seededSourceDB(t)

	sources, err := sdb.ListSources()
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(sources) != 10 {
		t.Fatalf("expected 10 sources, got %d", len(sources))
	}
	if sources[0].Dataset != dataset.AtmosphericTanks {
		t.Errorf("first source = %s, want atmospheric_tanks", sources[0].Dataset)
	}
	if loc := sources[0].Location(); loc != "AtmosphericTanks.json" {
		t.Errorf("Location = %q, want default file", loc)
	}
}

func findSource(t *testing.T, sdb *SourceDB, name dataset.Name) Source {
	t.Helper()
	sources, err := sdb.ListSources()
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	for _, s := range sources {
		if s.Dataset == name {
			return s
		}
	}
	t.Fatalf("source %s not found", name)
	return Source{}
}
