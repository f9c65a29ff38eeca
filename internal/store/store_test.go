package store

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/apperr"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "notes-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testAccount(t *testing.T, db *DB) int64 {
	t.Helper()
	id, err := db.CreateAccount(models.Account{
		Name:     "tester@example.com",
		URL:      "https://cloud.example.com",
		Username: "tester",
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return id
}

func mustCreate(t *testing.T, db *DB, note models.Note) int64 {
	t.Helper()
	id, err := db.CreateNote(note)
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	return id
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM accounts`).Scan(&count); err != nil {
		t.Fatalf("accounts table missing: %v", err)
	}
}

func TestDirtyNotesOrderAndFilter(t *testing.T) {
	db := testDB(t)
	accountID := testAccount(t, db)

	first := mustCreate(t, db, models.Note{AccountID: accountID, Title: "a", Content: "a"})
	if _, err := db.CreateFromRemote(accountID, models.RemoteNote{RemoteID: 7, Title: "synced", Modified: time.Now()}, ""); err != nil {
		t.Fatalf("CreateFromRemote: %v", err)
	}
	second := mustCreate(t, db, models.Note{AccountID: accountID, Title: "b", Content: "b"})
	if err := db.MarkDeleted(second); err != nil {
		t.Fatalf("MarkDeleted: %v", err)
	}

	dirty, err := db.DirtyNotes(accountID)
	if err != nil {
		t.Fatalf("DirtyNotes: %v", err)
	}
	if len(dirty) != 2 {
		t.Fatalf("len(dirty) = %d, want 2", len(dirty))
	}
	if dirty[0].ID != first || dirty[1].ID != second {
		t.Errorf("dirty order = [%d %d], want [%d %d]", dirty[0].ID, dirty[1].ID, first, second)
	}
	if dirty[0].Status != models.StatusLocallyEdited {
		t.Errorf("status = %q, want %q", dirty[0].Status, models.StatusLocallyEdited)
	}
	if dirty[1].Status != models.StatusLocallyDeleted {
		t.Errorf("status = %q, want %q", dirty[1].Status, models.StatusLocallyDeleted)
	}
}

func TestUpdateIfUnchangedApplies(t *testing.T) {
	db := testDB(t)
	accountID := testAccount(t, db)
	id := mustCreate(t, db, models.Note{AccountID: accountID, Title: "draft", Content: "hello"})

	snapshot, err := db.GetNote(id)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}

	confirmed := models.RemoteNote{
		RemoteID: 42,
		Title:    "draft",
		Content:  "hello",
		ETag:     "v1",
		Modified: time.Unix(1700000000, 0),
	}
	applied, err := db.UpdateIfUnchanged(id, confirmed, "hello", *snapshot)
	if err != nil {
		t.Fatalf("UpdateIfUnchanged: %v", err)
	}
	if !applied {
		t.Fatal("expected conditional update to apply")
	}

	got, err := db.GetNote(id)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Status != models.StatusSynced {
		t.Errorf("status = %q, want %q", got.Status, models.StatusSynced)
	}
	if got.ETag != "v1" {
		t.Errorf("etag = %q, want v1", got.ETag)
	}
	if !got.Modified.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("modified = %v, want %v", got.Modified, time.Unix(1700000000, 0))
	}
}

func TestUpdateIfUnchangedSkipsOnConcurrentEdit(t *testing.T) {
	db := testDB(t)
	accountID := testAccount(t, db)
	id := mustCreate(t, db, models.Note{AccountID: accountID, Title: "draft", Content: "hello"})

	snapshot, err := db.GetNote(id)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}

	// Concurrent edit between snapshot and merge.
	edited := *snapshot
	edited.Content = "hello, edited again"
	if err := db.UpdateNote(edited); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}

	applied, err := db.UpdateIfUnchanged(id, models.RemoteNote{Title: "draft", Content: "hello", ETag: "v1", Modified: time.Now()}, "hello", *snapshot)
	if err != nil {
		t.Fatalf("UpdateIfUnchanged: %v", err)
	}
	if applied {
		t.Fatal("conditional update must not clobber a newer local edit")
	}

	got, _ := db.GetNote(id)
	if got.Content != "hello, edited again" {
		t.Errorf("content = %q, want the newer local edit", got.Content)
	}
	if got.Status != models.StatusLocallyEdited {
		t.Errorf("status = %q, want %q", got.Status, models.StatusLocallyEdited)
	}
}

func TestUpdateIfUnchangedSkipsOnConcurrentDelete(t *testing.T) {
	db := testDB(t)
	accountID := testAccount(t, db)
	id := mustCreate(t, db, models.Note{AccountID: accountID, Title: "draft", Content: "hello"})

	snapshot, _ := db.GetNote(id)
	if err := db.MarkDeleted(id); err != nil {
		t.Fatalf("MarkDeleted: %v", err)
	}

	applied, err := db.UpdateIfUnchanged(id, models.RemoteNote{Title: "draft", Content: "hello", Modified: time.Now()}, "hello", *snapshot)
	if err != nil {
		t.Fatalf("UpdateIfUnchanged: %v", err)
	}
	if applied {
		t.Fatal("conditional update must not resurrect a deleted note")
	}
}

func TestDeleteIfUnchanged(t *testing.T) {
	db := testDB(t)
	accountID := testAccount(t, db)
	id := mustCreate(t, db, models.Note{AccountID: accountID, Title: "gone", Content: "x"})
	if err := db.MarkDeleted(id); err != nil {
		t.Fatalf("MarkDeleted: %v", err)
	}

	applied, err := db.DeleteIfUnchanged(id)
	if err != nil {
		t.Fatalf("DeleteIfUnchanged: %v", err)
	}
	if !applied {
		t.Fatal("expected conditional delete to apply")
	}
	if _, err := db.GetNote(id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetNote after delete: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteIfUnchangedSkipsReDirtiedRow(t *testing.T) {
	db := testDB(t)
	accountID := testAccount(t, db)
	id := mustCreate(t, db, models.Note{AccountID: accountID, Title: "gone", Content: "x"})
	if err := db.MarkDeleted(id); err != nil {
		t.Fatalf("MarkDeleted: %v", err)
	}

	// Edit racing the delete round trip.
	note, _ := db.GetNote(id)
	note.Content = "actually keep this"
	if err := db.UpdateNote(*note); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}

	applied, err := db.DeleteIfUnchanged(id)
	if err != nil {
		t.Fatalf("DeleteIfUnchanged: %v", err)
	}
	if applied {
		t.Fatal("conditional delete must keep a re-dirtied row")
	}
	if _, err := db.GetNote(id); err != nil {
		t.Errorf("row should still exist: %v", err)
	}
}

func TestApplyRemote(t *testing.T) {
	db := testDB(t)
	accountID := testAccount(t, db)
	id, err := db.CreateFromRemote(accountID, models.RemoteNote{
		RemoteID: 100, Title: "t", Content: "old", ETag: "v1", Modified: time.Unix(1000, 0),
	}, "old")
	if err != nil {
		t.Fatalf("CreateFromRemote: %v", err)
	}

	applied, err := db.ApplyRemote(id, models.RemoteNote{
		RemoteID: 100, Title: "t", Content: "new", ETag: "v2", Modified: time.Unix(2000, 0),
	}, "new")
	if err != nil {
		t.Fatalf("ApplyRemote: %v", err)
	}
	if !applied {
		t.Fatal("expected remote update to apply")
	}
	got, _ := db.GetNote(id)
	if got.Content != "new" || got.ETag != "v2" {
		t.Errorf("note = %v, want new content and etag v2", got)
	}

	// Identical values: no column changed, nothing to write.
	applied, err = db.ApplyRemote(id, models.RemoteNote{
		RemoteID: 100, Title: "t", Content: "new", ETag: "v2", Modified: time.Unix(2000, 0),
	}, "new")
	if err != nil {
		t.Fatalf("ApplyRemote: %v", err)
	}
	if applied {
		t.Error("identical remote values should be a no-op")
	}
}

func TestApplyRemoteSkipsDirtyRow(t *testing.T) {
	db := testDB(t)
	accountID := testAccount(t, db)
	id, err := db.CreateFromRemote(accountID, models.RemoteNote{
		RemoteID: 100, Title: "t", Content: "old", Modified: time.Unix(1000, 0),
	}, "old")
	if err != nil {
		t.Fatalf("CreateFromRemote: %v", err)
	}

	note, _ := db.GetNote(id)
	note.Content = "local edit"
	if err := db.UpdateNote(*note); err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}

	applied, err := db.ApplyRemote(id, models.RemoteNote{
		RemoteID: 100, Title: "t", Content: "server view", Modified: time.Unix(2000, 0),
	}, "server view")
	if err != nil {
		t.Fatalf("ApplyRemote: %v", err)
	}
	if applied {
		t.Fatal("pull must not overwrite unresolved local edits")
	}
	got, _ := db.GetNote(id)
	if got.Content != "local edit" {
		t.Errorf("content = %q, want the local edit", got.Content)
	}
}

func TestRemoteIDMap(t *testing.T) {
	db := testDB(t)
	accountID := testAccount(t, db)

	localNew := mustCreate(t, db, models.Note{AccountID: accountID, Title: "new", Content: "x"})
	remoteOne, _ := db.CreateFromRemote(accountID, models.RemoteNote{RemoteID: 100, Modified: time.Now()}, "")
	remoteTwo, _ := db.CreateFromRemote(accountID, models.RemoteNote{RemoteID: 200, Modified: time.Now()}, "")

	idMap, err := db.RemoteIDMap(accountID)
	if err != nil {
		t.Fatalf("RemoteIDMap: %v", err)
	}
	if len(idMap) != 2 {
		t.Fatalf("len(idMap) = %d, want 2 (never-synced note %d excluded)", len(idMap), localNew)
	}
	if idMap[100] != remoteOne || idMap[200] != remoteTwo {
		t.Errorf("idMap = %v", idMap)
	}
}

func TestSetRemoteID(t *testing.T) {
	db := testDB(t)
	accountID := testAccount(t, db)
	id := mustCreate(t, db, models.Note{AccountID: accountID, Title: "n", Content: "c"})

	if err := db.SetRemoteID(id, 555); err != nil {
		t.Fatalf("SetRemoteID: %v", err)
	}
	got, _ := db.GetNote(id)
	if got.RemoteID != 555 {
		t.Errorf("remote id = %d, want 555", got.RemoteID)
	}
	if got.Status != models.StatusLocallyEdited {
		t.Errorf("status = %q, setting the remote id must not change it", got.Status)
	}
}

func TestAccountWatermarks(t *testing.T) {
	db := testDB(t)
	accountID := testAccount(t, db)

	if err := db.UpdateETag(accountID, `"abc"`); err != nil {
		t.Fatalf("UpdateETag: %v", err)
	}
	when := time.Unix(1700000000, 0)
	if err := db.UpdateModified(accountID, when); err != nil {
		t.Fatalf("UpdateModified: %v", err)
	}

	changed, err := db.UpdateAPIVersion(accountID, "[1.3]")
	if err != nil {
		t.Fatalf("UpdateAPIVersion: %v", err)
	}
	if !changed {
		t.Error("first api version write should report a change")
	}
	changed, err = db.UpdateAPIVersion(accountID, "[1.3]")
	if err != nil {
		t.Fatalf("UpdateAPIVersion: %v", err)
	}
	if changed {
		t.Error("same api version should report no change")
	}

	account, err := db.GetAccount(accountID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if account.ETag != `"abc"` || !account.Modified.Equal(when) || account.APIVersion != "[1.3]" {
		t.Errorf("account = %+v", account)
	}
}

func TestGetAccountByName(t *testing.T) {
	db := testDB(t)
	testAccount(t, db)

	if _, err := db.GetAccountByName("tester@example.com"); err != nil {
		t.Fatalf("GetAccountByName: %v", err)
	}
	if _, err := db.GetAccountByName("nobody"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListNotesExcludesDeleted(t *testing.T) {
	db := testDB(t)
	accountID := testAccount(t, db)

	keep := mustCreate(t, db, models.Note{AccountID: accountID, Title: "keep", Content: "k"})
	gone := mustCreate(t, db, models.Note{AccountID: accountID, Title: "gone", Content: "g"})
	if err := db.MarkDeleted(gone); err != nil {
		t.Fatalf("MarkDeleted: %v", err)
	}

	notes, err := db.ListNotes(accountID, "")
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if len(notes) != 1 || notes[0].ID != keep {
		t.Errorf("notes = %v, want only note %d", notes, keep)
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)
	accountID := testAccount(t, db)

	mustCreate(t, db, models.Note{AccountID: accountID, Title: "Groceries", Content: "milk and eggs"})
	mustCreate(t, db, models.Note{AccountID: accountID, Title: "Meeting", Content: "quarterly planning"})

	hits, err := db.Search(accountID, "milk", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Title != "Groceries" {
		t.Errorf("hits = %v, want the groceries note", hits)
	}
}
