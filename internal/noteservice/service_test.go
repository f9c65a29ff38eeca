package noteservice

import (
	"context"
	"testing"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/testutil"
)

func TestCreateNoteDerivesTitle(t *testing.T) {
	db := testutil.TestDB(t)
	account := testutil.TestAccount(t, db)
	svc := NewService(db)
	ctx := context.Background()

	tests := []struct {
		name      string
		title     string
		content   string
		wantTitle string
	}{
		{"explicit title wins", "My Title", "# Heading\nbody", "My Title"},
		{"first content line", "", "first line\nsecond line", "first line"},
		{"heading markers trimmed", "", "# Heading\nbody", "Heading"},
		{"blank lines skipped", "", "\n\n  \nactual line", "actual line"},
		{"empty everything", "", "", "New note"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			note, err := svc.CreateNote(ctx, account.ID, tt.title, "", tt.content, false)
			if err != nil {
				t.Fatalf("CreateNote: %v", err)
			}
			if note.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", note.Title, tt.wantTitle)
			}
			if note.Status != models.StatusLocallyEdited {
				t.Errorf("status = %q, want %q", note.Status, models.StatusLocallyEdited)
			}
		})
	}
}

func TestUpdateNoteReDirties(t *testing.T) {
	db := testutil.TestDB(t)
	account := testutil.TestAccount(t, db)
	svc := NewService(db)
	ctx := context.Background()

	created, err := svc.CreateNote(ctx, account.ID, "n", "", "original", false)
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a completed push.
	snapshot, _ := db.GetNote(created.ID)
	if _, err := db.UpdateIfUnchanged(created.ID, models.RemoteNote{
		RemoteID: 1, Title: "n", Content: "original", Modified: snapshot.Modified,
	}, "original", *snapshot); err != nil {
		t.Fatal(err)
	}

	updated, err := svc.UpdateNote(ctx, created.ID, "n", "", "changed", false)
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if updated.Status != models.StatusLocallyEdited {
		t.Errorf("status = %q, an edit must re-dirty the note", updated.Status)
	}
	if updated.Content != "changed" {
		t.Errorf("content = %q", updated.Content)
	}
	if updated.Excerpt != "changed" {
		t.Errorf("excerpt = %q, want it regenerated", updated.Excerpt)
	}
}

func TestToggleFavorite(t *testing.T) {
	db := testutil.TestDB(t)
	account := testutil.TestAccount(t, db)
	svc := NewService(db)
	ctx := context.Background()

	note, err := svc.CreateNote(ctx, account.ID, "fav", "", "x", false)
	if err != nil {
		t.Fatal(err)
	}

	toggled, err := svc.ToggleFavorite(ctx, note.ID)
	if err != nil {
		t.Fatalf("ToggleFavorite: %v", err)
	}
	if !toggled.Favorite {
		t.Error("favorite = false, want true after toggle")
	}
	toggled, err = svc.ToggleFavorite(ctx, note.ID)
	if err != nil {
		t.Fatalf("ToggleFavorite: %v", err)
	}
	if toggled.Favorite {
		t.Error("favorite = true, want false after second toggle")
	}
}

func TestChangeListenerObservesWrites(t *testing.T) {
	db := testutil.TestDB(t)
	account := testutil.TestAccount(t, db)
	svc := NewService(db)
	ctx := context.Background()

	var events []models.Status
	svc.SetChangeListener(func(n models.Note) { events = append(events, n.Status) })

	note, err := svc.CreateNote(ctx, account.ID, "n", "", "x", false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateNote(ctx, note.ID, "n", "", "y", false); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteNote(ctx, note.ID); err != nil {
		t.Fatal(err)
	}

	want := []models.Status{
		models.StatusLocallyEdited,
		models.StatusLocallyEdited,
		models.StatusLocallyDeleted,
	}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestDeleteNoteOnlyMarks(t *testing.T) {
	db := testutil.TestDB(t)
	account := testutil.TestAccount(t, db)
	svc := NewService(db)
	ctx := context.Background()

	note, err := svc.CreateNote(ctx, account.ID, "gone", "", "x", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteNote(ctx, note.ID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}

	got, err := db.GetNote(note.ID)
	if err != nil {
		t.Fatalf("the row must survive until the push confirms: %v", err)
	}
	if got.Status != models.StatusLocallyDeleted {
		t.Errorf("status = %q, want %q", got.Status, models.StatusLocallyDeleted)
	}

	notes, err := svc.ListNotes(ctx, account.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range notes {
		if n.ID == note.ID {
			t.Error("a deleted note must not appear in listings")
		}
	}
}
