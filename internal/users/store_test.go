package users

import (
	"context"
	"errors"
	"testing"

	"qolintake/api/internal/docstore"
	"qolintake/api/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	docs, err := docstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	t.Cleanup(func() { docs.Close() })
	return New(docs)
}

func TestNextIdentifiersAreSequential(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	userID, patientID, err := store.NextIdentifiers(ctx)
	if err != nil {
		t.Fatalf("NextIdentifiers() error = %v", err)
	}
	if userID != "u001" || patientID != "0001" {
		t.Fatalf("first identifiers = %s/%s, want u001/0001", userID, patientID)
	}

	if err := store.Save(ctx, model.User{UserID: userID, PatientID: patientID, Email: "a@example.com", Role: model.RolePatient}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	userID, patientID, err = store.NextIdentifiers(ctx)
	if err != nil {
		t.Fatalf("NextIdentifiers() error = %v", err)
	}
	if userID != "u002" || patientID != "0002" {
		t.Fatalf("second identifiers = %s/%s, want u002/0002", userID, patientID)
	}
}

func TestGetByEmailIgnoresCase(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, model.User{UserID: "u001", PatientID: "0001", Email: "Mary@Example.com"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	user, err := store.GetByEmail(ctx, "  mary@example.COM ")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if user.UserID != "u001" {
		t.Fatalf("GetByEmail() = %s, want u001", user.UserID)
	}

	if _, err := store.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("GetByEmail(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestSetReportReady(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, model.User{UserID: "u001", PatientID: "0001", Email: "a@example.com"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	user, err := store.SetReportReady(ctx, "0001", true)
	if err != nil {
		t.Fatalf("SetReportReady() error = %v", err)
	}
	if !user.IsReport {
		t.Fatalf("returned user should carry the new flag")
	}

	stored, err := store.GetByID(ctx, "u001")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !stored.IsReport {
		t.Fatalf("flag should persist")
	}

	if _, err := store.SetReportReady(ctx, "9999", true); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("SetReportReady(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestSaveRequiresUserID(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(context.Background(), model.User{Email: "a@example.com"}); err == nil {
		t.Fatal("expected error for record without user_id")
	}
}
