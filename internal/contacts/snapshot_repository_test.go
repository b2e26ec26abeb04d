package contacts

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var snapshotColumns = []string{"id", "name", "email", "phone", "assigned_agent", "campaign", "tags", "source", "created_on", "last_contacted_at", "notes"}

func TestSnapshotRepositoryLoad(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	created := time.Date(2026, time.February, 1, 8, 0, 0, 0, time.UTC)
	contacted := created.Add(24 * time.Hour)
	rows := pgxmock.NewRows(snapshotColumns).
		AddRow("a", "Ada", "ada@example.com", "+1", "1", "c1", []string{"Hot"}, "csv", created, &contacted, "note").
		AddRow("b", "Bob", "bob@example.com", "", "", "", []string{}, "manual", created, (*time.Time)(nil), "")
	mock.ExpectQuery("SELECT id, name, email").WithArgs("org-1").WillReturnRows(rows)

	repo := newSnapshotRepositoryWithQuerier(mock)
	got, err := repo.Load(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(got))
	}
	if got[0].Source != SourceCSV || got[0].LastContactedAt == nil || !got[0].LastContactedAt.Equal(contacted) {
		t.Fatalf("unexpected first contact %+v", got[0])
	}
	if got[1].LastContactedAt != nil || got[1].Source != SourceManual {
		t.Fatalf("unexpected second contact %+v", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSnapshotRepositorySave(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	created := time.Date(2026, time.February, 1, 8, 0, 0, 0, time.UTC)
	list := []Contact{
		{ID: "a", Name: "Ada", Email: "ada@example.com", Tags: []string{"Hot"}, Source: SourceCSV, CreatedOn: created},
		{ID: "b", Name: "Bob", Email: "bob@example.com", Source: SourceAPI, CreatedOn: created},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM contacts").WithArgs("org-1").WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec("INSERT INTO contacts").
		WithArgs("org-1", "a", 0, "Ada", "ada@example.com", "", "", "", []string{"Hot"}, "csv", created, (*time.Time)(nil), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO contacts").
		WithArgs("org-1", "b", 1, "Bob", "bob@example.com", "", "", "", []string{}, "api", created, (*time.Time)(nil), "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := newSnapshotRepositoryWithQuerier(mock)
	if err := repo.Save(context.Background(), "org-1", list); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSnapshotRepositorySaveRollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM contacts").WithArgs("org-1").WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	repo := newSnapshotRepositoryWithQuerier(mock)
	if err := repo.Save(context.Background(), "org-1", nil); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSnapshotRepositoryOrgIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT DISTINCT org_id FROM contacts").
		WillReturnRows(pgxmock.NewRows([]string{"org_id"}).AddRow("org-1").AddRow("org-2"))

	repo := newSnapshotRepositoryWithQuerier(mock)
	ids, err := repo.OrgIDs(context.Background())
	if err != nil {
		t.Fatalf("org ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "org-1" || ids[1] != "org-2" {
		t.Fatalf("unexpected org ids %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
