package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
)

func newMySQLAdapter(t *testing.T) (*MySQLAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewMySQLAdapter(db), mock
}

func TestMySQLLoad_Missing(t *testing.T) {
	adapter, mock := newMySQLAdapter(t)
	mock.ExpectQuery(`SELECT payload FROM tenant_snapshots`).
		WithArgs("mcdonalds").
		WillReturnError(sql.ErrNoRows)

	snap, err := adapter.Load(context.Background(), "mcdonalds")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil snapshot, got %+v", snap)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMySQLLoad_Decodes(t *testing.T) {
	adapter, mock := newMySQLAdapter(t)
	payload, _ := json.Marshal(sampleSnapshot("mcdonalds", 5))
	mock.ExpectQuery(`SELECT payload FROM tenant_snapshots`).
		WithArgs("mcdonalds").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	snap, err := adapter.Load(context.Background(), "mcdonalds")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Generation != 5 || snap.MenuItems[0].ID != "burger-001" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestMySQLSave_InsertsNewTenant(t *testing.T) {
	adapter, mock := newMySQLAdapter(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT generation FROM tenant_snapshots WHERE tenant_id = \? FOR UPDATE`).
		WithArgs("mcdonalds").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO tenant_snapshots`).
		WithArgs("mcdonalds", uint64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := adapter.Save(context.Background(), "mcdonalds", sampleSnapshot("mcdonalds", 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMySQLSave_UpdatesNewerGeneration(t *testing.T) {
	adapter, mock := newMySQLAdapter(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT generation FROM tenant_snapshots`).
		WithArgs("mcdonalds").
		WillReturnRows(sqlmock.NewRows([]string{"generation"}).AddRow(uint64(4)))
	mock.ExpectExec(`UPDATE tenant_snapshots`).
		WithArgs(uint64(9), sqlmock.AnyArg(), sqlmock.AnyArg(), "mcdonalds").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := adapter.Save(context.Background(), "mcdonalds", sampleSnapshot("mcdonalds", 9)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMySQLSave_RejectsStaleGeneration(t *testing.T) {
	adapter, mock := newMySQLAdapter(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT generation FROM tenant_snapshots`).
		WithArgs("mcdonalds").
		WillReturnRows(sqlmock.NewRows([]string{"generation"}).AddRow(uint64(9)))
	mock.ExpectRollback()

	err := adapter.Save(context.Background(), "mcdonalds", sampleSnapshot("mcdonalds", 9))
	if !errors.Is(err, domain.ErrStaleSnapshot) {
		t.Fatalf("expected ErrStaleSnapshot, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMySQLSave_RollsBackOnWriteFailure(t *testing.T) {
	adapter, mock := newMySQLAdapter(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT generation FROM tenant_snapshots`).
		WithArgs("mcdonalds").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO tenant_snapshots`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if err := adapter.Save(context.Background(), "mcdonalds", sampleSnapshot("mcdonalds", 1)); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMySQLEnsureSchema(t *testing.T) {
	adapter, mock := newMySQLAdapter(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS tenant_snapshots`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := adapter.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
