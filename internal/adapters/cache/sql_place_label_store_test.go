package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSQLPlaceLabelStoreGet(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery("FROM place_labels WHERE coord_key = \\$1").
		WithArgs("3.848000,11.502100").
		WillReturnRows(sqlmock.NewRows([]string{"label"}).AddRow("Bastos"))
	mock.ExpectQuery("FROM place_labels").
		WithArgs("0.000000,0.000000").
		WillReturnRows(sqlmock.NewRows([]string{"label"}))

	store := NewSQLPlaceLabelStore(db)

	label, ok, err := store.GetLabel(context.Background(), "3.848000,11.502100")
	if err != nil || !ok || label != "Bastos" {
		t.Fatalf("GetLabel = %q, %v, %v", label, ok, err)
	}

	_, ok, err = store.GetLabel(context.Background(), "0.000000,0.000000")
	if err != nil || ok {
		t.Fatalf("GetLabel on miss = ok %v, err %v", ok, err)
	}
}

func TestSQLPlaceLabelStorePut(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectExec("INSERT INTO place_labels").
		WithArgs("k", "Bastos").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO place_labels").
		WillReturnError(errors.New("read-only transaction"))

	store := NewSQLPlaceLabelStore(db)

	if err := store.PutLabel(context.Background(), "k", "Bastos"); err != nil {
		t.Fatalf("PutLabel: %v", err)
	}
	if err := store.PutLabel(context.Background(), "k", "Bastos"); err == nil {
		t.Fatalf("expected error from failing exec")
	}
	if err := store.PutLabel(context.Background(), " ", "x"); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
