package prefs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoGetScansLists(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	updatedAt := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"favorite_cuisines", "disliked_foods", "dietary_restrictions", "spice_level", "portion_size", "updated_at",
	}).AddRow([]byte(`["川菜","粤菜"]`), []byte(`["香菜"]`), []byte(`[]`), SpiceMedium, PortionMedium, updatedAt)

	mock.ExpectQuery("SELECT favorite_cuisines, disliked_foods").WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	profile, err := repo.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(profile.FavoriteCuisines) != 2 || profile.FavoriteCuisines[0] != "川菜" {
		t.Errorf("FavoriteCuisines = %v", profile.FavoriteCuisines)
	}
	if len(profile.DislikedFoods) != 1 || profile.DislikedFoods[0] != "香菜" {
		t.Errorf("DislikedFoods = %v", profile.DislikedFoods)
	}
	if profile.SpiceLevel != SpiceMedium {
		t.Errorf("SpiceLevel = %d", profile.SpiceLevel)
	}
	if !profile.UpdatedAt.Equal(updatedAt) {
		t.Errorf("UpdatedAt = %v", profile.UpdatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT favorite_cuisines, disliked_foods").
		WillReturnRows(sqlmock.NewRows([]string{
			"favorite_cuisines", "disliked_foods", "dietary_restrictions", "spice_level", "portion_size", "updated_at",
		}))

	repo := &PGRepo{DB: db}
	if _, err := repo.Get(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoSaveUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	profile := Profile{
		FavoriteCuisines: []string{"川菜"},
		SpiceLevel:       SpiceHot,
		PortionSize:      PortionLarge,
		UpdatedAt:        time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO user_preferences").
		WithArgs(
			[]byte(`["川菜"]`),
			[]byte(`[]`),
			[]byte(`[]`),
			profile.SpiceLevel,
			profile.PortionSize,
			profile.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := &PGRepo{DB: db}
	if err := repo.Save(context.Background(), profile); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
