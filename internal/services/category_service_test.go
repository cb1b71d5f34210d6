package services

import (
	"context"
	"testing"
	"time"

	"monestat/internal/models"
	"monestat/internal/testutil"
)

func TestResolveOrCreate(t *testing.T) {
	t.Run("equivalent_spellings_share_one_id", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		ctx := context.Background()

		first, err := svc.ResolveOrCreate(ctx, "Groceries")
		testutil.AssertNoError(t, err)
		second, err := svc.ResolveOrCreate(ctx, " groceries ")
		testutil.AssertNoError(t, err)
		third, err := svc.ResolveOrCreate(ctx, "GROCERIES")
		testutil.AssertNoError(t, err)

		if first != second || second != third {
			t.Errorf("expected one id for all spellings, got %d, %d, %d", first, second, third)
		}

		var count int64
		if err := db.Model(&models.Category{}).Where("title = ?", "groceries").Count(&count).Error; err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected exactly one category row, got %d", count)
		}
	})

	t.Run("returns_existing_id_for_preexisting_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		existing := testutil.CreateTestCategoryWithTitle(t, db, "Utilities")
		id, err := svc.ResolveOrCreate(context.Background(), "utilities")
		testutil.AssertNoError(t, err)
		if id != existing.ID {
			t.Errorf("expected id %d, got %d", existing.ID, id)
		}
	})

	t.Run("empty_title_is_invalid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		_, err := svc.ResolveOrCreate(context.Background(), "   ")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestUpsertLimit(t *testing.T) {
	t.Run("creates_category_and_limit", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		start := testutil.Date(2020, time.March, 1)
		category, err := svc.UpsertLimit(context.Background(), "Dining Out", 250, start, 30, true)
		testutil.AssertNoError(t, err)

		if category.Title != "dining out" {
			t.Errorf("expected normalized title, got %q", category.Title)
		}
		if !category.HasLimit() {
			t.Fatal("expected an active limit")
		}
		if *category.LimitAmount != 250 || *category.PeriodDays != 30 {
			t.Errorf("unexpected limit fields: %v / %v", *category.LimitAmount, *category.PeriodDays)
		}
		if !category.StartDate.Equal(start) {
			t.Errorf("expected start date %v, got %v", start, category.StartDate)
		}
		if category.IsRepeated == nil || !*category.IsRepeated {
			t.Error("expected is_repeated to be true")
		}
	})

	t.Run("replaces_existing_limit", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		ctx := context.Background()

		start := testutil.Date(2020, time.January, 1)
		_, err := svc.UpsertLimit(ctx, "fuel", 100, start, 7, false)
		testutil.AssertNoError(t, err)

		later := testutil.Date(2020, time.June, 1)
		category, err := svc.UpsertLimit(ctx, "fuel", 150, later, 14, true)
		testutil.AssertNoError(t, err)

		if *category.LimitAmount != 150 || *category.PeriodDays != 14 {
			t.Errorf("expected replaced limit fields, got %v / %v", *category.LimitAmount, *category.PeriodDays)
		}

		var count int64
		if err := db.Model(&models.Category{}).Where("title = ?", "fuel").Count(&count).Error; err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected one category row after replace, got %d", count)
		}
	})

	t.Run("rejects_non_positive_values", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		ctx := context.Background()

		_, err := svc.UpsertLimit(ctx, "rent", 0, testutil.Date(2020, time.January, 1), 30, false)
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.UpsertLimit(ctx, "rent", 100, testutil.Date(2020, time.January, 1), 0, false)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetLimit(t *testing.T) {
	t.Run("unknown_category_is_empty_result", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		_, found, err := svc.GetLimit(context.Background(), "doesnotexist")
		testutil.AssertNoError(t, err)
		if found {
			t.Error("expected found=false for unknown category")
		}
	})

	t.Run("category_without_limit_is_empty_result", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		testutil.CreateTestCategoryWithTitle(t, db, "books")
		_, found, err := svc.GetLimit(context.Background(), "books")
		testutil.AssertNoError(t, err)
		if found {
			t.Error("expected found=false for category without a limit")
		}
	})

	t.Run("returns_active_limit_under_any_spelling", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		ctx := context.Background()

		_, err := svc.UpsertLimit(ctx, "travel", 500, testutil.Date(2020, time.May, 1), 90, false)
		testutil.AssertNoError(t, err)

		limit, found, err := svc.GetLimit(ctx, " TRAVEL ")
		testutil.AssertNoError(t, err)
		if !found {
			t.Fatal("expected the limit to be found")
		}
		if *limit.LimitAmount != 500 {
			t.Errorf("expected limit 500, got %v", *limit.LimitAmount)
		}
	})
}

func TestGetLimits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)
	ctx := context.Background()

	_, err := svc.UpsertLimit(ctx, "limitedone", 100, testutil.Date(2020, time.January, 1), 30, false)
	testutil.AssertNoError(t, err)
	_, err = svc.UpsertLimit(ctx, "limitedtwo", 200, testutil.Date(2020, time.January, 1), 30, false)
	testutil.AssertNoError(t, err)
	testutil.CreateTestCategoryWithTitle(t, db, "unlimitedone")

	limits, err := svc.GetLimits(ctx)
	testutil.AssertNoError(t, err)

	seen := make(map[string]bool)
	for _, limit := range limits {
		seen[limit.Title] = true
		if !limit.HasLimit() {
			t.Errorf("category %q returned without an active limit", limit.Title)
		}
	}
	if !seen["limitedone"] || !seen["limitedtwo"] {
		t.Errorf("expected both limited categories, got %v", seen)
	}
	if seen["unlimitedone"] {
		t.Error("category without a limit should not be listed")
	}
}

func TestDeleteLimit(t *testing.T) {
	t.Run("clears_fields_but_keeps_row", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		ctx := context.Background()

		created, err := svc.UpsertLimit(ctx, "coffee", 50, testutil.Date(2020, time.April, 1), 30, false)
		testutil.AssertNoError(t, err)

		found, err := svc.DeleteLimit(ctx, "COFFEE")
		testutil.AssertNoError(t, err)
		if !found {
			t.Fatal("expected the category to be found")
		}

		var category models.Category
		if err := db.First(&category, created.ID).Error; err != nil {
			t.Fatalf("category row should survive limit deletion: %v", err)
		}
		if category.HasLimit() || category.IsRepeated != nil {
			t.Error("expected all limit fields cleared")
		}
	})

	t.Run("unknown_category_reports_not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		found, err := svc.DeleteLimit(context.Background(), "neverseen")
		testutil.AssertNoError(t, err)
		if found {
			t.Error("expected found=false for unknown category")
		}
	})
}
