//-------------------------------------------------------------------------
//
// ecomdw - E-commerce Analytics Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

//go:build integration
// +build integration

// Integration tests for the warehouse package.
// Run with: go test -tags=integration ./internal/warehouse/...
// Requires PostgreSQL to be available.
// Set ECOMDW_TEST_CONN environment variable to override connection string.

package warehouse_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pgEdge/ecomdw/internal/datagen"
	"github.com/pgEdge/ecomdw/internal/db"
	"github.com/pgEdge/ecomdw/internal/testutil"
	"github.com/pgEdge/ecomdw/internal/warehouse"
)

// setupTestWarehouse creates a fresh test database, provisions the schema and
// returns a pool connected to it. Cleanup is registered with the test.
func setupTestWarehouse(t *testing.T) *pgxpool.Pool {
	t.Helper()

	baseConnStr := testutil.SkipIfNoPostgres(t)
	testConnStr := testutil.CreateTestDB(t, baseConnStr)
	dbName := testutil.GetDBNameFromConnStr(testConnStr)

	cleanup := testutil.NewTestCleanup(t, baseConnStr, dbName)
	t.Cleanup(cleanup.Cleanup)

	pool := testutil.ConnectTestDB(t, testConnStr)
	cleanup.SetPool(pool)

	if err := warehouse.Provision(context.Background(), pool); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}
	return pool
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

// fixtureExtract builds a small hand-written extract with known analytics:
// four customer personas, one of which orders in two different months, and
// three categories with item sales of 300, 200 and 100.
func fixtureExtract() *datagen.Extract {
	delivered := date(2023, time.January, 20)
	return &datagen.Extract{
		Customers: []datagen.Customer{
			{ID: "c1", UniqueID: "u1", City: "Austin", State: "TX"},
			{ID: "c2", UniqueID: "u1", City: "Austin", State: "TX"},
			{ID: "c3", UniqueID: "u2", City: "Boston", State: "MA"},
			{ID: "c4", UniqueID: "u3", City: "Denver", State: "CO"},
			{ID: "c5", UniqueID: "u4", City: "Miami", State: "FL"},
		},
		Sellers: []datagen.Seller{
			{ID: "s1", City: "Dallas", State: "TX"},
		},
		Categories: []datagen.CategoryTranslation{
			{Name: "electronics", NameEnglish: "electronics"},
			{Name: "books", NameEnglish: "books"},
			{Name: "toys", NameEnglish: "toys"},
		},
		Products: []datagen.Product{
			{ID: "p1", CategoryName: "electronics"},
			{ID: "p2", CategoryName: "books"},
			{ID: "p3", CategoryName: "toys"},
		},
		Orders: []datagen.Order{
			{ID: "o1", CustomerID: "c1", Status: "delivered",
				Purchase: date(2023, time.January, 15), Approved: date(2023, time.January, 15),
				Carrier: date(2023, time.January, 17), Delivered: &delivered,
				Estimated: date(2023, time.January, 25)},
			{ID: "o2", CustomerID: "c2", Status: "shipped",
				Purchase: date(2023, time.February, 10), Approved: date(2023, time.February, 10),
				Carrier: date(2023, time.February, 12),
				Estimated: date(2023, time.February, 20)},
			{ID: "o3", CustomerID: "c3", Status: "processing",
				Purchase: date(2023, time.January, 20), Approved: date(2023, time.January, 21),
				Estimated: date(2023, time.January, 30)},
			{ID: "o4", CustomerID: "c4", Status: "invoiced",
				Purchase: date(2023, time.January, 25), Approved: date(2023, time.January, 25),
				Estimated: date(2023, time.February, 5)},
			{ID: "o5", CustomerID: "c5", Status: "canceled",
				Purchase: date(2023, time.January, 5), Approved: date(2023, time.January, 5),
				Estimated: date(2023, time.January, 15)},
		},
		OrderItems: []datagen.OrderItem{
			{OrderID: "o1", ItemID: 1, ProductID: "p1", SellerID: "s1",
				ShippingLimit: date(2023, time.January, 18),
				Price:         decimal.RequireFromString("300.00"),
				FreightValue:  decimal.RequireFromString("10.00")},
			{OrderID: "o3", ItemID: 1, ProductID: "p2", SellerID: "s1",
				ShippingLimit: date(2023, time.January, 23),
				Price:         decimal.RequireFromString("200.00"),
				FreightValue:  decimal.RequireFromString("5.00")},
			{OrderID: "o4", ItemID: 1, ProductID: "p3", SellerID: "s1",
				ShippingLimit: date(2023, time.January, 28),
				Price:         decimal.RequireFromString("100.00"),
				FreightValue:  decimal.RequireFromString("2.50")},
		},
		Payments: []datagen.Payment{
			{OrderID: "o1", Sequential: 1, Type: "credit_card", Installments: 2,
				Value: decimal.RequireFromString("100.00")},
			{OrderID: "o1", Sequential: 2, Type: "voucher", Installments: 1,
				Value: decimal.RequireFromString("50.00")},
		},
		Reviews: []datagen.Review{
			{ID: "r1", OrderID: "o1", Score: 5,
				Creation: date(2023, time.January, 22), Answer: date(2023, time.January, 24)},
		},
	}
}

// TestProvisionIdempotent provisions twice and verifies the schema is usable
// and empty after the second run.
func TestProvisionIdempotent(t *testing.T) {
	pool := setupTestWarehouse(t)
	ctx := context.Background()

	loader := warehouse.NewLoader(pool)
	if err := loader.LoadExtract(ctx, fixtureExtract()); err != nil {
		t.Fatalf("LoadExtract failed: %v", err)
	}

	// Re-provisioning must discard all loaded data.
	if err := warehouse.Provision(ctx, pool); err != nil {
		t.Fatalf("Second Provision failed: %v", err)
	}

	for _, table := range warehouse.TableNames {
		var count int64
		if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Fatalf("Failed to count %s: %v", table, err)
		}
		if count != 0 {
			t.Errorf("Table %s has %d rows after re-provision, want 0", table, count)
		}
	}

	if err := db.CheckProvisioned(ctx, pool); err != nil {
		t.Errorf("CheckProvisioned failed after re-provision: %v", err)
	}
}

// TestCheckUnprovisioned verifies that an empty database reports
// ErrSchemaNotProvisioned.
func TestCheckUnprovisioned(t *testing.T) {
	baseConnStr := testutil.SkipIfNoPostgres(t)
	testConnStr := testutil.CreateTestDB(t, baseConnStr)
	dbName := testutil.GetDBNameFromConnStr(testConnStr)

	cleanup := testutil.NewTestCleanup(t, baseConnStr, dbName)
	t.Cleanup(cleanup.Cleanup)

	pool := testutil.ConnectTestDB(t, testConnStr)
	cleanup.SetPool(pool)

	err := db.CheckProvisioned(context.Background(), pool)
	if !errors.Is(err, db.ErrSchemaNotProvisioned) {
		t.Errorf("CheckProvisioned = %v, want ErrSchemaNotProvisioned", err)
	}
}

// TestDateDimRepopulate populates the same range twice and an overlapping
// range; existing days must be skipped, not duplicated.
func TestDateDimRepopulate(t *testing.T) {
	pool := setupTestWarehouse(t)
	ctx := context.Background()

	start := date(2023, time.March, 1)
	end := date(2023, time.March, 31)

	n, err := warehouse.PopulateDateDim(ctx, pool, start, end)
	if err != nil {
		t.Fatalf("PopulateDateDim failed: %v", err)
	}
	if n != 31 {
		t.Errorf("First populate inserted %d rows, want 31", n)
	}

	// Same range again: all days already exist.
	if _, err := warehouse.PopulateDateDim(ctx, pool, start, end); err != nil {
		t.Fatalf("Second PopulateDateDim failed: %v", err)
	}

	// Overlapping range extending into April.
	if _, err := warehouse.PopulateDateDim(ctx, pool, date(2023, time.March, 15),
		date(2023, time.April, 10)); err != nil {
		t.Fatalf("Overlapping PopulateDateDim failed: %v", err)
	}

	var count int64
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM dim_date").Scan(&count); err != nil {
		t.Fatalf("Failed to count dim_date: %v", err)
	}
	if count != 41 {
		t.Errorf("dim_date has %d rows, want 41 (Mar 1 - Apr 10)", count)
	}
}

// TestLoadExtractRowCounts loads the fixture and checks the fact row counts.
func TestLoadExtractRowCounts(t *testing.T) {
	pool := setupTestWarehouse(t)
	ctx := context.Background()

	loader := warehouse.NewLoader(pool)
	if err := loader.LoadExtract(ctx, fixtureExtract()); err != nil {
		t.Fatalf("LoadExtract failed: %v", err)
	}

	counts := map[string]int64{
		"dim_customer":     5,
		"dim_seller":       1,
		"dim_category":     3,
		"dim_product":      3,
		"fact_orders":      5,
		"fact_order_items": 3,
		"fact_payments":    2,
		"fact_reviews":     1,
	}
	for table, want := range counts {
		var got int64
		if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&got); err != nil {
			t.Fatalf("Failed to count %s: %v", table, err)
		}
		if got != want {
			t.Errorf("Table %s has %d rows, want %d", table, got, want)
		}
	}
}

// TestConstraintErrors verifies the error taxonomy against the live schema.
func TestConstraintErrors(t *testing.T) {
	pool := setupTestWarehouse(t)
	ctx := context.Background()

	loader := warehouse.NewLoader(pool)
	if err := loader.LoadExtract(ctx, fixtureExtract()); err != nil {
		t.Fatalf("LoadExtract failed: %v", err)
	}

	t.Run("OrderWithMissingCustomer", func(t *testing.T) {
		_, err := pool.Exec(ctx, `
            INSERT INTO fact_orders (order_id, customer_key, order_status,
                purchase_date_key, approved_date_key, estimated_date_key)
            VALUES ('ox', 999999, 'delivered', 20230115, 20230115, 20230125)
        `)
		var cv *db.ConstraintViolationError
		if !errors.As(db.MapError(err), &cv) {
			t.Errorf("Got %v, want ConstraintViolationError", err)
		}
	})

	t.Run("DuplicateOrderItem", func(t *testing.T) {
		var productKey, sellerKey int64
		if err := pool.QueryRow(ctx,
			"SELECT product_key FROM dim_product WHERE product_id = 'p1'").Scan(&productKey); err != nil {
			t.Fatalf("Failed to look up product: %v", err)
		}
		if err := pool.QueryRow(ctx,
			"SELECT seller_key FROM dim_seller WHERE seller_id = 's1'").Scan(&sellerKey); err != nil {
			t.Fatalf("Failed to look up seller: %v", err)
		}

		_, err := pool.Exec(ctx, `
            INSERT INTO fact_order_items (order_id, order_item_id, product_key,
                seller_key, shipping_limit_date_key, price, freight_value)
            VALUES ('o1', 1, $1, $2, 20230118, 10.00, 1.00)
        `, productKey, sellerKey)
		var dup *db.DuplicateKeyError
		if !errors.As(db.MapError(err), &dup) {
			t.Errorf("Got %v, want DuplicateKeyError", err)
		}
	})

	t.Run("PaymentForMissingOrder", func(t *testing.T) {
		var typeKey int64
		if err := pool.QueryRow(ctx,
			"SELECT payment_type_key FROM dim_payment_type LIMIT 1").Scan(&typeKey); err != nil {
			t.Fatalf("Failed to look up payment type: %v", err)
		}

		_, err := pool.Exec(ctx, `
            INSERT INTO fact_payments (order_id, payment_sequential,
                payment_type_key, installments, payment_value)
            VALUES ('nosuchorder', 1, $1, 1, 10.00)
        `, typeKey)
		var cv *db.ConstraintViolationError
		if !errors.As(db.MapError(err), &cv) {
			t.Errorf("Got %v, want ConstraintViolationError", err)
		}
	})

	t.Run("ReviewForMissingOrder", func(t *testing.T) {
		var scoreKey int64
		if err := pool.QueryRow(ctx,
			"SELECT review_score_key FROM dim_review_score LIMIT 1").Scan(&scoreKey); err != nil {
			t.Fatalf("Failed to look up review score: %v", err)
		}

		_, err := pool.Exec(ctx, `
            INSERT INTO fact_reviews (review_id, order_id, review_score_key,
                creation_date_key, answer_date_key)
            VALUES ('rx', 'nosuchorder', $1, 20230122, 20230124)
        `, scoreKey)
		var cv *db.ConstraintViolationError
		if !errors.As(db.MapError(err), &cv) {
			t.Errorf("Got %v, want ConstraintViolationError", err)
		}
	})

	t.Run("NegativePrice", func(t *testing.T) {
		var productKey, sellerKey int64
		if err := pool.QueryRow(ctx,
			"SELECT product_key FROM dim_product WHERE product_id = 'p1'").Scan(&productKey); err != nil {
			t.Fatalf("Failed to look up product: %v", err)
		}
		if err := pool.QueryRow(ctx,
			"SELECT seller_key FROM dim_seller WHERE seller_id = 's1'").Scan(&sellerKey); err != nil {
			t.Fatalf("Failed to look up seller: %v", err)
		}

		_, err := pool.Exec(ctx, `
            INSERT INTO fact_order_items (order_id, order_item_id, product_key,
                seller_key, shipping_limit_date_key, price, freight_value)
            VALUES ('o3', 2, $1, $2, 20230123, -1.00, 1.00)
        `, productKey, sellerKey)
		var cv *db.ConstraintViolationError
		if !errors.As(db.MapError(err), &cv) {
			t.Errorf("Got %v, want ConstraintViolationError", err)
		}
	})
}

// TestAnalyticalQueries runs the three reports against the fixture.
func TestAnalyticalQueries(t *testing.T) {
	pool := setupTestWarehouse(t)
	ctx := context.Background()

	loader := warehouse.NewLoader(pool)
	if err := loader.LoadExtract(ctx, fixtureExtract()); err != nil {
		t.Fatalf("LoadExtract failed: %v", err)
	}

	t.Run("MonthlyRevenue", func(t *testing.T) {
		rows, err := warehouse.MonthlyRevenue(ctx, pool, warehouse.DefaultQueryOptions())
		if err != nil {
			t.Fatalf("MonthlyRevenue failed: %v", err)
		}
		// Only order o1 has payments: 100.00 + 50.00 in January 2023.
		if len(rows) != 1 {
			t.Fatalf("Got %d revenue rows, want 1", len(rows))
		}
		row := rows[0]
		if row.Year != 2023 || row.Month != 1 {
			t.Errorf("Got bucket %d-%d, want 2023-1", row.Year, row.Month)
		}
		if row.Revenue.StringFixed(2) != "150.00" {
			t.Errorf("Got revenue %s, want 150.00", row.Revenue.StringFixed(2))
		}
	})

	t.Run("TopCategories", func(t *testing.T) {
		opts := warehouse.DefaultQueryOptions()
		opts.TopN = 2
		rows, err := warehouse.TopCategories(ctx, pool, opts)
		if err != nil {
			t.Fatalf("TopCategories failed: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("Got %d categories, want 2", len(rows))
		}
		if rows[0].Category != "electronics" || rows[0].TotalSales.StringFixed(2) != "300.00" {
			t.Errorf("Got first category %s/%s, want electronics/300.00",
				rows[0].Category, rows[0].TotalSales.StringFixed(2))
		}
		if rows[1].Category != "books" || rows[1].TotalSales.StringFixed(2) != "200.00" {
			t.Errorf("Got second category %s/%s, want books/200.00",
				rows[1].Category, rows[1].TotalSales.StringFixed(2))
		}
	})

	t.Run("TopCategoriesDateFilter", func(t *testing.T) {
		// Restricting to February excludes every order item (all placed in
		// January), so the report is empty.
		opts := warehouse.DefaultQueryOptions()
		opts.From = date(2023, time.February, 1)
		rows, err := warehouse.TopCategories(ctx, pool, opts)
		if err != nil {
			t.Fatalf("TopCategories failed: %v", err)
		}
		if len(rows) != 0 {
			t.Errorf("Got %d categories for February, want 0", len(rows))
		}
	})

	t.Run("RetentionRate", func(t *testing.T) {
		// Persona u1 orders in January and February; u2, u3 and u4 order once.
		result, err := warehouse.RetentionRate(ctx, pool, warehouse.DefaultQueryOptions())
		if err != nil {
			t.Fatalf("RetentionRate failed: %v", err)
		}
		if result.TotalCustomers != 4 {
			t.Errorf("Got %d total customers, want 4", result.TotalCustomers)
		}
		if result.RepeatCustomers != 1 {
			t.Errorf("Got %d repeat customers, want 1", result.RepeatCustomers)
		}
		if result.Rate != 0.25 {
			t.Errorf("Got retention rate %f, want 0.25", result.Rate)
		}
	})
}

// TestGeneratedExtractLoads generates a small seeded extract and loads it
// end-to-end, then sanity-checks the reports run.
func TestGeneratedExtractLoads(t *testing.T) {
	pool := setupTestWarehouse(t)
	ctx := context.Background()

	gen := datagen.NewSourceGenerator(datagen.SourceConfig{
		Customers: 20,
		Sellers:   5,
		Products:  10,
		Orders:    50,
		Start:     date(2023, time.January, 1),
		End:       date(2023, time.June, 30),
		Seed:      42,
	})
	extract, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	loader := warehouse.NewLoader(pool)
	if err := loader.LoadExtract(ctx, extract); err != nil {
		t.Fatalf("LoadExtract failed: %v", err)
	}

	var orders int64
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM fact_orders").Scan(&orders); err != nil {
		t.Fatalf("Failed to count fact_orders: %v", err)
	}
	if orders != 50 {
		t.Errorf("fact_orders has %d rows, want 50", orders)
	}

	if _, err := warehouse.MonthlyRevenue(ctx, pool, warehouse.DefaultQueryOptions()); err != nil {
		t.Errorf("MonthlyRevenue failed: %v", err)
	}
	if _, err := warehouse.TopCategories(ctx, pool, warehouse.DefaultQueryOptions()); err != nil {
		t.Errorf("TopCategories failed: %v", err)
	}
	if _, err := warehouse.RetentionRate(ctx, pool, warehouse.DefaultQueryOptions()); err != nil {
		t.Errorf("RetentionRate failed: %v", err)
	}
}
