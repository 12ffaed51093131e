//-------------------------------------------------------------------------
//
// ecomdw - E-commerce Analytics Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/ecomdw/internal/db"
)

// QueryOptions configures the analytical queries. A zero From/To leaves the
// corresponding bound open.
type QueryOptions struct {
	// TopN is the number of categories returned by TopCategories.
	TopN int

	// From restricts results to orders placed on or after this date.
	From time.Time

	// To restricts results to orders placed on or before this date.
	To time.Time
}

// DefaultQueryOptions returns the reference query configuration.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{TopN: 10}
}

func (o QueryOptions) dateBounds() (any, any) {
	var from, to any
	if !o.From.IsZero() {
		from = truncateToDay(o.From)
	}
	if !o.To.IsZero() {
		to = truncateToDay(o.To)
	}
	return from, to
}

// MonthlyRevenueRow is one (year, month) revenue bucket.
type MonthlyRevenueRow struct {
	Year    int
	Month   int
	Revenue decimal.Decimal
}

// Payments join to their order and the order's placement date; facts without
// a matching order or date row are excluded rather than silently bucketed.
const monthlyRevenueSQL = `
SELECT d.year, d.month, SUM(p.payment_value)::text AS revenue
FROM fact_payments p
JOIN fact_orders o ON o.order_id = p.order_id
JOIN dim_date d ON d.date_key = o.purchase_date_key
WHERE ($1::date IS NULL OR d.full_date >= $1)
  AND ($2::date IS NULL OR d.full_date <= $2)
GROUP BY d.year, d.month
ORDER BY d.year, d.month`

// MonthlyRevenue sums payment values per calendar month of order placement,
// ordered ascending by year then month. Empty fact tables yield zero rows.
func MonthlyRevenue(ctx context.Context, dbc DB, opts QueryOptions) ([]MonthlyRevenueRow, error) {
	from, to := opts.dateBounds()
	rows, err := dbc.Query(ctx, monthlyRevenueSQL, from, to)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()

	var result []MonthlyRevenueRow
	for rows.Next() {
		var row MonthlyRevenueRow
		var revenue string
		if err := rows.Scan(&row.Year, &row.Month, &revenue); err != nil {
			return nil, err
		}
		if row.Revenue, err = decimal.NewFromString(revenue); err != nil {
			return nil, fmt.Errorf("invalid revenue value %q: %w", revenue, err)
		}
		result = append(result, row)
	}
	return result, db.MapError(rows.Err())
}

// CategorySales is the summed item sales for one category.
type CategorySales struct {
	Category   string
	TotalSales decimal.Decimal
}

// Ties on total sales break by category name ascending so results are
// deterministic.
const topCategoriesSQL = `
SELECT c.category_name, SUM(i.price)::text AS total_sales
FROM fact_order_items i
JOIN dim_product pr ON pr.product_key = i.product_key
JOIN dim_category c ON c.category_key = pr.category_key
JOIN fact_orders o ON o.order_id = i.order_id
JOIN dim_date d ON d.date_key = o.purchase_date_key
WHERE ($1::date IS NULL OR d.full_date >= $1)
  AND ($2::date IS NULL OR d.full_date <= $2)
GROUP BY c.category_name
ORDER BY SUM(i.price) DESC, c.category_name ASC
LIMIT $3`

// TopCategories returns the opts.TopN categories with the highest summed item
// price, descending.
func TopCategories(ctx context.Context, dbc DB, opts QueryOptions) ([]CategorySales, error) {
	if opts.TopN < 1 {
		return nil, fmt.Errorf("top-n must be at least 1")
	}
	from, to := opts.dateBounds()
	rows, err := dbc.Query(ctx, topCategoriesSQL, from, to, opts.TopN)
	if err != nil {
		return nil, db.MapError(err)
	}
	defer rows.Close()

	var result []CategorySales
	for rows.Next() {
		var row CategorySales
		var total string
		if err := rows.Scan(&row.Category, &total); err != nil {
			return nil, err
		}
		if row.TotalSales, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("invalid sales value %q: %w", total, err)
		}
		result = append(result, row)
	}
	return result, db.MapError(rows.Err())
}

// RetentionResult carries the retention rate together with the underlying
// counts, so a zero rate from "no customers" is distinguishable from "no
// repeat customers".
type RetentionResult struct {
	RepeatCustomers int64
	TotalCustomers  int64
	Rate            float64
}

// Customers are identified by customer_unique_id (the persona), since each
// order can mint a fresh dimension row. A year-month bucket is encoded as
// year*100+month, equivalent to the YYYY-MM label.
const retentionSQL = `
WITH activity AS (
    SELECT c.customer_unique_id,
           COUNT(DISTINCT (d.year * 100 + d.month)) AS active_months
    FROM fact_orders o
    JOIN dim_customer c ON c.customer_key = o.customer_key
    JOIN dim_date d ON d.date_key = o.purchase_date_key
    WHERE ($1::date IS NULL OR d.full_date >= $1)
      AND ($2::date IS NULL OR d.full_date <= $2)
    GROUP BY c.customer_unique_id
)
SELECT COUNT(*) FILTER (WHERE active_months > 1) AS repeat_customers,
       COUNT(*) AS total_customers
FROM activity`

// RetentionRate computes the fraction of customers with orders in more than
// one distinct calendar month, over all customers with at least one order.
// With zero customers the rate is 0.
func RetentionRate(ctx context.Context, dbc DB, opts QueryOptions) (RetentionResult, error) {
	from, to := opts.dateBounds()

	var result RetentionResult
	err := dbc.QueryRow(ctx, retentionSQL, from, to).
		Scan(&result.RepeatCustomers, &result.TotalCustomers)
	if err != nil {
		return RetentionResult{}, db.MapError(err)
	}

	result.Rate = retentionRate(result.RepeatCustomers, result.TotalCustomers)
	return result, nil
}

func retentionRate(repeat, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(repeat) / float64(total)
}
