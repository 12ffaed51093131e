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

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/ecomdw/internal/datagen"
	"github.com/pgEdge/ecomdw/internal/db"
	"github.com/pgEdge/ecomdw/internal/logging"
)

// Loader loads a source extract into the warehouse. Dimensions are loaded
// before facts so that every surrogate key a fact references already exists;
// within facts, orders are loaded before items, payments and reviews.
type Loader struct {
	dbc DB
	cfg datagen.BatchInsertConfig

	customerKeys    map[string]int64
	sellerKeys      map[string]int64
	categoryKeys    map[string]int64
	productKeys     map[string]int64
	paymentTypeKeys map[string]int64
	reviewScoreKeys map[int]int64
}

// NewLoader creates a loader bound to a database.
func NewLoader(dbc DB) *Loader {
	return &Loader{
		dbc:             dbc,
		cfg:             datagen.DefaultBatchConfig(),
		customerKeys:    make(map[string]int64),
		sellerKeys:      make(map[string]int64),
		categoryKeys:    make(map[string]int64),
		productKeys:     make(map[string]int64),
		paymentTypeKeys: make(map[string]int64),
		reviewScoreKeys: make(map[int]int64),
	}
}

// LoadExtract loads a complete extract. The date dimension is populated first
// across the full span of dates the facts reference, then dimensions, then
// facts. Any constraint violation aborts the load and propagates to the
// caller; there is no partial-row recovery here.
func (l *Loader) LoadExtract(ctx context.Context, ex *datagen.Extract) error {
	start, end, err := extractDateSpan(ex)
	if err != nil {
		return err
	}
	if _, err := PopulateDateDim(ctx, l.dbc, start, end); err != nil {
		return fmt.Errorf("failed to populate date dimension: %w", err)
	}

	if err := l.loadCustomers(ctx, ex.Customers); err != nil {
		return fmt.Errorf("failed to load customers: %w", err)
	}
	if err := l.loadSellers(ctx, ex.Sellers); err != nil {
		return fmt.Errorf("failed to load sellers: %w", err)
	}
	if err := l.loadCategories(ctx, ex.Categories); err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	if err := l.loadProducts(ctx, ex.Products); err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}
	if err := l.loadPaymentTypes(ctx, ex.Payments); err != nil {
		return fmt.Errorf("failed to load payment types: %w", err)
	}
	if err := l.loadReviewScores(ctx, ex.Reviews); err != nil {
		return fmt.Errorf("failed to load review scores: %w", err)
	}

	if err := l.loadOrders(ctx, ex.Orders); err != nil {
		return fmt.Errorf("failed to load orders: %w", err)
	}
	if err := l.loadOrderItems(ctx, ex.OrderItems); err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	if err := l.loadPayments(ctx, ex.Payments); err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}
	if err := l.loadReviews(ctx, ex.Reviews); err != nil {
		return fmt.Errorf("failed to load reviews: %w", err)
	}

	logging.Info().
		Int("orders", len(ex.Orders)).
		Int("order_items", len(ex.OrderItems)).
		Int("payments", len(ex.Payments)).
		Int("reviews", len(ex.Reviews)).
		Msg("Extract loaded")
	return nil
}

// extractDateSpan finds the earliest and latest calendar dates referenced by
// any fact in the extract.
func extractDateSpan(ex *datagen.Extract) (time.Time, time.Time, error) {
	var start, end time.Time
	observe := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if start.IsZero() || t.Before(start) {
			start = t
		}
		if end.IsZero() || t.After(end) {
			end = t
		}
	}

	for _, o := range ex.Orders {
		observe(o.Purchase)
		observe(o.Approved)
		observe(o.Carrier)
		if o.Delivered != nil {
			observe(*o.Delivered)
		}
		observe(o.Estimated)
	}
	for _, it := range ex.OrderItems {
		observe(it.ShippingLimit)
	}
	for _, r := range ex.Reviews {
		observe(r.Creation)
		observe(r.Answer)
	}

	if start.IsZero() {
		return start, end, fmt.Errorf("extract contains no dated facts")
	}
	return start, end, nil
}

func (l *Loader) loadCustomers(ctx context.Context, customers []datagen.Customer) error {
	logging.Info().Int("count", len(customers)).Msg("Loading dim_customer")
	for _, c := range customers {
		var key int64
		err := l.dbc.QueryRow(ctx, `
            INSERT INTO dim_customer (customer_id, customer_unique_id, zip_code_prefix, city, state)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING customer_key
        `, c.ID, c.UniqueID, nullableString(c.ZipPrefix), nullableString(c.City),
			nullableString(c.State)).Scan(&key)
		if err != nil {
			return db.MapError(err)
		}
		l.customerKeys[c.ID] = key
	}
	return nil
}

func (l *Loader) loadSellers(ctx context.Context, sellers []datagen.Seller) error {
	logging.Info().Int("count", len(sellers)).Msg("Loading dim_seller")
	for _, s := range sellers {
		var key int64
		err := l.dbc.QueryRow(ctx, `
            INSERT INTO dim_seller (seller_id, zip_code_prefix, city, state)
            VALUES ($1, $2, $3, $4)
            RETURNING seller_key
        `, s.ID, nullableString(s.ZipPrefix), nullableString(s.City),
			nullableString(s.State)).Scan(&key)
		if err != nil {
			return db.MapError(err)
		}
		l.sellerKeys[s.ID] = key
	}
	return nil
}

func (l *Loader) loadCategories(ctx context.Context, categories []datagen.CategoryTranslation) error {
	logging.Info().Int("count", len(categories)).Msg("Loading dim_category")
	for _, c := range categories {
		var key int64
		err := l.dbc.QueryRow(ctx, `
            INSERT INTO dim_category (category_name, category_name_english)
            VALUES ($1, $2)
            RETURNING category_key
        `, c.Name, nullableString(c.NameEnglish)).Scan(&key)
		if err != nil {
			return db.MapError(err)
		}
		l.categoryKeys[c.Name] = key
	}
	return nil
}

func (l *Loader) loadProducts(ctx context.Context, products []datagen.Product) error {
	logging.Info().Int("count", len(products)).Msg("Loading dim_product")
	for _, p := range products {
		categoryKey, ok := l.categoryKeys[p.CategoryName]
		if !ok {
			return fmt.Errorf("product %s references unknown category %q", p.ID, p.CategoryName)
		}
		var key int64
		err := l.dbc.QueryRow(ctx, `
            INSERT INTO dim_product (product_id, category_key, name_length, description_length,
                                     photos_qty, weight_g, length_cm, height_cm, width_cm)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
            RETURNING product_key
        `, p.ID, categoryKey, p.NameLength, p.DescriptionLength, p.PhotosQty,
			p.WeightG, p.LengthCM, p.HeightCM, p.WidthCM).Scan(&key)
		if err != nil {
			return db.MapError(err)
		}
		l.productKeys[p.ID] = key
	}
	return nil
}

func (l *Loader) loadPaymentTypes(ctx context.Context, payments []datagen.Payment) error {
	seen := make(map[string]bool)
	for _, p := range payments {
		if seen[p.Type] {
			continue
		}
		seen[p.Type] = true
		var key int64
		err := l.dbc.QueryRow(ctx, `
            INSERT INTO dim_payment_type (payment_type)
            VALUES ($1)
            RETURNING payment_type_key
        `, p.Type).Scan(&key)
		if err != nil {
			return db.MapError(err)
		}
		l.paymentTypeKeys[p.Type] = key
	}
	logging.Info().Int("count", len(l.paymentTypeKeys)).Msg("Loaded dim_payment_type")
	return nil
}

func (l *Loader) loadReviewScores(ctx context.Context, reviews []datagen.Review) error {
	seen := make(map[int]bool)
	for _, r := range reviews {
		if seen[r.Score] {
			continue
		}
		seen[r.Score] = true
		var key int64
		err := l.dbc.QueryRow(ctx, `
            INSERT INTO dim_review_score (score)
            VALUES ($1)
            RETURNING review_score_key
        `, r.Score).Scan(&key)
		if err != nil {
			return db.MapError(err)
		}
		l.reviewScoreKeys[r.Score] = key
	}
	logging.Info().Int("count", len(l.reviewScoreKeys)).Msg("Loaded dim_review_score")
	return nil
}

func (l *Loader) loadOrders(ctx context.Context, orders []datagen.Order) error {
	progress := datagen.NewProgressReporter("fact_orders", int64(len(orders)), l.cfg.ProgressInterval)
	batch := &pgx.Batch{}

	for _, o := range orders {
		if err := validateOrder(o); err != nil {
			return err
		}
		customerKey, ok := l.customerKeys[o.CustomerID]
		if !ok {
			return fmt.Errorf("order %s references unknown customer %s", o.ID, o.CustomerID)
		}

		var carrierKey, deliveredKey any
		if !o.Carrier.IsZero() {
			carrierKey = DateKey(o.Carrier)
		}
		if o.Delivered != nil {
			deliveredKey = DateKey(*o.Delivered)
		}

		batch.Queue(`
            INSERT INTO fact_orders (order_id, customer_key, order_status, purchase_date_key,
                                     approved_date_key, carrier_date_key, delivered_date_key,
                                     estimated_date_key)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        `, o.ID, customerKey, o.Status, DateKey(o.Purchase), DateKey(o.Approved),
			carrierKey, deliveredKey, DateKey(o.Estimated))

		if batch.Len() >= l.cfg.BatchSize {
			if err := l.flushBatch(ctx, batch, progress); err != nil {
				return err
			}
			batch = &pgx.Batch{}
		}
	}
	if err := l.flushBatch(ctx, batch, progress); err != nil {
		return err
	}
	progress.Done()
	return nil
}

func (l *Loader) loadOrderItems(ctx context.Context, items []datagen.OrderItem) error {
	progress := datagen.NewProgressReporter("fact_order_items", int64(len(items)), l.cfg.ProgressInterval)
	batch := &pgx.Batch{}

	for _, it := range items {
		productKey, ok := l.productKeys[it.ProductID]
		if !ok {
			return fmt.Errorf("order item %s/%d references unknown product %s",
				it.OrderID, it.ItemID, it.ProductID)
		}
		sellerKey, ok := l.sellerKeys[it.SellerID]
		if !ok {
			return fmt.Errorf("order item %s/%d references unknown seller %s",
				it.OrderID, it.ItemID, it.SellerID)
		}

		batch.Queue(`
            INSERT INTO fact_order_items (order_id, order_item_id, product_key, seller_key,
                                          shipping_limit_date_key, price, freight_value)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
        `, it.OrderID, it.ItemID, productKey, sellerKey,
			DateKey(it.ShippingLimit), it.Price.StringFixed(2), it.FreightValue.StringFixed(2))

		if batch.Len() >= l.cfg.BatchSize {
			if err := l.flushBatch(ctx, batch, progress); err != nil {
				return err
			}
			batch = &pgx.Batch{}
		}
	}
	if err := l.flushBatch(ctx, batch, progress); err != nil {
		return err
	}
	progress.Done()
	return nil
}

func (l *Loader) loadPayments(ctx context.Context, payments []datagen.Payment) error {
	progress := datagen.NewProgressReporter("fact_payments", int64(len(payments)), l.cfg.ProgressInterval)
	batch := &pgx.Batch{}

	for _, p := range payments {
		typeKey, ok := l.paymentTypeKeys[p.Type]
		if !ok {
			return fmt.Errorf("payment %s/%d references unknown payment type %q",
				p.OrderID, p.Sequential, p.Type)
		}

		batch.Queue(`
            INSERT INTO fact_payments (order_id, payment_sequential, payment_type_key,
                                       installments, payment_value)
            VALUES ($1, $2, $3, $4, $5)
        `, p.OrderID, p.Sequential, typeKey, p.Installments, p.Value.StringFixed(2))

		if batch.Len() >= l.cfg.BatchSize {
			if err := l.flushBatch(ctx, batch, progress); err != nil {
				return err
			}
			batch = &pgx.Batch{}
		}
	}
	if err := l.flushBatch(ctx, batch, progress); err != nil {
		return err
	}
	progress.Done()
	return nil
}

func (l *Loader) loadReviews(ctx context.Context, reviews []datagen.Review) error {
	progress := datagen.NewProgressReporter("fact_reviews", int64(len(reviews)), l.cfg.ProgressInterval)
	batch := &pgx.Batch{}

	for _, r := range reviews {
		if err := validateReview(r); err != nil {
			return err
		}
		scoreKey, ok := l.reviewScoreKeys[r.Score]
		if !ok {
			return fmt.Errorf("review %s references unknown score %d", r.ID, r.Score)
		}

		batch.Queue(`
            INSERT INTO fact_reviews (review_id, order_id, review_score_key,
                                      creation_date_key, answer_date_key)
            VALUES ($1, $2, $3, $4, $5)
        `, r.ID, r.OrderID, scoreKey, DateKey(r.Creation), DateKey(r.Answer))

		if batch.Len() >= l.cfg.BatchSize {
			if err := l.flushBatch(ctx, batch, progress); err != nil {
				return err
			}
			batch = &pgx.Batch{}
		}
	}
	if err := l.flushBatch(ctx, batch, progress); err != nil {
		return err
	}
	progress.Done()
	return nil
}

func (l *Loader) flushBatch(ctx context.Context, batch *pgx.Batch, progress *datagen.ProgressReporter) error {
	if batch.Len() == 0 {
		return nil
	}
	results := l.dbc.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return db.MapError(err)
		}
	}
	progress.Update(int64(batch.Len()))
	return nil
}

// validateOrder enforces the load-layer date invariant: delivery dates, when
// present, must not precede the purchase date. The schema cannot express this
// across date-key columns.
func validateOrder(o datagen.Order) error {
	purchase := truncateToDay(o.Purchase)
	if !o.Carrier.IsZero() && truncateToDay(o.Carrier).Before(purchase) {
		return fmt.Errorf("order %s: carrier delivery date precedes purchase date", o.ID)
	}
	if o.Delivered != nil && truncateToDay(*o.Delivered).Before(purchase) {
		return fmt.Errorf("order %s: customer delivery date precedes purchase date", o.ID)
	}
	return nil
}

// validateReview enforces that the answer date does not precede the creation date.
func validateReview(r datagen.Review) error {
	if truncateToDay(r.Answer).Before(truncateToDay(r.Creation)) {
		return fmt.Errorf("review %s: answer date precedes creation date", r.ID)
	}
	return nil
}

// nullableString maps empty strings to SQL NULL for optional columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
