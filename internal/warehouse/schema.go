//-------------------------------------------------------------------------
//
// ecomdw - E-commerce Analytics Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package warehouse implements the e-commerce star schema: its DDL, the date
// dimension populator, the source-extract loader and the analytical queries.
package warehouse

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/ecomdw/internal/db"
	"github.com/pgEdge/ecomdw/internal/logging"
)

// DB is an interface that both *pgxpool.Pool and *pgx.Conn satisfy, so the
// loader and queries can run against a pool or a dedicated connection.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Schema SQL for the star schema. Dimensions are created before facts so that
// foreign keys resolve; surrogate keys use identity columns (engine-native
// sequences: start at 1, strictly increasing, never reused).
const createSchemaSQL = `
-- Date dimension: one row per calendar day, keyed as YYYYMMDD.
-- day_of_week uses ISO-8601 numbering: 1=Monday .. 7=Sunday.
CREATE TABLE IF NOT EXISTS dim_date (
    date_key     INTEGER PRIMARY KEY,
    full_date    DATE NOT NULL UNIQUE,
    year         INTEGER NOT NULL,
    quarter      INTEGER NOT NULL CHECK (quarter BETWEEN 1 AND 4),
    month        INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
    day_of_month INTEGER NOT NULL CHECK (day_of_month BETWEEN 1 AND 31),
    day_of_week  INTEGER NOT NULL CHECK (day_of_week BETWEEN 1 AND 7)
);

-- Customer dimension: one row per (customer_id, customer_unique_id) pairing.
-- customer_id alone may repeat; customer_unique_id identifies the persona.
CREATE TABLE IF NOT EXISTS dim_customer (
    customer_key       BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    customer_id        VARCHAR(32) NOT NULL,
    customer_unique_id VARCHAR(32) NOT NULL,
    zip_code_prefix    VARCHAR(10),
    city               VARCHAR(100),
    state              VARCHAR(10),
    UNIQUE (customer_id, customer_unique_id)
);

-- Seller dimension
CREATE TABLE IF NOT EXISTS dim_seller (
    seller_key      BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    seller_id       VARCHAR(32) NOT NULL UNIQUE,
    zip_code_prefix VARCHAR(10),
    city            VARCHAR(100),
    state           VARCHAR(10)
);

-- Category dimension: localized name pair
CREATE TABLE IF NOT EXISTS dim_category (
    category_key          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    category_name         VARCHAR(100) NOT NULL UNIQUE,
    category_name_english VARCHAR(100)
);

-- Product dimension: every product has exactly one category
CREATE TABLE IF NOT EXISTS dim_product (
    product_key        BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    product_id         VARCHAR(32) NOT NULL UNIQUE,
    category_key       BIGINT NOT NULL REFERENCES dim_category(category_key),
    name_length        INTEGER,
    description_length INTEGER,
    photos_qty         INTEGER,
    weight_g           INTEGER,
    length_cm          INTEGER,
    height_cm          INTEGER,
    width_cm           INTEGER
);

-- Payment type dimension: enumeration of payment method strings
CREATE TABLE IF NOT EXISTS dim_payment_type (
    payment_type_key BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    payment_type     VARCHAR(30) NOT NULL UNIQUE
);

-- Review score dimension: enumeration of integer scores
CREATE TABLE IF NOT EXISTS dim_review_score (
    review_score_key BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    score            INTEGER NOT NULL UNIQUE
);

-- Orders fact: natural order id as primary key, five date roles.
-- Carrier/customer delivery roles are nullable (order may not have shipped).
CREATE TABLE IF NOT EXISTS fact_orders (
    order_id                VARCHAR(32) PRIMARY KEY,
    customer_key            BIGINT NOT NULL REFERENCES dim_customer(customer_key),
    order_status            VARCHAR(20) NOT NULL,
    purchase_date_key       INTEGER NOT NULL REFERENCES dim_date(date_key),
    approved_date_key       INTEGER NOT NULL REFERENCES dim_date(date_key),
    carrier_date_key        INTEGER REFERENCES dim_date(date_key),
    delivered_date_key      INTEGER REFERENCES dim_date(date_key),
    estimated_date_key      INTEGER NOT NULL REFERENCES dim_date(date_key)
);

-- Order items fact: composite key (order, 1-based item sequence)
CREATE TABLE IF NOT EXISTS fact_order_items (
    order_id                VARCHAR(32) NOT NULL REFERENCES fact_orders(order_id),
    order_item_id           INTEGER NOT NULL CHECK (order_item_id >= 1),
    product_key             BIGINT NOT NULL REFERENCES dim_product(product_key),
    seller_key              BIGINT NOT NULL REFERENCES dim_seller(seller_key),
    shipping_limit_date_key INTEGER NOT NULL REFERENCES dim_date(date_key),
    price                   NUMERIC(10,2) NOT NULL CHECK (price >= 0),
    freight_value           NUMERIC(10,2) NOT NULL CHECK (freight_value >= 0),
    PRIMARY KEY (order_id, order_item_id)
);

-- Payments fact: composite key (order, payment sequence). The order FK is
-- enforced here even though the reference schema leaves it implicit.
CREATE TABLE IF NOT EXISTS fact_payments (
    order_id           VARCHAR(32) NOT NULL REFERENCES fact_orders(order_id),
    payment_sequential INTEGER NOT NULL CHECK (payment_sequential >= 1),
    payment_type_key   BIGINT NOT NULL REFERENCES dim_payment_type(payment_type_key),
    installments       INTEGER NOT NULL CHECK (installments >= 1),
    payment_value      NUMERIC(10,2) NOT NULL CHECK (payment_value >= 0),
    PRIMARY KEY (order_id, payment_sequential)
);

-- Reviews fact: a review cannot exist without its order
CREATE TABLE IF NOT EXISTS fact_reviews (
    review_id         VARCHAR(32) PRIMARY KEY,
    order_id          VARCHAR(32) NOT NULL REFERENCES fact_orders(order_id),
    review_score_key  BIGINT NOT NULL REFERENCES dim_review_score(review_score_key),
    creation_date_key INTEGER NOT NULL REFERENCES dim_date(date_key),
    answer_date_key   INTEGER REFERENCES dim_date(date_key)
);

-- Indexes for the analytical queries
CREATE INDEX IF NOT EXISTS idx_orders_customer ON fact_orders(customer_key);
CREATE INDEX IF NOT EXISTS idx_orders_purchase_date ON fact_orders(purchase_date_key);
CREATE INDEX IF NOT EXISTS idx_order_items_product ON fact_order_items(product_key);
CREATE INDEX IF NOT EXISTS idx_order_items_seller ON fact_order_items(seller_key);
CREATE INDEX IF NOT EXISTS idx_payments_type ON fact_payments(payment_type_key);
CREATE INDEX IF NOT EXISTS idx_reviews_order ON fact_reviews(order_id);
CREATE INDEX IF NOT EXISTS idx_product_category ON dim_product(category_key);
`

// Drop schema SQL: facts before dimensions, respecting FK dependencies.
const dropSchemaSQL = `
DROP TABLE IF EXISTS fact_reviews CASCADE;
DROP TABLE IF EXISTS fact_payments CASCADE;
DROP TABLE IF EXISTS fact_order_items CASCADE;
DROP TABLE IF EXISTS fact_orders CASCADE;
DROP TABLE IF EXISTS dim_product CASCADE;
DROP TABLE IF EXISTS dim_category CASCADE;
DROP TABLE IF EXISTS dim_customer CASCADE;
DROP TABLE IF EXISTS dim_seller CASCADE;
DROP TABLE IF EXISTS dim_payment_type CASCADE;
DROP TABLE IF EXISTS dim_review_score CASCADE;
DROP TABLE IF EXISTS dim_date CASCADE;
`

// TableNames lists all warehouse tables in creation order.
var TableNames = []string{
	"dim_date",
	"dim_customer",
	"dim_seller",
	"dim_category",
	"dim_product",
	"dim_payment_type",
	"dim_review_score",
	"fact_orders",
	"fact_order_items",
	"fact_payments",
	"fact_reviews",
}

// CreateSchema creates the warehouse schema.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, createSchemaSQL)
	return db.MapError(err)
}

// DropSchema drops the warehouse schema.
func DropSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, dropSchemaSQL)
	return db.MapError(err)
}

// Provision drops any pre-existing warehouse tables and recreates them empty,
// then records provisioning metadata. Re-running it on an already-provisioned
// database yields the same empty schema; no manual cleanup is needed.
func Provision(ctx context.Context, pool *pgxpool.Pool) error {
	logging.Info().Msg("Dropping existing warehouse tables")
	if err := DropSchema(ctx, pool); err != nil {
		return err
	}

	logging.Info().Msg("Creating warehouse schema")
	if err := CreateSchema(ctx, pool); err != nil {
		return err
	}

	if err := db.SaveMetadata(ctx, pool); err != nil {
		return err
	}

	logging.Info().Msg("Warehouse provisioned")
	return nil
}
