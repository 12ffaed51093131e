//-------------------------------------------------------------------------
//
// ecomdw - E-commerce Analytics Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Distributions below reproduce the reference source extracts: weighted order
// statuses and payment types, 1-3 items per order, and date offsets measured
// from the purchase timestamp.

var orderStatuses = []string{"delivered", "shipped", "canceled", "invoiced", "processing"}
var orderStatusWeights = []int{70, 10, 5, 10, 5}

var paymentTypes = []string{"credit_card", "boleto", "voucher", "debit_card"}
var paymentTypeWeights = []int{75, 15, 5, 5}

var productCategories = []string{
	"bed_bath_table", "health_beauty", "computers", "books", "toys",
	"sports", "groceries", "pet_shop", "auto", "furniture",
}

// SourceConfig controls the shape of a generated extract.
type SourceConfig struct {
	Customers int
	Sellers   int
	Products  int
	Orders    int

	// Start and End bound the order purchase timestamps (inclusive).
	Start time.Time
	End   time.Time

	// Seed makes generation reproducible; 0 seeds from the clock.
	Seed uint64
}

// Validate checks that the config can produce a coherent extract.
func (c SourceConfig) Validate() error {
	if c.Customers < 1 || c.Sellers < 1 || c.Products < 1 || c.Orders < 1 {
		return fmt.Errorf("row counts must all be at least 1")
	}
	if c.End.Before(c.Start) {
		return fmt.Errorf("end date precedes start date")
	}
	return nil
}

// Customer is a source customer record. One row per per-order customer record;
// UniqueID identifies the underlying customer persona.
type Customer struct {
	ID        string
	UniqueID  string
	ZipPrefix string
	City      string
	State     string
}

// Seller is a source seller record.
type Seller struct {
	ID        string
	ZipPrefix string
	City      string
	State     string
}

// Product is a source product record with optional physical metadata.
type Product struct {
	ID                string
	CategoryName      string
	NameLength        int
	DescriptionLength int
	PhotosQty         int
	WeightG           int
	LengthCM          int
	HeightCM          int
	WidthCM           int
}

// CategoryTranslation pairs a category name with its English translation.
type CategoryTranslation struct {
	Name        string
	NameEnglish string
}

// Order is a source order header. Delivered is nil unless the order reached
// the customer.
type Order struct {
	ID         string
	CustomerID string
	Status     string
	Purchase   time.Time
	Approved   time.Time
	Carrier    time.Time
	Delivered  *time.Time
	Estimated  time.Time
}

// OrderItem is one line item of an order, numbered from 1 within the order.
type OrderItem struct {
	OrderID       string
	ItemID        int
	ProductID     string
	SellerID      string
	ShippingLimit time.Time
	Price         decimal.Decimal
	FreightValue  decimal.Decimal
}

// Payment is one installment payment record for an order.
type Payment struct {
	OrderID      string
	Sequential   int
	Type         string
	Installments int
	Value        decimal.Decimal
}

// Review is a source review record, one per order.
type Review struct {
	ID       string
	OrderID  string
	Score    int
	Creation time.Time
	Answer   time.Time
}

// Extract is a complete synthetic source extract.
type Extract struct {
	Customers  []Customer
	Sellers    []Seller
	Products   []Product
	Categories []CategoryTranslation
	Orders     []Order
	OrderItems []OrderItem
	Payments   []Payment
	Reviews    []Review
}

// SourceGenerator produces synthetic source extracts.
type SourceGenerator struct {
	faker *Faker
	cfg   SourceConfig
}

// NewSourceGenerator creates a generator for the given configuration.
func NewSourceGenerator(cfg SourceConfig) *SourceGenerator {
	var f *Faker
	if cfg.Seed != 0 {
		f = NewFakerWithSeed(cfg.Seed)
	} else {
		f = NewFaker()
	}
	return &SourceGenerator{faker: f, cfg: cfg}
}

// Generate produces a full extract: reference tables first, then orders and
// the dependent item, payment and review records.
func (g *SourceGenerator) Generate() (*Extract, error) {
	if err := g.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source config: %w", err)
	}

	ex := &Extract{}
	ex.Customers = g.generateCustomers()
	ex.Sellers = g.generateSellers()
	ex.Categories = g.generateCategories()
	ex.Products = g.generateProducts()
	ex.Orders = g.generateOrders(ex.Customers)
	ex.OrderItems = g.generateOrderItems(ex.Orders, ex.Products, ex.Sellers)
	ex.Payments = g.generatePayments(ex.OrderItems)
	ex.Reviews = g.generateReviews(ex.Orders)
	return ex, nil
}

func (g *SourceGenerator) generateCustomers() []Customer {
	customers := make([]Customer, g.cfg.Customers)
	for i := range customers {
		customers[i] = Customer{
			ID:        g.faker.HexID(32),
			UniqueID:  g.faker.HexID(32),
			ZipPrefix: g.faker.Digits(5),
			City:      g.faker.City(),
			State:     g.faker.State(),
		}
	}
	return customers
}

func (g *SourceGenerator) generateSellers() []Seller {
	sellers := make([]Seller, g.cfg.Sellers)
	for i := range sellers {
		sellers[i] = Seller{
			ID:        g.faker.HexID(32),
			ZipPrefix: g.faker.Digits(5),
			City:      g.faker.City(),
			State:     g.faker.State(),
		}
	}
	return sellers
}

func (g *SourceGenerator) generateCategories() []CategoryTranslation {
	categories := make([]CategoryTranslation, len(productCategories))
	for i, name := range productCategories {
		// The reference translation table maps each name to itself.
		categories[i] = CategoryTranslation{Name: name, NameEnglish: name}
	}
	return categories
}

func (g *SourceGenerator) generateProducts() []Product {
	products := make([]Product, g.cfg.Products)
	for i := range products {
		products[i] = Product{
			ID:                g.faker.HexID(32),
			CategoryName:      Choose(g.faker, productCategories),
			NameLength:        g.faker.Int(20, 100),
			DescriptionLength: g.faker.Int(50, 200),
			PhotosQty:         g.faker.Int(1, 5),
			WeightG:           g.faker.Int(100, 5000),
			LengthCM:          g.faker.Int(10, 100),
			HeightCM:          g.faker.Int(1, 50),
			WidthCM:           g.faker.Int(5, 70),
		}
	}
	return products
}

func (g *SourceGenerator) generateOrders(customers []Customer) []Order {
	orders := make([]Order, g.cfg.Orders)
	for i := range orders {
		purchase := g.faker.DateRange(g.cfg.Start, g.cfg.End)
		approved := purchase.AddDate(0, 0, g.faker.Int(0, 3))
		carrier := approved.AddDate(0, 0, g.faker.Int(1, 5))
		status := ChooseWeighted(g.faker, orderStatuses, orderStatusWeights)

		var delivered *time.Time
		if status == "delivered" {
			d := carrier.AddDate(0, 0, g.faker.Int(1, 7))
			delivered = &d
		}

		orders[i] = Order{
			ID:         g.faker.HexID(32),
			CustomerID: Choose(g.faker, customers).ID,
			Status:     status,
			Purchase:   purchase,
			Approved:   approved,
			Carrier:    carrier,
			Delivered:  delivered,
			Estimated:  purchase.AddDate(0, 0, g.faker.Int(3, 10)),
		}
	}
	return orders
}

func (g *SourceGenerator) generateOrderItems(orders []Order, products []Product, sellers []Seller) []OrderItem {
	items := make([]OrderItem, 0, len(orders)*2)
	for _, order := range orders {
		nItems := g.faker.Int(1, 3)
		for itemID := 1; itemID <= nItems; itemID++ {
			items = append(items, OrderItem{
				OrderID:       order.ID,
				ItemID:        itemID,
				ProductID:     Choose(g.faker, products).ID,
				SellerID:      Choose(g.faker, sellers).ID,
				ShippingLimit: order.Purchase.AddDate(0, 0, g.faker.Int(1, 7)),
				Price:         decimal.NewFromFloat(g.faker.Float64(10, 500)).Round(2),
				FreightValue:  decimal.NewFromFloat(g.faker.Float64(2, 50)).Round(2),
			})
		}
	}
	return items
}

func (g *SourceGenerator) generatePayments(items []OrderItem) []Payment {
	// Order totals drive the payment values; keep iteration in order-item
	// order so generation stays deterministic for a given seed.
	totals := make(map[string]decimal.Decimal)
	var orderIDs []string
	for _, item := range items {
		if _, ok := totals[item.OrderID]; !ok {
			orderIDs = append(orderIDs, item.OrderID)
		}
		totals[item.OrderID] = totals[item.OrderID].Add(item.Price).Add(item.FreightValue)
	}

	payments := make([]Payment, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		nPayments := 1
		if g.faker.Int(1, 10) == 10 {
			nPayments = 2
		}
		installments := g.faker.Int(1, 6)
		share := totals[orderID].DivRound(decimal.NewFromInt(int64(nPayments)), 2)

		for seq := 1; seq <= nPayments; seq++ {
			noise := decimal.NewFromFloat(g.faker.Float64(-5, 5)).Round(2)
			value := share.Add(noise)
			if value.IsNegative() {
				value = decimal.Zero
			}
			payments = append(payments, Payment{
				OrderID:      orderID,
				Sequential:   seq,
				Type:         ChooseWeighted(g.faker, paymentTypes, paymentTypeWeights),
				Installments: installments,
				Value:        value,
			})
		}
	}
	return payments
}

func (g *SourceGenerator) generateReviews(orders []Order) []Review {
	reviews := make([]Review, len(orders))
	for i, order := range orders {
		creation := order.Approved.AddDate(0, 0, g.faker.Int(5, 40))
		reviews[i] = Review{
			ID:       g.faker.HexID(32),
			OrderID:  order.ID,
			Score:    g.faker.Int(1, 5),
			Creation: creation,
			Answer:   creation.AddDate(0, 0, g.faker.Int(1, 10)),
		}
	}
	return reviews
}
