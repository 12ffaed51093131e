package warehouse

import (
	"strings"
	"testing"
	"time"

	"github.com/pgEdge/ecomdw/internal/datagen"
)

func TestValidateOrder(t *testing.T) {
	purchase := date(2023, time.May, 10)
	earlier := date(2023, time.May, 8)
	later := date(2023, time.May, 14)

	tests := []struct {
		name      string
		order     datagen.Order
		wantError bool
	}{
		{
			name: "valid order",
			order: datagen.Order{
				ID: "a1", Purchase: purchase, Carrier: later, Delivered: &later,
			},
			wantError: false,
		},
		{
			name: "not yet delivered",
			order: datagen.Order{
				ID: "a2", Purchase: purchase, Carrier: later,
			},
			wantError: false,
		},
		{
			name: "same-day delivery allowed",
			order: datagen.Order{
				ID: "a3", Purchase: purchase, Carrier: purchase, Delivered: &purchase,
			},
			wantError: false,
		},
		{
			name: "carrier before purchase",
			order: datagen.Order{
				ID: "a4", Purchase: purchase, Carrier: earlier,
			},
			wantError: true,
		},
		{
			name: "delivered before purchase",
			order: datagen.Order{
				ID: "a5", Purchase: purchase, Carrier: later, Delivered: &earlier,
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateOrder(tt.order)
			if tt.wantError && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestValidateReview(t *testing.T) {
	creation := date(2023, time.July, 1)

	valid := datagen.Review{ID: "r1", Creation: creation, Answer: creation.AddDate(0, 0, 3)}
	if err := validateReview(valid); err != nil {
		t.Errorf("Expected valid review, got: %v", err)
	}

	sameDay := datagen.Review{ID: "r2", Creation: creation, Answer: creation}
	if err := validateReview(sameDay); err != nil {
		t.Errorf("Expected same-day answer to be valid, got: %v", err)
	}

	inverted := datagen.Review{ID: "r3", Creation: creation, Answer: creation.AddDate(0, 0, -1)}
	err := validateReview(inverted)
	if err == nil {
		t.Fatal("Expected error for answer before creation, got nil")
	}
	if !strings.Contains(err.Error(), "r3") {
		t.Errorf("Expected review id in error, got: %v", err)
	}
}

func TestExtractDateSpan(t *testing.T) {
	delivered := date(2023, time.March, 20)
	ex := &datagen.Extract{
		Orders: []datagen.Order{
			{
				ID:        "o1",
				Purchase:  date(2023, time.March, 5),
				Approved:  date(2023, time.March, 6),
				Carrier:   date(2023, time.March, 9),
				Delivered: &delivered,
				Estimated: date(2023, time.March, 12),
			},
		},
		OrderItems: []datagen.OrderItem{
			{OrderID: "o1", ItemID: 1, ShippingLimit: date(2023, time.March, 8)},
		},
		Reviews: []datagen.Review{
			{ID: "r1", OrderID: "o1",
				Creation: date(2023, time.April, 2),
				Answer:   date(2023, time.April, 7)},
		},
	}

	start, end, err := extractDateSpan(ex)
	if err != nil {
		t.Fatalf("extractDateSpan failed: %v", err)
	}
	if !start.Equal(date(2023, time.March, 5)) {
		t.Errorf("Expected span start 2023-03-05, got %v", start)
	}
	if !end.Equal(date(2023, time.April, 7)) {
		t.Errorf("Expected span end 2023-04-07, got %v", end)
	}
}

func TestExtractDateSpanIgnoresUnsetDates(t *testing.T) {
	// Orders that never shipped have zero carrier timestamps and a nil
	// delivered pointer; neither may drag the span back to the zero time.
	ex := &datagen.Extract{
		Orders: []datagen.Order{
			{
				ID:        "o1",
				Purchase:  date(2023, time.March, 5),
				Approved:  date(2023, time.March, 6),
				Estimated: date(2023, time.March, 12),
			},
		},
	}

	start, end, err := extractDateSpan(ex)
	if err != nil {
		t.Fatalf("extractDateSpan failed: %v", err)
	}
	if !start.Equal(date(2023, time.March, 5)) {
		t.Errorf("Expected span start 2023-03-05, got %v", start)
	}
	if !end.Equal(date(2023, time.March, 12)) {
		t.Errorf("Expected span end 2023-03-12, got %v", end)
	}
}

func TestExtractDateSpanEmpty(t *testing.T) {
	_, _, err := extractDateSpan(&datagen.Extract{})
	if err == nil {
		t.Fatal("Expected error for empty extract, got nil")
	}
}
