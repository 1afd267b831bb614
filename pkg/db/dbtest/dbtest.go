// Package dbtest opens throwaway sqlite databases carrying the marketplace schema.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

// schema mirrors pkg/migrate/migrations in sqlite syntax. Money columns are TEXT so
// decimals round-trip exactly.
var schema = []string{
	`CREATE TABLE organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		role TEXT NOT NULL,
		organization_id TEXT,
		name TEXT NOT NULL,
		lat REAL,
		lng REAL,
		created_at DATETIME
	)`,
	`CREATE TABLE organization_commissions (
		organization_id TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		percent TEXT NOT NULL,
		PRIMARY KEY (organization_id, payment_method)
	)`,
	`CREATE TABLE categories (
		id TEXT PRIMARY KEY,
		parent_id TEXT,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		article TEXT NOT NULL,
		name TEXT NOT NULL,
		brand TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE product_categories (
		product_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		PRIMARY KEY (product_id, category_id)
	)`,
	`CREATE TABLE seller_categories (
		seller_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		PRIMARY KEY (seller_id, category_id)
	)`,
	`CREATE TABLE order_requests (
		id TEXT PRIMARY KEY,
		buyer_id TEXT NOT NULL,
		delivery_address TEXT NOT NULL,
		comment TEXT,
		status TEXT NOT NULL DEFAULT 'REQUESTED',
		payment_method TEXT,
		selected_offer_id TEXT,
		has_active_dispute BOOLEAN NOT NULL DEFAULT 0,
		buyer_last_notified_at DATETIME,
		staff_last_notified_at DATETIME,
		paid_at DATETIME,
		completed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE request_selected_sellers (
		order_request_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		PRIMARY KEY (order_request_id, seller_id)
	)`,
	`CREATE TABLE order_request_hidden (
		order_request_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		hidden_at DATETIME,
		PRIMARY KEY (order_request_id, user_id)
	)`,
	`CREATE TABLE attachments (
		id TEXT PRIMARY KEY,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		file_key TEXT NOT NULL,
		name TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME
	)`,
	`CREATE TABLE offers (
		id TEXT PRIMARY KEY,
		order_request_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		organization_id TEXT NOT NULL,
		status TEXT NOT NULL,
		distance_km REAL NOT NULL DEFAULT 0,
		comment TEXT,
		is_selected BOOLEAN NOT NULL DEFAULT 0,
		has_active_dispute BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT ux_offers_request_seller UNIQUE (order_request_id, seller_id)
	)`,
	`CREATE TABLE request_line_items (
		id TEXT PRIMARY KEY,
		order_request_id TEXT NOT NULL,
		offer_id TEXT,
		requested_item_id TEXT,
		product_id TEXT,
		description TEXT,
		brand_hint TEXT,
		quantity INTEGER NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		unit_price TEXT NOT NULL DEFAULT '0',
		in_stock_quantity INTEGER NOT NULL DEFAULT 0,
		backorder_quantity INTEGER NOT NULL DEFAULT 0,
		delivery_days INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		CHECK (product_id IS NOT NULL OR description IS NOT NULL)
	)`,
	`CREATE TABLE line_item_categories (
		line_item_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		PRIMARY KEY (line_item_id, category_id)
	)`,
	`CREATE TABLE disputes (
		id TEXT PRIMARY KEY,
		order_request_id TEXT NOT NULL,
		offer_id TEXT NOT NULL,
		line_item_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		rejected BOOLEAN NOT NULL DEFAULT 0,
		requested_quantity INTEGER NOT NULL,
		claimed_quantity INTEGER NOT NULL,
		reasons TEXT NOT NULL DEFAULT '[]',
		comment TEXT,
		reply TEXT,
		opened_by TEXT NOT NULL,
		resolved_at DATETIME,
		closed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_disputes_active_line_item ON disputes (line_item_id) WHERE status <> 'CLOSED'`,
	`CREATE TABLE rewards (
		id TEXT PRIMARY KEY,
		offer_id TEXT NOT NULL UNIQUE,
		order_request_id TEXT NOT NULL,
		organization_id TEXT NOT NULL,
		total_price TEXT NOT NULL,
		commission_percent TEXT NOT NULL,
		amount TEXT NOT NULL,
		exported_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		type TEXT NOT NULL,
		event_id TEXT,
		order_request_id TEXT,
		offer_id TEXT,
		organization_id TEXT,
		dispute_id TEXT,
		product_offer_id TEXT,
		viewed_at DATETIME,
		created_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_notifications_event_recipient ON notifications (event_id, user_id, role) WHERE event_id IS NOT NULL`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// Open returns a private in-memory database with the schema applied.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// Client wraps Open in the shared db client.
func Client(t testing.TB) *db.Client {
	t.Helper()
	return db.Wrap(Open(t))
}

// Org inserts an organization.
func Org(t testing.TB, conn *gorm.DB, name string) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: name}
	must(t, conn.Create(org).Error)
	return org
}

// User inserts a user with the given role. Sellers get an organization when orgID is nil.
func User(t testing.TB, conn *gorm.DB, role enums.Role, orgID *uuid.UUID) *models.User {
	t.Helper()
	if role == enums.RoleSeller && orgID == nil {
		org := Org(t, conn, "Org "+uuid.NewString()[:8])
		orgID = &org.ID
	}
	user := &models.User{Role: role, OrganizationID: orgID, Name: string(role) + " " + uuid.NewString()[:8]}
	must(t, conn.Create(user).Error)
	return user
}

// Category inserts a category.
func Category(t testing.TB, conn *gorm.DB, name string) *models.Category {
	t.Helper()
	cat := &models.Category{Name: name}
	must(t, conn.Create(cat).Error)
	return cat
}

// Product inserts a catalog product within the given categories.
func Product(t testing.TB, conn *gorm.DB, article string, categories ...uuid.UUID) *models.Product {
	t.Helper()
	p := &models.Product{Article: article, Name: "Part " + article}
	must(t, conn.Create(p).Error)
	for _, c := range categories {
		must(t, conn.Create(&models.ProductCategory{ProductID: p.ID, CategoryID: c}).Error)
	}
	return p
}

// SellerTrades records that a seller trades in the given categories.
func SellerTrades(t testing.TB, conn *gorm.DB, sellerID uuid.UUID, categories ...uuid.UUID) {
	t.Helper()
	for _, c := range categories {
		must(t, conn.Create(&models.SellerCategory{SellerID: sellerID, CategoryID: c}).Error)
	}
}

// Address is a fixed delivery address with coordinates.
func Address() types.Address {
	return types.Address{
		Line1:      "12 Depot Road",
		City:       "Almaty",
		Region:     "Almaty",
		PostalCode: "050000",
		Country:    "KZ",
		Lat:        43.2383,
		Lng:        76.9454,
	}
}

// Request inserts an order request in the given status with one ask per product.
func Request(t testing.TB, conn *gorm.DB, buyerID uuid.UUID, status enums.OrderRequestStatus, products ...uuid.UUID) (*models.OrderRequest, []models.RequestLineItem) {
	t.Helper()
	req := &models.OrderRequest{
		BuyerID:         buyerID,
		DeliveryAddress: datatypes.NewJSONType(Address()),
		Status:          status,
	}
	must(t, conn.Create(req).Error)

	asks := make([]models.RequestLineItem, 0, len(products))
	for _, p := range products {
		pid := p
		ask := models.RequestLineItem{OrderRequestID: req.ID, ProductID: &pid, Quantity: 10}
		must(t, conn.Create(&ask).Error)
		asks = append(asks, ask)
	}
	return req, asks
}

// Line describes one fulfillment row for Offer.
type Line struct {
	Ask       models.RequestLineItem
	Count     int
	UnitPrice string
	InStock   int
	Backorder int
	Days      int
}

// Offer inserts a submitted offer with fulfillment rows.
func Offer(t testing.TB, conn *gorm.DB, req *models.OrderRequest, seller *models.User, lines ...Line) (*models.Offer, []models.RequestLineItem) {
	t.Helper()
	offer := &models.Offer{
		OrderRequestID: req.ID,
		SellerID:       seller.ID,
		OrganizationID: *seller.OrganizationID,
		Status:         enums.OfferStatusSubmitted,
	}
	must(t, conn.Create(offer).Error)

	items := make([]models.RequestLineItem, 0, len(lines))
	for _, l := range lines {
		askID := l.Ask.ID
		offerID := offer.ID
		item := models.RequestLineItem{
			OrderRequestID:    req.ID,
			OfferID:           &offerID,
			RequestedItemID:   &askID,
			ProductID:         l.Ask.ProductID,
			Description:       l.Ask.Description,
			Quantity:          l.Count,
			Count:             l.Count,
			UnitPrice:         decimal.RequireFromString(l.UnitPrice),
			InStockQuantity:   l.InStock,
			BackorderQuantity: l.Backorder,
			DeliveryDays:      l.Days,
		}
		must(t, conn.Create(&item).Error)
		items = append(items, item)
	}
	return offer, items
}

func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
}
