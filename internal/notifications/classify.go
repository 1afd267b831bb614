package notifications

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

// Row is an unread notification joined with the state of the request and offer it points at.
type Row struct {
	ID             uuid.UUID                 `gorm:"column:id"`
	Type           enums.NotificationType    `gorm:"column:type"`
	OrderRequestID *uuid.UUID                `gorm:"column:order_request_id"`
	OfferID        *uuid.UUID                `gorm:"column:offer_id"`
	DisputeID      *uuid.UUID                `gorm:"column:dispute_id"`
	RequestStatus  *enums.OrderRequestStatus `gorm:"column:request_status"`
	OfferSelected  bool                      `gorm:"column:offer_selected"`
}

// Counts holds unread totals per bucket. PersonalArea is the sum of all buckets.
type Counts struct {
	OrderRequests  int `json:"orderRequests"`
	Orders         int `json:"orders"`
	OrderHistory   int `json:"orderHistory"`
	Refunds        int `json:"refunds"`
	Organizations  int `json:"organizations"`
	UserComplaints int `json:"userComplaints"`
	ProductOffers  int `json:"productOffers"`
	Customers      int `json:"customers"`
	Sellers        int `json:"sellers"`
	PersonalArea   int `json:"personalArea"`
}

func (c *Counts) add(bucket enums.NotificationBucket) {
	switch bucket {
	case enums.BucketOrderRequests:
		c.OrderRequests++
	case enums.BucketOrders:
		c.Orders++
	case enums.BucketOrderHistory:
		c.OrderHistory++
	case enums.BucketRefunds:
		c.Refunds++
	case enums.BucketOrganizations:
		c.Organizations++
	case enums.BucketUserComplaints:
		c.UserComplaints++
	case enums.BucketProductOffers:
		c.ProductOffers++
	case enums.BucketCustomers:
		c.Customers++
	case enums.BucketSellers:
		c.Sellers++
	default:
		panic(fmt.Sprintf("notifications: unknown bucket %q", bucket))
	}
	c.PersonalArea++
}

// Get returns the count of one bucket.
func (c Counts) Get(bucket enums.NotificationBucket) int {
	switch bucket {
	case enums.BucketOrderRequests:
		return c.OrderRequests
	case enums.BucketOrders:
		return c.Orders
	case enums.BucketOrderHistory:
		return c.OrderHistory
	case enums.BucketRefunds:
		return c.Refunds
	case enums.BucketOrganizations:
		return c.Organizations
	case enums.BucketUserComplaints:
		return c.UserComplaints
	case enums.BucketProductOffers:
		return c.ProductOffers
	case enums.BucketCustomers:
		return c.Customers
	case enums.BucketSellers:
		return c.Sellers
	default:
		panic(fmt.Sprintf("notifications: unknown bucket %q", bucket))
	}
}

// Tally classifies rows for one role, counting each notification id once.
// Rows of a type no bucket knows are left out and reported as skipped.
func Tally(role enums.Role, rows []Row) (counts Counts, skipped int) {
	for _, row := range Dedupe(rows) {
		bucket, ok := Classify(role, row)
		if !ok {
			skipped++
			continue
		}
		counts.add(bucket)
	}
	return counts, skipped
}

// Dedupe keeps the first row per notification id.
func Dedupe(rows []Row) []Row {
	seen := make(map[uuid.UUID]struct{}, len(rows))
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.ID]; ok {
			continue
		}
		seen[row.ID] = struct{}{}
		out = append(out, row)
	}
	return out
}

// Classify decides the single bucket a notification counts toward for the given role.
// ok is false for types written by older releases that no bucket claims.
func Classify(role enums.Role, row Row) (bucket enums.NotificationBucket, ok bool) {
	switch row.Type {
	case enums.NotificationTypeDisputeOpened,
		enums.NotificationTypeDisputeUpdated,
		enums.NotificationTypeDisputeClosed:
		return enums.BucketRefunds, true
	case enums.NotificationTypeOrganizationRequested,
		enums.NotificationTypeOrganizationUpdated:
		return enums.BucketOrganizations, true
	case enums.NotificationTypeUserComplaint:
		return enums.BucketUserComplaints, true
	case enums.NotificationTypeProductOffer:
		return enums.BucketProductOffers, true
	case enums.NotificationTypeCustomerRegistered:
		return enums.BucketCustomers, true
	case enums.NotificationTypeSellerRegistered:
		return enums.BucketSellers, true
	case enums.NotificationTypeRequestMarker,
		enums.NotificationTypeRequestCreated,
		enums.NotificationTypeOfferSubmitted,
		enums.NotificationTypeOfferAccepted,
		enums.NotificationTypePaymentConfirmed,
		enums.NotificationTypeOrderCompleted,
		enums.NotificationTypeRequestDeclined:
		return classifyRequestEvent(role, row), true
	default:
		return "", false
	}
}

func classifyRequestEvent(role enums.Role, row Row) enums.NotificationBucket {
	if row.DisputeID != nil {
		return enums.BucketRefunds
	}
	if row.RequestStatus == nil {
		return enums.BucketOrderRequests
	}
	status := *row.RequestStatus
	switch role {
	case enums.RoleSeller:
		switch {
		case status.IsPaidStage() && row.OfferSelected:
			return enums.BucketOrders
		case status.IsPaidStage(), status.IsTerminal():
			// lost to another seller, or closed
			return enums.BucketOrderHistory
		default:
			return enums.BucketOrderRequests
		}
	case enums.RoleBuyer, enums.RoleStaff:
		switch {
		case status.IsPaidStage():
			return enums.BucketOrders
		case status.IsTerminal():
			return enums.BucketOrderHistory
		default:
			return enums.BucketOrderRequests
		}
	default:
		panic(fmt.Sprintf("notifications: unknown role %q", role))
	}
}
