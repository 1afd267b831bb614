package enums

import "slices"

// NotificationType tags a notification row so it can be bucketed for badges.
type NotificationType string

const (
	NotificationTypeRequestMarker         NotificationType = "order_request_marker"
	NotificationTypeRequestCreated        NotificationType = "order_request_created"
	NotificationTypeOfferSubmitted        NotificationType = "offer_submitted"
	NotificationTypeOfferAccepted         NotificationType = "offer_accepted"
	NotificationTypePaymentConfirmed      NotificationType = "payment_confirmed"
	NotificationTypeOrderCompleted        NotificationType = "order_completed"
	NotificationTypeRequestDeclined       NotificationType = "order_request_declined"
	NotificationTypeDisputeOpened         NotificationType = "dispute_opened"
	NotificationTypeDisputeUpdated        NotificationType = "dispute_updated"
	NotificationTypeDisputeClosed         NotificationType = "dispute_closed"
	NotificationTypeOrganizationRequested NotificationType = "organization_requested"
	NotificationTypeOrganizationUpdated   NotificationType = "organization_updated"
	NotificationTypeUserComplaint         NotificationType = "user_complaint"
	NotificationTypeProductOffer          NotificationType = "product_offer"
	NotificationTypeCustomerRegistered    NotificationType = "customer_registered"
	NotificationTypeSellerRegistered      NotificationType = "seller_registered"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeRequestMarker,
	NotificationTypeRequestCreated,
	NotificationTypeOfferSubmitted,
	NotificationTypeOfferAccepted,
	NotificationTypePaymentConfirmed,
	NotificationTypeOrderCompleted,
	NotificationTypeRequestDeclined,
	NotificationTypeDisputeOpened,
	NotificationTypeDisputeUpdated,
	NotificationTypeDisputeClosed,
	NotificationTypeOrganizationRequested,
	NotificationTypeOrganizationUpdated,
	NotificationTypeUserComplaint,
	NotificationTypeProductOffer,
	NotificationTypeCustomerRegistered,
	NotificationTypeSellerRegistered,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	return slices.Contains(validNotificationTypes, n)
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return parse(validNotificationTypes, value, "notification type")
}

// NotificationBucket is one unread-badge category.
type NotificationBucket string

const (
	BucketOrderRequests  NotificationBucket = "orderRequests"
	BucketOrders         NotificationBucket = "orders"
	BucketOrderHistory   NotificationBucket = "orderHistory"
	BucketRefunds        NotificationBucket = "refunds"
	BucketOrganizations  NotificationBucket = "organizations"
	BucketUserComplaints NotificationBucket = "userComplaints"
	BucketProductOffers  NotificationBucket = "productOffers"
	BucketCustomers      NotificationBucket = "customers"
	BucketSellers        NotificationBucket = "sellers"
)

var validNotificationBuckets = []NotificationBucket{
	BucketOrderRequests,
	BucketOrders,
	BucketOrderHistory,
	BucketRefunds,
	BucketOrganizations,
	BucketUserComplaints,
	BucketProductOffers,
	BucketCustomers,
	BucketSellers,
}

// NotificationBuckets returns every bucket in display order.
func NotificationBuckets() []NotificationBucket {
	out := make([]NotificationBucket, len(validNotificationBuckets))
	copy(out, validNotificationBuckets)
	return out
}

// ParseNotificationBucket converts raw strings into NotificationBucket.
func ParseNotificationBucket(value string) (NotificationBucket, error) {
	return parse(validNotificationBuckets, value, "notification bucket")
}
