// Package pubsub wraps the Pub/Sub v2 client shared by the outbox publisher, the
// notification worker and push delivery.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
)

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Needs lists the resources a binary cannot run without. They are checked at
// startup and again on every readiness probe.
type Needs struct {
	Topics        []string
	Subscriptions []string
}

// PublisherNeeds is what the outbox relay requires.
func PublisherNeeds(cfg config.PubSubConfig) Needs {
	return Needs{Topics: []string{cfg.DomainTopic}}
}

// WorkerNeeds is what the notification worker requires. The push topic only
// counts when push delivery is configured.
func WorkerNeeds(cfg config.PubSubConfig) Needs {
	n := Needs{Subscriptions: []string{cfg.DomainSubscription}}
	if strings.TrimSpace(cfg.NotificationPushTopic) != "" {
		n.Topics = append(n.Topics, cfg.NotificationPushTopic)
	}
	return n
}

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	needs     Needs

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects to Pub/Sub and fails when any resource in needs is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, needs Needs, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}

	psClient, err := pubsub.NewClient(ctx, projectID, ClientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:     psClient,
		projectID:  projectID,
		cfg:        cfg,
		needs:      needs,
		publishers: make(map[string]*pubsub.Publisher),
	}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project":       projectID,
			"topics":        len(needs.Topics),
			"subscriptions": len(needs.Subscriptions),
		}), "pubsub client initialized")
	}
	return c, nil
}

// ClientOptions turns the GCP credential settings into options shared by every GCP client.
func ClientOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// Ping checks that every required topic and subscription still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	var errs error
	for _, name := range c.needs.Topics {
		errs = multierr.Append(errs, c.checkTopic(ctx, name))
	}
	for _, name := range c.needs.Subscriptions {
		errs = multierr.Append(errs, c.checkSubscription(ctx, name))
	}
	return errs
}

func (c *Client) checkTopic(ctx context.Context, name string) error {
	full := c.resourceName(kindTopic, name)
	if full == "" {
		return fmt.Errorf("topic %q not configured", name)
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	return missing("topic", name, err)
}

func (c *Client) checkSubscription(ctx context.Context, name string) error {
	full := c.resourceName(kindSubscription, name)
	if full == "" {
		return fmt.Errorf("subscription %q not configured", name)
	}
	_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
	return missing("subscription", name, err)
}

func missing(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, name, err)
	}
}

// Subscription returns a subscriber for an ID or full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.resourceName(kindSubscription, name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

func (c *Client) DomainSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.DomainSubscription)
}

// Publisher returns the cached publisher for a topic, creating it on first use.
// Publishers batch in the background and are stopped by Close.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.resourceName(kindTopic, name)
	if full == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[full]; ok {
		return p
	}
	p := c.client.Publisher(full)
	c.publishers[full] = p
	return p
}

func (c *Client) DomainPublisher() *pubsub.Publisher {
	return c.Publisher(c.cfg.DomainTopic)
}

// NotificationPushPublisher is nil when no push topic is configured.
func (c *Client) NotificationPushPublisher() *pubsub.Publisher {
	return c.Publisher(c.cfg.NotificationPushTopic)
}

// Close flushes pending publishes and releases the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for name, p := range c.publishers {
		p.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.client.Close()
}

// resourceName expands a bare ID into projects/<project>/<kind>/<id>. Full names pass through.
func (c *Client) resourceName(kind, name string) string {
	if c == nil {
		return ""
	}
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+kind+"/") {
		return n
	}
	if c.projectID == "" {
		return ""
	}
	return "projects/" + c.projectID + "/" + kind + "/" + n
}
