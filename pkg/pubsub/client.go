// Package pubsub owns the Google Cloud Pub/Sub connection shared by the
// outbox publisher and the notification worker.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// Kind is a Pub/Sub resource collection.
type Kind string

const (
	Topic        Kind = "topics"
	Subscription Kind = "subscriptions"
)

// ErrMissingResource is returned when a required topic or subscription
// has not been provisioned.
var ErrMissingResource = errors.New("pubsub resource not found")

type Client struct {
	ps      *pubsub.Client
	project string

	mu       sync.Mutex
	required map[string]Kind
}

// Dial opens a client for the configured project. Credentials come from
// inline JSON, a key file, or the ambient environment, in that order.
func Dial(ctx context.Context, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("pubsub: gcp project id is required")
	}
	ps, err := pubsub.NewClient(ctx, project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("pubsub dial: %w", err)
	}
	if logg != nil {
		logg.Debug(logg.WithField(ctx, "gcp_project", project), "pubsub client ready")
	}
	return &Client{ps: ps, project: project, required: map[string]Kind{}}, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if gcp.CredentialsJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	}
	if gcp.ApplicationCredentials != "" {
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

// Require fails unless the named resource exists, and adds it to the set
// Ping re-checks.
func (c *Client) Require(ctx context.Context, kind Kind, name string) error {
	full := resourceName(c.project, kind, name)
	if full == "" {
		return fmt.Errorf("pubsub: %s name is required", strings.TrimSuffix(string(kind), "s"))
	}
	if err := c.exists(ctx, kind, full); err != nil {
		return err
	}
	c.mu.Lock()
	c.required[full] = kind
	c.mu.Unlock()
	return nil
}

func (c *Client) exists(ctx context.Context, kind Kind, full string) error {
	var err error
	switch kind {
	case Topic:
		_, err = c.ps.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	case Subscription:
		_, err = c.ps.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
	default:
		return fmt.Errorf("pubsub: unknown resource kind %q", kind)
	}
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", ErrMissingResource, full)
	}
	if err != nil {
		return fmt.Errorf("pubsub lookup %s: %w", full, err)
	}
	return nil
}

// Publisher returns a handle for topic. It does not check existence.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	full := resourceName(c.project, Topic, topic)
	if full == "" {
		return nil
	}
	return c.ps.Publisher(full)
}

// Subscriber returns a handle for subscription. It does not check existence.
func (c *Client) Subscriber(subscription string) *pubsub.Subscriber {
	full := resourceName(c.project, Subscription, subscription)
	if full == "" {
		return nil
	}
	return c.ps.Subscriber(full)
}

// Ping re-checks every resource passed to Require.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.Lock()
	required := make(map[string]Kind, len(c.required))
	for name, kind := range c.required {
		required[name] = kind
	}
	c.mu.Unlock()

	for name, kind := range required {
		if err := c.exists(ctx, kind, name); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.ps == nil {
		return nil
	}
	return c.ps.Close()
}

// resourceName expands a short id to projects/<project>/<kind>/<id>. Fully
// qualified names of the right kind pass through unchanged.
func resourceName(project string, kind Kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+string(kind)+"/") {
		return name
	}
	if project = strings.TrimSpace(project); project == "" {
		return ""
	}
	return "projects/" + project + "/" + string(kind) + "/" + name
}
