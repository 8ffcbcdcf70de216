// Package route53 implements healthcheck.Client for Amazon Route 53 health checks.
package route53

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	r53 "github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/config"
	"github.com/yuriy-kovalchuk/yk-healthcheck-manager/internal/healthcheck"
)

// ManagedByTag marks health checks created by this tool.
const ManagedByTag = "managed-by"

func init() {
	healthcheck.Register("route53", func(ctx context.Context, log logr.Logger, settings map[string]string) (healthcheck.Client, error) {
		return New(ctx, log, settings)
	})
}

// API is the part of the Route 53 SDK client used here.
type API interface {
	CreateHealthCheck(ctx context.Context, in *r53.CreateHealthCheckInput, optFns ...func(*r53.Options)) (*r53.CreateHealthCheckOutput, error)
	GetHealthCheck(ctx context.Context, in *r53.GetHealthCheckInput, optFns ...func(*r53.Options)) (*r53.GetHealthCheckOutput, error)
	UpdateHealthCheck(ctx context.Context, in *r53.UpdateHealthCheckInput, optFns ...func(*r53.Options)) (*r53.UpdateHealthCheckOutput, error)
	DeleteHealthCheck(ctx context.Context, in *r53.DeleteHealthCheckInput, optFns ...func(*r53.Options)) (*r53.DeleteHealthCheckOutput, error)
	ChangeTagsForResource(ctx context.Context, in *r53.ChangeTagsForResourceInput, optFns ...func(*r53.Options)) (*r53.ChangeTagsForResourceOutput, error)
}

// Client implements healthcheck.Client for Route 53.
type Client struct {
	api API
	log logr.Logger
}

// NewWithAPI wraps an existing Route 53 API client.
func NewWithAPI(api API, log logr.Logger) *Client {
	return &Client{api: api, log: log}
}

// New creates a Route 53 client from the given settings map.
// Optional settings: access_key_id and secret_access_key (with session_token),
// assume_role_arn (with role_session_name), region, max_attempts, endpoint.
// Without static keys the default AWS credential chain is used.
func New(ctx context.Context, log logr.Logger, settings map[string]string) (*Client, error) {
	cfg, err := LoadAWSConfig(ctx, settings)
	if err != nil {
		return nil, err
	}

	api := r53.NewFromConfig(cfg, func(o *r53.Options) {
		if endpoint := settings["endpoint"]; endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	log.V(1).Info("route53 client ready", "region", cfg.Region)
	return NewWithAPI(api, log), nil
}

// LoadAWSConfig builds the SDK configuration for settings. The values are passed
// through as given; nothing here inspects the credentials.
func LoadAWSConfig(ctx context.Context, settings map[string]string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.ResolveRegion(settings["region"])),
	}

	accessKey, secretKey := settings["access_key_id"], settings["secret_access_key"]
	switch {
	case accessKey != "" && secretKey != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, settings["session_token"])))
	case accessKey != "" || secretKey != "":
		return aws.Config{}, fmt.Errorf("route53: access_key_id and secret_access_key must be set together")
	}

	if v := settings["max_attempts"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return aws.Config{}, fmt.Errorf("route53: invalid max_attempts %q", v)
		}
		opts = append(opts, awsconfig.WithRetryMaxAttempts(n))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("route53: load aws config: %w", err)
	}

	if arn := settings["assume_role_arn"]; arn != "" {
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), arn, func(o *stscreds.AssumeRoleOptions) {
			if name := settings["role_session_name"]; name != "" {
				o.RoleSessionName = name
			}
		})
		cfg.Credentials = aws.NewCredentialsCache(provider)
	}
	return cfg, nil
}

// Get returns the live configuration of a health check.
func (c *Client) Get(ctx context.Context, remoteID string) (healthcheck.RemoteConfig, error) {
	c.log.V(1).Info("reading health check", "id", remoteID)
	out, err := c.api.GetHealthCheck(ctx, &r53.GetHealthCheckInput{HealthCheckId: aws.String(remoteID)})
	if err != nil {
		return healthcheck.RemoteConfig{}, classify("GetHealthCheck", err)
	}
	if out.HealthCheck == nil || out.HealthCheck.HealthCheckConfig == nil {
		return healthcheck.RemoteConfig{}, fmt.Errorf("route53: GetHealthCheck %s: empty response", remoteID)
	}
	return toRemote(out.HealthCheck.HealthCheckConfig), nil
}

// Create creates a health check using token as the caller reference.
func (c *Client) Create(ctx context.Context, token string, cfg healthcheck.DesiredConfig) (string, error) {
	c.log.Info("creating health check", "type", cfg.Type, "callerReference", token)
	out, err := c.api.CreateHealthCheck(ctx, &r53.CreateHealthCheckInput{
		CallerReference:   aws.String(token),
		HealthCheckConfig: toConfig(cfg),
	})
	if err != nil {
		return "", classify("CreateHealthCheck", err)
	}
	if out.HealthCheck == nil || aws.ToString(out.HealthCheck.Id) == "" {
		return "", fmt.Errorf("route53: CreateHealthCheck: response without health check id")
	}
	id := aws.ToString(out.HealthCheck.Id)
	c.log.Info("health check created", "id", id)
	return id, nil
}

// Update applies the mutable configuration. Optional fields that are unset are
// reset on the remote side where Route 53 allows it.
func (c *Client) Update(ctx context.Context, remoteID string, cfg healthcheck.MutableConfig) error {
	c.log.Info("updating health check", "id", remoteID)
	if cfg.Endpoint && cfg.IPAddress == nil {
		c.log.V(1).Info("ip address is not declared; Route 53 keeps any address already set", "id", remoteID)
	}
	_, err := c.api.UpdateHealthCheck(ctx, toUpdate(remoteID, cfg))
	if err != nil {
		return classify("UpdateHealthCheck", err)
	}
	return nil
}

// Delete removes a health check.
func (c *Client) Delete(ctx context.Context, remoteID string) error {
	c.log.Info("deleting health check", "id", remoteID)
	_, err := c.api.DeleteHealthCheck(ctx, &r53.DeleteHealthCheckInput{HealthCheckId: aws.String(remoteID)})
	if err != nil {
		return classify("DeleteHealthCheck", err)
	}
	return nil
}

// Tag sets the Name tag, which the Route 53 console displays, to the logical name.
func (c *Client) Tag(ctx context.Context, remoteID, name string) error {
	_, err := c.api.ChangeTagsForResource(ctx, &r53.ChangeTagsForResourceInput{
		ResourceType: r53types.TagResourceTypeHealthcheck,
		ResourceId:   aws.String(remoteID),
		AddTags: []r53types.Tag{
			{Key: aws.String("Name"), Value: aws.String(name)},
			{Key: aws.String(ManagedByTag), Value: aws.String("yk-healthcheck-manager")},
		},
	})
	if err != nil {
		return classify("ChangeTagsForResource", err)
	}
	return nil
}

func classify(op string, err error) error {
	var notFound *r53types.NoSuchHealthCheck
	if errors.As(err, &notFound) {
		return fmt.Errorf("route53: %s: %w: %w", op, healthcheck.ErrNotFound, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidInput" {
		return fmt.Errorf("route53: %s: %w: %w", op, healthcheck.ErrImmutableFieldRejected, err)
	}
	return fmt.Errorf("route53: %s: %w", op, err)
}
