// Package ses mirrors the local suppression list to the SES account-level
// suppression list, so addresses blocked here are also blocked at the
// provider even if a sender bypasses the hub. The mirror is best-effort:
// failures are logged and retried by the reconciler, never surfaced to the
// webhook path.
package ses

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/ignite/suppression-hub/internal/config"
	"github.com/ignite/suppression-hub/internal/domain"
)

// API is the slice of the SES v2 client the mirror uses. Narrowed to an
// interface so tests can stub it.
type API interface {
	PutSuppressedDestination(ctx context.Context, in *sesv2.PutSuppressedDestinationInput, opts ...func(*sesv2.Options)) (*sesv2.PutSuppressedDestinationOutput, error)
	DeleteSuppressedDestination(ctx context.Context, in *sesv2.DeleteSuppressedDestinationInput, opts ...func(*sesv2.Options)) (*sesv2.DeleteSuppressedDestinationOutput, error)
	ListSuppressedDestinations(ctx context.Context, in *sesv2.ListSuppressedDestinationsInput, opts ...func(*sesv2.Options)) (*sesv2.ListSuppressedDestinationsOutput, error)
}

// Client wraps the AWS SES v2 account-suppression API.
type Client struct {
	api API
}

// NewClient creates an SES client from static credentials.
func NewClient(ctx context.Context, cfg appconfig.SESConfig) (*Client, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &Client{api: sesv2.NewFromConfig(awsCfg)}, nil
}

// NewClientWithAPI creates a client around an existing API implementation.
func NewClientWithAPI(api API) *Client { return &Client{api: api} }

// Suppress puts an address on the SES account-level suppression list.
func (c *Client) Suppress(ctx context.Context, email string, reason domain.SuppressionReason) error {
	_, err := c.api.PutSuppressedDestination(ctx, &sesv2.PutSuppressedDestinationInput{
		EmailAddress: aws.String(email),
		Reason:       suppressionReason(reason),
	})
	if err != nil {
		return fmt.Errorf("put suppressed destination: %w", err)
	}
	return nil
}

// Unsuppress removes an address from the SES account-level list. A missing
// destination is fine: the account list may never have had it.
func (c *Client) Unsuppress(ctx context.Context, email string) error {
	_, err := c.api.DeleteSuppressedDestination(ctx, &sesv2.DeleteSuppressedDestinationInput{
		EmailAddress: aws.String(email),
	})
	var nfe *types.NotFoundException
	if err != nil && !errors.As(err, &nfe) {
		return fmt.Errorf("delete suppressed destination: %w", err)
	}
	return nil
}

// SuppressedDestination is one entry from the account-level list.
type SuppressedDestination struct {
	Email  string
	Reason domain.SuppressionReason
}

// ListSuppressed walks the full account-level suppression list.
func (c *Client) ListSuppressed(ctx context.Context) ([]SuppressedDestination, error) {
	var out []SuppressedDestination
	var next *string
	for {
		resp, err := c.api.ListSuppressedDestinations(ctx, &sesv2.ListSuppressedDestinationsInput{
			NextToken: next,
		})
		if err != nil {
			return nil, fmt.Errorf("list suppressed destinations: %w", err)
		}
		for _, d := range resp.SuppressedDestinationSummaries {
			out = append(out, SuppressedDestination{
				Email:  aws.ToString(d.EmailAddress),
				Reason: localReason(d.Reason),
			})
		}
		if resp.NextToken == nil {
			return out, nil
		}
		next = resp.NextToken
	}
}

// suppressionReason maps a local reason onto SES's two-value enum.
// Manual suppressions ride as BOUNCE: SES has no closer category.
func suppressionReason(r domain.SuppressionReason) types.SuppressionListReason {
	if r == domain.ReasonComplaint {
		return types.SuppressionListReasonComplaint
	}
	return types.SuppressionListReasonBounce
}

func localReason(r types.SuppressionListReason) domain.SuppressionReason {
	if r == types.SuppressionListReasonComplaint {
		return domain.ReasonComplaint
	}
	return domain.ReasonHardBounce
}
