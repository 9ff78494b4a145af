// Package secrets retrieves credentials from AWS Secrets Manager.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// Secret retrieval errors. Messages carry the secret name, never its value.
var (
	ErrEmptySecretName   = errors.New("secret name must not be empty")
	ErrSecretNotFound    = errors.New("secret not found")
	ErrSecretUnavailable = errors.New("secret could not be retrieved")
	ErrEmptySecretValue  = errors.New("secret value is empty")
)

// SecretsAPI is the slice of the Secrets Manager client the provider needs.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Provider fetches plaintext secret values by name.
type Provider struct {
	client SecretsAPI
}

// NewProvider creates a provider backed by the given Secrets Manager client.
func NewProvider(client SecretsAPI) *Provider {
	return &Provider{client: client}
}

// Fetch returns the plaintext value of the named secret.
func (p *Provider) Fetch(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptySecretName
	}

	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}

		return "", fmt.Errorf("%w: %s", ErrSecretUnavailable, name)
	}

	value := aws.ToString(out.SecretString)
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptySecretValue, name)
	}

	return value, nil
}
