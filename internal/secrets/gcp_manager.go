// Package secrets reads credentials from Google Cloud Secret Manager.
package secrets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/sirupsen/logrus"
)

// Accessor returns the latest value of a named secret
type Accessor interface {
	Access(ctx context.Context, name string) (string, error)
}

type versionAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (string, error)
}

// clientAdapter hides the gax call options of the generated client
type clientAdapter struct {
	client *secretmanager.Client
}

func (a clientAdapter) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (string, error) {
	resp, err := a.client.AccessSecretVersion(ctx, req)
	if err != nil {
		return "", err
	}
	return string(resp.GetPayload().GetData()), nil
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// GCPSecretManager reads secrets of one project and caches them for a while
type GCPSecretManager struct {
	client    versionAccessor
	closer    func() error
	projectID string
	cache     map[string]cacheEntry
	cacheMu   sync.RWMutex
	cacheTTL  time.Duration
}

// NewGCPSecretManager creates a Secret Manager client using application
// default credentials.
func NewGCPSecretManager(ctx context.Context, projectID string) (*GCPSecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	m := newManager(clientAdapter{client: client}, projectID)
	m.closer = client.Close
	return m, nil
}

func newManager(client versionAccessor, projectID string) *GCPSecretManager {
	return &GCPSecretManager{
		client:    client,
		projectID: projectID,
		cache:     make(map[string]cacheEntry),
		cacheTTL:  5 * time.Minute,
	}
}

// Close releases the underlying client
func (sm *GCPSecretManager) Close() error {
	if sm.closer != nil {
		return sm.closer()
	}
	return nil
}

// SecretPath expands a short secret id into its full resource name
func (sm *GCPSecretManager) SecretPath(name string) string {
	if strings.HasPrefix(name, "projects/") {
		return name
	}
	return fmt.Sprintf("projects/%s/secrets/%s", sm.projectID, name)
}

// Access returns the latest version of a secret
func (sm *GCPSecretManager) Access(ctx context.Context, name string) (string, error) {
	path := sm.SecretPath(name)

	sm.cacheMu.RLock()
	if entry, ok := sm.cache[path]; ok && time.Now().Before(entry.expiresAt) {
		sm.cacheMu.RUnlock()
		return entry.value, nil
	}
	sm.cacheMu.RUnlock()

	value, err := sm.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: path + "/versions/latest",
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret %s: %w", name, err)
	}
	value = strings.TrimSpace(value)

	sm.cacheMu.Lock()
	sm.cache[path] = cacheEntry{value: value, expiresAt: time.Now().Add(sm.cacheTTL)}
	sm.cacheMu.Unlock()

	return value, nil
}

// Resolve returns the secret's value, or fallback when no accessor is
// configured, the name is empty, or the lookup fails.
func Resolve(ctx context.Context, a Accessor, name, fallback string, logger *logrus.Entry) string {
	if a == nil || name == "" {
		return fallback
	}
	value, err := a.Access(ctx, name)
	if err != nil || value == "" {
		if logger != nil {
			logger.WithError(err).WithField("secret", name).Warn("Falling back to environment value")
		}
		return fallback
	}
	return value
}
