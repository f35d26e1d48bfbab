package secrets

import (
	"context"
	"errors"
	"testing"

	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVersions struct {
	values map[string]string
	calls  int
}

func (f *fakeVersions) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (string, error) {
	f.calls++
	v, ok := f.values[req.Name]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func TestGCPSecretManager_AccessCachesValue(t *testing.T) {
	fake := &fakeVersions{values: map[string]string{
		"projects/demo/secrets/db-password/versions/latest": "s3cret\n",
	}}
	m := newManager(fake, "demo")

	v, err := m.Access(context.Background(), "db-password")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", v)

	_, err = m.Access(context.Background(), "projects/demo/secrets/db-password")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)
}

func TestGCPSecretManager_AccessError(t *testing.T) {
	m := newManager(&fakeVersions{values: map[string]string{}}, "demo")

	_, err := m.Access(context.Background(), "missing")

	assert.ErrorContains(t, err, "failed to access secret missing")
}

func TestResolve(t *testing.T) {
	m := newManager(&fakeVersions{values: map[string]string{
		"projects/demo/secrets/jwt/versions/latest": "from-gcp",
	}}, "demo")
	log := logrus.NewEntry(logrus.New())

	assert.Equal(t, "from-gcp", Resolve(context.Background(), m, "jwt", "env", log))
	assert.Equal(t, "env", Resolve(context.Background(), m, "other", "env", log))
	assert.Equal(t, "env", Resolve(context.Background(), nil, "jwt", "env", log))
	assert.Equal(t, "env", Resolve(context.Background(), m, "", "env", log))
}
