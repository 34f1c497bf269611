package main

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"yieldsplit/config"
	"yieldsplit/crypto"
	"yieldsplit/rpc"
)

func writeConfig(t *testing.T, owner string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := strings.Join([]string{
		`DataDir = "` + filepath.Join(dir, "data") + `"`,
		`Owner = "` + owner + `"`,
		`GenesisTime = 2026-01-01T00:00:00Z`,
		`[auth]`,
		`Secret = "cli-secret"`,
		`TokenTTL = "30m"`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRunTokenIssuesVerifiableToken(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	owner := key.PubKey().Address()
	path := writeConfig(t, owner.String())

	var out bytes.Buffer
	require.NoError(t, runToken([]string{"-config", path}, &out))
	token := strings.TrimSpace(out.String())
	require.NotEmpty(t, token)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	auth := rpc.NewAuthenticator(rpc.AuthConfig{
		HMACSecret: cfg.Auth.Secret,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
	})
	req := &http.Request{Header: http.Header{"Authorization": {"Bearer " + token}}}
	subject, err := auth.Authenticate(req)
	require.NoError(t, err)
	require.Equal(t, owner.Raw(), subject)
}

func TestRunTokenRejectsBadSubject(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	path := writeConfig(t, key.PubKey().Address().String())
	var out bytes.Buffer
	err = runToken([]string{"-config", path, "-subject", "nope", "-ttl", time.Minute.String()}, &out)
	require.Error(t, err)
	require.Empty(t, out.String())
}

func TestUnlockOperatorChecksOwner(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	other, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	keystorePath := filepath.Join(t.TempDir(), "operator.keystore")
	require.NoError(t, crypto.SaveToKeystore(keystorePath, key, "pass", crypto.LightScrypt))
	t.Setenv(config.PassphraseEnv, "pass")

	cfg := &config.Config{OperatorKeystore: keystorePath}
	require.NoError(t, unlockOperator(cfg, key.PubKey().Address().Raw()))
	require.Error(t, unlockOperator(cfg, other.PubKey().Address().Raw()))

	require.NoError(t, unlockOperator(&config.Config{}, [20]byte{1}))
}
