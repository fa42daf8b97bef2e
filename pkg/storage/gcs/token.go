package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenEndpoint    = "https://oauth2.googleapis.com/token"
	metadataEndpoint = "http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token"
	storageScope     = "https://www.googleapis.com/auth/devstorage.read_write"
	refreshMargin    = time.Minute
)

type fetchFunc func(context.Context) (token string, expiry time.Time, err error)

// tokenSource caches one OAuth access token and refetches it shortly before
// it expires.
type tokenSource struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
	fetch  fetchFunc
}

func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token != "" && time.Until(t.expiry) > refreshMargin {
		return t.token, nil
	}
	token, expiry, err := t.fetch(ctx)
	if err != nil {
		return "", err
	}
	t.token, t.expiry = token, expiry
	return token, nil
}

type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// serviceAccountSource implements the OAuth JWT bearer grant for a service
// account key file.
func serviceAccountSource(httpClient *http.Client, raw []byte) (*tokenSource, error) {
	var sa serviceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, errors.New("service account needs client_email and private_key")
	}
	if sa.TokenURI == "" {
		sa.TokenURI = tokenEndpoint
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}

	return &tokenSource{fetch: func(ctx context.Context) (string, time.Time, error) {
		assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, assertionClaims(sa, time.Now())).SignedString(key)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("sign assertion: %w", err)
		}
		form := url.Values{
			"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
			"assertion":  {assertion},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, sa.TokenURI, strings.NewReader(form.Encode()))
		if err != nil {
			return "", time.Time{}, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return exchange(httpClient, req)
	}}, nil
}

func assertionClaims(sa serviceAccount, now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":   sa.ClientEmail,
		"scope": storageScope,
		"aud":   sa.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
}

func metadataSource(httpClient *http.Client) *tokenSource {
	return &tokenSource{fetch: func(ctx context.Context) (string, time.Time, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataEndpoint, nil)
		if err != nil {
			return "", time.Time{}, err
		}
		req.Header.Set("Metadata-Flavor", "Google")
		return exchange(httpClient, req)
	}}
}

func exchange(httpClient *http.Client, req *http.Request) (string, time.Time, error) {
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("token endpoint answered %s", resp.Status)
	}
	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", time.Time{}, fmt.Errorf("decode token: %w", err)
	}
	if body.AccessToken == "" {
		return "", time.Time{}, errors.New("token endpoint returned no access_token")
	}
	return body.AccessToken, time.Now().Add(time.Duration(body.ExpiresIn) * time.Second), nil
}
