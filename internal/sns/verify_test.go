package sns

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// testSigner bundles a throwaway RSA key, a self-signed certificate served
// over a local TLS server, and a fetcher that trusts that server.
type testSigner struct {
	key     *rsa.PrivateKey
	certURL string
	fetcher *CertFetcher
}

func newTestSigner(t *testing.T) *testSigner {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "sns-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(certPEM)
	}))
	t.Cleanup(ts.Close)

	fetcher, err := NewCertFetcher(ts.Client(), `^127\.0\.0\.1$`, 2*time.Second)
	if err != nil {
		t.Fatalf("new cert fetcher: %v", err)
	}

	return &testSigner{
		key:     key,
		certURL: ts.URL + "/cert.pem",
		fetcher: fetcher,
	}
}

// sign fills Signature and SigningCertURL for the given version.
func (s *testSigner) sign(t *testing.T, env *Envelope, version string) {
	t.Helper()

	env.SignatureVersion = version
	env.SigningCertURL = s.certURL

	signable, ok := env.canonicalString()
	if !ok {
		t.Fatal("envelope is not signable")
	}

	var hash crypto.Hash
	switch version {
	case "1":
		hash = crypto.SHA1
	case "2":
		hash = crypto.SHA256
	default:
		t.Fatalf("unsupported version %q", version)
	}

	h := hash.New()
	h.Write([]byte(signable))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, hash, h.Sum(nil))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	env.Signature = base64.StdEncoding.EncodeToString(sig)
}

func notificationEnvelope() *Envelope {
	return &Envelope{
		Type:      TypeNotification,
		MessageID: "msg-1",
		TopicARN:  "arn:aws:sns:us-west-2:123:ses-feedback",
		Message:   `{"notificationType":"Delivery"}`,
		Timestamp: "2024-05-01T12:00:00.000Z",
	}
}

func TestVerify_ValidSignatureVersions(t *testing.T) {
	s := newTestSigner(t)

	for _, version := range []string{"1", "2"} {
		t.Run("version "+version, func(t *testing.T) {
			env := notificationEnvelope()
			s.sign(t, env, version)

			v := NewVerifier(s.fetcher, false, nil)
			if err := v.Verify(context.Background(), env); err != nil {
				t.Errorf("Verify() error = %v, want nil", err)
			}
		})
	}
}

func TestVerify_ConfirmationEnvelope(t *testing.T) {
	s := newTestSigner(t)

	env := &Envelope{
		Type:         TypeSubscriptionConfirmation,
		MessageID:    "msg-2",
		TopicARN:     "arn:aws:sns:us-west-2:123:ses-feedback",
		Message:      "You have chosen to subscribe",
		Timestamp:    "2024-05-01T12:00:00.000Z",
		Token:        "abc123token",
		SubscribeURL: "https://sns.us-west-2.amazonaws.com/?Action=ConfirmSubscription",
	}
	s.sign(t, env, "1")

	v := NewVerifier(s.fetcher, false, nil)
	if err := v.Verify(context.Background(), env); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}
}

func TestVerify_TamperedBody(t *testing.T) {
	s := newTestSigner(t)

	env := notificationEnvelope()
	s.sign(t, env, "2")
	env.Message = env.Message + " tampered"

	v := NewVerifier(s.fetcher, false, nil)
	err := v.Verify(context.Background(), env)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Verify() error = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerify_FakeSignature(t *testing.T) {
	s := newTestSigner(t)

	env := notificationEnvelope()
	env.SignatureVersion = "1"
	env.SigningCertURL = s.certURL
	env.Signature = base64.StdEncoding.EncodeToString([]byte("fake"))

	v := NewVerifier(s.fetcher, false, nil)
	if err := v.Verify(context.Background(), env); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Verify() error = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerify_NotBase64(t *testing.T) {
	s := newTestSigner(t)

	env := notificationEnvelope()
	env.SignatureVersion = "1"
	env.SigningCertURL = s.certURL
	env.Signature = "%%% not base64 %%%"

	v := NewVerifier(s.fetcher, false, nil)
	if err := v.Verify(context.Background(), env); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Verify() error = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerify_UnsupportedVersion(t *testing.T) {
	s := newTestSigner(t)

	env := notificationEnvelope()
	s.sign(t, env, "2")
	env.SignatureVersion = "3"

	v := NewVerifier(s.fetcher, false, nil)
	if err := v.Verify(context.Background(), env); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Verify() error = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerify_TopicAllowList(t *testing.T) {
	s := newTestSigner(t)

	env := notificationEnvelope()
	s.sign(t, env, "2")

	allowed := NewVerifier(s.fetcher, true, []string{env.TopicARN})
	if err := allowed.Verify(context.Background(), env); err != nil {
		t.Errorf("allow-listed topic: Verify() error = %v", err)
	}

	denied := NewVerifier(s.fetcher, true, []string{"arn:aws:sns:us-west-2:123:other"})
	if err := denied.Verify(context.Background(), env); !errors.Is(err, ErrTopicNotAllowed) {
		t.Errorf("Verify() error = %v, want ErrTopicNotAllowed", err)
	}

	// With enforcement off, any topic passes.
	off := NewVerifier(s.fetcher, false, []string{"arn:aws:sns:us-west-2:123:other"})
	if err := off.Verify(context.Background(), env); err != nil {
		t.Errorf("enforcement off: Verify() error = %v", err)
	}
}

func TestVerify_UntrustedCertHost(t *testing.T) {
	s := newTestSigner(t)

	env := notificationEnvelope()
	s.sign(t, env, "2")
	env.SigningCertURL = "https://evil.example.com/cert.pem"

	v := NewVerifier(s.fetcher, false, nil)
	if err := v.Verify(context.Background(), env); !errors.Is(err, ErrUntrustedCertURL) {
		t.Errorf("Verify() error = %v, want ErrUntrustedCertURL", err)
	}
}

func TestVerify_HTTPCertURLRejected(t *testing.T) {
	s := newTestSigner(t)

	env := notificationEnvelope()
	s.sign(t, env, "2")
	env.SigningCertURL = "http://127.0.0.1/cert.pem"

	v := NewVerifier(s.fetcher, false, nil)
	if err := v.Verify(context.Background(), env); !errors.Is(err, ErrUntrustedCertURL) {
		t.Errorf("Verify() error = %v, want ErrUntrustedCertURL", err)
	}
}

func TestCertFetcher_Caches(t *testing.T) {
	s := newTestSigner(t)

	first, err := s.fetcher.Fetch(context.Background(), s.certURL)
	if err != nil {
		t.Fatalf("first Fetch() error = %v", err)
	}
	second, err := s.fetcher.Fetch(context.Background(), s.certURL)
	if err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}
	if first != second {
		t.Error("second fetch should return the cached certificate")
	}
}

func TestDefaultCertHostPattern(t *testing.T) {
	fetcher, err := NewCertFetcher(nil, "", time.Second)
	if err != nil {
		t.Fatalf("NewCertFetcher() error = %v", err)
	}

	ok := []string{"sns.us-west-2.amazonaws.com", "sns.eu-central-1.amazonaws.com"}
	bad := []string{"sns.us-west-2.amazonaws.com.evil.com", "evil.com", "s3.us-west-2.amazonaws.com"}

	for _, h := range ok {
		if !fetcher.hostPattern.MatchString(h) {
			t.Errorf("%s should be trusted", h)
		}
	}
	for _, h := range bad {
		if fetcher.hostPattern.MatchString(h) {
			t.Errorf("%s should not be trusted", h)
		}
	}
}
