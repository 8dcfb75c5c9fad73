package sns

import (
	"context"
	"crypto"
	"crypto/rsa"
	"encoding/base64"
	"fmt"

	// Register the digests used by signature versions 1 and 2.
	_ "crypto/sha1"
	_ "crypto/sha256"
)

// Verifier authenticates SNS envelopes: signature check against the signing
// certificate, plus an optional topic ARN allow-list that fails closed.
type Verifier struct {
	certs         *CertFetcher
	requireTopic  bool
	allowedTopics map[string]struct{}
}

// NewVerifier creates a verifier. When requireTopic is true, messages whose
// TopicArn is not in allowedTopics are rejected before any signature work.
func NewVerifier(certs *CertFetcher, requireTopic bool, allowedTopics []string) *Verifier {
	allowed := make(map[string]struct{}, len(allowedTopics))
	for _, t := range allowedTopics {
		allowed[t] = struct{}{}
	}
	return &Verifier{certs: certs, requireTopic: requireTopic, allowedTopics: allowed}
}

// Verify authenticates the envelope. It returns nil only for a message whose
// signature verifies against a certificate from a trusted host and whose
// topic passes the allow-list. All failure modes return an error; none
// panic, so a forged message cannot leak verification internals.
func (v *Verifier) Verify(ctx context.Context, env *Envelope) error {
	if v.requireTopic {
		if _, ok := v.allowedTopics[env.TopicARN]; !ok {
			return fmt.Errorf("%w: %s", ErrTopicNotAllowed, env.TopicARN)
		}
	}

	hash, err := signatureHash(env.SignatureVersion)
	if err != nil {
		return err
	}

	signable, ok := env.canonicalString()
	if !ok {
		return fmt.Errorf("%w: missing required envelope fields", ErrSignatureInvalid)
	}

	sig, err := base64.StdEncoding.DecodeString(env.Signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not valid base64", ErrSignatureInvalid)
	}

	cert, err := v.certs.Fetch(ctx, env.SigningCertURL)
	if err != nil {
		return err
	}

	// SignatureVersion 1 uses SHA1, which crypto/x509's CheckSignature
	// refuses outright, so hash and verify against the RSA key directly.
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: signing certificate key is not RSA", ErrSignatureInvalid)
	}
	h := hash.New()
	h.Write([]byte(signable))
	if err := rsa.VerifyPKCS1v15(pub, hash, h.Sum(nil), sig); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return nil
}

// signatureHash maps the envelope's SignatureVersion to its digest:
// "1" is SHA1-with-RSA, "2" is SHA256-with-RSA.
func signatureHash(version string) (crypto.Hash, error) {
	switch version {
	case "1":
		return crypto.SHA1, nil
	case "2":
		return crypto.SHA256, nil
	default:
		return 0, fmt.Errorf("%w: unsupported signature version %q", ErrSignatureInvalid, version)
	}
}
