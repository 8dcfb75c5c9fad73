//go:build ignore
// +build ignore

// Webhook Smoke Tool
// Generates a throwaway RSA key pair, serves the matching certificate over
// local HTTPS, signs SES-style notification envelopes with it, and posts
// them at the target webhook. Exercises the full verify-parse-persist path
// without touching AWS.
//
// The target server must trust the local certificate host:
//
//	SNS_ALLOWED_TOPICS= go run ./cmd/server   # with config:
//	webhook:
//	  cert_host_pattern: '^127\.0\.0\.1$'
//
// Usage:
//
//	go run scripts/webhook_smoke.go \
//	  --target=http://localhost:8080/webhooks/sns \
//	  --count=100 \
//	  --bounce-ratio=0.7 \
//	  --duplicates=10
package main

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"flag"
	"fmt"
	"log"
	"math/big"
	mrand "math/rand"
	"net"
	"net/http"
	"strings"
	"time"
)

func main() {
	target := flag.String("target", "http://localhost:8080/webhooks/sns", "webhook URL")
	count := flag.Int("count", 100, "number of notifications to send")
	bounceRatio := flag.Float64("bounce-ratio", 0.7, "fraction of events that are hard bounces (rest are complaints)")
	duplicates := flag.Int("duplicates", 0, "extra redeliveries of already-sent message ids")
	topicARN := flag.String("topic", "arn:aws:sns:us-west-2:000000000000:smoke-test", "TopicArn to stamp on envelopes")
	flag.Parse()

	key, certPEM, err := generateSigningCert()
	if err != nil {
		log.Fatalf("generate cert: %v", err)
	}

	certURL, stop, err := serveCert(certPEM)
	if err != nil {
		log.Fatalf("serve cert: %v", err)
	}
	defer stop()
	log.Printf("serving signing cert at %s", certURL)

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}

	var sent, dup403, ok200, other int
	var messageIDs []string

	start := time.Now()
	for i := 0; i < *count; i++ {
		msgID := fmt.Sprintf("smoke-%d-%d", start.UnixNano(), i)
		messageIDs = append(messageIDs, msgID)

		var payload string
		if mrand.Float64() < *bounceRatio {
			payload = bouncePayload(fmt.Sprintf("bounce%d@smoke.example.com", i))
		} else {
			payload = complaintPayload(fmt.Sprintf("complaint%d@smoke.example.com", i))
		}

		env := signedEnvelope(key, certURL, msgID, *topicARN, payload)
		status, err := post(client, *target, env)
		if err != nil {
			log.Fatalf("post: %v", err)
		}
		sent++
		switch status {
		case 200:
			ok200++
		default:
			other++
			log.Printf("unexpected status %d for %s", status, msgID)
		}
	}

	for i := 0; i < *duplicates && len(messageIDs) > 0; i++ {
		msgID := messageIDs[mrand.Intn(len(messageIDs))]
		env := signedEnvelope(key, certURL, msgID, *topicARN,
			bouncePayload("redelivered@smoke.example.com"))
		status, _ := post(client, *target, env)
		sent++
		if status == 200 {
			ok200++
		} else {
			other++
		}
	}

	// One tampered envelope: flip a byte in the message after signing.
	env := signedEnvelope(key, certURL, "smoke-tampered", *topicARN,
		bouncePayload("tampered@smoke.example.com"))
	env["Message"] = env["Message"].(string) + " "
	status, _ := post(client, *target, env)
	if status == 403 {
		dup403++
	} else {
		log.Printf("WARNING: tampered envelope got %d, expected 403", status)
	}

	elapsed := time.Since(start)
	log.Printf("done: %d sent in %s (%.0f/s), %d ok, %d tamper-rejected, %d unexpected",
		sent, elapsed.Round(time.Millisecond), float64(sent)/elapsed.Seconds(),
		ok200, dup403, other)
}

func generateSigningCert() (*rsa.PrivateKey, []byte, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "webhook-smoke"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}
	return key, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), nil
}

// serveCert exposes the PEM certificate over HTTPS on a loopback port so
// the target's certificate fetcher can retrieve it.
func serveCert(certPEM []byte) (string, func(), error) {
	tlsCert, err := selfServeTLS()
	if err != nil {
		return "", nil, err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(certPEM)
		}),
		TLSConfig: &tls.Config{Certificates: []tls.Certificate{tlsCert}},
	}
	go srv.ServeTLS(ln, "", "")
	url := fmt.Sprintf("https://%s/cert.pem", ln.Addr().String())
	return url, func() { srv.Close() }, nil
}

func selfServeTLS() (tls.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}

// signedEnvelope builds a Notification envelope and signs the canonical
// string with SHA256 (SignatureVersion 2).
func signedEnvelope(key *rsa.PrivateKey, certURL, messageID, topicARN, message string) map[string]interface{} {
	timestamp := time.Now().UTC().Format(time.RFC3339)
	canonical := strings.Join([]string{
		"Message", message,
		"MessageId", messageID,
		"Timestamp", timestamp,
		"TopicArn", topicARN,
		"Type", "Notification",
	}, "\n") + "\n"

	digest := sha256.Sum256([]byte(canonical))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		log.Fatalf("sign: %v", err)
	}

	return map[string]interface{}{
		"Type":             "Notification",
		"MessageId":        messageID,
		"TopicArn":         topicARN,
		"Message":          message,
		"Timestamp":        timestamp,
		"SignatureVersion": "2",
		"Signature":        base64.StdEncoding.EncodeToString(sig),
		"SigningCertURL":   certURL,
	}
}

func bouncePayload(email string) string {
	return fmt.Sprintf(`{
		"notificationType": "Bounce",
		"bounce": {
			"bounceType": "Permanent",
			"bounceSubType": "General",
			"feedbackId": "smoke-feedback",
			"bouncedRecipients": [{"emailAddress": %q, "action": "failed", "status": "5.1.1", "diagnosticCode": "smtp; 550 user unknown"}]
		},
		"mail": {"messageId": "smoke-mail", "source": "sender@smoke.example.com", "destination": [%q]}
	}`, email, email)
}

func complaintPayload(email string) string {
	return fmt.Sprintf(`{
		"notificationType": "Complaint",
		"complaint": {
			"feedbackId": "smoke-feedback",
			"complaintFeedbackType": "abuse",
			"complainedRecipients": [{"emailAddress": %q}]
		},
		"mail": {"messageId": "smoke-mail", "source": "sender@smoke.example.com", "destination": [%q]}
	}`, email, email)
}

func post(client *http.Client, target string, env map[string]interface{}) (int, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return 0, err
	}
	resp, err := client.Post(target, "text/plain; charset=UTF-8", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
