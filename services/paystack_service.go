package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"omniReceiptsAPI/internal/types/payment"

	"github.com/google/uuid"
)

// ErrPaymentInitialization covers gateway rejections and missing
// configuration; callers surface it as a generic payment error.
var ErrPaymentInitialization = errors.New("payment initialization failed")

const defaultPaystackBaseURL = "https://api.paystack.co"

type PaystackService struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewPaystackService() *PaystackService {
	baseURL := os.Getenv("PAYSTACK_BASE_URL")
	if baseURL == "" {
		baseURL = defaultPaystackBaseURL
	}

	return &PaystackService{
		secretKey:  os.Getenv("PAYSTACK_SECRET_KEY"),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *PaystackService) Configured() bool {
	return s.secretKey != ""
}

// GenerateReference builds a payment reference with a timestamp plus a random
// component, so references are unique and not guessable.
func GenerateReference() string {
	random := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("OR-%d-%s", time.Now().Unix(), random[:12])
}

type initializeTransactionRequest struct {
	Email     string                  `json:"email"`
	Amount    int64                   `json:"amount"`
	Reference string                  `json:"reference"`
	Metadata  payment.WebhookMetadata `json:"metadata"`
}

type initializeTransactionResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// InitializeTransaction registers a checkout with Paystack and returns the
// hosted checkout URL. Amount is in subunits (kobo). The metadata binds the
// plan and user to the transaction so the webhook can attribute the payment
// without trusting anything client-declared.
func (s *PaystackService) InitializeTransaction(ctx context.Context, email string, amount int64, reference string, metadata payment.WebhookMetadata) (string, error) {
	if !s.Configured() {
		return "", fmt.Errorf("%w: PAYSTACK_SECRET_KEY is not set", ErrPaymentInitialization)
	}

	body, err := json.Marshal(initializeTransactionRequest{
		Email:     email,
		Amount:    amount,
		Reference: reference,
		Metadata:  metadata,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal initialize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build initialize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPaymentInitialization, err)
	}
	defer resp.Body.Close()

	var result initializeTransactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: invalid gateway response: %v", ErrPaymentInitialization, err)
	}

	if resp.StatusCode != http.StatusOK || !result.Status {
		return "", fmt.Errorf("%w: gateway said %q (HTTP %d)", ErrPaymentInitialization, result.Message, resp.StatusCode)
	}

	return result.Data.AuthorizationURL, nil
}

// VerifySignature checks the x-paystack-signature header: HMAC-SHA512 over
// the raw body with the secret key, hex encoded. hmac.Equal keeps the
// comparison constant time.
func (s *PaystackService) VerifySignature(body []byte, signature string) bool {
	if s.secretKey == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(s.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
