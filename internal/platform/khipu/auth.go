package khipu

import (
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/khipudemo/khipu-payments/internal/domain"
	"github.com/khipudemo/khipu-payments/internal/platform/logging"
)

// Credentials are the immutable account credentials.
type Credentials struct {
	ReceiverID string
	APIKey     string
	Secret     string
}

// NewCredentials validates that every field is present.
func NewCredentials(receiverID, apiKey, secret string) (Credentials, error) {
	c := Credentials{
		ReceiverID: strings.TrimSpace(receiverID),
		APIKey:     strings.TrimSpace(apiKey),
		Secret:     secret,
	}
	if err := c.validate(); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

func (c Credentials) validate() error {
	var missing []string
	if c.ReceiverID == "" {
		missing = append(missing, "KHIPU_RECEIVER_ID")
	}
	if c.APIKey == "" {
		missing = append(missing, "KHIPU_API_KEY")
	}
	if c.Secret == "" {
		missing = append(missing, "KHIPU_SECRET_KEY")
	}
	if len(missing) > 0 {
		return domain.NewPaymentError(domain.KindConfiguration,
			"missing credentials: "+strings.Join(missing, ", "))
	}
	return nil
}

// Call describes one outbound provider request.
type Call struct {
	Operation string
	Method    string
	Endpoint  string
	Params    Params
	Body      any // JSON payload, used by generations that send JSON
}

// Authenticator attaches credentials and payload for one API generation.
type Authenticator interface {
	Generation() string
	Authenticate(req *resty.Request, call Call)
}

// APIKeyAuth authenticates the JSON generation with a static API key header.
type APIKeyAuth struct {
	apiKey string
}

// NewAPIKeyAuth creates an authenticator for the JSON generation.
func NewAPIKeyAuth(creds Credentials) *APIKeyAuth {
	return &APIKeyAuth{apiKey: creds.APIKey}
}

// Generation implements Authenticator.
func (a *APIKeyAuth) Generation() string { return "v3" }

// Authenticate implements Authenticator.
func (a *APIKeyAuth) Authenticate(req *resty.Request, call Call) {
	req.SetHeader("x-api-key", a.apiKey)
	if hasBody(call.Method) {
		body := call.Body
		if body == nil {
			body = call.Params.Clone()
		}
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(body)
		return
	}
	req.SetQueryParamsFromValues(call.Params.Values())
}

// HMACAuth authenticates the legacy form generation with a signature over
// the request parameters.
type HMACAuth struct {
	creds   Credentials
	scheme  SigningScheme
	baseURL string
	logger  *zerolog.Logger
}

// NewHMACAuth creates an authenticator for the legacy generation.
func NewHMACAuth(creds Credentials, scheme SigningScheme, baseURL string, logger *zerolog.Logger) *HMACAuth {
	if logger == nil {
		logger = logging.Nop()
	}
	return &HMACAuth{creds: creds, scheme: scheme, baseURL: baseURL, logger: logger}
}

// Generation implements Authenticator.
func (a *HMACAuth) Generation() string { return "v2" }

// Authenticate implements Authenticator. The identity key travels in the
// body or query but is excluded from the signed string.
func (a *HMACAuth) Authenticate(req *resty.Request, call Call) {
	params := call.Params.Clone()
	params[IdentityKey] = a.creds.ReceiverID

	toSign := StringToSign(a.scheme, call.Method, a.scheme.Target(a.baseURL, call.Endpoint), params)
	signature := calculateHMAC(toSign, a.creds.Secret)

	a.logger.Debug().
		Str("operation", call.Operation).
		Str("scheme", a.scheme.Name).
		Str("string_to_sign", toSign).
		Str("signature", signature).
		Msg("request signed")

	req.SetHeader("Authorization", a.creds.ReceiverID+":"+signature)
	if hasBody(call.Method) {
		req.SetHeader("Content-Type", "application/x-www-form-urlencoded")
		req.SetFormDataFromValues(params.Values())
		return
	}
	req.SetQueryParamsFromValues(params.Values())
}

func hasBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
