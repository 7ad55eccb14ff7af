package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/depositverifier/internal/core/domain"
	"github.com/vietddude/depositverifier/internal/deposit"
)

const (
	testSecret  = "test-secret"
	testDeposit = "0x1111111111111111111111111111111111111111"
	testToken   = "0x1601c48f1178f1f9a9b0be5f5bd7bb20cfd157f3"
	testFrom    = "0xabcdef0123456789abcdef0123456789abcdef01"
)

type mockVerifier struct {
	mock.Mock
	cfg deposit.Config
}

func (m *mockVerifier) Verify(ctx context.Context, req deposit.VerifyRequest) (*deposit.VerifyResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*deposit.VerifyResult)
	return res, args.Error(1)
}

func (m *mockVerifier) Config() deposit.Config {
	return m.cfg
}

func newTestRouter(v *mockVerifier, ratePerMinute int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := NewAuthenticator(testSecret, "")
	return NewRouter(Options{
		RequestTimeout:     5 * time.Second,
		RateLimitPerMinute: ratePerMinute,
	}, NewDepositHandler(v, auth), auth, nil)
}

func newMockVerifier() *mockVerifier {
	return &mockVerifier{cfg: deposit.Config{
		DepositAddress: testDeposit,
		TokenAddress:   testToken,
		Decimals:       18,
	}}
}

func signToken(t *testing.T, subject string, secret string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func do(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestConfigMode(t *testing.T) {
	r := newTestRouter(newMockVerifier(), 0)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/v1/deposits/config", ""},
		{http.MethodGet, "/v1/deposits", ""},
		{http.MethodPost, "/v1/deposits", `{"action":"config"}`},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := do(r, tc.method, tc.path, tc.body, "")
			require.Equal(t, http.StatusOK, w.Code)

			var resp ConfigResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, testDeposit, resp.DepositAddress)
			assert.Equal(t, testToken, resp.TokenAddress)
			assert.Equal(t, 18, resp.Decimals)
		})
	}
}

func TestConfigMode_NotConfigured(t *testing.T) {
	v := newMockVerifier()
	v.cfg.DepositAddress = ""
	r := newTestRouter(v, 0)

	w := do(r, http.MethodGet, "/v1/deposits/config", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, ErrCodeConfiguration, decodeError(t, w).Code)
}

func TestVerifyMode_Success(t *testing.T) {
	v := newMockVerifier()
	v.On("Verify", mock.Anything, mock.MatchedBy(func(req deposit.VerifyRequest) bool {
		return req.UserID == "user-42" && req.FromAddress == testFrom && req.LookbackBlocks == nil
	})).Return(&deposit.VerifyResult{
		FromAddress:    testFrom,
		DepositAddress: testDeposit,
		TokenAddress:   testToken,
		Decimals:       18,
		TotalFound:     decimal.RequireFromString("5"),
		NewlyCredited:  decimal.RequireFromString("1.5"),
		MatchedCount:   2,
		CreditedTxs:    []string{"0xaa"},
	}, nil)

	r := newTestRouter(v, 0)
	token := signToken(t, "user-42", testSecret, time.Hour)

	for _, path := range []string{"/v1/deposits", "/v1/deposits/verify"} {
		t.Run(path, func(t *testing.T) {
			w := do(r, http.MethodPost, path, `{"fromAddress":"`+testFrom+`"}`, token)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			body := w.Body.String()
			assert.Contains(t, body, `"totalFound":5`)
			assert.Contains(t, body, `"newlyCredited":1.5`)
			assert.Contains(t, body, `"matchedCount":2`)
			assert.Contains(t, body, `"creditedTxs":["0xaa"]`)
			assert.NotContains(t, body, "minAmount")
		})
	}
	v.AssertNumberOfCalls(t, "Verify", 2)
}

func TestVerifyMode_PassesOptionalInputs(t *testing.T) {
	v := newMockVerifier()
	v.On("Verify", mock.Anything, mock.MatchedBy(func(req deposit.VerifyRequest) bool {
		return req.LookbackBlocks != nil && *req.LookbackBlocks == 5000 &&
			req.MinConfirmations != nil && *req.MinConfirmations == 12 &&
			req.MinAmount != nil && req.MinAmount.String() == "2.5"
	})).Return(&deposit.VerifyResult{
		TotalFound:    decimal.Zero,
		NewlyCredited: decimal.Zero,
		MinAmount:     decimalPtr("2.5"),
	}, nil)

	r := newTestRouter(v, 0)
	token := signToken(t, "user-1", testSecret, time.Hour)

	w := do(r, http.MethodPost, "/v1/deposits",
		`{"fromAddress":"`+testFrom+`","minAmount":2.5,"lookbackBlocks":5000,"minConfirmations":12}`, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"minAmount":2.5`)
	assert.Contains(t, w.Body.String(), `"creditedTxs":[]`)
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestVerifyMode_Unauthorized(t *testing.T) {
	v := newMockVerifier()
	r := newTestRouter(v, 0)
	body := `{"fromAddress":"` + testFrom + `"}`

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"wrong secret", signToken(t, "user-1", "other-secret", time.Hour)},
		{"expired", signToken(t, "user-1", testSecret, -time.Hour)},
		{"no subject", signToken(t, "", testSecret, time.Hour)},
		{"garbage", "not-a-jwt"},
	}

	for _, tt := range tests {
		for _, path := range []string{"/v1/deposits", "/v1/deposits/verify"} {
			t.Run(tt.name+" "+path, func(t *testing.T) {
				w := do(r, http.MethodPost, path, body, tt.token)
				assert.Equal(t, http.StatusUnauthorized, w.Code)
				assert.Equal(t, ErrCodeUnauthorized, decodeError(t, w).Code)
			})
		}
	}
	v.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestVerifyMode_InvalidInput(t *testing.T) {
	v := newMockVerifier()
	r := newTestRouter(v, 0)
	token := signToken(t, "user-1", testSecret, time.Hour)

	tests := []struct {
		name string
		body string
	}{
		{"missing fromAddress", `{}`},
		{"empty body", ``},
		{"short address", `{"fromAddress":"0x1234"}`},
		{"no prefix", `{"fromAddress":"abcdef0123456789abcdef0123456789abcdef01"}`},
		{"bad json", `{"fromAddress":`},
		{"negative lookback", `{"fromAddress":"` + testFrom + `","lookbackBlocks":-1}`},
		{"unknown action", `{"action":"withdraw","fromAddress":"` + testFrom + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/v1/deposits", tt.body, token)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, ErrCodeInvalidRequest, decodeError(t, w).Code)
		})
	}
	v.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestVerifyMode_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"rpc", fmt.Errorf("%w: eth_getLogs: timeout", domain.ErrRPC), http.StatusInternalServerError, ErrCodeRPC},
		{"decode", fmt.Errorf("%w: all logs failed", domain.ErrDecode), http.StatusInternalServerError, ErrCodeDecode},
		{"config", fmt.Errorf("%w: missing", domain.ErrConfiguration), http.StatusInternalServerError, ErrCodeConfiguration},
		{"in progress", domain.ErrVerifyInProgress, http.StatusConflict, ErrCodeVerifyInProgress},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newMockVerifier()
			v.On("Verify", mock.Anything, mock.Anything).Return(nil, tt.err)
			r := newTestRouter(v, 0)
			token := signToken(t, "user-1", testSecret, time.Hour)

			w := do(r, http.MethodPost, "/v1/deposits/verify", `{"fromAddress":"`+testFrom+`"}`, token)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	v := newMockVerifier()
	v.On("Verify", mock.Anything, mock.Anything).Return(&deposit.VerifyResult{}, nil)
	r := newTestRouter(v, 2)
	token := signToken(t, "user-1", testSecret, time.Hour)
	body := `{"fromAddress":"` + testFrom + `"}`

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/v1/deposits/verify", body, token).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/v1/deposits/verify", body, token).Code)

	w := do(r, http.MethodPost, "/v1/deposits/verify", body, token)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, ErrCodeRateLimited, decodeError(t, w).Code)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(newMockVerifier(), 0)

	req := httptest.NewRequest(http.MethodOptions, "/v1/deposits", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "authorization")
}

func TestRequestIDEchoed(t *testing.T) {
	r := newTestRouter(newMockVerifier(), 0)

	req := httptest.NewRequest(http.MethodGet, "/v1/deposits/config", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}
